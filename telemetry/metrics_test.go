package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	byName := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			byName[m.Name] = m
		}
	}
	return byName
}

func TestOrderMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")

	metrics, err := NewOrderMetrics(meter)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordOrderCreated(ctx, true)
	metrics.RecordOrderCreated(ctx, false)
	metrics.RecordTransition(ctx, "reject", true)
	metrics.RecordPayment(ctx, "mpesa", "initiated")
	metrics.RecordPayment(ctx, "mpesa", "initiated")
	metrics.RecordInventoryRejection(ctx)

	byName := collect(t, reader)

	created, ok := byName["orders_created_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, created.DataPoints, 2)

	payments, ok := byName["payment_results_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, payments.DataPoints, 1)
	assert.Equal(t, int64(2), payments.DataPoints[0].Value)
	provider, _ := payments.DataPoints[0].Attributes.Value(attribute.Key("provider"))
	assert.Equal(t, "mpesa", provider.AsString())

	transitions, ok := byName["order_transitions_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, transitions.DataPoints, 1)
	name, _ := transitions.DataPoints[0].Attributes.Value(attribute.Key("transition"))
	assert.Equal(t, "reject", name.AsString())

	rejections, ok := byName["inventory_rejections_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, rejections.DataPoints, 1)
	assert.Equal(t, int64(1), rejections.DataPoints[0].Value)
}

func TestHTTPMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")

	metrics, err := NewHTTPMetrics(meter)
	require.NoError(t, err)

	metrics.RecordRequest(context.Background(), "GET", "/animals/:id", 200, 0.012)

	byName := collect(t, reader)

	requests, ok := byName["http_requests_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, requests.DataPoints, 1)
	route, _ := requests.DataPoints[0].Attributes.Value(attribute.Key("route"))
	assert.Equal(t, "/animals/:id", route.AsString())

	duration, ok := byName["http_request_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, duration.DataPoints, 1)
	assert.Equal(t, uint64(1), duration.DataPoints[0].Count)
}
