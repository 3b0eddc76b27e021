package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type OrderMetrics struct {
	ordersCreated       metric.Int64Counter
	orderTransitions    metric.Int64Counter
	paymentResults      metric.Int64Counter
	inventoryRejections metric.Int64Counter
}

func NewOrderMetrics(meter metric.Meter) (*OrderMetrics, error) {
	m := &OrderMetrics{}

	var err error

	m.ordersCreated, err = meter.Int64Counter(
		"orders_created_total",
		metric.WithDescription("Orders created from carts"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create orders_created_total counter: %w", err)
	}

	m.orderTransitions, err = meter.Int64Counter(
		"order_transitions_total",
		metric.WithDescription("Order lifecycle transitions attempted"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_transitions_total counter: %w", err)
	}

	m.paymentResults, err = meter.Int64Counter(
		"payment_results_total",
		metric.WithDescription("Payment attempts and settlements by provider and outcome"),
		metric.WithUnit("{payment}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create payment_results_total counter: %w", err)
	}

	m.inventoryRejections, err = meter.Int64Counter(
		"inventory_rejections_total",
		metric.WithDescription("Order creations refused for insufficient stock"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create inventory_rejections_total counter: %w", err)
	}

	return m, nil
}

func (m *OrderMetrics) RecordOrderCreated(ctx context.Context, success bool) {
	m.ordersCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("status", outcome(success))))
}

func (m *OrderMetrics) RecordTransition(ctx context.Context, transition string, success bool) {
	m.orderTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("transition", transition),
		attribute.String("status", outcome(success)),
	))
}

func (m *OrderMetrics) RecordPayment(ctx context.Context, provider, result string) {
	m.paymentResults.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", result),
	))
}

func (m *OrderMetrics) RecordInventoryRejection(ctx context.Context) {
	m.inventoryRejections.Add(ctx, 1)
}

type HTTPMetrics struct {
	requestDuration metric.Float64Histogram
	requestsTotal   metric.Int64Counter
}

func NewHTTPMetrics(meter metric.Meter) (*HTTPMetrics, error) {
	m := &HTTPMetrics{}

	var err error

	m.requestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_request_duration histogram: %w", err)
	}

	m.requestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_requests_total counter: %w", err)
	}

	return m, nil
}

// RecordRequest expects route to be the gin route template, not the raw
// path, so ids do not explode label cardinality.
func (m *HTTPMetrics) RecordRequest(ctx context.Context, method, route string, statusCode int, durationSeconds float64) {
	m.requestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status_code", statusCode),
	))
	m.requestDuration.Record(ctx, durationSeconds, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
	))
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
