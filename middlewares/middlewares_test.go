package middlewares

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Kariqs/farmart-api/initializers"
	"github.com/Kariqs/farmart-api/models"
	"github.com/Kariqs/farmart-api/services"
	"github.com/Kariqs/farmart-api/telemetry"
	"github.com/Kariqs/farmart-api/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"gorm.io/gorm"
)

func setupAuth(t *testing.T) (*gorm.DB, *utils.TokenIssuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := initializers.OpenDatabase(initializers.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, initializers.SyncDatabase(db))
	t.Cleanup(func() { _ = initializers.CloseDatabase(db) })
	return db, utils.NewTokenIssuer("middleware-secret", time.Hour)
}

func TestRequireAuth(t *testing.T) {
	db, tokens := setupAuth(t)

	farmer := models.User{Name: "farmer", Email: "farmer@example.com", Password: "x", Role: models.RoleFarmer}
	require.NoError(t, db.Create(&farmer).Error)
	valid, err := tokens.GenerateToken(farmer)
	require.NoError(t, err)
	foreign, err := utils.NewTokenIssuer("other-secret", time.Hour).GenerateToken(farmer)
	require.NoError(t, err)

	router := gin.New()
	router.GET("/whoami", RequireAuth(db, tokens), func(ctx *gin.Context) {
		caller, ok := CurrentCaller(ctx)
		require.True(t, ok)
		user, ok := CurrentUser(ctx)
		require.True(t, ok)
		ctx.JSON(http.StatusOK, gin.H{"id": caller.ID, "role": caller.Role, "email": user.Email})
	})

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{name: "missing header", header: "", status: http.StatusUnauthorized, code: "missing_token"},
		{name: "wrong scheme", header: "Basic " + valid, status: http.StatusUnprocessableEntity, code: "invalid_token"},
		{name: "empty bearer", header: "Bearer ", status: http.StatusUnprocessableEntity, code: "invalid_token"},
		{name: "foreign signature", header: "Bearer " + foreign, status: http.StatusUnprocessableEntity, code: "invalid_token"},
		{name: "valid", header: "Bearer " + valid, status: http.StatusOK},
		{name: "lowercase scheme", header: "bearer " + valid, status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tt.code != "" {
				assert.Equal(t, tt.code, body["code"])
				return
			}
			assert.Equal(t, "farmer", body["role"])
			assert.Equal(t, "farmer@example.com", body["email"])
		})
	}

	t.Run("deleted account", func(t *testing.T) {
		require.NoError(t, db.Delete(&farmer).Error)

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+valid)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "unknown_user")
	})
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	withCaller := func(caller *services.Caller) gin.HandlerFunc {
		return func(ctx *gin.Context) {
			if caller != nil {
				ctx.Set(callerKey, *caller)
			}
		}
	}

	tests := []struct {
		name   string
		caller *services.Caller
		status int
	}{
		{name: "no caller", status: http.StatusUnauthorized},
		{name: "buyer on farmer route", caller: &services.Caller{ID: 1, Role: models.RoleBuyer}, status: http.StatusForbidden},
		{name: "farmer", caller: &services.Caller{ID: 2, Role: models.RoleFarmer}, status: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.POST("/animals", withCaller(tt.caller), RequireRole(models.RoleFarmer), func(ctx *gin.Context) {
				ctx.Status(http.StatusNoContent)
			})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/animals", nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRequestLoggerAndMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var logs bytes.Buffer
	logger := telemetry.NewLoggerWithWriter(&logs, slog.LevelDebug)

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	httpMetrics, err := telemetry.NewHTTPMetrics(provider.Meter("test"))
	require.NoError(t, err)

	router := gin.New()
	router.Use(RequestLogger(logger), Metrics(httpMetrics))
	router.GET("/animals/:id", func(ctx *gin.Context) {
		ctx.JSON(http.StatusNotFound, gin.H{"code": "not_found"})
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/animals/7", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "request completed", entry["msg"])
	assert.Equal(t, "/animals/:id", entry["route"])
	assert.Equal(t, "/animals/7", entry["path"])
	assert.Equal(t, float64(http.StatusNotFound), entry["status"])

	var data metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(t.Context(), &data))
	var names []string
	for _, scope := range data.ScopeMetrics {
		for _, m := range scope.Metrics {
			names = append(names, m.Name)
		}
	}
	assert.Contains(t, names, "http_requests_total")
	assert.Contains(t, names, "http_request_duration_seconds")
}
