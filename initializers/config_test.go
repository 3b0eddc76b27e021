package initializers

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/Kariqs/farmart-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// clearEnv blanks every variable LoadConfig reads so host settings do not leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "SHUTDOWN_GRACE_SECONDS", "GIN_MODE", "CORS_ALLOWED_ORIGINS",
		"DB_DRIVER", "DB_DSN", "DATABASE_URL", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME", "AUTO_MIGRATE",
		"JWT_SECRET", "JWT_TTL", "ENVIRONMENT", "SERVICE_NAME", "SERVICE_VERSION",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_ENABLE_TRACING", "OTEL_ENABLE_METRICS", "LOG_LEVEL",
		"MPESA_CONSUMER_KEY", "AWS_S3_BUCKET",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ShutdownGrace)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "farmart.db", cfg.Database.DSN)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, "farmart-development-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "farmart-api", cfg.Service.Name)
	assert.False(t, cfg.Telemetry.EnableTracing)
	assert.False(t, cfg.Telemetry.EnableMetrics)
	assert.Equal(t, 1.0, cfg.Telemetry.SampleRate)
}

func TestLoadConfigOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://farmart.co.ke, https://admin.farmart.co.ke")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://farmart@localhost/farmart")
	t.Setenv("AUTO_MIGRATE", "false")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "prod-secret")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4317")
	t.Setenv("OTEL_ENABLE_METRICS", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, []string{"https://farmart.co.ke", "https://admin.farmart.co.ke"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://farmart@localhost/farmart", cfg.Database.DSN)
	assert.False(t, cfg.Database.AutoMigrate)
	assert.Equal(t, "prod-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.True(t, cfg.Telemetry.EnableTracing)
	assert.False(t, cfg.Telemetry.EnableMetrics)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown driver", env: map[string]string{"DB_DRIVER": "oracle"}},
		{name: "mysql without dsn", env: map[string]string{"DB_DRIVER": "mysql"}},
		{name: "bad port", env: map[string]string{"PORT": "eighty"}},
		{name: "bad ttl", env: map[string]string{"JWT_TTL": "forever"}},
		{name: "secret required in production", env: map[string]string{"ENVIRONMENT": "production"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for key, value := range tt.env {
				t.Setenv(key, value)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}

	t.Run("missing secret is typed", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ENVIRONMENT", "staging")
		_, err := LoadConfig()
		assert.ErrorIs(t, err, ErrMissingJWTSecret)
	})
}

func TestOpenDatabaseSqlite(t *testing.T) {
	db, err := OpenDatabase(DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	defer CloseDatabase(db)

	require.NoError(t, SyncDatabase(db))
	require.NoError(t, CheckHealth(t.Context(), db))

	for _, table := range []string{"users", "animals", "animal_images", "carts", "cart_items", "orders", "order_items", "payments"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	_, err = OpenDatabase(DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestGormLoggerSkipsRecordNotFound(t *testing.T) {
	var buf bytes.Buffer
	l := newGormLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	query := func() (string, int64) { return "SELECT * FROM `users` WHERE email = 'nobody@example.com'", 0 }

	l.Trace(context.Background(), time.Now(), query, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	l.Trace(context.Background(), time.Now(), query, errors.New("no such table: users"))
	assert.Contains(t, buf.String(), "no such table: users")
	assert.Contains(t, buf.String(), "level=WARN")
}

func TestOpenDatabaseTranslatesDuplicateKey(t *testing.T) {
	db, err := OpenDatabase(DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	defer CloseDatabase(db)
	require.NoError(t, SyncDatabase(db))

	first := models.User{Name: "Wanjiru", Email: "wanjiru@example.com", Password: "x", Role: models.RoleFarmer}
	require.NoError(t, db.Create(&first).Error)

	second := models.User{Name: "Wanjiru", Email: "wanjiru@example.com", Password: "y", Role: models.RoleBuyer}
	assert.ErrorIs(t, db.Create(&second).Error, gorm.ErrDuplicatedKey)
}
