package initializers

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the runtime configuration, read from the environment.
type Config struct {
	HTTP      HTTPConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Mpesa     MpesaConfig
	Storage   StorageConfig
	Mail      MailConfig
	Telemetry TelemetryConfig
	Service   ServiceConfig
}

type HTTPConfig struct {
	Port           int
	GinMode        string
	AllowedOrigins []string
	ShutdownGrace  time.Duration
}

type DatabaseConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type MpesaConfig struct {
	Environment    string
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	CallbackURL    string
}

type StorageConfig struct {
	Bucket string
}

type MailConfig struct {
	From        string
	Password    string
	SMTPHost    string
	SMTPAddress string
}

type TelemetryConfig struct {
	LogLevel      string
	OTelEndpoint  string
	EnableTracing bool
	EnableMetrics bool
	SampleRate    float64
}

type ServiceConfig struct {
	Name        string
	Version     string
	Environment string
}

const (
	defaultHTTPPort       = 8080
	defaultShutdownGrace  = 15
	defaultDBDriver       = "sqlite"
	defaultSQLiteDSN      = "farmart.db"
	defaultMaxOpenConns   = 25
	defaultMaxIdleConns   = 5
	defaultConnLifetime   = 5 * time.Minute
	defaultTokenTTL       = 24 * time.Hour
	defaultServiceName    = "farmart-api"
	defaultServiceVersion = "0.1.0"
	defaultEnvironment    = "development"
	defaultLogLevel       = "info"
	defaultOTelSampleRate = 1.0
	developmentJWTSecret  = "farmart-development-secret"
)

var ErrMissingJWTSecret = errors.New("JWT_SECRET is required outside development")

var defaultAllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

func LoadConfig() (*Config, error) {
	service := loadServiceConfig()

	httpCfg, err := loadHTTPConfig()
	if err != nil {
		return nil, fmt.Errorf("loading HTTP config: %w", err)
	}
	dbCfg, err := loadDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("loading database config: %w", err)
	}
	authCfg, err := loadAuthConfig(service.Environment)
	if err != nil {
		return nil, fmt.Errorf("loading auth config: %w", err)
	}
	telCfg, err := loadTelemetryConfig()
	if err != nil {
		return nil, fmt.Errorf("loading telemetry config: %w", err)
	}

	return &Config{
		HTTP:     httpCfg,
		Database: dbCfg,
		Auth:     authCfg,
		Mpesa: MpesaConfig{
			Environment:    getEnvOrDefault("MPESA_ENV", "sandbox"),
			ConsumerKey:    os.Getenv("MPESA_CONSUMER_KEY"),
			ConsumerSecret: os.Getenv("MPESA_CONSUMER_SECRET"),
			Shortcode:      os.Getenv("MPESA_SHORTCODE"),
			Passkey:        os.Getenv("MPESA_PASSKEY"),
			CallbackURL:    os.Getenv("MPESA_CALLBACK_URL"),
		},
		Storage: StorageConfig{Bucket: os.Getenv("AWS_S3_BUCKET")},
		Mail: MailConfig{
			From:        os.Getenv("FROM_EMAIL"),
			Password:    os.Getenv("FROM_EMAIL_PASSWORD"),
			SMTPHost:    os.Getenv("FROM_EMAIL_SMTP"),
			SMTPAddress: os.Getenv("SMTP_ADDRESS"),
		},
		Telemetry: telCfg,
		Service:   service,
	}, nil
}

func loadHTTPConfig() (HTTPConfig, error) {
	port, err := getIntEnv("PORT", defaultHTTPPort)
	if err != nil {
		return HTTPConfig{}, err
	}
	grace, err := getIntEnv("SHUTDOWN_GRACE_SECONDS", defaultShutdownGrace)
	if err != nil {
		return HTTPConfig{}, err
	}

	origins := defaultAllowedOrigins
	if value := os.Getenv("CORS_ALLOWED_ORIGINS"); value != "" {
		origins = nil
		for _, origin := range strings.Split(value, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
	}

	return HTTPConfig{
		Port:           port,
		GinMode:        getEnvOrDefault("GIN_MODE", "debug"),
		AllowedOrigins: origins,
		ShutdownGrace:  time.Duration(grace) * time.Second,
	}, nil
}

func loadDatabaseConfig() (DatabaseConfig, error) {
	driver := strings.ToLower(getEnvOrDefault("DB_DRIVER", defaultDBDriver))
	switch driver {
	case "mysql", "postgres", "sqlite":
	default:
		return DatabaseConfig{}, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		if driver != "sqlite" {
			return DatabaseConfig{}, fmt.Errorf("DB_DSN is required for driver %s", driver)
		}
		dsn = defaultSQLiteDSN
	}

	maxOpen, err := getIntEnv("DB_MAX_OPEN_CONNS", defaultMaxOpenConns)
	if err != nil {
		return DatabaseConfig{}, err
	}
	maxIdle, err := getIntEnv("DB_MAX_IDLE_CONNS", defaultMaxIdleConns)
	if err != nil {
		return DatabaseConfig{}, err
	}
	lifetime, err := getDurationEnv("DB_CONN_MAX_LIFETIME", defaultConnLifetime)
	if err != nil {
		return DatabaseConfig{}, err
	}

	return DatabaseConfig{
		Driver:          driver,
		DSN:             dsn,
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: lifetime,
		AutoMigrate:     getBoolEnv("AUTO_MIGRATE", true),
	}, nil
}

func loadAuthConfig(environment string) (AuthConfig, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if environment != defaultEnvironment {
			return AuthConfig{}, ErrMissingJWTSecret
		}
		secret = developmentJWTSecret
	}

	ttl, err := getDurationEnv("JWT_TTL", defaultTokenTTL)
	if err != nil {
		return AuthConfig{}, err
	}
	return AuthConfig{JWTSecret: secret, TokenTTL: ttl}, nil
}

func loadTelemetryConfig() (TelemetryConfig, error) {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")

	sampleRate := defaultOTelSampleRate
	if value, ok := os.LookupEnv("OTEL_SAMPLE_RATE"); ok {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return TelemetryConfig{}, fmt.Errorf("invalid OTEL_SAMPLE_RATE: %w", err)
		}
		sampleRate = parsed
	}

	return TelemetryConfig{
		LogLevel:      getEnvOrDefault("LOG_LEVEL", defaultLogLevel),
		OTelEndpoint:  endpoint,
		EnableTracing: getBoolEnv("OTEL_ENABLE_TRACING", endpoint != ""),
		EnableMetrics: getBoolEnv("OTEL_ENABLE_METRICS", endpoint != ""),
		SampleRate:    sampleRate,
	}, nil
}

func loadServiceConfig() ServiceConfig {
	return ServiceConfig{
		Name:        getEnvOrDefault("SERVICE_NAME", defaultServiceName),
		Version:     getEnvOrDefault("SERVICE_VERSION", defaultServiceVersion),
		Environment: getEnvOrDefault("ENVIRONMENT", defaultEnvironment),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getIntEnv(key string, defaultValue int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
