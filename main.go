package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kariqs/farmart-api/initializers"
	"github.com/Kariqs/farmart-api/middlewares"
	"github.com/Kariqs/farmart-api/payments"
	"github.com/Kariqs/farmart-api/routes"
	"github.com/Kariqs/farmart-api/services"
	"github.com/Kariqs/farmart-api/telemetry"
	"github.com/Kariqs/farmart-api/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
)

func init() {
	initializers.LoadEnv()
}

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := initializers.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := telemetry.NewLogger(telemetry.ParseLevel(cfg.Telemetry.LogLevel))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		Environment:    cfg.Service.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTelEndpoint,
		EnableTracing:  cfg.Telemetry.EnableTracing,
		EnableMetrics:  cfg.Telemetry.EnableMetrics,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	meter := otel.Meter("github.com/Kariqs/farmart-api")
	orderMetrics, err := telemetry.NewOrderMetrics(meter)
	if err != nil {
		return err
	}
	httpMetrics, err := telemetry.NewHTTPMetrics(meter)
	if err != nil {
		return err
	}

	if err := initializers.ConnectToDB(cfg.Database); err != nil {
		return err
	}
	defer func() {
		if err := initializers.CloseDatabase(initializers.DB); err != nil {
			logger.Error("closing database failed", "error", err)
		}
	}()
	if cfg.Database.AutoMigrate {
		if err := initializers.SyncDatabase(initializers.DB); err != nil {
			return err
		}
		logger.Info("database synced successfully", "driver", cfg.Database.Driver)
	}

	gateways := []payments.Gateway{payments.NewMockGateway()}
	mpesaCfg := payments.MpesaConfig{
		Environment:    cfg.Mpesa.Environment,
		ConsumerKey:    cfg.Mpesa.ConsumerKey,
		ConsumerSecret: cfg.Mpesa.ConsumerSecret,
		Shortcode:      cfg.Mpesa.Shortcode,
		Passkey:        cfg.Mpesa.Passkey,
		CallbackURL:    cfg.Mpesa.CallbackURL,
	}
	if mpesaCfg.Configured() {
		gateways = append(gateways, payments.NewMpesaGateway(mpesaCfg))
	} else {
		logger.Warn("mpesa credentials not set, only mock payments are available")
	}
	engine := services.NewOrderEngine(payments.NewRegistry(payments.ProviderMock, gateways...), orderMetrics, logger)

	deps := routes.Dependencies{
		DB:     initializers.DB,
		Tokens: utils.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Engine: engine,
		Mailer: utils.NewMailer(utils.MailConfig{
			From:        cfg.Mail.From,
			Password:    cfg.Mail.Password,
			SMTPHost:    cfg.Mail.SMTPHost,
			SMTPAddress: cfg.Mail.SMTPAddress,
		}),
		Logger: logger,
	}
	if cfg.Storage.Bucket != "" {
		uploader, err := utils.NewS3Uploader(ctx, cfg.Storage.Bucket)
		if err != nil {
			return err
		}
		deps.Uploader = uploader
	} else {
		logger.Warn("AWS_S3_BUCKET not set, image uploads are disabled")
	}

	gin.SetMode(cfg.HTTP.GinMode)
	server := gin.New()
	server.Use(gin.Recovery())
	server.Use(middlewares.RequestLogger(logger))
	server.Use(middlewares.Metrics(httpMetrics))
	server.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.HTTP.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	routes.Register(server, deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "port", cfg.HTTP.Port, "environment", cfg.Service.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("http server stopped")
	return nil
}
