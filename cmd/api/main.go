// Package main is the entry point for the estaciones clima API.
//
// It loads the configuration, opens the station store, builds the provider
// registry and the aggregation service selected by AGGREGATION_MODE, mounts
// the HTTP chassis and serves requests.
//
// Outside AWS Lambda it runs as a standard HTTP server on the configured
// port with graceful shutdown on SIGINT/SIGTERM. Inside Lambda it serves
// API Gateway proxy events through the same router.
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

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/lmittmann/tint"

	"clima/internal/api/handlers"
	"clima/internal/clima"
	"clima/internal/config"
	"clima/internal/core"
	"clima/internal/db"
	"clima/internal/external"
	"clima/internal/telemetry"
	"clima/internal/types"
)

// startupTimeout bounds store connection and AWS client setup.
const startupTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig(newSecretProvider(os.LookupEnv))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg)
	logger.Info("estaciones clima API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
		"aggregation_mode", cfg.Weather.AggregationMode,
		"database_driver", cfg.Database.Driver,
	)

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	srv, err := buildServer(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if isLambdaEnvironment() {
		return runLambda(srv, logger)
	}

	return runHTTPServer(srv, cfg, logger)
}

// buildServer wires every dependency into a mounted core.Server. Resources
// opened here are released by srv.Shutdown, including on a failed build.
func buildServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *core.Server, err error) {
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	defer func() {
		if err != nil {
			_ = srv.Shutdown(context.Background())
		}
	}()

	stations, err := openStationStore(ctx, cfg, srv)
	if err != nil {
		return nil, err
	}

	metrics, err := newMetrics(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	serviceCfg := clima.ServiceConfig{
		ProviderTimeout: cfg.Weather.ProviderTimeout,
		Logger:          logger,
	}
	if metrics != nil {
		srv.Metrics = metrics
		serviceCfg.Metrics = metrics
	}

	registry := external.NewProviderRegistry(cfg, logger)

	var handler *handlers.ClimaHandler
	switch cfg.Weather.AggregationMode {
	case config.AggregationFallback:
		fallback := clima.NewFallbackService(stations, clima.RegistryLoader(registry, serviceCfg), logger)
		handler = handlers.NewFallbackClimaHandler(fallback, srv.Validator, logger)
	default:
		service := clima.NewService(stations, registry.Providers(), serviceCfg)
		handler = handlers.NewClimaHandler(service, srv.Validator, logger)
	}
	srv.RouteRegistrars = append(srv.RouteRegistrars, handler.RegisterRoutes)

	if err := srv.MountRoutes(); err != nil {
		return nil, fmt.Errorf("mounting routes: %w", err)
	}
	return srv, nil
}

// pinger is implemented by both station repositories.
type pinger interface {
	types.StationRepository
	Ping(ctx context.Context) error
}

// openStationStore opens the configured station store, registers its
// health probe and schedules it for release on shutdown.
func openStationStore(ctx context.Context, cfg *config.Config, srv *core.Server) (types.StationRepository, error) {
	var repo pinger

	switch cfg.Database.Driver {
	case config.DriverSQLite:
		sqlDB, err := db.OpenSQLite(ctx, cfg.Database.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite station store: %w", err)
		}
		srv.OnShutdown(sqlDB.Close)
		repo = db.NewSQLiteStationRepository(sqlDB)
	default:
		pool, err := db.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("opening postgres station store: %w", err)
		}
		srv.OnShutdown(func() error {
			pool.Close()
			return nil
		})
		repo = db.NewStationRepository(pool)
	}

	srv.HealthProbes = append(srv.HealthProbes, core.NewProbe("station_store", repo.Ping))
	return repo, nil
}

// newMetrics returns the CloudWatch collector, or nil when metrics are
// disabled. The nil is untyped so that callers can test it directly.
func newMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*telemetry.CloudWatchMetrics, error) {
	if !cfg.Observability.EnableMetrics {
		return nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for CloudWatch (region=%s): %w", cfg.AWS.Region, err)
	}

	logger.Info("CloudWatch metrics enabled", "namespace", cfg.Observability.MetricNamespace)
	return telemetry.NewCloudWatchMetrics(cloudwatch.NewFromConfig(awsCfg), cfg.Observability.MetricNamespace, logger), nil
}

// newSecretProvider selects where _SSM_PARAM pointers resolve from.
// SECRET_PROVIDER=env resolves them from other environment variables, for
// containers running a non-local APP_ENV without AWS credentials.
func newSecretProvider(lookupEnv func(string) (string, bool)) config.SecretProvider {
	if source, _ := lookupEnv("SECRET_PROVIDER"); source == "env" {
		return config.NewEnvVarProvider()
	}

	region, ok := lookupEnv("AWS_REGION")
	if !ok || region == "" {
		region = "us-east-1"
	}
	return config.NewSSMProvider(region)
}

// isLambdaEnvironment returns true if the process is running inside AWS Lambda.
func isLambdaEnvironment() bool {
	_, hasRuntimeAPI := os.LookupEnv("AWS_LAMBDA_RUNTIME_API")
	_, hasServerPort := os.LookupEnv("_LAMBDA_SERVER_PORT")
	return hasRuntimeAPI || hasServerPort
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Must outlast the request deadline so timed-out requests still
		// get their response written.
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			_ = srv.Shutdown(context.Background())
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates the process logger: a coloured tint handler for local
// development, JSON everywhere else.
func newLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.LogLevel)

	if cfg.Environment == "local" {
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			AddSource:  true,
			TimeFormat: time.Kitchen,
		})).With("service", cfg.Service)
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})).With(
		"service", cfg.Service,
		"version", cfg.Build.Version,
		"env", cfg.Environment,
	)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
