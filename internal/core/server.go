// Package core provides the API chassis for the estaciones clima service.
// It creates a chi router that serves both standard HTTP (local and
// container deployments) and AWS Lambda proxy events. It enforces
// cross-cutting concerns such as logging, error envelopes and metrics before
// requests reach domain-specific handlers.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"clima/internal/config"
)

// MetricsCollector defines the interface for recording API telemetry.
// Implementations record request latency and count metrics to CloudWatch
// or equivalent backends.
type MetricsCollector interface {
	// RecordRequest records API request metrics including latency and count.
	// endpoint is the chi route pattern, not the raw path, so that station
	// ids do not explode metric cardinality.
	RecordRequest(ctx context.Context, method, endpoint, status string, duration time.Duration)
}

// Server encapsulates all dependencies for the API, allowing for easy
// injection during testing and distinct configuration for different
// environments.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator
	Metrics   MetricsCollector

	// HealthProbes are checked concurrently by GET /health.
	HealthProbes []HealthProbe

	// RouteRegistrars mount domain handlers under Config.Server.BasePath.
	// They are populated by the entry point, which keeps core free of
	// handler imports.
	RouteRegistrars []func(chi.Router)

	closers []func() error
	router  *chi.Mux
}

// NewServer initializes dependencies and prepares the server for route
// mounting. The caller mounts routes via MountRoutes after wiring
// registrars, probes and metrics.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler interface for the router.
// Used by http.Server (local) and the Lambda adapter.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// OnShutdown registers a resource to release during Shutdown, such as the
// pgx pool or the SQLite handle. Closers run in reverse registration order.
func (s *Server) OnShutdown(closer func() error) {
	s.closers = append(s.closers, closer)
}

// Shutdown releases server resources. Every closer runs even if an earlier
// one failed; the failures are joined.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.InfoContext(ctx, "server shutdown initiated")

	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.Logger.ErrorContext(ctx, "error releasing server resource", "error", err)
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("releasing server resources: %w", err)
	}

	s.Logger.InfoContext(ctx, "server shutdown complete")
	return nil
}
