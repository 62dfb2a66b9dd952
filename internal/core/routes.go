package core

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"clima/internal/types"
)

// defaultRequestTimeout is applied when the configuration carries no
// REQUEST_TIMEOUT. It must outlast the station lookup plus one provider
// timeout per provider.
const defaultRequestTimeout = 35 * time.Second

// defaultRedactedHeaders lists header names whose values are masked in request
// logs. The service has no auth of its own, but API Gateway and browsers may
// still forward credentials.
var defaultRedactedHeaders = []string{
	"Authorization",
	"Cookie",
	"X-Api-Key",
}

// requestIDHeader is read from and echoed to clients, and forwarded to
// weather providers.
const requestIDHeader = "X-Request-Id"

// MountRoutes defines the top-level routing hierarchy: the global middleware
// chain, the health check and the domain routes under the base path.
func (s *Server) MountRoutes() error {
	compress, err := CompressionMiddleware(compressionMinSize)
	if err != nil {
		return err
	}

	s.registerGlobalMiddleware(compress)

	s.router.Get("/health", s.HandleHealth)
	s.router.Route(s.basePath(), s.mountAPI)
	s.router.NotFound(s.handleNotFound)

	return nil
}

// registerGlobalMiddleware applies middleware in strict order.
//
// Ordering Rationale:
//  1. Recoverer          - Catches panics; outermost to catch all failures.
//  2. ContextTimeout     - Sets the whole-request deadline.
//  3. RequestID          - Generates/propagates correlation ID.
//  4. SecurityHeaders    - Ensures all responses include security headers.
//  5. RequestLogger      - Structured logging; stores the request logger.
//  6. CORS               - The browser frontend calls the API cross-origin.
//  7. Metrics            - Request latency and count recording.
//  8. Compression        - gzip for clients that accept it.
func (s *Server) registerGlobalMiddleware(compress func(http.Handler) http.Handler) {
	s.router.Use(s.Recoverer)
	s.router.Use(ContextTimeoutMiddleware(s.requestTimeout()))
	s.router.Use(RequestIDMiddleware)
	s.router.Use(s.SecurityHeadersMiddleware)
	s.router.Use(RequestLogger(s.Logger, s.redactedHeaders()))
	s.router.Use(NewCORSMiddleware(s.corsAllowedOrigins()))
	s.router.Use(s.MetricsMiddleware)
	s.router.Use(compress)
}

func (s *Server) mountAPI(r chi.Router) {
	for _, registrar := range s.RouteRegistrars {
		registrar(r)
	}
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	Error(w, r, types.NewAppError(types.ErrCodeNotFoundRoute, "route not found", nil))
}

func (s *Server) basePath() string {
	if s.Config != nil && s.Config.Server.BasePath != "" {
		return s.Config.Server.BasePath
	}
	return "/api"
}

func (s *Server) requestTimeout() time.Duration {
	if s.Config != nil && s.Config.Server.RequestTimeout > 0 {
		return s.Config.Server.RequestTimeout
	}
	return defaultRequestTimeout
}

func (s *Server) redactedHeaders() []string {
	return defaultRedactedHeaders
}

// corsAllowedOrigins returns the CORS allowed origins from configuration.
func (s *Server) corsAllowedOrigins() []string {
	if s.Config != nil && len(s.Config.Security.CorsAllowedOrigins) > 0 {
		return s.Config.Security.CorsAllowedOrigins
	}
	return []string{"*"}
}

// ContextTimeoutMiddleware sets a deadline on the request context.
// Downstream code observing the context (the station query, provider calls)
// stops when it expires.
func ContextTimeoutMiddleware(duration time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), duration)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDMiddleware generates or propagates a unique request ID for
// correlation across logs and provider calls. An incoming X-Request-Id is
// reused; otherwise a random UUID is generated.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := types.WithRequestID(r.Context(), requestID)
		w.Header().Set(requestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
