package core

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzip"

	"clima/internal/config"
	"clima/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// newTestServerForRoutes creates a Server with MountRoutes called and the
// given registrars mounted under /api.
func newTestServerForRoutes(t *testing.T, registrars ...func(chi.Router)) (*Server, *MockMetricsCollector) {
	t.Helper()

	cfg := &config.Config{
		Environment: "local",
		Server: config.ServerConfig{
			BasePath:       "/api",
			RequestTimeout: 5 * time.Second,
		},
		Security: config.SecurityConfig{
			CorsAllowedOrigins: []string{"*"},
		},
	}

	srv, err := NewServer(cfg, discardLogger())
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	metrics := &MockMetricsCollector{}
	srv.Metrics = metrics
	srv.RouteRegistrars = registrars

	if err := srv.MountRoutes(); err != nil {
		t.Fatalf("MountRoutes failed: %v", err)
	}
	return srv, metrics
}

func decodeErrorEnvelope(t *testing.T, body io.Reader) ErrorDetail {
	t.Helper()
	var resp APIErrorResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	return resp.Error
}

func TestMountRoutes_MiddlewareCount(t *testing.T) {
	srv, _ := newTestServerForRoutes(t)

	if got := len(srv.Router().Middlewares()); got != 8 {
		t.Errorf("expected 8 middleware registered, got %d", got)
	}
}

func TestMountRoutes_HealthEndpoint(t *testing.T) {
	srv, _ := newTestServerForRoutes(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp healthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q, want healthy", resp.Status)
	}
}

func TestMountRoutes_RegistrarsMountedUnderBasePath(t *testing.T) {
	srv, _ := newTestServerForRoutes(t, func(r chi.Router) {
		r.Get("/clima/{id}", func(w http.ResponseWriter, r *http.Request) {
			JSON(w, r, http.StatusOK, map[string]string{"id": chi.URLParam(r, "id")})
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/clima/7", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"id":"7"`) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}

	// The same route outside the base path does not exist.
	req = httptest.NewRequest(http.MethodGet, "/clima/7", nil)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 outside base path, got %d", w.Code)
	}
}

func TestMountRoutes_NotFoundUsesEnvelope(t *testing.T) {
	srv, _ := newTestServerForRoutes(t)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	req.Header.Set("X-Request-Id", "req-404")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	detail := decodeErrorEnvelope(t, w.Body)
	if detail.Code != string(types.ErrCodeNotFoundRoute) {
		t.Errorf("code = %q, want %q", detail.Code, types.ErrCodeNotFoundRoute)
	}
	if detail.RequestID != "req-404" {
		t.Errorf("request_id = %q, want req-404", detail.RequestID)
	}
}

func TestMountRoutes_SecurityHeaders(t *testing.T) {
	srv, _ := newTestServerForRoutes(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
	} {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestMountRoutes_RequestIDGenerated(t *testing.T) {
	srv, _ := newTestServerForRoutes(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-Id"); len(got) != 36 {
		t.Errorf("expected a generated UUID request id, got %q", got)
	}
}

func TestMountRoutes_RequestIDPropagated(t *testing.T) {
	var seen string
	srv, _ := newTestServerForRoutes(t, func(r chi.Router) {
		r.Get("/echo", func(w http.ResponseWriter, r *http.Request) {
			seen = types.GetRequestID(r.Context())
			w.WriteHeader(http.StatusNoContent)
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/echo", nil)
	req.Header.Set("X-Request-Id", "client-supplied")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-Id"); got != "client-supplied" {
		t.Errorf("response header = %q, want client-supplied", got)
	}
	if seen != "client-supplied" {
		t.Errorf("context request id = %q, want client-supplied", seen)
	}
}

func TestMountRoutes_CORSPreflight(t *testing.T) {
	srv, _ := newTestServerForRoutes(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/clima/1", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET, OPTIONS" {
		t.Errorf("Access-Control-Allow-Methods = %q", got)
	}
}

func TestMountRoutes_ContextDeadline(t *testing.T) {
	var deadline time.Time
	var hasDeadline bool
	srv, _ := newTestServerForRoutes(t, func(r chi.Router) {
		r.Get("/deadline", func(w http.ResponseWriter, r *http.Request) {
			deadline, hasDeadline = r.Context().Deadline()
			w.WriteHeader(http.StatusNoContent)
		})
	})

	start := time.Now()
	req := httptest.NewRequest(http.MethodGet, "/api/deadline", nil)
	srv.Handler().ServeHTTP(httptest.NewRecorder(), req)

	if !hasDeadline {
		t.Fatal("expected request context to carry a deadline")
	}
	if remaining := deadline.Sub(start); remaining > 6*time.Second || remaining < 4*time.Second {
		t.Errorf("deadline %v from start, want about 5s", remaining)
	}
}

func TestMountRoutes_RecovererCatchesPanics(t *testing.T) {
	srv, metrics := newTestServerForRoutes(t, func(r chi.Router) {
		r.Get("/boom", func(http.ResponseWriter, *http.Request) {
			panic("kaboom")
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/boom", nil)
	req.Header.Set("X-Request-Id", "req-panic")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	detail := decodeErrorEnvelope(t, w.Body)
	if detail.Code != string(types.ErrCodeInternalUnexpected) {
		t.Errorf("code = %q", detail.Code)
	}
	if detail.RequestID != "req-panic" {
		t.Errorf("request_id = %q, want req-panic", detail.RequestID)
	}
	if strings.Contains(w.Body.String(), "kaboom") {
		t.Error("panic value leaked to client")
	}

	// The panic unwinds through the metrics middleware, so nothing is
	// recorded for this request.
	if calls := metrics.Recorded(); len(calls) != 0 {
		t.Errorf("expected no metrics for a panicking request, got %v", calls)
	}
}

func TestMountRoutes_MetricsUseRoutePattern(t *testing.T) {
	srv, metrics := newTestServerForRoutes(t, func(r chi.Router) {
		r.Get("/clima/{id}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/clima/42", nil)
	srv.Handler().ServeHTTP(httptest.NewRecorder(), req)

	calls := metrics.Recorded()
	if len(calls) != 1 {
		t.Fatalf("expected 1 metrics call, got %d", len(calls))
	}
	if calls[0].Endpoint != "/api/clima/{id}" {
		t.Errorf("endpoint = %q, want /api/clima/{id}", calls[0].Endpoint)
	}
	if calls[0].Method != http.MethodGet || calls[0].Status != "404" {
		t.Errorf("unexpected call: %+v", calls[0])
	}
}

func TestMountRoutes_GzipLargeResponses(t *testing.T) {
	payload := strings.Repeat("estacion ", 200)
	srv, _ := newTestServerForRoutes(t, func(r chi.Router) {
		r.Get("/big", func(w http.ResponseWriter, r *http.Request) {
			JSON(w, r, http.StatusOK, map[string]string{"data": payload})
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/big", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if got := w.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", got)
	}

	zr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	defer zr.Close()

	var decoded map[string]string
	if err := json.NewDecoder(zr).Decode(&decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["data"] != payload {
		t.Error("decompressed payload does not match")
	}
}

func TestMountRoutes_SmallResponsesNotCompressed(t *testing.T) {
	srv, _ := newTestServerForRoutes(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if got := w.Header().Get("Content-Encoding"); got != "" {
		t.Errorf("Content-Encoding = %q, want none", got)
	}
	if !strings.Contains(w.Body.String(), `"healthy"`) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestMountRoutes_RequestLoggerInContext(t *testing.T) {
	var hasLogger bool
	srv, _ := newTestServerForRoutes(t, func(r chi.Router) {
		r.Get("/logger", func(w http.ResponseWriter, r *http.Request) {
			hasLogger = types.LoggerFromContext(r.Context(), nil) != slog.Default()
			w.WriteHeader(http.StatusNoContent)
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/logger", nil)
	srv.Handler().ServeHTTP(httptest.NewRecorder(), req)

	if !hasLogger {
		t.Error("expected a request-scoped logger in the context")
	}
}

func TestContextTimeoutMiddleware_Cancellation(t *testing.T) {
	var ctxErr error
	handler := ContextTimeoutMiddleware(10 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		ctxErr = r.Context().Err()
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if ctxErr == nil {
		t.Error("expected the context to be cancelled")
	}
}

func TestRequestTimeout_Default(t *testing.T) {
	srv := &Server{}
	if got := srv.requestTimeout(); got != defaultRequestTimeout {
		t.Errorf("requestTimeout() = %v, want %v", got, defaultRequestTimeout)
	}
	if got := srv.basePath(); got != "/api" {
		t.Errorf("basePath() = %q, want /api", got)
	}
}
