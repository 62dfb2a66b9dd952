// Package clima implements the weather aggregator. Service collects readings
// from every enabled provider into one multi-source result; FallbackService
// walks a two-step Open-Meteo then OpenWeatherMap chain and returns only the
// first reading it gets. A deployment runs exactly one of them.
package clima

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clima/internal/external"
	"clima/internal/types"
)

// DefaultProviderTimeout bounds each provider call when none is configured.
const DefaultProviderTimeout = 10 * time.Second

// ProviderMetrics records provider outcomes. Implementations must be safe for
// concurrent use and must not block the request on backend failures.
type ProviderMetrics interface {
	RecordProviderCall(ctx context.Context, provider types.ProviderName, duration time.Duration, err error)
	RecordAllSourcesFailed(ctx context.Context)
}

// providerCaller runs one provider query inside its own error boundary:
// a private deadline, and panic recovery that turns a crash into an error.
type providerCaller struct {
	timeout time.Duration
	metrics ProviderMetrics
	logger  *slog.Logger
}

func newProviderCaller(timeout time.Duration, metrics ProviderMetrics, logger *slog.Logger) providerCaller {
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return providerCaller{timeout: timeout, metrics: metrics, logger: logger}
}

// call returns the provider's reading or the error that made it unusable.
// Failures are logged at WARN with the station id and recorded as metrics.
func (c providerCaller) call(ctx context.Context, p external.WeatherProvider, station types.Station) (reading *types.Reading, err error) {
	pctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			reading = nil
			err = types.NewAppError(
				types.ErrCodeUpstreamProviderUnavailable,
				"provider panicked",
				fmt.Errorf("panic: %v", r),
			)
		}

		elapsed := time.Since(start)
		if c.metrics != nil {
			c.metrics.RecordProviderCall(ctx, p.Name(), elapsed, err)
		}
		if err != nil {
			attrs := []any{"provider", p.Name()}
			// The fallback manager only knows coordinates and a name.
			if station.ID > 0 {
				attrs = append(attrs, "station_id", station.ID)
			}
			attrs = append(attrs,
				"station", station.Name,
				"duration_ms", elapsed.Milliseconds(),
				"error", err,
			)
			types.LoggerFromContext(ctx, c.logger).WarnContext(ctx, "weather provider failed", attrs...)
		}
	}()

	reading, err = p.Current(pctx, station.Latitude, station.Longitude)
	if err == nil && reading == nil {
		err = types.NewAppError(types.ErrCodeUpstreamMalformedPayload, "provider returned no reading", nil)
	}
	return reading, err
}
