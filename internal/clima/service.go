package clima

import (
	"context"
	"log/slog"
	"time"

	"clima/internal/external"
	"clima/internal/types"
)

// ServiceConfig holds the dependencies shared by both aggregation modes.
type ServiceConfig struct {
	ProviderTimeout time.Duration
	Metrics         ProviderMetrics
	Logger          *slog.Logger
}

// Service is the multi-source aggregator.
type Service struct {
	stations  types.StationRepository
	providers []external.WeatherProvider
	caller    providerCaller
}

// NewService creates a Service that queries providers in the order given.
func NewService(stations types.StationRepository, providers []external.WeatherProvider, cfg ServiceConfig) *Service {
	return &Service{
		stations:  stations,
		providers: providers,
		caller:    newProviderCaller(cfg.ProviderTimeout, cfg.Metrics, cfg.Logger),
	}
}

// GetStationWeather resolves the station and collects one source per
// provider that answered. Providers run one after another, each under its
// own timeout; a failing provider never aborts the rest.
//
// A missing station returns the repository's not_found_station error before
// any provider is contacted. When no provider yields data the result has
// Status unavailable, an empty Sources slice and MessageNoSources; that case
// is not an error.
func (s *Service) GetStationWeather(ctx context.Context, stationID int64) (*types.StationWeather, error) {
	station, err := s.stations.GetByID(ctx, stationID)
	if err != nil {
		return nil, err
	}

	result := types.NewStationWeather(*station)

	for _, p := range s.providers {
		if !p.Enabled() {
			continue
		}
		reading, err := s.caller.call(ctx, p, *station)
		if err != nil {
			continue
		}
		result.Sources = append(result.Sources, types.Source{Name: p.Name(), Data: *reading})
	}

	if len(result.Sources) == 0 {
		result.Message = types.MessageNoSources
		if s.caller.metrics != nil {
			s.caller.metrics.RecordAllSourcesFailed(ctx)
		}
		types.LoggerFromContext(ctx, s.caller.logger).WarnContext(ctx, "no weather source available",
			"station_id", station.ID,
		)
		return result, nil
	}

	result.Status = types.WeatherStatusSuccess
	return result, nil
}
