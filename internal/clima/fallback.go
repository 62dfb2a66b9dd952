package clima

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"clima/internal/types"
)

// WeatherQueryManager is the collaborator queried by the fallback chain.
// Each method returns (nil, nil) when the provider has no data; an error
// means the manager itself is broken.
type WeatherQueryManager interface {
	QueryOpenMeteo(ctx context.Context, lat, lon float64, locationName string) (*types.Reading, error)
	QueryOpenWeather(ctx context.Context, lat, lon float64, locationName string) (*types.Reading, error)
}

// ManagerLoader builds the WeatherQueryManager. It runs at most once.
type ManagerLoader func() (WeatherQueryManager, error)

// FallbackService is the single-provider fallback chain.
type FallbackService struct {
	stations types.StationRepository
	manager  func() (WeatherQueryManager, error)
	logger   *slog.Logger
}

// NewFallbackService creates a FallbackService. load is deferred to the first
// request and its result, including a failure, is memoized.
func NewFallbackService(stations types.StationRepository, load ManagerLoader, logger *slog.Logger) *FallbackService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackService{
		stations: stations,
		manager:  sync.OnceValues(load),
		logger:   logger,
	}
}

// GetStationWeather returns the first reading of the chain Open-Meteo then
// OpenWeatherMap, together with the name of the provider that produced it.
//
// Errors: not_found_station from the repository; internal_integration_error
// when the manager cannot be loaded or fails, with the cause in the message;
// upstream_all_providers_failed when neither provider has data.
func (s *FallbackService) GetStationWeather(ctx context.Context, stationID int64) (*types.Reading, types.ProviderName, error) {
	station, err := s.stations.GetByID(ctx, stationID)
	if err != nil {
		return nil, "", err
	}

	mgr, err := s.manager()
	if err != nil {
		return nil, "", integrationError(err)
	}
	if mgr == nil {
		return nil, "", integrationError(fmt.Errorf("weather query manager not available"))
	}

	chain := []struct {
		name  types.ProviderName
		query func(context.Context, float64, float64, string) (*types.Reading, error)
	}{
		{types.ProviderOpenMeteo, mgr.QueryOpenMeteo},
		{types.ProviderOpenWeather, mgr.QueryOpenWeather},
	}

	for _, step := range chain {
		reading, err := safeQuery(ctx, step.query, *station)
		if err != nil {
			return nil, "", integrationError(err)
		}
		if reading != nil {
			return reading, step.name, nil
		}
	}

	types.LoggerFromContext(ctx, s.logger).WarnContext(ctx, "fallback chain exhausted",
		"station_id", station.ID,
	)
	return nil, "", types.NewAppError(types.ErrCodeUpstreamAllProvidersFailed, types.MessageNoSources, nil)
}

func safeQuery(
	ctx context.Context,
	query func(context.Context, float64, float64, string) (*types.Reading, error),
	station types.Station,
) (reading *types.Reading, err error) {
	defer func() {
		if r := recover(); r != nil {
			reading = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return query(ctx, station.Latitude, station.Longitude, station.Name)
}

func integrationError(err error) *types.AppError {
	return types.NewAppError(
		types.ErrCodeInternalIntegration,
		fmt.Sprintf("Error al consultar el clima: %v", err),
		err,
	)
}
