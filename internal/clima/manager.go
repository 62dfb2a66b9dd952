package clima

import (
	"context"
	"fmt"

	"clima/internal/external"
	"clima/internal/types"
)

// ProviderManager implements WeatherQueryManager over the provider registry.
// Provider failures become "no data"; only a missing provider is an error.
type ProviderManager struct {
	registry *external.ProviderRegistry
	caller   providerCaller
}

// NewProviderManager creates a ProviderManager.
func NewProviderManager(registry *external.ProviderRegistry, cfg ServiceConfig) *ProviderManager {
	return &ProviderManager{
		registry: registry,
		caller:   newProviderCaller(cfg.ProviderTimeout, cfg.Metrics, cfg.Logger),
	}
}

// RegistryLoader returns a ManagerLoader that fails when the registry lacks
// either provider of the chain.
func RegistryLoader(registry *external.ProviderRegistry, cfg ServiceConfig) ManagerLoader {
	return func() (WeatherQueryManager, error) {
		if registry == nil {
			return nil, fmt.Errorf("provider registry is not configured")
		}
		for _, name := range []types.ProviderName{types.ProviderOpenMeteo, types.ProviderOpenWeather} {
			if registry.Get(name) == nil {
				return nil, fmt.Errorf("provider %s is not registered", name)
			}
		}
		return NewProviderManager(registry, cfg), nil
	}
}

func (m *ProviderManager) QueryOpenMeteo(ctx context.Context, lat, lon float64, locationName string) (*types.Reading, error) {
	return m.query(ctx, types.ProviderOpenMeteo, lat, lon, locationName)
}

func (m *ProviderManager) QueryOpenWeather(ctx context.Context, lat, lon float64, locationName string) (*types.Reading, error) {
	return m.query(ctx, types.ProviderOpenWeather, lat, lon, locationName)
}

func (m *ProviderManager) query(ctx context.Context, name types.ProviderName, lat, lon float64, locationName string) (*types.Reading, error) {
	p := m.registry.Get(name)
	if p == nil {
		return nil, fmt.Errorf("provider %s is not registered", name)
	}
	if !p.Enabled() {
		return nil, nil
	}

	reading, err := m.caller.call(ctx, p, types.Station{Name: locationName, Latitude: lat, Longitude: lon})
	if err != nil {
		return nil, nil
	}
	return reading, nil
}

var _ WeatherQueryManager = (*ProviderManager)(nil)
