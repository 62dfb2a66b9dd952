package external

import (
	"log/slog"
	"net/http"

	"clima/internal/config"
	"clima/internal/types"
)

// ProviderRegistry holds the weather providers in query order:
// Open-Meteo, OpenWeatherMap, Meteosource. The order is fixed and is the
// order sources appear in a response.
type ProviderRegistry struct {
	providers []WeatherProvider
}

// NewProviderRegistry builds the providers from configuration. When
// cfg.IsTestMode is set every provider is a stub returning a canned reading,
// so the service can boot without network access or credentials.
func NewProviderRegistry(cfg *config.Config, logger *slog.Logger) *ProviderRegistry {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.IsTestMode {
		logger.Info("initializing weather providers in STUB mode",
			"environment", cfg.Environment,
		)
		return newStubRegistry(logger.With("mode", "stub"))
	}

	w := cfg.Weather
	base := NewBaseClient(&http.Client{Timeout: w.ProviderTimeout}, w.UserAgent)

	reg := NewRegistry(
		NewOpenMeteoClient(base, OpenMeteoClientConfig{
			BaseURL:  w.OpenMeteoBaseURL,
			Timezone: w.OpenMeteoTimezone,
			Logger:   logger.With("provider", types.ProviderOpenMeteo),
		}),
		NewOpenWeatherClient(base, OpenWeatherClientConfig{
			APIKey:  w.OpenWeatherAPIKey,
			BaseURL: w.OpenWeatherBaseURL,
			Logger:  logger.With("provider", types.ProviderOpenWeather),
		}),
		NewMeteosourceClient(base, MeteosourceClientConfig{
			APIKey:  w.MeteosourceAPIKey,
			BaseURL: w.MeteosourceBaseURL,
			Logger:  logger.With("provider", types.ProviderMeteosource),
		}),
	)

	for _, p := range reg.providers {
		logger.Info("weather provider configured",
			"provider", p.Name(),
			"enabled", p.Enabled(),
		)
	}
	return reg
}

// NewRegistry returns a registry over providers in the given order.
func NewRegistry(providers ...WeatherProvider) *ProviderRegistry {
	return &ProviderRegistry{providers: providers}
}

// Providers returns the providers in query order. The slice must not be
// modified.
func (r *ProviderRegistry) Providers() []WeatherProvider {
	return r.providers
}

// Get returns the provider with the given name, or nil.
func (r *ProviderRegistry) Get(name types.ProviderName) WeatherProvider {
	for _, p := range r.providers {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

func newStubRegistry(logger *slog.Logger) *ProviderRegistry {
	return NewRegistry(
		NewStubProvider(types.ProviderOpenMeteo, stubOpenMeteoReading(), logger),
		NewStubProvider(types.ProviderOpenWeather, stubOpenWeatherReading(), logger),
		NewStubProvider(types.ProviderMeteosource, stubMeteosourceReading(), logger),
	)
}
