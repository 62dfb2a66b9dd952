package external

import (
	"context"
	"log/slog"
	"maps"

	"clima/internal/types"
)

// StubProvider implements WeatherProvider with a fixed reading. Used when
// config.IsTestMode is true and in tests.
type StubProvider struct {
	name    types.ProviderName
	reading types.Reading
	err     error
	enabled bool
	logger  *slog.Logger
}

// NewStubProvider returns an enabled stub that always answers with reading.
func NewStubProvider(name types.ProviderName, reading types.Reading, logger *slog.Logger) *StubProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &StubProvider{name: name, reading: reading, enabled: true, logger: logger}
}

// NewFailingStubProvider returns an enabled stub that always fails with err.
func NewFailingStubProvider(name types.ProviderName, err error, logger *slog.Logger) *StubProvider {
	s := NewStubProvider(name, types.Reading{}, logger)
	s.err = err
	return s
}

// Disabled returns a copy of the stub that reports Enabled() == false.
func (s *StubProvider) Disabled() *StubProvider {
	c := *s
	c.enabled = false
	return &c
}

func (s *StubProvider) Name() types.ProviderName { return s.name }

func (s *StubProvider) Enabled() bool { return s.enabled }

func (s *StubProvider) Current(ctx context.Context, lat, lon float64) (*types.Reading, error) {
	s.logger.InfoContext(ctx, "stub: Current called",
		"provider", s.name,
		"lat", lat,
		"lon", lon,
	)
	if s.err != nil {
		return nil, s.err
	}
	r := s.reading
	r.Units = maps.Clone(s.reading.Units)
	return &r, nil
}

func stubOpenMeteoReading() types.Reading {
	return types.Reading{
		Temperature:   types.Ptr(18.2),
		FeelsLike:     types.Ptr(17.5),
		Humidity:      types.Ptr(72.0),
		Precipitation: types.Ptr(0.0),
		WindSpeed:     types.Ptr(9.4),
		WindDirection: types.Ptr(250.0),
		WeatherCode:   types.Ptr(2),
		Description:   types.Ptr("Parcialmente nublado"),
		Units: map[string]string{
			types.UnitKeyTemperature:   "°C",
			types.UnitKeyHumidity:      "%",
			types.UnitKeyPrecipitation: "mm",
			types.UnitKeyWind:          "km/h",
		},
	}
}

func stubOpenWeatherReading() types.Reading {
	return types.Reading{
		Temperature: types.Ptr(18.0),
		FeelsLike:   types.Ptr(17.6),
		Humidity:    types.Ptr(70.0),
		Pressure:    types.Ptr(1027.0),
		WindSpeed:   types.Ptr(2.6),
		Description: types.Ptr("nubes dispersas"),
		Icon:        types.Ptr("03d"),
		Units: map[string]string{
			types.UnitKeyTemperature: "°C",
			types.UnitKeyHumidity:    "%",
			types.UnitKeyPressure:    "hPa",
			types.UnitKeyWind:        "m/s",
		},
	}
}

func stubMeteosourceReading() types.Reading {
	return types.Reading{
		Temperature:   types.Ptr(18.5),
		FeelsLike:     types.Ptr(18.0),
		Humidity:      types.Ptr(68.0),
		CloudCover:    types.Ptr(40.0),
		WindSpeed:     types.Ptr(2.4),
		WindDirection: types.Ptr(245.0),
		Summary:       types.Ptr("Partly sunny"),
		Icon:          types.Ptr("4"),
		Units: map[string]string{
			types.UnitKeyTemperature: "°C",
			types.UnitKeyHumidity:    "%",
			types.UnitKeyWind:        "m/s",
		},
	}
}

var _ WeatherProvider = (*StubProvider)(nil)
