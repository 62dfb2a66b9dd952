package external

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"clima/internal/types"
)

const defaultOpenWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

type openWeatherResponse struct {
	Main struct {
		Temp      *float64 `json:"temp"`
		FeelsLike *float64 `json:"feels_like"`
		Humidity  *float64 `json:"humidity"`
		Pressure  *float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`
	Weather []struct {
		Description *string `json:"description"`
		Icon        *string `json:"icon"`
	} `json:"weather"`
}

// OpenWeatherClientConfig holds the settings for OpenWeatherClient.
type OpenWeatherClientConfig struct {
	APIKey  types.SecretString
	BaseURL string
	Logger  *slog.Logger
}

// OpenWeatherClient queries the OpenWeatherMap current-weather endpoint with
// metric units and Spanish descriptions. Without an API key it is disabled.
type OpenWeatherClient struct {
	base    *BaseClient
	apiKey  types.SecretString
	baseURL string
	logger  *slog.Logger
}

// NewOpenWeatherClient creates an OpenWeatherClient on top of base.
func NewOpenWeatherClient(base *BaseClient, cfg OpenWeatherClientConfig) *OpenWeatherClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenWeatherBaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenWeatherClient{
		base:    base,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

func (c *OpenWeatherClient) Name() types.ProviderName { return types.ProviderOpenWeather }

func (c *OpenWeatherClient) Enabled() bool { return c.apiKey.IsSet() }

// Current fetches /weather for the coordinates. Description and icon come
// from the first element of the "weather" array when present.
func (c *OpenWeatherClient) Current(ctx context.Context, lat, lon float64) (*types.Reading, error) {
	query := url.Values{}
	query.Set("lat", formatCoord(lat))
	query.Set("lon", formatCoord(lon))
	query.Set("appid", c.apiKey.Unmask())
	query.Set("units", "metric")
	query.Set("lang", "es")

	var body openWeatherResponse
	if err := c.base.GetJSON(ctx, c.baseURL+"/weather", query, &body); err != nil {
		return nil, err
	}

	reading := &types.Reading{
		Temperature: body.Main.Temp,
		FeelsLike:   body.Main.FeelsLike,
		Humidity:    body.Main.Humidity,
		Pressure:    body.Main.Pressure,
		WindSpeed:   body.Wind.Speed,
		Units: map[string]string{
			types.UnitKeyTemperature: "°C",
			types.UnitKeyHumidity:    "%",
			types.UnitKeyPressure:    "hPa",
			types.UnitKeyWind:        "m/s",
		},
	}
	if len(body.Weather) > 0 {
		reading.Description = body.Weather[0].Description
		reading.Icon = body.Weather[0].Icon
	}

	c.logger.DebugContext(ctx, "openweathermap reading received",
		"lat", lat,
		"lon", lon,
	)
	return reading, nil
}

var _ WeatherProvider = (*OpenWeatherClient)(nil)
