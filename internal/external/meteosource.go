package external

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"clima/internal/types"
)

const defaultMeteosourceBaseURL = "https://api.meteosource.com/v1/free"

type meteosourceResponse struct {
	Current struct {
		Temperature *float64 `json:"temperature"`
		FeelsLike   *float64 `json:"feels_like"`
		Humidity    *float64 `json:"humidity"`
		CloudCover  *float64 `json:"cloud_cover"`
		Summary     *string  `json:"summary"`
		// The free tier reports icon as a numeric id; other plans use a
		// string. Decoding into any keeps both working.
		Icon any `json:"icon"`
		Wind struct {
			Speed *float64 `json:"speed"`
			Angle *float64 `json:"angle"`
		} `json:"wind"`
	} `json:"current"`
}

// MeteosourceClientConfig holds the settings for MeteosourceClient.
type MeteosourceClientConfig struct {
	APIKey  types.SecretString
	BaseURL string
	Logger  *slog.Logger
}

// MeteosourceClient queries the Meteosource point endpoint. Without an API
// key it is disabled.
type MeteosourceClient struct {
	base    *BaseClient
	apiKey  types.SecretString
	baseURL string
	logger  *slog.Logger
}

// NewMeteosourceClient creates a MeteosourceClient on top of base.
func NewMeteosourceClient(base *BaseClient, cfg MeteosourceClientConfig) *MeteosourceClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultMeteosourceBaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &MeteosourceClient{
		base:    base,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

func (c *MeteosourceClient) Name() types.ProviderName { return types.ProviderMeteosource }

func (c *MeteosourceClient) Enabled() bool { return c.apiKey.IsSet() }

// Current fetches the "current" section of /point for the coordinates. Wind
// direction is taken from the angle in degrees, matching Open-Meteo.
func (c *MeteosourceClient) Current(ctx context.Context, lat, lon float64) (*types.Reading, error) {
	query := url.Values{}
	query.Set("lat", formatCoord(lat))
	query.Set("lon", formatCoord(lon))
	query.Set("key", c.apiKey.Unmask())
	query.Set("sections", "current")
	query.Set("units", "metric")

	var body meteosourceResponse
	if err := c.base.GetJSON(ctx, c.baseURL+"/point", query, &body); err != nil {
		return nil, err
	}

	cur := body.Current
	reading := &types.Reading{
		Temperature:   cur.Temperature,
		FeelsLike:     cur.FeelsLike,
		Humidity:      cur.Humidity,
		CloudCover:    cur.CloudCover,
		WindSpeed:     cur.Wind.Speed,
		WindDirection: cur.Wind.Angle,
		Summary:       cur.Summary,
		Icon:          iconString(cur.Icon),
		Units: map[string]string{
			types.UnitKeyTemperature: "°C",
			types.UnitKeyHumidity:    "%",
			types.UnitKeyWind:        "m/s",
		},
	}

	c.logger.DebugContext(ctx, "meteosource reading received",
		"lat", lat,
		"lon", lon,
	)
	return reading, nil
}

func iconString(v any) *string {
	switch icon := v.(type) {
	case string:
		return types.Ptr(icon)
	case float64:
		return types.Ptr(formatCoord(icon))
	default:
		return nil
	}
}

var _ WeatherProvider = (*MeteosourceClient)(nil)
