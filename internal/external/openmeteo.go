package external

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"clima/internal/types"
)

const (
	defaultOpenMeteoBaseURL  = "https://api.open-meteo.com/v1"
	defaultOpenMeteoTimezone = "America/Bogota"

	openMeteoCurrentFields = "temperature_2m,relative_humidity_2m,apparent_temperature,precipitation,weather_code,wind_speed_10m,wind_direction_10m"
)

// wmoDescriptions maps WMO weather interpretation codes returned by
// Open-Meteo to Spanish descriptions. Codes outside the table get no
// description.
var wmoDescriptions = map[int]string{
	0:  "Despejado",
	1:  "Mayormente despejado",
	2:  "Parcialmente nublado",
	3:  "Nublado",
	45: "Niebla",
	48: "Niebla con escarcha",
	51: "Llovizna ligera",
	53: "Llovizna moderada",
	55: "Llovizna intensa",
	61: "Lluvia ligera",
	63: "Lluvia moderada",
	65: "Lluvia intensa",
	71: "Nieve ligera",
	73: "Nieve moderada",
	75: "Nieve intensa",
	80: "Chubascos ligeros",
	81: "Chubascos moderados",
	82: "Chubascos intensos",
	95: "Tormenta eléctrica",
	96: "Tormenta con granizo",
	99: "Tormenta severa",
}

// WeatherCodeDescription returns the Spanish description of a WMO code.
func WeatherCodeDescription(code int) (string, bool) {
	d, ok := wmoDescriptions[code]
	return d, ok
}

type openMeteoResponse struct {
	Current struct {
		Temperature   *float64 `json:"temperature_2m"`
		Humidity      *float64 `json:"relative_humidity_2m"`
		FeelsLike     *float64 `json:"apparent_temperature"`
		Precipitation *float64 `json:"precipitation"`
		WeatherCode   *int     `json:"weather_code"`
		WindSpeed     *float64 `json:"wind_speed_10m"`
		WindDirection *float64 `json:"wind_direction_10m"`
	} `json:"current"`
}

// OpenMeteoClientConfig holds the settings for OpenMeteoClient.
type OpenMeteoClientConfig struct {
	BaseURL  string
	Timezone string
	Logger   *slog.Logger
}

// OpenMeteoClient queries the Open-Meteo forecast endpoint. It needs no
// credentials and is always enabled.
type OpenMeteoClient struct {
	base     *BaseClient
	baseURL  string
	timezone string
	logger   *slog.Logger
}

// NewOpenMeteoClient creates an OpenMeteoClient on top of base.
func NewOpenMeteoClient(base *BaseClient, cfg OpenMeteoClientConfig) *OpenMeteoClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenMeteoBaseURL
	}
	timezone := cfg.Timezone
	if timezone == "" {
		timezone = defaultOpenMeteoTimezone
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenMeteoClient{
		base:     base,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		timezone: timezone,
		logger:   logger,
	}
}

func (c *OpenMeteoClient) Name() types.ProviderName { return types.ProviderOpenMeteo }

func (c *OpenMeteoClient) Enabled() bool { return true }

// Current fetches the "current" block for the coordinates.
func (c *OpenMeteoClient) Current(ctx context.Context, lat, lon float64) (*types.Reading, error) {
	query := url.Values{}
	query.Set("latitude", formatCoord(lat))
	query.Set("longitude", formatCoord(lon))
	query.Set("current", openMeteoCurrentFields)
	query.Set("timezone", c.timezone)

	var body openMeteoResponse
	if err := c.base.GetJSON(ctx, c.baseURL+"/forecast", query, &body); err != nil {
		return nil, err
	}

	cur := body.Current
	reading := &types.Reading{
		Temperature:   cur.Temperature,
		FeelsLike:     cur.FeelsLike,
		Humidity:      cur.Humidity,
		Precipitation: cur.Precipitation,
		WindSpeed:     cur.WindSpeed,
		WindDirection: cur.WindDirection,
		WeatherCode:   cur.WeatherCode,
		Units: map[string]string{
			types.UnitKeyTemperature:   "°C",
			types.UnitKeyHumidity:      "%",
			types.UnitKeyPrecipitation: "mm",
			types.UnitKeyWind:          "km/h",
		},
	}
	if cur.WeatherCode != nil {
		if desc, ok := WeatherCodeDescription(*cur.WeatherCode); ok {
			reading.Description = types.Ptr(desc)
		}
	}

	c.logger.DebugContext(ctx, "open-meteo reading received",
		"lat", lat,
		"lon", lon,
	)
	return reading, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var _ WeatherProvider = (*OpenMeteoClient)(nil)
