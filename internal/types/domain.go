package types

// ProviderName identifies a third-party weather provider. The value is the
// display name written to the "nombre" field of each source entry.
type ProviderName string

const (
	ProviderOpenMeteo   ProviderName = "Open-Meteo"
	ProviderOpenWeather ProviderName = "OpenWeatherMap"
	ProviderMeteosource ProviderName = "Meteosource"
)

// Unit categories used as keys of Reading.Units.
const (
	UnitKeyTemperature   = "temperatura"
	UnitKeyHumidity      = "humedad"
	UnitKeyPrecipitation = "precipitacion"
	UnitKeyPressure      = "presion"
	UnitKeyWind          = "viento"
)

// Station is a fixed-location weather station. Rows are owned by the
// estaciones table; this service only reads them.
type Station struct {
	ID        int64   `json:"id"`
	Name      string  `json:"nombre"`
	Latitude  float64 `json:"latitud"`
	Longitude float64 `json:"longitud"`
}

// Reading is the canonical current-conditions payload of a single provider.
// Providers populate different subsets; a nil field means the provider did
// not report that value and it is omitted from JSON.
type Reading struct {
	Temperature   *float64          `json:"temperatura,omitempty"`
	FeelsLike     *float64          `json:"sensacion_termica,omitempty"`
	Humidity      *float64          `json:"humedad,omitempty"`
	Precipitation *float64          `json:"precipitacion,omitempty"`
	Pressure      *float64          `json:"presion,omitempty"`
	CloudCover    *float64          `json:"nubosidad,omitempty"`
	WindSpeed     *float64          `json:"viento_velocidad,omitempty"`
	WindDirection *float64          `json:"viento_direccion,omitempty"`
	WeatherCode   *int              `json:"codigo_clima,omitempty"`
	Description   *string           `json:"descripcion,omitempty"`
	Summary       *string           `json:"resumen,omitempty"`
	Icon          *string           `json:"icono,omitempty"`
	Units         map[string]string `json:"unidades"`
}

// Source pairs a provider name with the reading it returned.
type Source struct {
	Name ProviderName `json:"nombre"`
	Data Reading      `json:"datos"`
}

// WeatherStatus is the outcome of a multi-source aggregation.
type WeatherStatus string

const (
	WeatherStatusSuccess     WeatherStatus = "success"
	WeatherStatusUnavailable WeatherStatus = "unavailable"
)

// MessageNoSources is returned to clients when every provider failed or was
// skipped.
const MessageNoSources = "No se pudieron obtener datos del clima de ninguna fuente"

// StationWeather is the aggregated result for one station. It is built
// fresh per request and never persisted.
type StationWeather struct {
	Station Station       `json:"estacion"`
	Sources []Source      `json:"fuentes"`
	Message string        `json:"message,omitempty"`
	Status  WeatherStatus `json:"-"`
}

// NewStationWeather returns an empty result for the station. Sources is
// initialized so that an empty result encodes as "fuentes": [].
func NewStationWeather(station Station) *StationWeather {
	return &StationWeather{
		Station: station,
		Sources: []Source{},
		Status:  WeatherStatusUnavailable,
	}
}

// Ptr returns a pointer to v. Provider mappers use it to populate the
// optional fields of Reading.
func Ptr[T any](v T) *T {
	return &v
}
