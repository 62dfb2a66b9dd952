// Package config defines the global configuration structure for the
// estaciones clima service. Configuration is loaded once at process start and
// is immutable thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// Any invalid format or failed validation aborts startup.
package config

import (
	"time"

	"clima/internal/types"
)

// SecretString is an alias for types.SecretString so configuration structs
// can declare redacted fields without importing types directly.
type SecretString = types.SecretString

// Aggregation modes. Exactly one is active per deployment.
const (
	AggregationMulti    = "multi"
	AggregationFallback = "fallback"
)

// Station store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is the top-level configuration struct. Sub-components receive only
// the subset they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"estaciones-clima"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	IsTestMode  bool   `envconfig:"IS_TEST_MODE" default:"false"`

	Server        ServerConfig
	Database      DatabaseConfig
	Weather       WeatherConfig
	AWS           AWSConfig
	Security      SecurityConfig
	Observability ObservabilityConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     string `envconfig:"PORT" default:"8080"`
	BasePath string `envconfig:"API_BASE_PATH" default:"/api" validate:"startswith=/"`

	// RequestTimeout bounds a whole request. It must cover the station
	// lookup plus one PROVIDER_TIMEOUT per provider.
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"35s" validate:"gt=0"`
}

// DatabaseConfig selects and tunes the station store.
type DatabaseConfig struct {
	Driver string `envconfig:"DATABASE_DRIVER" default:"postgres" validate:"oneof=postgres sqlite"`

	// Resolved from SSM or Env. Required when Driver is postgres.
	URL        SecretString `envconfig:"DATABASE_URL" validate:"required_if=Driver postgres"`
	SQLitePath string       `envconfig:"SQLITE_PATH" default:"estaciones.db"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10" validate:"gte=1"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"1" validate:"gte=0"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// WeatherConfig holds provider credentials, endpoints and the aggregation
// policy. Provider API keys are optional; an empty key disables the provider.
type WeatherConfig struct {
	AggregationMode string        `envconfig:"AGGREGATION_MODE" default:"multi" validate:"oneof=multi fallback"`
	ProviderTimeout time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"10s" validate:"gt=0"`
	UserAgent       string        `envconfig:"PROVIDER_USER_AGENT" default:"EstacionesClima/1.0"`

	OpenMeteoBaseURL  string `envconfig:"OPEN_METEO_BASE_URL" default:"https://api.open-meteo.com/v1" validate:"url"`
	OpenMeteoTimezone string `envconfig:"OPEN_METEO_TIMEZONE" default:"America/Bogota"`

	OpenWeatherAPIKey  SecretString `envconfig:"OPENWEATHER_API_KEY"`
	OpenWeatherBaseURL string       `envconfig:"OPENWEATHER_BASE_URL" default:"https://api.openweathermap.org/data/2.5" validate:"url"`

	MeteosourceAPIKey  SecretString `envconfig:"METEOSOURCE_API_KEY"`
	MeteosourceBaseURL string       `envconfig:"METEOSOURCE_BASE_URL" default:"https://api.meteosource.com/v1/free" validate:"url"`
}

// AWSConfig holds regional configuration for SSM and CloudWatch.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`
}

// SecurityConfig holds CORS settings for the browser frontend.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"false"`
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"EstacionesClima"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	// ErrSSMResolution indicates a failure when fetching secrets from AWS SSM.
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
