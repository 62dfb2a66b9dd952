package config

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

// testSecretProvider returns canned values and records the keys it was
// asked for.
type testSecretProvider struct {
	values    map[string]string
	err       error
	requested []string
}

func (p *testSecretProvider) GetParametersBatch(_ context.Context, keys []string) (map[string]string, error) {
	p.requested = append(p.requested, keys...)
	if p.err != nil {
		return nil, p.err
	}
	result := make(map[string]string)
	for _, k := range keys {
		if v, ok := p.values[k]; ok {
			result[k] = v
		}
	}
	return result, nil
}

// unsetEnv removes key for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	prev, had := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unsetenv %s: %v", key, err)
	}
	t.Cleanup(func() {
		if had {
			os.Setenv(key, prev)
		} else {
			os.Unsetenv(key)
		}
	})
}

// testDeps reads the real process environment but writes through t.Setenv
// so resolved secrets are rolled back after the test.
func testDeps(t *testing.T) loaderDeps {
	return loaderDeps{
		lookupEnv: os.LookupEnv,
		setEnv: func(key, value string) error {
			t.Setenv(key, value)
			return nil
		},
		environ: os.Environ,
	}
}

// setLocalSQLiteEnv configures the smallest valid local environment.
func setLocalSQLiteEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "local")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	for _, key := range []string{
		"AGGREGATION_MODE", "PROVIDER_TIMEOUT", "API_BASE_PATH", "REQUEST_TIMEOUT", "PORT", "LOG_LEVEL",
		"OPENWEATHER_API_KEY", "METEOSOURCE_API_KEY", "METEOSOURCE_BASE_URL",
		"OPEN_METEO_BASE_URL", "OPEN_METEO_TIMEZONE", "DATABASE_URL",
	} {
		unsetEnv(t, key)
	}
}

func assertConfigErrorType(t *testing.T, err error, want ConfigErrorType) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected ConfigError of type %s, got nil", want)
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %T: %v", err, err)
	}
	if cfgErr.Type != want {
		t.Errorf("ConfigError.Type = %s, want %s (err: %v)", cfgErr.Type, want, err)
	}
}

func TestLoadConfig_LocalDefaults(t *testing.T) {
	setLocalSQLiteEnv(t)

	cfg, err := loadConfigWithDeps(nil, testDeps(t))
	if err != nil {
		t.Fatalf("loadConfigWithDeps: %v", err)
	}

	if cfg.Weather.AggregationMode != AggregationMulti {
		t.Errorf("AggregationMode = %q, want %q", cfg.Weather.AggregationMode, AggregationMulti)
	}
	if cfg.Weather.ProviderTimeout != 10*time.Second {
		t.Errorf("ProviderTimeout = %v, want 10s", cfg.Weather.ProviderTimeout)
	}
	if cfg.Weather.MeteosourceBaseURL != "https://api.meteosource.com/v1/free" {
		t.Errorf("MeteosourceBaseURL = %q", cfg.Weather.MeteosourceBaseURL)
	}
	if cfg.Weather.OpenMeteoTimezone != "America/Bogota" {
		t.Errorf("OpenMeteoTimezone = %q", cfg.Weather.OpenMeteoTimezone)
	}
	if cfg.Server.BasePath != "/api" {
		t.Errorf("BasePath = %q, want /api", cfg.Server.BasePath)
	}
	if cfg.Server.RequestTimeout != 35*time.Second {
		t.Errorf("RequestTimeout = %v, want 35s", cfg.Server.RequestTimeout)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Weather.OpenWeatherAPIKey.IsSet() {
		t.Error("OpenWeatherAPIKey should be unset by default")
	}
	if cfg.Build.Version != "dev" {
		t.Errorf("Build.Version = %q, want dev", cfg.Build.Version)
	}
	if time.Local != time.UTC {
		t.Error("loader should force time.Local to UTC")
	}
}

func TestLoadConfig_ProviderKeysFromEnv(t *testing.T) {
	setLocalSQLiteEnv(t)
	t.Setenv("OPENWEATHER_API_KEY", "owm-key")
	t.Setenv("METEOSOURCE_API_KEY", "ms-key")
	t.Setenv("AGGREGATION_MODE", "fallback")
	t.Setenv("PROVIDER_TIMEOUT", "2500ms")

	cfg, err := loadConfigWithDeps(nil, testDeps(t))
	if err != nil {
		t.Fatalf("loadConfigWithDeps: %v", err)
	}

	if got := cfg.Weather.OpenWeatherAPIKey.Unmask(); got != "owm-key" {
		t.Errorf("OpenWeatherAPIKey = %q, want owm-key", got)
	}
	if got := cfg.Weather.MeteosourceAPIKey.Unmask(); got != "ms-key" {
		t.Errorf("MeteosourceAPIKey = %q, want ms-key", got)
	}
	if cfg.Weather.AggregationMode != AggregationFallback {
		t.Errorf("AggregationMode = %q, want fallback", cfg.Weather.AggregationMode)
	}
	if cfg.Weather.ProviderTimeout != 2500*time.Millisecond {
		t.Errorf("ProviderTimeout = %v, want 2.5s", cfg.Weather.ProviderTimeout)
	}
}

func TestLoadConfig_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown aggregation mode", map[string]string{"AGGREGATION_MODE": "round-robin"}},
		{"unknown log level", map[string]string{"LOG_LEVEL": "verbose"}},
		{"base path without slash", map[string]string{"API_BASE_PATH": "api"}},
		{"postgres without url", map[string]string{"DATABASE_DRIVER": "postgres", "DATABASE_URL": ""}},
		{"unknown driver", map[string]string{"DATABASE_DRIVER": "mysql"}},
		{"malformed provider url", map[string]string{"OPEN_METEO_BASE_URL": "not a url"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setLocalSQLiteEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := loadConfigWithDeps(nil, testDeps(t))
			assertConfigErrorType(t, err, ErrValidation)
		})
	}
}

func TestLoadConfig_ParsingFailure(t *testing.T) {
	setLocalSQLiteEnv(t)
	t.Setenv("PROVIDER_TIMEOUT", "ten seconds")

	_, err := loadConfigWithDeps(nil, testDeps(t))
	assertConfigErrorType(t, err, ErrParsing)
}

func TestLoadConfig_ResolvesSSMParamsOutsideLocal(t *testing.T) {
	setLocalSQLiteEnv(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL_SSM_PARAM", "/prod/clima/database_url")
	t.Setenv("OPENWEATHER_API_KEY_SSM_PARAM", "/prod/clima/openweather_api_key")

	provider := &testSecretProvider{values: map[string]string{
		"/prod/clima/database_url":        "postgres://clima:secret@db/clima",
		"/prod/clima/openweather_api_key": "resolved-owm",
	}}

	cfg, err := loadConfigWithDeps(provider, testDeps(t))
	if err != nil {
		t.Fatalf("loadConfigWithDeps: %v", err)
	}

	if got := cfg.Database.URL.Unmask(); got != "postgres://clima:secret@db/clima" {
		t.Errorf("Database.URL = %q", got)
	}
	if got := cfg.Weather.OpenWeatherAPIKey.Unmask(); got != "resolved-owm" {
		t.Errorf("OpenWeatherAPIKey = %q", got)
	}
	if len(provider.requested) != 2 {
		t.Errorf("provider asked for %d keys, want 2", len(provider.requested))
	}
}

func TestLoadConfig_LocalSkipsSSM(t *testing.T) {
	setLocalSQLiteEnv(t)
	t.Setenv("OPENWEATHER_API_KEY_SSM_PARAM", "/dev/clima/openweather_api_key")

	provider := &testSecretProvider{err: errors.New("should not be called")}

	cfg, err := loadConfigWithDeps(provider, testDeps(t))
	if err != nil {
		t.Fatalf("loadConfigWithDeps: %v", err)
	}
	if len(provider.requested) != 0 {
		t.Errorf("provider was called in local mode with %v", provider.requested)
	}
	if cfg.Weather.OpenWeatherAPIKey.IsSet() {
		t.Error("OpenWeatherAPIKey should stay unset in local mode")
	}
}

func TestLoadConfig_SSMWithoutProvider(t *testing.T) {
	setLocalSQLiteEnv(t)
	t.Setenv("APP_ENV", "dev")
	t.Setenv("METEOSOURCE_API_KEY_SSM_PARAM", "/dev/clima/meteosource_api_key")

	_, err := loadConfigWithDeps(nil, testDeps(t))
	assertConfigErrorType(t, err, ErrSSMResolution)
	if !strings.Contains(err.Error(), "METEOSOURCE_API_KEY") {
		t.Errorf("error should name the unresolved target, got: %v", err)
	}
}

func TestLoadConfig_SSMProviderError(t *testing.T) {
	setLocalSQLiteEnv(t)
	t.Setenv("APP_ENV", "staging")
	t.Setenv("METEOSOURCE_API_KEY_SSM_PARAM", "/staging/clima/meteosource_api_key")

	boom := errors.New("throttled")
	_, err := loadConfigWithDeps(&testSecretProvider{err: boom}, testDeps(t))
	assertConfigErrorType(t, err, ErrSSMResolution)
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped provider error, got: %v", err)
	}
}

func TestResolveSSMParams_EnvironmentWins(t *testing.T) {
	env := map[string]string{
		"OPENWEATHER_API_KEY":           "from-env",
		"OPENWEATHER_API_KEY_SSM_PARAM": "/dev/clima/openweather_api_key",
	}
	deps := mapDeps(env)
	provider := &testSecretProvider{values: map[string]string{
		"/dev/clima/openweather_api_key": "from-ssm",
	}}

	if err := resolveSSMParams(provider, deps); err != nil {
		t.Fatalf("resolveSSMParams: %v", err)
	}
	if env["OPENWEATHER_API_KEY"] != "from-env" {
		t.Errorf("OPENWEATHER_API_KEY = %q, want from-env", env["OPENWEATHER_API_KEY"])
	}
	if len(provider.requested) != 0 {
		t.Errorf("provider should not be called, got %v", provider.requested)
	}
}

func TestResolveSSMParams_MissingParameter(t *testing.T) {
	env := map[string]string{
		"DATABASE_URL_SSM_PARAM":        "/dev/clima/database_url",
		"METEOSOURCE_API_KEY_SSM_PARAM": "/dev/clima/meteosource_api_key",
	}
	provider := &testSecretProvider{values: map[string]string{
		"/dev/clima/database_url": "postgres://db",
	}}

	err := resolveSSMParams(provider, mapDeps(env))
	assertConfigErrorType(t, err, ErrSSMResolution)
	if !strings.Contains(err.Error(), "METEOSOURCE_API_KEY") {
		t.Errorf("error should list missing target, got: %v", err)
	}
	if env["DATABASE_URL"] != "postgres://db" {
		t.Errorf("DATABASE_URL = %q, want resolved value", env["DATABASE_URL"])
	}
}

func TestResolveSSMParams_IgnoresEmptyPointer(t *testing.T) {
	env := map[string]string{"DATABASE_URL_SSM_PARAM": ""}

	if err := resolveSSMParams(nil, mapDeps(env)); err != nil {
		t.Fatalf("resolveSSMParams: %v", err)
	}
	if _, ok := env["DATABASE_URL"]; ok {
		t.Error("DATABASE_URL should not be set from an empty pointer")
	}
}

func mapDeps(env map[string]string) loaderDeps {
	return loaderDeps{
		lookupEnv: func(key string) (string, bool) {
			v, ok := env[key]
			return v, ok
		},
		setEnv: func(key, value string) error {
			env[key] = value
			return nil
		},
		environ: func() []string {
			out := make([]string, 0, len(env))
			for k, v := range env {
				out = append(out, k+"="+v)
			}
			return out
		},
	}
}
