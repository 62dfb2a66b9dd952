package external

import (
	"context"

	"clima/internal/types"
)

// WeatherProvider fetches current conditions from one third-party API.
type WeatherProvider interface {
	// Name is the display name written to the source entry.
	Name() types.ProviderName

	// Enabled reports whether the provider has the credentials it needs.
	// Disabled providers are skipped without being treated as failures.
	Enabled() bool

	// Current returns the provider's reading for the coordinates. Errors are
	// AppErrors with an upstream_ code.
	Current(ctx context.Context, lat, lon float64) (*types.Reading, error)
}
