// Package handlers contains the HTTP handler implementations for the
// estaciones clima API.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"clima/internal/core"
	"clima/internal/types"
)

// weatherSourceHeader names the provider that answered in fallback mode.
const weatherSourceHeader = "X-Weather-Source"

// StationWeatherService is the multi-source aggregation contract, defined
// locally so the handler can be tested without the clima package's
// dependencies.
type StationWeatherService interface {
	GetStationWeather(ctx context.Context, stationID int64) (*types.StationWeather, error)
}

// FallbackWeatherService is the fallback-chain contract: the first provider
// with data wins.
type FallbackWeatherService interface {
	GetStationWeather(ctx context.Context, stationID int64) (*types.Reading, types.ProviderName, error)
}

// stationPath carries the validated {id} path parameter.
type stationPath struct {
	ID int64 `json:"id" validate:"gt=0" code:"validation_invalid_station_id" message:"el id de la estación debe ser un entero positivo"`
}

// ClimaHandler serves GET /clima/{id}. Exactly one of the two services is
// set, chosen by AGGREGATION_MODE.
type ClimaHandler struct {
	multi     StationWeatherService
	fallback  FallbackWeatherService
	validator *core.Validator
	logger    *slog.Logger
}

// NewClimaHandler creates a handler for the multi-source aggregation.
func NewClimaHandler(svc StationWeatherService, val *core.Validator, logger *slog.Logger) *ClimaHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClimaHandler{
		multi:     svc,
		validator: val,
		logger:    logger,
	}
}

// NewFallbackClimaHandler creates a handler for the fallback chain.
func NewFallbackClimaHandler(svc FallbackWeatherService, val *core.Validator, logger *slog.Logger) *ClimaHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClimaHandler{
		fallback:  svc,
		validator: val,
		logger:    logger,
	}
}

// RegisterRoutes mounts the clima endpoint onto the API router.
func (h *ClimaHandler) RegisterRoutes(r chi.Router) {
	r.Get("/clima/{id}", h.HandleGetClima)
}

// HandleGetClima handles GET /clima/{id}.
//
// Multi mode responds 200 with {"estacion","fuentes"} or, when no provider
// produced data, 503 with {"message","estacion","fuentes":[]}. Fallback
// mode responds 200 with the winning provider's bare reading. Lookup and
// integration failures use the error envelope.
func (h *ClimaHandler) HandleGetClima(w http.ResponseWriter, r *http.Request) {
	id, err := h.parseStationID(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if h.fallback != nil {
		h.serveFallback(w, r, id)
		return
	}

	result, err := h.multi.GetStationWeather(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	status := http.StatusOK
	if result.Status != types.WeatherStatusSuccess {
		status = http.StatusServiceUnavailable
	}
	core.JSON(w, r, status, result)
}

func (h *ClimaHandler) serveFallback(w http.ResponseWriter, r *http.Request, id int64) {
	reading, source, err := h.fallback.GetStationWeather(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	w.Header().Set(weatherSourceHeader, string(source))
	core.JSON(w, r, http.StatusOK, reading)
}

// parseStationID accepts only the canonical decimal form of the id, so "+5"
// and "007" are rejected like any other malformed id.
func (h *ClimaHandler) parseStationID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err == nil && strconv.FormatInt(id, 10) != raw {
		err = fmt.Errorf("station id %q is not in canonical form", raw)
	}
	if err != nil {
		types.LoggerFromContext(r.Context(), h.logger).DebugContext(r.Context(), "rejected station id", "id", raw)
		return 0, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidStationID,
			"el id de la estación debe ser un entero positivo",
			err,
			map[string]any{"field": "id"},
		)
	}

	if err := h.validator.ValidateStruct(stationPath{ID: id}); err != nil {
		return 0, err
	}
	return id, nil
}
