package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"clima/internal/types"
)

// StationRepository reads the estaciones table.
type StationRepository struct {
	db DBTX
}

// NewStationRepository creates a StationRepository backed by a pool or
// transaction.
func NewStationRepository(db DBTX) *StationRepository {
	return &StationRepository{db: db}
}

const stationColumns = `id, nombre, latitud, longitud`

func scanStation(row pgx.Row) (*types.Station, error) {
	var s types.Station
	if err := row.Scan(&s.ID, &s.Name, &s.Latitude, &s.Longitude); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByID returns the station with the given primary key.
func (r *StationRepository) GetByID(ctx context.Context, id int64) (*types.Station, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+stationColumns+` FROM estaciones WHERE id = $1`,
		id,
	)

	station, err := scanStation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundStation, "station not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get station", err)
	}
	return station, nil
}

// Ping reports whether the store is reachable. It backs the /health probe.
func (r *StationRepository) Ping(ctx context.Context) error {
	var one int
	if err := r.db.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "database ping failed", err)
	}
	return nil
}
