package db

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"clima/internal/types"
)

//go:embed sql/schema.sql
var schemaSQL string

//go:embed sql/get-station.sql
var getStationSQL string

//go:embed sql/insert-station.sql
var insertStationSQL string

// OpenSQLite opens the file at path, creating parent directories as needed,
// and applies the station schema.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	dsn, err := sqliteDSN(path)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	conn.SetMaxOpenConns(4)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}
	if _, err := conn.ExecContext(ctx, schemaSQL); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return conn, nil
}

func sqliteDSN(path string) (string, error) {
	params := "_busy_timeout=5000&_journal_mode=WAL"

	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + params, nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	return fmt.Sprintf("file:%s?%s", path, params), nil
}

// SQLiteStationRepository reads stations from a local SQLite file.
type SQLiteStationRepository struct {
	db *sql.DB
}

// NewSQLiteStationRepository wraps an open SQLite handle.
func NewSQLiteStationRepository(db *sql.DB) *SQLiteStationRepository {
	return &SQLiteStationRepository{db: db}
}

// GetByID returns the station with the given primary key.
func (r *SQLiteStationRepository) GetByID(ctx context.Context, id int64) (*types.Station, error) {
	var s types.Station
	err := r.db.QueryRowContext(ctx, getStationSQL, id).Scan(&s.ID, &s.Name, &s.Latitude, &s.Longitude)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundStation, "station not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get station", err)
	}
	return &s, nil
}

// Upsert inserts or replaces a station. Used to seed local databases.
func (r *SQLiteStationRepository) Upsert(ctx context.Context, s types.Station) error {
	if _, err := r.db.ExecContext(ctx, insertStationSQL, s.ID, s.Name, s.Latitude, s.Longitude); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to upsert station", err)
	}
	return nil
}

// Ping reports whether the file is readable.
func (r *SQLiteStationRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "sqlite ping failed", err)
	}
	return nil
}
