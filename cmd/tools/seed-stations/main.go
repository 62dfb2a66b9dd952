// Package main implements the seed-stations CLI tool for loading station
// records into a local SQLite station store.
//
// This tool is intended for local development and demos, where the API runs
// with DATABASE_DRIVER=sqlite instead of PostgreSQL.
//
// Usage:
//
//	go run ./cmd/tools/seed-stations --file=cmd/tools/seed-stations/estaciones.json
//	go run ./cmd/tools/seed-stations --file=estaciones.json --db=data/estaciones.db
//	go run ./cmd/tools/seed-stations --file=estaciones.json --dry-run
//
// The database path defaults to SQLITE_PATH from the environment (or .env
// file via godotenv). Existing stations with the same id are replaced.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"clima/internal/db"
	"clima/internal/types"
)

const defaultDBPath = "estaciones.db"

// stationRecord is one entry of the seed file.
type stationRecord struct {
	ID        int64    `json:"id" validate:"gt=0"`
	Name      string   `json:"nombre" validate:"required"`
	Latitude  *float64 `json:"latitud" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitud" validate:"required,gte=-180,lte=180"`
}

func (r stationRecord) station() types.Station {
	return types.Station{
		ID:        r.ID,
		Name:      r.Name,
		Latitude:  *r.Latitude,
		Longitude: *r.Longitude,
	}
}

// stationUpserter is satisfied by db.SQLiteStationRepository.
type stationUpserter interface {
	Upsert(ctx context.Context, s types.Station) error
}

func main() {
	// Load .env file for local development (non-fatal if missing).
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, logger); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		logger.Error("seeding failed", "error", err)
		os.Exit(1)
	}
}

// run parses flags, reads the seed file and writes the stations.
func run(ctx context.Context, args []string, stdout io.Writer, logger *slog.Logger) error {
	fs := flag.NewFlagSet("seed-stations", flag.ContinueOnError)
	fileFlag := fs.String("file", "", "JSON file holding an array of stations")
	dbFlag := fs.String("db", envOrDefault("SQLITE_PATH", defaultDBPath), "SQLite database path")
	dryRunFlag := fs.Bool("dry-run", false, "Validate and print the stations without writing")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: seed-stations --file=<stations.json> [flags]\n\n")
		fmt.Fprintf(fs.Output(), "Load stations into the local SQLite station store.\n\n")
		fmt.Fprintf(fs.Output(), "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *fileFlag == "" {
		fs.Usage()
		return errors.New("--file is required")
	}

	f, err := os.Open(*fileFlag)
	if err != nil {
		return fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()

	stations, err := loadStations(f)
	if err != nil {
		return fmt.Errorf("reading %s: %w", *fileFlag, err)
	}

	if *dryRunFlag {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stations)
	}

	conn, err := db.OpenSQLite(ctx, *dbFlag)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := seed(ctx, db.NewSQLiteStationRepository(conn), stations); err != nil {
		return err
	}

	logger.Info("stations seeded", "count", len(stations), "db", *dbFlag)
	return nil
}

// loadStations decodes and validates a JSON array of stations. Duplicate ids
// are rejected so that a typo cannot silently overwrite an earlier entry.
func loadStations(r io.Reader) ([]types.Station, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var records []stationRecord
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding stations: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	seen := make(map[int64]int, len(records))
	stations := make([]types.Station, 0, len(records))

	for i, rec := range records {
		if err := validate.Struct(rec); err != nil {
			return nil, fmt.Errorf("station #%d: %w", i, err)
		}
		if prev, dup := seen[rec.ID]; dup {
			return nil, fmt.Errorf("station #%d: id %d already used by station #%d", i, rec.ID, prev)
		}
		seen[rec.ID] = i
		stations = append(stations, rec.station())
	}
	return stations, nil
}

func seed(ctx context.Context, repo stationUpserter, stations []types.Station) error {
	for _, s := range stations {
		if err := repo.Upsert(ctx, s); err != nil {
			return fmt.Errorf("station %d: %w", s.ID, err)
		}
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
