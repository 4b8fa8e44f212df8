package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"truck-simulator/internal/agg"
)

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// EnsureSchema creates the output tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trip_summaries (
			run_id       TEXT NOT NULL,
			truck_id     TEXT NOT NULL,
			origin       TEXT NOT NULL,
			dest         TEXT NOT NULL,
			distance_km  DOUBLE PRECISION NOT NULL,
			duration_min DOUBLE PRECISION NOT NULL,
			avg_speed_kmh DOUBLE PRECISION NOT NULL,
			route_source TEXT NOT NULL,
			PRIMARY KEY (run_id, truck_id)
		)`,
		`CREATE TABLE IF NOT EXISTS speed_samples (
			run_id    TEXT NOT NULL,
			truck_id  TEXT NOT NULL,
			minute    INTEGER NOT NULL,
			speed_kmh DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (run_id, truck_id, minute)
		)`,
		`CREATE TABLE IF NOT EXISTS state_minutes (
			run_id   TEXT NOT NULL,
			state    TEXT NOT NULL,
			truck_id TEXT NOT NULL,
			minutes  INTEGER NOT NULL,
			PRIMARY KEY (run_id, state, truck_id)
		)`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveReport persists the three output tables in one transaction, stamped
// with runID so repeated runs against the same database stay distinguishable.
func SaveReport(ctx context.Context, db *sql.DB, runID string, r *agg.Report) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	sumStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO trip_summaries (run_id, truck_id, origin, dest, distance_km, duration_min, avg_speed_kmh, route_source)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
	if err != nil {
		return fmt.Errorf("prepare trip_summaries: %w", err)
	}
	defer sumStmt.Close()
	for _, s := range r.Summaries {
		if _, err := sumStmt.ExecContext(ctx, runID, s.TruckID, s.Origin, s.Dest, s.DistanceKm, s.DurationMin, s.AvgSpeedKmh, s.RouteSource); err != nil {
			return fmt.Errorf("insert trip summary %s: %w", s.TruckID, err)
		}
	}

	spdStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO speed_samples (run_id, truck_id, minute, speed_kmh) VALUES ($1, $2, $3, $4)`)
	if err != nil {
		return fmt.Errorf("prepare speed_samples: %w", err)
	}
	defer spdStmt.Close()
	for _, s := range r.Speeds {
		if _, err := spdStmt.ExecContext(ctx, runID, s.TruckID, s.Minute, s.SpeedKmh); err != nil {
			return fmt.Errorf("insert speed sample %s/%d: %w", s.TruckID, s.Minute, err)
		}
	}

	stStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO state_minutes (run_id, state, truck_id, minutes) VALUES ($1, $2, $3, $4)`)
	if err != nil {
		return fmt.Errorf("prepare state_minutes: %w", err)
	}
	defer stStmt.Close()
	for _, s := range r.StateMinutes {
		if _, err := stStmt.ExecContext(ctx, runID, s.State, s.TruckID, s.Minutes); err != nil {
			return fmt.Errorf("insert state minutes %s/%s: %w", s.State, s.TruckID, err)
		}
	}

	return tx.Commit()
}
