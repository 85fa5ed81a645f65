package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hubenschmidt/go-tilesearch/store/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresRunStore implements RunStore using PostgreSQL
type PostgresRunStore struct {
	db *sql.DB
}

// NewPostgresRunStore opens (and migrates) a PostgreSQL run log
func NewPostgresRunStore(dsn string) (*PostgresRunStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := runPostgresMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresRunStore{db: db}, nil
}

func runPostgresMigrations(db *sql.DB) error {
	data, err := migrations.Postgres.ReadFile("postgres/001_init.sql")
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	_, err = db.Exec(string(data))
	if err != nil {
		return fmt.Errorf("exec migration: %w", err)
	}
	return nil
}

func (s *PostgresRunStore) Add(ctx context.Context, r RunInfo) error {
	distances, err := marshalDistances(r.Distances)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (`+runColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (run_id) DO UPDATE SET
			timestamp = EXCLUDED.timestamp,
			engine = EXCLUDED.engine,
			lon = EXCLUDED.lon,
			lat = EXCLUDED.lat,
			radius_meters = EXCLUDED.radius_meters,
			matches = EXCLUDED.matches,
			top_k = EXCLUDED.top_k,
			seed_policy = EXCLUDED.seed_policy,
			seed_id = EXCLUDED.seed_id,
			result_count = EXCLUDED.result_count,
			distances = EXCLUDED.distances,
			elapsed_ms = EXCLUDED.elapsed_ms,
			status = EXCLUDED.status,
			error = EXCLUDED.error`,
		r.RunID, r.Timestamp, r.Engine, r.Lon, r.Lat, r.RadiusMeters, r.Matches, r.TopK,
		r.SeedPolicy, r.SeedID, r.ResultCount, distances, r.ElapsedMs, r.Status, r.Error,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *PostgresRunStore) Get(ctx context.Context, id string) (RunInfo, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+pgRunColumns+` FROM runs WHERE run_id = $1`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	if err != nil {
		return r, fmt.Errorf("query run: %w", err)
	}
	return r, nil
}

func (s *PostgresRunStore) List(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+pgRunColumns+` FROM runs ORDER BY timestamp DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

func (s *PostgresRunStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}

func (s *PostgresRunStore) Summary(ctx context.Context) (RunSummary, error) {
	return querySummary(ctx, s.db)
}

func (s *PostgresRunStore) Close() error {
	return s.db.Close()
}

// distances is JSONB; read it back as text for scanRun.
const pgRunColumns = `run_id, timestamp, engine, lon, lat, radius_meters, matches, top_k,
	seed_policy, seed_id, result_count, distances::text, elapsed_ms, status, error`
