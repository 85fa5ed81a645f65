package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hubenschmidt/go-tilesearch/store/migrations"
	_ "modernc.org/sqlite"
)

const runColumns = `run_id, timestamp, engine, lon, lat, radius_meters, matches, top_k,
	seed_policy, seed_id, result_count, distances, elapsed_ms, status, error`

// SQLiteRunStore implements RunStore using SQLite
type SQLiteRunStore struct {
	db *sql.DB
}

// NewSQLiteRunStore opens (and migrates) a SQLite run log at dsn
func NewSQLiteRunStore(dsn string) (*SQLiteRunStore, error) {
	if dsn == "" {
		dsn = "data/tilesearch.db"
	}

	dir := filepath.Dir(dsn)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := runSQLiteMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRunStore{db: db}, nil
}

func runSQLiteMigrations(db *sql.DB) error {
	data, err := migrations.SQLite.ReadFile("sqlite/001_init.sql")
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	_, err = db.Exec(string(data))
	if err != nil {
		return fmt.Errorf("exec migration: %w", err)
	}
	return nil
}

func (s *SQLiteRunStore) Add(ctx context.Context, r RunInfo) error {
	distances, err := marshalDistances(r.Distances)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Timestamp, r.Engine, r.Lon, r.Lat, r.RadiusMeters, r.Matches, r.TopK,
		r.SeedPolicy, r.SeedID, r.ResultCount, distances, r.ElapsedMs, r.Status, r.Error,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *SQLiteRunStore) Get(ctx context.Context, id string) (RunInfo, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	if err != nil {
		return r, fmt.Errorf("query run: %w", err)
	}
	return r, nil
}

func (s *SQLiteRunStore) List(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY timestamp DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

func (s *SQLiteRunStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}

func (s *SQLiteRunStore) Summary(ctx context.Context) (RunSummary, error) {
	return querySummary(ctx, s.db)
}

func (s *SQLiteRunStore) Close() error {
	return s.db.Close()
}

// shared by the SQLite and Postgres stores

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunInfo, error) {
	var r RunInfo
	var distances string
	err := row.Scan(
		&r.RunID, &r.Timestamp, &r.Engine, &r.Lon, &r.Lat, &r.RadiusMeters, &r.Matches, &r.TopK,
		&r.SeedPolicy, &r.SeedID, &r.ResultCount, &distances, &r.ElapsedMs, &r.Status, &r.Error,
	)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(distances), &r.Distances); err != nil {
		return r, fmt.Errorf("unmarshal distances: %w", err)
	}
	return r, nil
}

func scanRuns(rows *sql.Rows) ([]RunInfo, error) {
	var runs []RunInfo
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func marshalDistances(d []float64) (string, error) {
	if d == nil {
		d = []float64{}
	}
	b, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("marshal distances: %w", err)
	}
	return string(b), nil
}

func querySummary(ctx context.Context, db *sql.DB) (RunSummary, error) {
	var m RunSummary
	err := db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(result_count), 0),
			COALESCE(AVG(elapsed_ms), 0)
		FROM runs`).Scan(
		&m.TotalRuns, &m.SuccessfulRuns, &m.TotalResults, &m.AvgLatencyMs,
	)
	if err != nil {
		return m, fmt.Errorf("query summary: %w", err)
	}
	m.FailedRuns = m.TotalRuns - m.SuccessfulRuns
	return m, nil
}
