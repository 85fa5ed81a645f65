package vector

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/hubenschmidt/go-tilesearch/geo"
	"github.com/hubenschmidt/go-tilesearch/query"
)

// PgVectorEngine searches a PostgreSQL table using pgvector for the
// embedding column and PostGIS for the seed radius lookup.
//
// Expected table layout:
//
//	id TEXT, tile TEXT, geometry GEOGRAPHY, embedding VECTOR(n)
type PgVectorEngine struct {
	db    *sql.DB
	table string
}

// NewPgVectorEngine opens a connection pool and verifies it.
func NewPgVectorEngine(dsn, table string) (*PgVectorEngine, error) {
	if err := query.ValidateTable(table); err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return NewPgVectorEngineFromDB(db, table), nil
}

// NewPgVectorEngineFromDB wraps an existing pool.
func NewPgVectorEngineFromDB(db *sql.DB, table string) *PgVectorEngine {
	return &PgVectorEngine{db: db, table: table}
}

func (e *PgVectorEngine) Name() string {
	return "postgres"
}

func (e *PgVectorEngine) RenderSQL(req query.SearchRequest) (query.Statement, error) {
	return query.PostgresSQL(e.table, req)
}

// Search runs the self-join nearest-neighbor query.
func (e *PgVectorEngine) Search(ctx context.Context, req query.SearchRequest) ([]MatchRecord, error) {
	stmt, err := query.PostgresSQL(e.table, req)
	if err != nil {
		return nil, err
	}

	rows, err := e.db.QueryContext(ctx, stmt.SQL, stmt.Args()...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var results []MatchRecord
	for rows.Next() {
		var m MatchRecord
		var geoText string

		if err := rows.Scan(&m.BaseID, &m.BaseTile, &m.QueryID, &m.QueryTile, &geoText, &m.Distance); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		g, err := geo.ParseGeometry(geoText)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", m.BaseID, err)
		}
		m.Geometry = g
		results = append(results, m)
	}

	return results, rows.Err()
}

// CountSeeds counts the records within radiusMeters of anchor.
func (e *PgVectorEngine) CountSeeds(ctx context.Context, anchor geo.Point, radiusMeters float64) (int, error) {
	stmt, err := query.PostgresSeedCountSQL(e.table, query.SearchRequest{Anchor: anchor, RadiusMeters: radiusMeters})
	if err != nil {
		return 0, err
	}

	var n int
	if err := e.db.QueryRowContext(ctx, stmt.SQL, stmt.Args()...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count seeds: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (e *PgVectorEngine) Close() error {
	return e.db.Close()
}
