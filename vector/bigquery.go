package vector

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/hubenschmidt/go-tilesearch/geo"
	"github.com/hubenschmidt/go-tilesearch/query"
)

// BigQueryConfig configures a BigQueryEngine.
type BigQueryConfig struct {
	Project         string
	Location        string // optional, e.g. "US"
	Table           string // dataset.table or project.dataset.table
	CredentialsFile string // optional; application default credentials otherwise
}

// BigQueryEngine runs VECTOR_SEARCH queries against a BigQuery table.
type BigQueryEngine struct {
	client *bigquery.Client
	table  string
	loc    string
}

// bigQueryRow mirrors the columns selected by query.BigQuerySQL.
type bigQueryRow struct {
	BaseID    string  `bigquery:"base_id"`
	BaseTile  string  `bigquery:"base_tile"`
	QueryID   string  `bigquery:"query_id"`
	QueryTile string  `bigquery:"query_tile"`
	Geo       string  `bigquery:"geo"`
	Distance  float64 `bigquery:"distance"`
}

// NewBigQueryEngine creates a BigQuery client for cfg.Project.
func NewBigQueryEngine(ctx context.Context, cfg BigQueryConfig) (*BigQueryEngine, error) {
	if cfg.Project == "" {
		return nil, errors.New("bigquery: project is required")
	}
	if err := query.ValidateTable(cfg.Table); err != nil {
		return nil, err
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := bigquery.NewClient(ctx, cfg.Project, opts...)
	if err != nil {
		return nil, fmt.Errorf("bigquery: new client: %w", err)
	}
	return &BigQueryEngine{client: client, table: cfg.Table, loc: cfg.Location}, nil
}

func (e *BigQueryEngine) Name() string {
	return "bigquery"
}

func (e *BigQueryEngine) RenderSQL(req query.SearchRequest) (query.Statement, error) {
	return query.BigQuerySQL(e.table, req)
}

// Search runs the VECTOR_SEARCH self-join and reads every result row.
func (e *BigQueryEngine) Search(ctx context.Context, req query.SearchRequest) ([]MatchRecord, error) {
	stmt, err := query.BigQuerySQL(e.table, req)
	if err != nil {
		return nil, err
	}

	it, err := e.newQuery(stmt).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("bigquery: run query: %w", err)
	}

	var results []MatchRecord
	for {
		var row bigQueryRow
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bigquery: read row: %w", err)
		}

		m, err := row.toMatch()
		if err != nil {
			return nil, err
		}
		results = append(results, m)
	}
	return results, nil
}

// CountSeeds counts the records within radiusMeters of anchor.
func (e *BigQueryEngine) CountSeeds(ctx context.Context, anchor geo.Point, radiusMeters float64) (int, error) {
	stmt, err := query.BigQuerySeedCountSQL(e.table, query.SearchRequest{Anchor: anchor, RadiusMeters: radiusMeters})
	if err != nil {
		return 0, err
	}

	it, err := e.newQuery(stmt).Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("bigquery: count seeds: %w", err)
	}

	var row struct {
		N int64 `bigquery:"n"`
	}
	if err := it.Next(&row); err != nil {
		return 0, fmt.Errorf("bigquery: read seed count: %w", err)
	}
	return int(row.N), nil
}

func (e *BigQueryEngine) newQuery(stmt query.Statement) *bigquery.Query {
	q := e.client.Query(stmt.SQL)
	q.Parameters = bigQueryParams(stmt.Params)
	if e.loc != "" {
		q.Location = e.loc
	}
	return q
}

// Close closes the BigQuery client.
func (e *BigQueryEngine) Close() error {
	return e.client.Close()
}

func bigQueryParams(params []query.Param) []bigquery.QueryParameter {
	out := make([]bigquery.QueryParameter, len(params))
	for i, p := range params {
		out[i] = bigquery.QueryParameter{Name: p.Name, Value: p.Value}
	}
	return out
}

func (r bigQueryRow) toMatch() (MatchRecord, error) {
	g, err := geo.ParseGeometry(r.Geo)
	if err != nil {
		return MatchRecord{}, fmt.Errorf("bigquery: record %s: %w", r.BaseID, err)
	}
	return MatchRecord{
		BaseID:    r.BaseID,
		BaseTile:  r.BaseTile,
		QueryID:   r.QueryID,
		QueryTile: r.QueryTile,
		Geometry:  g,
		Distance:  r.Distance,
	}, nil
}
