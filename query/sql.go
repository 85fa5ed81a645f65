package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/hubenschmidt/go-tilesearch/core"
)

// Param is a bound query parameter. BigQuery binds by name; PostgreSQL
// binds by position in Statement.Params.
type Param struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Statement is rendered SQL plus its parameters.
type Statement struct {
	SQL    string
	Params []Param
}

// Args returns the parameter values in positional order.
func (s Statement) Args() []any {
	args := make([]any, len(s.Params))
	for i, p := range s.Params {
		args[i] = p.Value
	}
	return args
}

var tableIdent = regexp.MustCompile(`^[A-Za-z0-9_\-]+(\.[A-Za-z0-9_\-]+){0,2}$`)

// ValidateTable checks a dataset-qualified table name before it is
// interpolated into SQL.
func ValidateTable(table string) error {
	if !tableIdent.MatchString(table) {
		return core.Errorf("query.table", core.ErrInvalidRequest, "invalid table name %q", table)
	}
	return nil
}

// BigQuerySQL renders the request as a BigQuery VECTOR_SEARCH self-join.
// The seed subquery and the searched table are the same table.
func BigQuerySQL(table string, req SearchRequest) (Statement, error) {
	if err := ValidateTable(table); err != nil {
		return Statement{}, err
	}
	if err := req.Validate(); err != nil {
		return Statement{}, err
	}

	t := "`" + table + "`"
	var seedOrder string
	if req.Seed != SeedUnordered {
		seedOrder = "    ORDER BY ST_DISTANCE(geometry, ST_GEOGPOINT(@lon, @lat)), id\n"
	}
	var distanceType string
	if req.Distance != DistanceDefault {
		distanceType = fmt.Sprintf(",\n  distance_type => '%s'", req.Distance)
	}

	var sb strings.Builder
	sb.WriteString("SELECT\n")
	sb.WriteString("  base.id AS base_id,\n")
	sb.WriteString("  base.tile AS base_tile,\n")
	sb.WriteString("  query.id AS query_id,\n")
	sb.WriteString("  query.tile AS query_tile,\n")
	sb.WriteString("  ST_ASGEOJSON(base.geometry) AS geo,\n")
	sb.WriteString("  distance\n")
	sb.WriteString("FROM\n")
	sb.WriteString("  VECTOR_SEARCH(\n")
	fmt.Fprintf(&sb, "  TABLE %s,\n", t)
	sb.WriteString("  'embedding',\n")
	sb.WriteString("  (SELECT id, tile, embedding\n")
	fmt.Fprintf(&sb, "    FROM %s\n", t)
	sb.WriteString("    WHERE ST_DWITHIN(geometry, ST_GEOGPOINT(@lon, @lat), @radius)\n")
	sb.WriteString(seedOrder)
	sb.WriteString("    LIMIT 1),\n")
	sb.WriteString("  'embedding',\n")
	fmt.Fprintf(&sb, "  top_k => %d%s)\n", req.TopK, distanceType)
	sb.WriteString("ORDER BY distance")

	return Statement{
		SQL: sb.String(),
		Params: []Param{
			{Name: "lon", Value: req.Anchor.Lon},
			{Name: "lat", Value: req.Anchor.Lat},
			{Name: "radius", Value: req.RadiusMeters},
		},
	}, nil
}

// BigQuerySeedCountSQL counts the records a seed subquery could pick.
func BigQuerySeedCountSQL(table string, req SearchRequest) (Statement, error) {
	if err := ValidateTable(table); err != nil {
		return Statement{}, err
	}
	return Statement{
		SQL: fmt.Sprintf("SELECT COUNT(*) AS n FROM `%s` WHERE ST_DWITHIN(geometry, ST_GEOGPOINT(@lon, @lat), @radius)", table),
		Params: []Param{
			{Name: "lon", Value: req.Anchor.Lon},
			{Name: "lat", Value: req.Anchor.Lat},
			{Name: "radius", Value: req.RadiusMeters},
		},
	}, nil
}

var pgDistanceOps = map[DistanceType]string{
	DistanceDefault:   "<->",
	DistanceEuclidean: "<->",
	DistanceCosine:    "<=>",
}

const pgAnchor = "ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography"

// PostgresSQL renders the request for PostgreSQL with pgvector and
// PostGIS. The geometry column is expected to be a geography so that
// ST_DWithin measures meters.
func PostgresSQL(table string, req SearchRequest) (Statement, error) {
	if err := ValidateTable(table); err != nil {
		return Statement{}, err
	}
	if err := req.Validate(); err != nil {
		return Statement{}, err
	}

	t := pgTable(table)
	var seedOrder string
	if req.Seed != SeedUnordered {
		seedOrder = fmt.Sprintf("    ORDER BY ST_Distance(geometry, %s), id\n", pgAnchor)
	}

	var sb strings.Builder
	sb.WriteString("WITH seed AS (\n")
	sb.WriteString("    SELECT id, tile, embedding\n")
	fmt.Fprintf(&sb, "    FROM %s\n", t)
	fmt.Fprintf(&sb, "    WHERE ST_DWithin(geometry, %s, $3)\n", pgAnchor)
	sb.WriteString(seedOrder)
	sb.WriteString("    LIMIT 1\n")
	sb.WriteString(")\n")
	sb.WriteString("SELECT\n")
	sb.WriteString("  base.id AS base_id,\n")
	sb.WriteString("  base.tile AS base_tile,\n")
	sb.WriteString("  seed.id AS query_id,\n")
	sb.WriteString("  seed.tile AS query_tile,\n")
	sb.WriteString("  ST_AsGeoJSON(base.geometry) AS geo,\n")
	fmt.Fprintf(&sb, "  base.embedding %s seed.embedding AS distance\n", pgDistanceOps[req.Distance])
	fmt.Fprintf(&sb, "FROM %s AS base CROSS JOIN seed\n", t)
	sb.WriteString("ORDER BY distance\n")
	sb.WriteString("LIMIT $4")

	return Statement{
		SQL: sb.String(),
		Params: []Param{
			{Name: "lon", Value: req.Anchor.Lon},
			{Name: "lat", Value: req.Anchor.Lat},
			{Name: "radius", Value: req.RadiusMeters},
			{Name: "top_k", Value: req.TopK},
		},
	}, nil
}

// PostgresSeedCountSQL counts the records a seed subquery could pick.
func PostgresSeedCountSQL(table string, req SearchRequest) (Statement, error) {
	if err := ValidateTable(table); err != nil {
		return Statement{}, err
	}
	return Statement{
		SQL: fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE ST_DWithin(geometry, %s, $3)", pgTable(table), pgAnchor),
		Params: []Param{
			{Name: "lon", Value: req.Anchor.Lon},
			{Name: "lat", Value: req.Anchor.Lat},
			{Name: "radius", Value: req.RadiusMeters},
		},
	}, nil
}

func pgTable(table string) string {
	return pgx.Identifier(strings.Split(table, ".")).Sanitize()
}
