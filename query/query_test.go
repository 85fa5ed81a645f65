package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubenschmidt/go-tilesearch/core"
	"github.com/hubenschmidt/go-tilesearch/geo"
)

const kenyaTable = "embeddings_kenya.earthgenome_kenya_subset36_v1"

var nairobi = geo.NewPoint(36.8, -1.3)

func TestNewRequestAddsSelfMatch(t *testing.T) {
	for _, matches := range []int{0, 1, 5, 10, 100} {
		req, err := NewRequest(nairobi, DefaultRadiusMeters, matches)
		require.NoError(t, err)
		assert.Equal(t, matches+1, req.TopK)
		assert.Equal(t, matches, req.Matches)
		assert.Equal(t, SeedNearest, req.Seed)
	}
}

func TestNewRequestRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		anchor  geo.Point
		radius  float64
		matches int
		opts    []Option
	}{
		{"negative matches", nairobi, 160, -1, nil},
		{"zero radius", nairobi, 0, 5, nil},
		{"bad anchor", geo.NewPoint(200, 0), 160, 5, nil},
		{"bad seed policy", nairobi, 160, 5, []Option{WithSeedPolicy("random")}},
		{"bad distance", nairobi, 160, 5, []Option{WithDistanceType("MANHATTAN")}},
		{"dot product distance", nairobi, 160, 5, []Option{WithDistanceType("DOT_PRODUCT")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRequest(tt.anchor, tt.radius, tt.matches, tt.opts...)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrInvalidRequest)
		})
	}
}

func TestBigQuerySQL(t *testing.T) {
	req, err := NewRequest(nairobi, 160, 5)
	require.NoError(t, err)

	stmt, err := BigQuerySQL(kenyaTable, req)
	require.NoError(t, err)

	assert.Contains(t, stmt.SQL, "VECTOR_SEARCH(")
	assert.Contains(t, stmt.SQL, "TABLE `"+kenyaTable+"`")
	assert.Contains(t, stmt.SQL, "ST_DWITHIN(geometry, ST_GEOGPOINT(@lon, @lat), @radius)")
	assert.Contains(t, stmt.SQL, "ORDER BY ST_DISTANCE(geometry, ST_GEOGPOINT(@lon, @lat)), id")
	assert.Contains(t, stmt.SQL, "LIMIT 1)")
	assert.Contains(t, stmt.SQL, "top_k => 6)")
	assert.Contains(t, stmt.SQL, "base.id AS base_id")
	assert.Contains(t, stmt.SQL, "query.id AS query_id")
	assert.NotContains(t, stmt.SQL, "distance_type")
	assert.NotContains(t, stmt.SQL, "OFFSET")

	assert.Equal(t, []Param{
		{Name: "lon", Value: 36.8},
		{Name: "lat", Value: -1.3},
		{Name: "radius", Value: 160.0},
	}, stmt.Params)
}

func TestBigQuerySQLOptions(t *testing.T) {
	req, err := NewRequest(nairobi, 160, 3, WithSeedPolicy(SeedUnordered), WithDistanceType(DistanceCosine))
	require.NoError(t, err)

	stmt, err := BigQuerySQL(kenyaTable, req)
	require.NoError(t, err)
	assert.NotContains(t, stmt.SQL, "ST_DISTANCE")
	assert.Contains(t, stmt.SQL, "top_k => 4,\n  distance_type => 'COSINE')")
}

func TestPostgresSQL(t *testing.T) {
	req, err := NewRequest(nairobi, 160, 5, WithDistanceType(DistanceCosine))
	require.NoError(t, err)

	stmt, err := PostgresSQL("public.tiles", req)
	require.NoError(t, err)

	assert.Contains(t, stmt.SQL, `FROM "public"."tiles" AS base CROSS JOIN seed`)
	assert.Contains(t, stmt.SQL, "ST_DWithin(geometry, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)")
	assert.Contains(t, stmt.SQL, "base.embedding <=> seed.embedding AS distance")
	assert.Contains(t, stmt.SQL, "LIMIT $4")
	assert.Equal(t, []any{36.8, -1.3, 160.0, 6}, stmt.Args())
}

func TestSeedCountSQL(t *testing.T) {
	req, err := NewRequest(nairobi, 160, 5)
	require.NoError(t, err)

	bq, err := BigQuerySeedCountSQL(kenyaTable, req)
	require.NoError(t, err)
	assert.Contains(t, bq.SQL, "COUNT(*)")
	assert.Len(t, bq.Params, 3)

	pg, err := PostgresSeedCountSQL("tiles", req)
	require.NoError(t, err)
	assert.Contains(t, pg.SQL, `FROM "tiles"`)
	assert.Len(t, pg.Args(), 3)
}

func TestValidateTable(t *testing.T) {
	assert.NoError(t, ValidateTable(kenyaTable))
	assert.NoError(t, ValidateTable("my-project.dataset.table"))
	assert.Error(t, ValidateTable("tiles; DROP TABLE tiles"))
	assert.Error(t, ValidateTable("a.b.c.d"))
	assert.Error(t, ValidateTable(""))
}

func TestParsePolicies(t *testing.T) {
	p, ok := ParseSeedPolicy(" Strict ")
	assert.True(t, ok)
	assert.Equal(t, SeedStrict, p)

	p, ok = ParseSeedPolicy("")
	assert.True(t, ok)
	assert.Equal(t, SeedNearest, p)

	_, ok = ParseSeedPolicy("random")
	assert.False(t, ok)

	d, ok := ParseDistanceType("cosine")
	assert.True(t, ok)
	assert.Equal(t, DistanceCosine, d)

	d, ok = ParseDistanceType("")
	assert.True(t, ok)
	assert.Equal(t, DistanceDefault, d)

	_, ok = ParseDistanceType("dot_product")
	assert.False(t, ok)
}
