package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubenschmidt/go-tilesearch/core"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("TILESEARCH_RUN_LOG_DSN", "memory")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSearchCommand(t *testing.T) {
	geojsonOut := filepath.Join(t.TempDir(), "matches.geojson")
	out, err := execute(t, "search",
		"--engine", "memory",
		"--index", "testdata/index.geojson",
		"--lon", "36.8219", "--lat", "-1.2921",
		"-n", "2",
		"--geojson", geojsonOut,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "seed seed (tile t0), 2 matches")
	assert.Contains(t, out, "closest: n1")
	assert.Contains(t, out, "distinct distances: [1 2]")

	data, err := os.ReadFile(geojsonOut)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"FeatureCollection"`)
	assert.Contains(t, string(data), `"base_id": "n2"`)
}

func TestSearchCommandNoSeed(t *testing.T) {
	_, err := execute(t, "search",
		"--engine", "memory",
		"--index", "testdata/index.geojson",
		"--lon", "10", "--lat", "10",
		"-n", "2",
		"--geojson", "",
	)
	assert.ErrorIs(t, err, core.ErrAmbiguousSeed)
}

func TestSQLCommandRequiresSQLEngine(t *testing.T) {
	_, err := execute(t, "sql",
		"--engine", "memory",
		"--index", "testdata/index.geojson",
		"--lon", "36.8219", "--lat", "-1.2921",
	)
	assert.Error(t, err)
}
