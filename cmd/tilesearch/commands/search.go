package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hubenschmidt/go-tilesearch/engine"
	"github.com/hubenschmidt/go-tilesearch/geo"
	"github.com/hubenschmidt/go-tilesearch/render"
)

var (
	lon, lat    float64
	matches     int
	geojsonPath string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run one similarity search for a point",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.Select(geo.NewPoint(lon, lat)); err != nil {
			return err
		}

		n := matches
		if !cmd.Flags().Changed("matches") {
			n = app.Config.DefaultMatches
		}
		out, err := app.Engine.Run(cmd.Context(), n)
		if err != nil {
			return err
		}

		printResult(cmd.OutOrStdout(), out)

		if geojsonPath != "" {
			return writeGeoJSON(geojsonPath, out.Result)
		}
		return nil
	},
}

func init() {
	addPointFlags(searchCmd)
	searchCmd.Flags().StringVar(&geojsonPath, "geojson", "", "write the matches as a GeoJSON FeatureCollection to this file")
}

func addPointFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude of the selected point")
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude of the selected point")
	cmd.Flags().IntVarP(&matches, "matches", "n", 10, "number of similar tiles to return")
	cmd.MarkFlagRequired("lon")
	cmd.MarkFlagRequired("lat")
}

func printResult(w io.Writer, out *engine.RunOutput) {
	rs := out.Result
	fmt.Fprintf(w, "run %s: seed %s (tile %s), %d matches in %s\n",
		out.RunID, rs.SeedID, rs.SeedTile, rs.Len(), out.Elapsed.Round(time.Millisecond))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tBASE_ID\tBASE_TILE\tDISTANCE")
	for i, m := range rs.Matches {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.6f\n", i+1, m.BaseID, m.BaseTile, m.Distance)
	}
	tw.Flush()

	if closest, ok := rs.Closest(); ok {
		fmt.Fprintf(w, "closest: %s (%.6f)\n", closest.BaseID, closest.Distance)
	}
	fmt.Fprintf(w, "distinct distances: %v\n", rs.DistinctDistances())
}

func writeGeoJSON(path string, rs *engine.RankedResultSet) error {
	data, err := json.MarshalIndent(render.FeatureCollection(rs), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal geojson: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write geojson: %w", err)
	}
	return nil
}
