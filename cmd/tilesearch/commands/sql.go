package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hubenschmidt/go-tilesearch/geo"
)

var sqlCmd = &cobra.Command{
	Use:   "sql",
	Short: "Print the query a search would submit",
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

		stmt, err := app.Engine.Preview(n)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, stmt.SQL)
		for i, p := range stmt.Params {
			name := p.Name
			if name == "" {
				name = fmt.Sprintf("$%d", i+1)
			}
			fmt.Fprintf(w, "-- %s = %v\n", name, p.Value)
		}
		return nil
	},
}

func init() {
	addPointFlags(sqlCmd)
}
