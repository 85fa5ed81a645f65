package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/hubenschmidt/go-tilesearch"
	"github.com/hubenschmidt/go-tilesearch/config"
)

var (
	// Global flags
	configPath string
	engineName string
	indexFile  string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "tilesearch",
	Short: "Find map tiles that look like the one under a point",
	Long: `tilesearch - similarity search over satellite tile embeddings.

A point selects the index tile under it; tilesearch then asks the vector
engine for the tiles whose embeddings are nearest to that tile.

Configuration is read from an optional YAML file (--config), a .env file
in the working directory and TILESEARCH_* environment variables.

Examples:
  # Serve the API against BigQuery
  TILESEARCH_BIGQUERY_PROJECT=my-project tilesearch serve

  # Search a local GeoJSON index
  tilesearch search --engine memory --index tiles.geojson --lon 36.8219 --lat -1.2921

  # Show the SQL for a search without running it
  tilesearch sql --lon 36.8219 --lat -1.2921 --matches 20`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&engineName, "engine", "", "vector engine: bigquery, postgres or memory")
	rootCmd.PersistentFlags().StringVar(&indexFile, "index", "", "GeoJSON index file for the memory engine")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(serveCmd, searchCmd, sqlCmd)
}

// loadConfig reads the layered config and applies command-line overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Read(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if engineName != "" {
		cfg.Engine = engineName
	}
	if indexFile != "" {
		cfg.IndexFile = indexFile
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func openApp(ctx context.Context) (*tilesearch.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := cfg.NewLogger(os.Stderr)
	return tilesearch.Open(ctx, cfg, logger)
}
