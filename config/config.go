// Package config loads tilesearch settings from defaults, an optional YAML
// file, an optional .env file and TILESEARCH_* environment variables, in
// that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/hubenschmidt/go-tilesearch/query"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "TILESEARCH"

const (
	EngineBigQuery = "bigquery"
	EnginePostgres = "postgres"
	EngineMemory   = "memory"
)

type Config struct {
	Addr string `yaml:"addr" envconfig:"ADDR"`

	Engine           string `yaml:"engine" envconfig:"ENGINE"`
	Table            string `yaml:"table" envconfig:"TABLE"`
	BigQueryProject  string `yaml:"bigquery_project" envconfig:"BIGQUERY_PROJECT"`
	BigQueryLocation string `yaml:"bigquery_location" envconfig:"BIGQUERY_LOCATION"`
	CredentialsFile  string `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE"`
	DatabaseURL      string `yaml:"database_url" envconfig:"DATABASE_URL"`
	IndexFile        string `yaml:"index_file" envconfig:"INDEX_FILE"`
	RunLogDSN        string `yaml:"run_log_dsn" envconfig:"RUN_LOG_DSN"`

	RadiusMeters          float64       `yaml:"radius_meters" envconfig:"RADIUS_METERS"`
	FootprintMarginMeters float64       `yaml:"footprint_margin_meters" envconfig:"FOOTPRINT_MARGIN_METERS"`
	DefaultMatches        int           `yaml:"default_matches" envconfig:"DEFAULT_MATCHES"`
	MaxMatches            int           `yaml:"max_matches" envconfig:"MAX_MATCHES"`
	MatchesStep           int           `yaml:"matches_step" envconfig:"MATCHES_STEP"`
	SeedPolicy            string        `yaml:"seed_policy" envconfig:"SEED_POLICY"`
	DistanceType          string        `yaml:"distance_type" envconfig:"DISTANCE_TYPE"`
	Timeout               time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`

	LogLevel  string `yaml:"log_level" envconfig:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" envconfig:"LOG_FORMAT"`

	CORSOrigin     string  `yaml:"cors_origin" envconfig:"CORS_ORIGIN"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST"`
}

func Default() Config {
	return Config{
		Addr:                  ":8080",
		Engine:                EngineBigQuery,
		Table:                 "embeddings_kenya.earthgenome_kenya_subset36_v1",
		RunLogDSN:             "memory",
		RadiusMeters:          query.DefaultRadiusMeters,
		FootprintMarginMeters: 160,
		DefaultMatches:        query.DefaultMatches,
		MaxMatches:            query.MaxMatches,
		MatchesStep:           query.MatchesStep,
		SeedPolicy:            string(query.SeedNearest),
		Timeout:               60 * time.Second,
		LogLevel:              "info",
		LogFormat:             "text",
		CORSOrigin:            "*",
		RateLimitRPS:          5,
		RateLimitBurst:        10,
	}
}

// Load reads and validates a Config.
func Load(path string) (Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Read layers path, .env and the environment over Default without
// validating. path names an optional YAML file; an empty path skips it.
// A .env file in the working directory is read when present.
func Read(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Engine {
	case EngineBigQuery:
		if c.BigQueryProject == "" {
			return errors.New("config: bigquery engine requires bigquery_project")
		}
	case EnginePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: postgres engine requires database_url")
		}
	case EngineMemory:
	default:
		return fmt.Errorf("config: unknown engine %q", c.Engine)
	}

	if c.Engine != EngineMemory {
		if err := query.ValidateTable(c.Table); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if _, ok := query.ParseSeedPolicy(c.SeedPolicy); !ok {
		return fmt.Errorf("config: unknown seed policy %q", c.SeedPolicy)
	}
	if _, ok := query.ParseDistanceType(c.DistanceType); !ok {
		return fmt.Errorf("config: unknown distance type %q", c.DistanceType)
	}
	if !(c.RadiusMeters > 0) {
		return fmt.Errorf("config: radius_meters must be positive, got %g", c.RadiusMeters)
	}
	if !(c.FootprintMarginMeters > 0) {
		return fmt.Errorf("config: footprint_margin_meters must be positive, got %g", c.FootprintMarginMeters)
	}
	if c.MaxMatches < 1 || c.MaxMatches > query.MaxMatches {
		return fmt.Errorf("config: max_matches must be in [1, %d], got %d", query.MaxMatches, c.MaxMatches)
	}
	if c.DefaultMatches < query.MinMatches || c.DefaultMatches > c.MaxMatches {
		return fmt.Errorf("config: default_matches must be in [%d, %d], got %d", query.MinMatches, c.MaxMatches, c.DefaultMatches)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("config: timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

// Seed returns the parsed seed policy. Validate must have passed.
func (c Config) Seed() query.SeedPolicy {
	p, _ := query.ParseSeedPolicy(c.SeedPolicy)
	return p
}

// Distance returns the parsed distance type. Validate must have passed.
func (c Config) Distance() query.DistanceType {
	d, _ := query.ParseDistanceType(c.DistanceType)
	return d
}
