// Package config provides configuration structures for the stevedore CLI.
package config

import (
	"fmt"
	"time"
)

// Config represents the CLI configuration.
type Config struct {
	// Import settings
	BatchSize int    `yaml:"batch_size" json:"batch_size"`
	LogLevel  string `yaml:"log_level" json:"log_level"`

	// Source settings
	Source SourceConfig `yaml:"source" json:"source"`

	// Destination selection and per-backend settings
	Destination DestinationConfig `yaml:"destination" json:"destination"`

	// Validation settings
	Validation ValidationConfig `yaml:"validation" json:"validation"`

	// Metrics configuration
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// SourceConfig describes the input file.
type SourceConfig struct {
	// Path is the input file. Format is inferred from the extension when
	// empty.
	Path   string `yaml:"path" json:"path"`
	Format string `yaml:"format" json:"format"` // csv, json

	// CSV options
	Delimiter  string `yaml:"delimiter" json:"delimiter"`
	TrimSpace  bool   `yaml:"trim_space" json:"trim_space"`
	RawStrings bool   `yaml:"raw_strings" json:"raw_strings"`
}

// DestinationConfig selects and configures the destination backend.
type DestinationConfig struct {
	// Type is one of mongodb, duckdb, postgres.
	Type string `yaml:"type" json:"type"`

	Mongo    MongoConfig    `yaml:"mongodb" json:"mongodb"`
	DuckDB   DuckDBConfig   `yaml:"duckdb" json:"duckdb"`
	Postgres PostgresConfig `yaml:"postgres" json:"postgres"`
}

// MongoConfig describes a MongoDB destination.
type MongoConfig struct {
	URI            string        `yaml:"uri" json:"uri"`
	Host           string        `yaml:"host" json:"host"`
	Port           int           `yaml:"port" json:"port"`
	Database       string        `yaml:"database" json:"database"`
	Collection     string        `yaml:"collection" json:"collection"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
}

// DuckDBConfig describes a DuckDB destination.
type DuckDBConfig struct {
	Path  string `yaml:"path" json:"path"`
	Table string `yaml:"table" json:"table"`
}

// PostgresConfig describes a PostgreSQL destination.
type PostgresConfig struct {
	DSN   string `yaml:"dsn" json:"dsn"`
	Table string `yaml:"table" json:"table"`
}

// ValidationConfig tunes validation thresholds.
type ValidationConfig struct {
	MaxColumnsWarn int `yaml:"max_columns_warn" json:"max_columns_warn"`
	MaxRowsWarn    int `yaml:"max_rows_warn" json:"max_rows_warn"`
}

// MetricsConfig represents metrics configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address" json:"address"`
}

// Validate validates the configuration and fills defaults.
func (c *Config) Validate() error {
	if c.BatchSize < 0 {
		return fmt.Errorf("batch_size must be positive")
	}
	if c.BatchSize == 0 {
		c.BatchSize = 1000
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	switch c.Destination.Type {
	case "mongodb":
		m := &c.Destination.Mongo
		if m.URI == "" && m.Host == "" {
			m.Host = "localhost"
		}
		if m.URI == "" && m.Port == 0 {
			m.Port = 27017
		}
		if m.Database == "" || m.Collection == "" {
			return fmt.Errorf("mongodb destination requires database and collection")
		}
		if m.ConnectTimeout <= 0 {
			m.ConnectTimeout = 10 * time.Second
		}
	case "duckdb":
		if c.Destination.DuckDB.Table == "" {
			return fmt.Errorf("duckdb destination requires a table")
		}
	case "postgres":
		if c.Destination.Postgres.DSN == "" {
			return fmt.Errorf("postgres destination requires a dsn")
		}
		if c.Destination.Postgres.Table == "" {
			return fmt.Errorf("postgres destination requires a table")
		}
	case "":
		return fmt.Errorf("destination type is required")
	default:
		return fmt.Errorf("unsupported destination type: %s", c.Destination.Type)
	}

	if c.Validation.MaxColumnsWarn <= 0 {
		c.Validation.MaxColumnsWarn = 100
	}
	if c.Validation.MaxRowsWarn <= 0 {
		c.Validation.MaxRowsWarn = 100000
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		c.Metrics.Address = ":9090"
	}

	return nil
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		BatchSize: 1000,
		LogLevel:  "info",
		Destination: DestinationConfig{
			Type: "mongodb",
			Mongo: MongoConfig{
				Host:           "localhost",
				Port:           27017,
				Database:       "imports",
				Collection:     "records",
				ConnectTimeout: 10 * time.Second,
			},
			DuckDB: DuckDBConfig{
				Path:  ":memory:",
				Table: "records",
			},
		},
		Validation: ValidationConfig{
			MaxColumnsWarn: 100,
			MaxRowsWarn:    100000,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9090",
		},
	}
}
