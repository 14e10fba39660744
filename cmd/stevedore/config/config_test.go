package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1000, cfg.BatchSize)
	assert.Equal(t, "mongodb", cfg.Destination.Type)
}

func TestValidate_FillsDefaults(t *testing.T) {
	cfg := &Config{
		Destination: DestinationConfig{
			Type: "mongodb",
			Mongo: MongoConfig{
				Database:   "imports",
				Collection: "records",
			},
		},
	}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 1000, cfg.BatchSize)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "localhost", cfg.Destination.Mongo.Host)
	assert.Equal(t, 27017, cfg.Destination.Mongo.Port)
	assert.Equal(t, 10*time.Second, cfg.Destination.Mongo.ConnectTimeout)
	assert.Equal(t, 100, cfg.Validation.MaxColumnsWarn)
	assert.Equal(t, 100000, cfg.Validation.MaxRowsWarn)
}

func TestValidate_MissingDestination(t *testing.T) {
	cfg := &Config{}
	require.Error(t, cfg.Validate())
}

func TestValidate_UnsupportedDestination(t *testing.T) {
	cfg := &Config{Destination: DestinationConfig{Type: "cassandra"}}
	require.Error(t, cfg.Validate())
}

func TestValidate_MongoRequiresDatabaseAndCollection(t *testing.T) {
	cfg := &Config{Destination: DestinationConfig{Type: "mongodb"}}
	require.Error(t, cfg.Validate())
}

func TestValidate_DuckDBRequiresTable(t *testing.T) {
	cfg := &Config{Destination: DestinationConfig{Type: "duckdb"}}
	require.Error(t, cfg.Validate())

	cfg.Destination.DuckDB.Table = "records"
	require.NoError(t, cfg.Validate())
}

func TestValidate_PostgresRequiresDSNAndTable(t *testing.T) {
	cfg := &Config{Destination: DestinationConfig{Type: "postgres"}}
	require.Error(t, cfg.Validate())

	cfg.Destination.Postgres.DSN = "postgres://localhost/imports"
	require.Error(t, cfg.Validate())

	cfg.Destination.Postgres.Table = "records"
	require.NoError(t, cfg.Validate())
}

func TestValidate_NegativeBatchSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BatchSize = -1
	require.Error(t, cfg.Validate())
}

func TestValidate_MetricsAddressDefault(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Address = ""
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":9090", cfg.Metrics.Address)
}
