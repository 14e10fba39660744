// Package main provides the entry point for the stevedore bulk loader.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/TFMV/stevedore/cmd/stevedore/config"
	"github.com/TFMV/stevedore/pkg/destinations"
	"github.com/TFMV/stevedore/pkg/destinations/duckdb"
	"github.com/TFMV/stevedore/pkg/destinations/mongo"
	"github.com/TFMV/stevedore/pkg/destinations/postgres"
	"github.com/TFMV/stevedore/pkg/export"
	"github.com/TFMV/stevedore/pkg/infrastructure/metrics"
	"github.com/TFMV/stevedore/pkg/ingest"
	"github.com/TFMV/stevedore/pkg/loader"
	"github.com/TFMV/stevedore/pkg/models"
	"github.com/TFMV/stevedore/pkg/validate"
)

var (
	// Version information (set by build flags)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "stevedore",
	Short: "Stevedore bulk data loader",
	Long: `Stevedore validates tabular datasets and bulk-loads them into
MongoDB, DuckDB, or PostgreSQL, batch by batch with per-row error
accounting.`,
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Validate a dataset and bulk-load it into the destination",
	Long: `Read a CSV or JSON file, validate it, and load it into the
configured destination in batches.

Example:
  stevedore import data.csv --destination mongodb --database imports --collection records
  stevedore import data.json --destination duckdb --duckdb-path imports.db --table records`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a dataset without loading it",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Convert a dataset to another format",
	Long: `Read a CSV or JSON file and write it out as csv, json, xml,
excel, or parquet.

Example:
  stevedore export data.csv --format parquet --output data.parquet`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print destination storage statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(statsCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringP("config", "c", "", "config file path")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")

	for _, cmd := range []*cobra.Command{importCmd, statsCmd} {
		cmd.Flags().String("destination", "mongodb", "destination type (mongodb, duckdb, postgres)")
		cmd.Flags().String("mongo-uri", "", "MongoDB connection URI")
		cmd.Flags().String("mongo-host", "localhost", "MongoDB host")
		cmd.Flags().Int("mongo-port", 27017, "MongoDB port")
		cmd.Flags().String("database", "", "MongoDB database name")
		cmd.Flags().String("collection", "", "MongoDB collection name")
		cmd.Flags().Duration("connect-timeout", 10*time.Second, "destination connect timeout")
		cmd.Flags().String("duckdb-path", ":memory:", "DuckDB database path")
		cmd.Flags().String("postgres-dsn", "", "PostgreSQL connection string")
		cmd.Flags().String("table", "records", "target table (duckdb, postgres)")
	}

	importCmd.Flags().Int("batch-size", 1000, "rows per bulk insert")
	importCmd.Flags().Bool("force", false, "load even when validation reports warnings")
	importCmd.Flags().Bool("metrics", false, "enable Prometheus metrics")
	importCmd.Flags().String("metrics-address", ":9090", "metrics server address")

	for _, cmd := range []*cobra.Command{importCmd, validateCmd, exportCmd} {
		cmd.Flags().String("source-format", "", "input format (csv, json); inferred from extension when empty")
		cmd.Flags().String("delimiter", ",", "CSV field delimiter")
		cmd.Flags().Bool("trim-space", false, "trim whitespace around CSV cells")
		cmd.Flags().Bool("raw-strings", false, "keep CSV cells as strings, no scalar inference")
	}

	exportCmd.Flags().String("format", "csv", "output format (csv, json, xml, excel, parquet)")
	exportCmd.Flags().StringP("output", "o", "", "output path (required)")

	viper.SetEnvPrefix("STEVEDORE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Stevedore Bulk Loader\n")
			fmt.Printf("Version:    %s\n", version)
			fmt.Printf("Commit:     %s\n", commit)
			fmt.Printf("Build Date: %s\n", buildDate)
		},
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := setupLogging(cfg.LogLevel)
	logger.Info().
		Str("version", version).
		Str("file", args[0]).
		Msg("starting import")

	var metricsCollector metrics.Collector
	var metricsServer *metrics.MetricsServer
	if cfg.Metrics.Enabled {
		metricsCollector = metrics.NewPrometheusCollector()
		metricsServer = metrics.NewMetricsServer(cfg.Metrics.Address)
		go func() {
			logger.Info().Str("address", cfg.Metrics.Address).Msg("starting metrics server")
			if err := metricsServer.Start(); err != nil {
				logger.Error().Err(err).Msg("failed to start metrics server")
			}
		}()
		defer func() {
			if err := metricsServer.Stop(); err != nil {
				logger.Error().Err(err).Msg("error stopping metrics server")
			}
		}()
	} else {
		metricsCollector = metrics.NewNoOpCollector()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ds, err := readDataset(args[0], cfg)
	if err != nil {
		return err
	}

	dest, cleanup, err := openDestination(ctx, cfg, ds, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	validator := validate.New(validate.Options{
		MaxColumnsWarn: cfg.Validation.MaxColumnsWarn,
		MaxRowsWarn:    cfg.Validation.MaxRowsWarn,
		Constraints:    dest.Constraints(),
	})
	vr := validator.Validate(ds)
	for _, w := range vr.Warnings {
		logger.Warn().Msg(w)
	}
	if !vr.Valid {
		return fmt.Errorf("validation failed: %s", strings.Join(vr.Errors, "; "))
	}
	force, _ := cmd.Flags().GetBool("force")
	if len(vr.Warnings) > 0 && !force {
		return fmt.Errorf("validation produced %d warning(s); rerun with --force to load anyway", len(vr.Warnings))
	}

	l := loader.New(loader.Options{BatchSize: cfg.BatchSize}, logger, metricsCollector)
	report, err := l.Load(ctx, ds, dest, func(fraction float64) {
		fmt.Fprintf(os.Stderr, "\rprogress: %3.0f%%", fraction*100)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		logger.Warn().Err(err).Msg("import interrupted")
	}

	printJSON(report)
	if err != nil {
		return err
	}
	if report.ErrorCount > 0 {
		return fmt.Errorf("import completed with %d error(s)", report.ErrorCount)
	}
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadSourceConfig(cmd, args[0])
	if err != nil {
		return err
	}
	logger := setupLogging(viper.GetString("log-level"))

	ds, err := readDataset(args[0], cfg)
	if err != nil {
		return err
	}
	logger.Info().Int("rows", ds.Len()).Int("columns", len(ds.Columns())).Msg("dataset read")

	validator := validate.New(validate.Options{
		MaxColumnsWarn: cfg.Validation.MaxColumnsWarn,
		MaxRowsWarn:    cfg.Validation.MaxRowsWarn,
	})
	report := validator.Validate(ds)
	printJSON(report)
	if !report.Valid {
		return fmt.Errorf("validation failed: %s", strings.Join(report.Errors, "; "))
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadSourceConfig(cmd, args[0])
	if err != nil {
		return err
	}
	logger := setupLogging(viper.GetString("log-level"))

	formatName, _ := cmd.Flags().GetString("format")
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		return fmt.Errorf("--output is required")
	}

	ds, err := readDataset(args[0], cfg)
	if err != nil {
		return err
	}

	exporter := export.New(logger)
	rec, err := exporter.Export(ds, format, output)
	if err != nil {
		return err
	}
	printJSON(rec)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := setupLogging(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dest, cleanup, err := openDestination(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	stats, err := dest.Stats(ctx)
	if err != nil {
		return err
	}
	printJSON(stats)
	return nil
}

// loadConfig builds the full configuration from file, environment, and
// command flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	if err := viper.BindPFlags(cmd.Root().PersistentFlags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &config.Config{
		BatchSize: viper.GetInt("batch-size"),
		LogLevel:  viper.GetString("log-level"),
		Source: config.SourceConfig{
			Format:     viper.GetString("source-format"),
			Delimiter:  viper.GetString("delimiter"),
			TrimSpace:  viper.GetBool("trim-space"),
			RawStrings: viper.GetBool("raw-strings"),
		},
		Destination: config.DestinationConfig{
			Type: viper.GetString("destination"),
			Mongo: config.MongoConfig{
				URI:            viper.GetString("mongo-uri"),
				Host:           viper.GetString("mongo-host"),
				Port:           viper.GetInt("mongo-port"),
				Database:       viper.GetString("database"),
				Collection:     viper.GetString("collection"),
				ConnectTimeout: viper.GetDuration("connect-timeout"),
			},
			DuckDB: config.DuckDBConfig{
				Path:  viper.GetString("duckdb-path"),
				Table: viper.GetString("table"),
			},
			Postgres: config.PostgresConfig{
				DSN:   viper.GetString("postgres-dsn"),
				Table: viper.GetString("table"),
			},
		},
		Metrics: config.MetricsConfig{
			Enabled: viper.GetBool("metrics"),
			Address: viper.GetString("metrics-address"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadSourceConfig builds just enough configuration for source-only
// commands; no destination is validated.
func loadSourceConfig(cmd *cobra.Command, path string) (*config.Config, error) {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	if err := viper.BindPFlags(cmd.Root().PersistentFlags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	cfg := config.DefaultConfig()
	cfg.Source = config.SourceConfig{
		Path:       path,
		Format:     viper.GetString("source-format"),
		Delimiter:  viper.GetString("delimiter"),
		TrimSpace:  viper.GetBool("trim-space"),
		RawStrings: viper.GetBool("raw-strings"),
	}
	return cfg, nil
}

// readDataset reads the input file in the configured or inferred format.
func readDataset(path string, cfg *config.Config) (*models.Dataset, error) {
	format := cfg.Source.Format
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json":
			format = "json"
		default:
			format = "csv"
		}
	}

	switch format {
	case "csv":
		opts := ingest.CSVOptions{
			TrimSpace:  cfg.Source.TrimSpace,
			RawStrings: cfg.Source.RawStrings,
		}
		if cfg.Source.Delimiter != "" {
			opts.Delimiter = rune(cfg.Source.Delimiter[0])
		}
		return ingest.ReadCSVFile(path, opts)
	case "json":
		return ingest.ReadJSONFile(path)
	default:
		return nil, fmt.Errorf("unsupported source format: %s", format)
	}
}

// openDestination connects the configured backend. For SQL backends the
// table schema is created from the dataset's columns; pass a nil dataset
// for read-only commands.
func openDestination(ctx context.Context, cfg *config.Config, ds *models.Dataset, logger zerolog.Logger) (destinations.Destination, func(), error) {
	switch cfg.Destination.Type {
	case "mongodb":
		m := cfg.Destination.Mongo
		dest, err := mongo.Connect(ctx, mongo.Config{
			URI:            m.URI,
			Host:           m.Host,
			Port:           m.Port,
			Database:       m.Database,
			Collection:     m.Collection,
			ConnectTimeout: m.ConnectTimeout,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return dest, func() {
			if err := dest.Close(context.Background()); err != nil {
				logger.Error().Err(err).Msg("error closing destination")
			}
		}, nil

	case "duckdb":
		dest, err := duckdb.Open(ctx, duckdb.Config{
			Path:  cfg.Destination.DuckDB.Path,
			Table: cfg.Destination.DuckDB.Table,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		if ds != nil && ds.Len() > 0 {
			if err := dest.EnsureSchema(ctx, ds.Columns()); err != nil {
				_ = dest.Close()
				return nil, nil, err
			}
		}
		return dest, func() {
			if err := dest.Close(); err != nil {
				logger.Error().Err(err).Msg("error closing destination")
			}
		}, nil

	case "postgres":
		dest, err := postgres.Connect(ctx, postgres.Config{
			DSN:   cfg.Destination.Postgres.DSN,
			Table: cfg.Destination.Postgres.Table,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		if ds != nil && ds.Len() > 0 {
			if err := dest.EnsureSchema(ctx, ds.Columns()); err != nil {
				dest.Close()
				return nil, nil, err
			}
		}
		return dest, dest.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported destination type: %s", cfg.Destination.Type)
	}
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to render output: %v\n", err)
		return
	}
	fmt.Println(string(out))
}

func setupLogging(level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond

	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
		zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
			short := file
			for i := len(file) - 1; i > 0; i-- {
				if file[i] == '/' {
					short = file[i+1:]
					break
				}
			}
			return fmt.Sprintf("%s:%d", short, line)
		}
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stderr).
		Level(logLevel).
		With().
		Timestamp().
		Str("service", "stevedore")

	if logLevel == zerolog.DebugLevel {
		logger = logger.Caller()
	}

	return logger.Logger()
}
