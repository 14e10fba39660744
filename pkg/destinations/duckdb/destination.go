// Package duckdb binds the destination contract to a DuckDB table.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/TFMV/stevedore/pkg/destinations"
	stevederrors "github.com/TFMV/stevedore/pkg/errors"
	"github.com/TFMV/stevedore/pkg/models"
)

// Config describes a DuckDB destination.
type Config struct {
	// Path is the database file, or ":memory:".
	Path string
	// Table is the target table name.
	Table string
}

// Destination writes batches into one DuckDB table. The table schema is
// fixed at EnsureSchema time from the dataset's column union; rows are
// written column-positionally with missing cells as NULL.
type Destination struct {
	db      *sql.DB
	table   string
	columns []string
	logger  zerolog.Logger
}

// Open opens (or creates) the database file and returns a destination
// bound to the configured table. EnsureSchema must be called before the
// first BulkInsert.
func Open(ctx context.Context, cfg Config, logger zerolog.Logger) (*Destination, error) {
	if cfg.Table == "" {
		return nil, stevederrors.New(stevederrors.CodeInvalidRequest, "table is required")
	}
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, stevederrors.Wrap(err, stevederrors.CodeConnectionFailed, "failed to open DuckDB database")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, stevederrors.Wrap(err, stevederrors.CodeConnectionFailed, "failed to ping DuckDB database")
	}

	logger.Info().Str("path", path).Str("table", cfg.Table).Msg("opened DuckDB database")
	return &Destination{db: db, table: cfg.Table, logger: logger}, nil
}

// EnsureSchema creates the target table if needed, one VARCHAR-or-typed
// column per dataset column, and fixes the insert column order.
func (d *Destination) EnsureSchema(ctx context.Context, columns []string) error {
	if len(columns) == 0 {
		return stevederrors.New(stevederrors.CodeInvalidRequest, "at least one column is required")
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	sort.Strings(cols)

	stmt := generateCreateTableStmt(d.table, cols)
	if _, err := d.db.ExecContext(ctx, stmt); err != nil {
		return stevederrors.Wrapf(err, stevederrors.CodeConnectionFailed, "failed to create table %s", d.table)
	}
	d.columns = cols
	return nil
}

// generateCreateTableStmt returns a CREATE TABLE IF NOT EXISTS statement
// for the given table and columns. All columns are VARCHAR; DuckDB casts
// bound parameters as needed and heterogeneous datasets carry no reliable
// per-column type.
func generateCreateTableStmt(table string, columns []string) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(quoteIdentifier(table))
	b.WriteString(" (")
	for i, col := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdentifier(col))
		b.WriteString(" VARCHAR")
	}
	b.WriteString(")")
	return b.String()
}

// generateInsertStmt returns an INSERT statement with one placeholder per
// column, e.g. INSERT INTO "t" ("a", "b") VALUES (?, ?).
func generateInsertStmt(table string, columns []string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(quoteIdentifier(table))
	b.WriteString(" (")
	for i, col := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdentifier(col))
	}
	b.WriteString(") VALUES (")
	for i := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("?")
	}
	b.WriteString(")")
	return b.String()
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// BulkInsert writes the rows one by one through a prepared statement in
// autocommit mode. A shared transaction would be poisoned by the first row
// error, rolling back rows already counted as inserted; autocommit keeps
// each row's reported outcome equal to what the table actually holds.
func (d *Destination) BulkInsert(ctx context.Context, rows []models.Row) models.BulkResult {
	if d.columns == nil {
		return models.TotalFailure("schema not initialized: call EnsureSchema first")
	}

	stmt, err := d.db.PrepareContext(ctx, generateInsertStmt(d.table, d.columns))
	if err != nil {
		return models.TotalFailure(fmt.Sprintf("failed to prepare insert statement: %v", err))
	}
	defer stmt.Close()

	var rowErrors []models.RowError
	inserted := 0
	for i, row := range rows {
		params := make([]interface{}, len(d.columns))
		for c, col := range d.columns {
			if v, ok := row[col]; ok && v != nil {
				params[c] = renderValue(v)
			}
		}
		if _, err := stmt.ExecContext(ctx, params...); err != nil {
			rowErrors = append(rowErrors, models.RowError{IndexInBatch: i, Message: err.Error()})
			continue
		}
		inserted++
	}

	if len(rowErrors) > 0 {
		return models.PartialFailure(inserted, rowErrors)
	}
	return models.AllOk(inserted)
}

// renderValue maps a cell value to a driver-friendly parameter. VARCHAR
// columns take everything as text.
func renderValue(v any) any {
	switch val := v.(type) {
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Stats reports the row count and index count of the target table.
func (d *Destination) Stats(ctx context.Context) (models.DestinationStats, error) {
	var count int64
	countStmt := "SELECT count(*) FROM " + quoteIdentifier(d.table)
	if err := d.db.QueryRowContext(ctx, countStmt).Scan(&count); err != nil {
		return models.DestinationStats{}, stevederrors.Wrapf(err, stevederrors.CodeConnectionFailed, "failed to count rows in %s", d.table)
	}

	var indexCount int64
	err := d.db.QueryRowContext(ctx,
		"SELECT index_count FROM duckdb_tables() WHERE table_name = ?", d.table).
		Scan(&indexCount)
	if err != nil && err != sql.ErrNoRows {
		return models.DestinationStats{}, stevederrors.Wrapf(err, stevederrors.CodeConnectionFailed, "failed to inspect table %s", d.table)
	}

	return models.DestinationStats{
		Count:      count,
		IndexCount: indexCount,
	}, nil
}

// Constraints returns DuckDB's naming rules. Quoted identifiers accept
// almost anything, so there is nothing to reserve.
func (d *Destination) Constraints() destinations.Constraints {
	return destinations.Constraints{}
}

// Close closes the database handle.
func (d *Destination) Close() error {
	return d.db.Close()
}
