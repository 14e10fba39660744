// Package postgres binds the destination contract to a PostgreSQL table.
package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/TFMV/stevedore/pkg/destinations"
	stevederrors "github.com/TFMV/stevedore/pkg/errors"
	"github.com/TFMV/stevedore/pkg/models"
)

// Config describes a PostgreSQL destination.
type Config struct {
	// DSN is a libpq connection string or URL.
	DSN string
	// Table is the target table name.
	Table string
}

// Destination writes batches into one PostgreSQL table through a pgx
// pool. Like the DuckDB binding, the schema is fixed at EnsureSchema time
// from the dataset's column union.
type Destination struct {
	pool    *pgxpool.Pool
	table   string
	columns []string
	logger  zerolog.Logger
}

// Connect opens a pool, pings the server, and returns a destination bound
// to the configured table.
func Connect(ctx context.Context, cfg Config, logger zerolog.Logger) (*Destination, error) {
	if cfg.Table == "" {
		return nil, stevederrors.New(stevederrors.CodeInvalidRequest, "table is required")
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, stevederrors.Wrap(err, stevederrors.CodeConnectionFailed, "failed to create connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, stevederrors.Wrap(err, stevederrors.CodeConnectionFailed, "failed to ping PostgreSQL")
	}

	logger.Info().Str("table", cfg.Table).Msg("connected to PostgreSQL")
	return &Destination{pool: pool, table: cfg.Table, logger: logger}, nil
}

// EnsureSchema creates the target table if needed and fixes the insert
// column order. All columns are TEXT; heterogeneous datasets carry no
// reliable per-column type.
func (d *Destination) EnsureSchema(ctx context.Context, columns []string) error {
	if len(columns) == 0 {
		return stevederrors.New(stevederrors.CodeInvalidRequest, "at least one column is required")
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	sort.Strings(cols)

	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(quoteIdentifier(d.table))
	b.WriteString(" (")
	for i, col := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdentifier(col))
		b.WriteString(" TEXT")
	}
	b.WriteString(")")

	if _, err := d.pool.Exec(ctx, b.String()); err != nil {
		return stevederrors.Wrapf(err, stevederrors.CodeConnectionFailed, "failed to create table %s", d.table)
	}
	d.columns = cols
	return nil
}

// insertStmt returns an INSERT with positional $n placeholders.
func insertStmt(table string, columns []string) string {
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
		fmt.Fprintf(&b, "$%d", i+1)
	}
	b.WriteString(")")
	return b.String()
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// execer is the single-statement surface of a pgx pool.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// BulkInsert queues one INSERT per row into a pgx batch as the fast path.
// SendBatch pipelines everything into one implicit transaction, so any row
// error aborts it and rolls back the rows already executed; in that case
// the batch is replayed row by row in autocommit mode so the reported
// outcome matches what the table actually holds.
func (d *Destination) BulkInsert(ctx context.Context, rows []models.Row) models.BulkResult {
	if d.columns == nil {
		return models.TotalFailure("schema not initialized: call EnsureSchema first")
	}

	stmt := insertStmt(d.table, d.columns)
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(stmt, d.rowParams(row)...)
	}

	results := d.pool.SendBatch(ctx, batch)
	failed := false
	for i := 0; i < len(rows); i++ {
		if _, err := results.Exec(); err != nil {
			failed = true
		}
	}
	closeErr := results.Close()
	if !failed {
		if closeErr != nil {
			return models.TotalFailure(closeErr.Error())
		}
		return models.AllOk(len(rows))
	}

	return d.insertRows(ctx, d.pool, stmt, rows)
}

// insertRows executes one INSERT per row in autocommit mode, collecting
// real per-row outcomes.
func (d *Destination) insertRows(ctx context.Context, ex execer, stmt string, rows []models.Row) models.BulkResult {
	var rowErrors []models.RowError
	inserted := 0
	for i, row := range rows {
		if _, err := ex.Exec(ctx, stmt, d.rowParams(row)...); err != nil {
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

// rowParams renders a row into positional parameters over the fixed
// column order, missing cells as NULL.
func (d *Destination) rowParams(row models.Row) []interface{} {
	params := make([]interface{}, len(d.columns))
	for c, col := range d.columns {
		if v, ok := row[col]; ok && v != nil {
			params[c] = fmt.Sprintf("%v", v)
		}
	}
	return params
}

// Stats reports the table's row count, total size, and index count from
// the catalog.
func (d *Destination) Stats(ctx context.Context) (models.DestinationStats, error) {
	var stats models.DestinationStats

	countStmt := "SELECT count(*) FROM " + quoteIdentifier(d.table)
	if err := d.pool.QueryRow(ctx, countStmt).Scan(&stats.Count); err != nil {
		return models.DestinationStats{}, stevederrors.Wrapf(err, stevederrors.CodeConnectionFailed, "failed to count rows in %s", d.table)
	}

	err := d.pool.QueryRow(ctx,
		`SELECT pg_total_relation_size($1::regclass),
		        pg_relation_size($1::regclass),
		        (SELECT count(*) FROM pg_indexes WHERE tablename = $2)`,
		quoteIdentifier(d.table), d.table).
		Scan(&stats.StorageSize, &stats.SizeBytes, &stats.IndexCount)
	if err != nil {
		return models.DestinationStats{}, stevederrors.Wrapf(err, stevederrors.CodeConnectionFailed, "failed to inspect table %s", d.table)
	}

	if stats.Count > 0 {
		stats.AvgRecordSize = float64(stats.SizeBytes) / float64(stats.Count)
	}
	return stats, nil
}

// Constraints returns PostgreSQL's naming rules. Quoted identifiers accept
// almost anything, so there is nothing to reserve.
func (d *Destination) Constraints() destinations.Constraints {
	return destinations.Constraints{}
}

// Close closes the pool.
func (d *Destination) Close() {
	d.pool.Close()
}
