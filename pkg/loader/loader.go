// Package loader implements the batch import engine.
package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/TFMV/stevedore/pkg/destinations"
	stevederrors "github.com/TFMV/stevedore/pkg/errors"
	"github.com/TFMV/stevedore/pkg/models"
)

// DefaultBatchSize is used when Options.BatchSize is left zero.
const DefaultBatchSize = 1000

// ProgressFunc receives the fraction of rows processed so far, in [0, 1].
// It is invoked after every batch, fire-and-forget: a panicking sink never
// aborts the import.
type ProgressFunc func(fraction float64)

// MetricsCollector defines the subset of metrics collection the loader
// needs.
type MetricsCollector interface {
	IncrementCounter(name string, labels ...string)
	RecordHistogram(name string, value float64, labels ...string)
}

// Options configures a Loader.
type Options struct {
	// BatchSize is the maximum number of rows submitted per bulk insert.
	// Zero means DefaultBatchSize; anything below 1 at load time is a
	// contract violation.
	BatchSize int
}

// Loader partitions a dataset into batches and writes them through a
// destination handle, aggregating per-row outcomes into an ImportReport.
// It is safe to invoke from any single goroutine; separate Load calls on
// separate datasets/destinations share no state.
type Loader struct {
	opts    Options
	logger  zerolog.Logger
	metrics MetricsCollector
}

// New creates a Loader.
func New(opts Options, logger zerolog.Logger, metrics MetricsCollector) *Loader {
	if opts.BatchSize == 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Loader{opts: opts, logger: logger, metrics: metrics}
}

// Load writes every row of the dataset into the destination, batch by
// batch in dataset order. Data failures are captured in the report, never
// returned as errors: a partial batch failure records one error entry per
// rejected row keyed by its original dataset index, and a total batch
// failure records one entry for the whole batch and moves on to the next
// batch. Only contract violations (nil destination, invalid batch size)
// and cancellation produce a non-nil error.
//
// On cancellation between batches the partial report accumulated so far is
// returned together with ctx.Err(); rows of batches never submitted are
// not counted in either bucket.
func (l *Loader) Load(ctx context.Context, ds *models.Dataset, dest destinations.Destination, progress ProgressFunc) (models.ImportReport, error) {
	if dest == nil {
		return models.ImportReport{}, stevederrors.ErrNilDestination
	}
	if l.opts.BatchSize < 1 {
		return models.ImportReport{},
			stevederrors.New(stevederrors.CodeFailedPrecondition, "batch size must be at least 1").
				WithDetail("batch_size", l.opts.BatchSize)
	}

	report := models.ImportReport{
		ImportID: uuid.NewString(),
		Errors:   []string{},
	}

	total := ds.Len()
	if total == 0 {
		return report, nil
	}
	report.TotalRecords = total

	logger := l.logger.With().Str("import_id", report.ImportID).Int("total_records", total).Logger()
	logger.Info().Int("batch_size", l.opts.BatchSize).Msg("starting import")

	start := time.Now()
	batchSize := l.opts.BatchSize
	for offset := 0; offset < total; offset += batchSize {
		if err := ctx.Err(); err != nil {
			logger.Warn().
				Int("rows_processed", offset).
				Msg("import canceled, returning partial report")
			l.metrics.IncrementCounter("loader_imports_total", "status", "canceled")
			return report, err
		}

		end := offset + batchSize
		if end > total {
			end = total
		}
		batch := ds.Slice(offset, end)
		batchNumber := offset/batchSize + 1

		result := dest.BulkInsert(ctx, batch)
		switch result.Kind() {
		case models.BulkAllOk:
			report.InsertedCount += len(batch)
			l.metrics.IncrementCounter("loader_batches_total", "status", "ok")
			logger.Debug().Int("batch", batchNumber).Int("rows", len(batch)).Msg("batch inserted")

		case models.BulkPartialFailure:
			rowErrors := result.RowErrors()
			report.InsertedCount += result.Inserted()
			report.ErrorCount += len(rowErrors)
			for _, re := range rowErrors {
				report.Errors = append(report.Errors,
					fmt.Sprintf("Row %d: %s", offset+re.IndexInBatch, re.Message))
			}
			l.metrics.IncrementCounter("loader_batches_total", "status", "partial")
			logger.Warn().
				Int("batch", batchNumber).
				Int("inserted", result.Inserted()).
				Int("rejected", len(rowErrors)).
				Msg("batch partially failed")

		case models.BulkTotalFailure:
			// Fail forward: the whole batch is counted as errors and the
			// import continues with the next batch.
			report.ErrorCount += len(batch)
			report.Errors = append(report.Errors,
				fmt.Sprintf("Batch %d: %s", batchNumber, result.Message()))
			l.metrics.IncrementCounter("loader_batches_total", "status", "failed")
			logger.Error().
				Int("batch", batchNumber).
				Int("rows", len(batch)).
				Str("reason", result.Message()).
				Msg("batch failed")
		}

		l.notifyProgress(progress, float64(end)/float64(total))
	}

	duration := time.Since(start)
	l.metrics.RecordHistogram("loader_import_duration_seconds", duration.Seconds())
	l.metrics.IncrementCounter("loader_imports_total", "status", "completed")
	logger.Info().
		Int("inserted", report.InsertedCount).
		Int("errors", report.ErrorCount).
		Dur("duration", duration).
		Msg("import completed")

	return report, nil
}

// notifyProgress calls the sink, swallowing any panic it raises. Progress
// is purely advisory and must never abort an import.
func (l *Loader) notifyProgress(progress ProgressFunc, fraction float64) {
	if progress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			l.logger.Warn().Interface("panic", r).Msg("progress sink panicked")
		}
	}()
	progress(fraction)
}

type noopMetrics struct{}

func (noopMetrics) IncrementCounter(string, ...string)         {}
func (noopMetrics) RecordHistogram(string, float64, ...string) {}
