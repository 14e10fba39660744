package loader

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/stevedore/pkg/destinations"
	"github.com/TFMV/stevedore/pkg/destinations/memory"
	stevederrors "github.com/TFMV/stevedore/pkg/errors"
	"github.com/TFMV/stevedore/pkg/models"
)

// ---- mocks ----

// scriptedDestination records every batch it receives and answers each
// call with the next scripted result.
type scriptedDestination struct {
	batches [][]models.Row
	script  []models.BulkResult
}

func (d *scriptedDestination) BulkInsert(_ context.Context, rows []models.Row) models.BulkResult {
	d.batches = append(d.batches, rows)
	if len(d.script) > 0 {
		next := d.script[0]
		d.script = d.script[1:]
		return next
	}
	return models.AllOk(len(rows))
}

func (d *scriptedDestination) Stats(context.Context) (models.DestinationStats, error) {
	return models.DestinationStats{}, nil
}

func (d *scriptedDestination) Constraints() destinations.Constraints {
	return destinations.Constraints{}
}

func rowsN(n int) []models.Row {
	rows := make([]models.Row, n)
	for i := range rows {
		rows[i] = models.Row{"n": i}
	}
	return rows
}

func newTestLoader(batchSize int) *Loader {
	return New(Options{BatchSize: batchSize}, zerolog.Nop(), nil)
}

// ---- tests ----

func TestLoad_NilDestination(t *testing.T) {
	l := newTestLoader(10)
	_, err := l.Load(context.Background(), models.NewDataset(rowsN(3)), nil, nil)

	require.Error(t, err)
	assert.True(t, stevederrors.IsPrecondition(err))
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	l := New(Options{BatchSize: -1}, zerolog.Nop(), nil)
	dest := &scriptedDestination{}

	_, err := l.Load(context.Background(), models.NewDataset(rowsN(3)), dest, nil)

	require.Error(t, err)
	assert.True(t, stevederrors.IsPrecondition(err))
	assert.Empty(t, dest.batches, "destination must not be touched on a contract violation")
}

func TestLoad_EmptyDataset(t *testing.T) {
	l := newTestLoader(10)
	dest := &scriptedDestination{}

	report, err := l.Load(context.Background(), models.NewDataset(nil), dest, nil)

	require.NoError(t, err)
	assert.Equal(t, 0, report.TotalRecords)
	assert.Equal(t, 0, report.InsertedCount)
	assert.Equal(t, 0, report.ErrorCount)
	assert.Empty(t, report.Errors)
	assert.Empty(t, dest.batches, "empty dataset must not reach the destination")
}

func TestLoad_BatchBoundaries(t *testing.T) {
	// 2500 rows at batch size 1000 -> batches of 1000, 1000, 500.
	l := newTestLoader(1000)
	dest := &scriptedDestination{}

	report, err := l.Load(context.Background(), models.NewDataset(rowsN(2500)), dest, nil)

	require.NoError(t, err)
	require.Len(t, dest.batches, 3)
	assert.Len(t, dest.batches[0], 1000)
	assert.Len(t, dest.batches[1], 1000)
	assert.Len(t, dest.batches[2], 500)
	assert.Equal(t, 2500, report.InsertedCount)
	assert.Equal(t, 0, report.ErrorCount)
}

func TestLoad_BatchLargerThanDataset(t *testing.T) {
	l := newTestLoader(1000)
	dest := &scriptedDestination{}

	report, err := l.Load(context.Background(), models.NewDataset(rowsN(7)), dest, nil)

	require.NoError(t, err)
	require.Len(t, dest.batches, 1)
	assert.Equal(t, 7, report.InsertedCount)
}

func TestLoad_BatchingDeterminism(t *testing.T) {
	ds := models.NewDataset(rowsN(25))
	var boundaries [][]int
	for run := 0; run < 3; run++ {
		dest := &scriptedDestination{}
		_, err := newTestLoader(10).Load(context.Background(), ds, dest, nil)
		require.NoError(t, err)
		var sizes []int
		for _, b := range dest.batches {
			sizes = append(sizes, len(b))
		}
		boundaries = append(boundaries, sizes)
	}
	assert.Equal(t, boundaries[0], boundaries[1])
	assert.Equal(t, boundaries[1], boundaries[2])
	assert.Equal(t, []int{10, 10, 5}, boundaries[0])
}

func TestLoad_PartialFailureGlobalIndexes(t *testing.T) {
	// First batch: local rejects at 3 and 7 surface under their dataset
	// indexes unchanged.
	l := newTestLoader(10)
	dest := &scriptedDestination{
		script: []models.BulkResult{
			models.PartialFailure(8, []models.RowError{
				{IndexInBatch: 3, Message: "duplicate key"},
				{IndexInBatch: 7, Message: "duplicate key"},
			}),
		},
	}

	report, err := l.Load(context.Background(), models.NewDataset(rowsN(10)), dest, nil)

	require.NoError(t, err)
	assert.Equal(t, 8, report.InsertedCount)
	assert.Equal(t, 2, report.ErrorCount)
	assert.Equal(t, []string{"Row 3: duplicate key", "Row 7: duplicate key"}, report.Errors)
}

func TestLoad_PartialFailureSecondBatchOffset(t *testing.T) {
	l := newTestLoader(10)
	dest := &scriptedDestination{
		script: []models.BulkResult{
			models.AllOk(10),
			models.PartialFailure(9, []models.RowError{
				{IndexInBatch: 2, Message: "document too large"},
			}),
		},
	}

	report, err := l.Load(context.Background(), models.NewDataset(rowsN(20)), dest, nil)

	require.NoError(t, err)
	assert.Equal(t, 19, report.InsertedCount)
	assert.Equal(t, 1, report.ErrorCount)
	assert.Equal(t, []string{"Row 12: document too large"}, report.Errors)
}

func TestLoad_FailForward(t *testing.T) {
	// Batch 2 of 5 fails as a whole; batches 3-5 still run and their
	// successes are reflected in the final report.
	l := newTestLoader(10)
	dest := &scriptedDestination{
		script: []models.BulkResult{
			models.AllOk(10),
			models.TotalFailure("connection reset by peer"),
			models.AllOk(10),
			models.AllOk(10),
			models.AllOk(10),
		},
	}

	report, err := l.Load(context.Background(), models.NewDataset(rowsN(50)), dest, nil)

	require.NoError(t, err)
	require.Len(t, dest.batches, 5)
	assert.Equal(t, 40, report.InsertedCount)
	assert.Equal(t, 10, report.ErrorCount)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "Batch 2: connection reset by peer", report.Errors[0])
}

func TestLoad_AccountingInvariant(t *testing.T) {
	// inserted + errors == total for every mix of outcomes and batch size.
	cases := []struct {
		rows      int
		batchSize int
		script    []models.BulkResult
	}{
		{rows: 1, batchSize: 1, script: nil},
		{rows: 9, batchSize: 4, script: nil},
		{rows: 30, batchSize: 10, script: []models.BulkResult{
			models.TotalFailure("boom"),
			models.PartialFailure(7, []models.RowError{
				{IndexInBatch: 0, Message: "bad"},
				{IndexInBatch: 4, Message: "bad"},
				{IndexInBatch: 9, Message: "bad"},
			}),
			models.AllOk(10),
		}},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d_rows_batch_%d", tc.rows, tc.batchSize), func(t *testing.T) {
			dest := &scriptedDestination{script: tc.script}
			report, err := newTestLoader(tc.batchSize).Load(context.Background(), models.NewDataset(rowsN(tc.rows)), dest, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.rows, report.TotalRecords)
			assert.Equal(t, tc.rows, report.InsertedCount+report.ErrorCount)
		})
	}
}

func TestLoad_ProgressNotifications(t *testing.T) {
	l := newTestLoader(10)
	dest := &scriptedDestination{}
	var fractions []float64

	_, err := l.Load(context.Background(), models.NewDataset(rowsN(25)), dest, func(f float64) {
		fractions = append(fractions, f)
	})

	require.NoError(t, err)
	assert.Equal(t, []float64{0.4, 0.8, 1.0}, fractions)
}

func TestLoad_ProgressSinkPanicIgnored(t *testing.T) {
	l := newTestLoader(10)
	dest := &scriptedDestination{}

	report, err := l.Load(context.Background(), models.NewDataset(rowsN(25)), dest, func(float64) {
		panic("sink exploded")
	})

	require.NoError(t, err)
	assert.Equal(t, 25, report.InsertedCount)
	require.Len(t, dest.batches, 3, "a panicking sink must not abort the import")
}

func TestLoad_CancellationBetweenBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := newTestLoader(10)
	dest := &scriptedDestination{}

	report, err := l.Load(ctx, models.NewDataset(rowsN(30)), dest, func(f float64) {
		// Cancel after the first batch completes.
		if f < 0.5 {
			cancel()
		}
	})

	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, dest.batches, 1, "no further batches after cancellation")
	assert.Equal(t, 10, report.InsertedCount)
	assert.Equal(t, 0, report.ErrorCount)
}

func TestLoad_MemoryDestination(t *testing.T) {
	// End to end against the in-memory binding: rejected rows surface as
	// partial failures, everything else lands in the store.
	dest := memory.New()
	dest.RejectRow = func(row models.Row) string {
		if n, _ := row["n"].(int); n%10 == 3 {
			return "duplicate key"
		}
		return ""
	}

	report, err := newTestLoader(10).Load(context.Background(), models.NewDataset(rowsN(25)), dest, nil)

	require.NoError(t, err)
	assert.Equal(t, 22, report.InsertedCount)
	assert.Equal(t, 3, report.ErrorCount)
	assert.Equal(t, []string{
		"Row 3: duplicate key",
		"Row 13: duplicate key",
		"Row 23: duplicate key",
	}, report.Errors)
	assert.Len(t, dest.Rows(), 22)
	assert.Equal(t, 3, dest.Calls())
}

func TestLoad_DefaultBatchSize(t *testing.T) {
	l := New(Options{}, zerolog.Nop(), nil)
	assert.Equal(t, DefaultBatchSize, l.opts.BatchSize)
}

func TestLoad_ReportHasImportID(t *testing.T) {
	report, err := newTestLoader(5).Load(context.Background(), models.NewDataset(rowsN(5)), &scriptedDestination{}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, report.ImportID)
}
