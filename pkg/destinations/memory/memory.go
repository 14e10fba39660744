// Package memory provides an in-process destination used for tests and
// dry-run imports.
package memory

import (
	"context"
	"sync"

	"github.com/TFMV/stevedore/pkg/destinations"
	"github.com/TFMV/stevedore/pkg/models"
)

// Destination stores rows in memory. It normalizes outcomes exactly like a
// real binding would, and supports failure injection so loader behavior
// under partial and total batch failures can be exercised without a live
// store.
type Destination struct {
	mu   sync.Mutex
	rows []models.Row

	constraints destinations.Constraints

	// RejectRow, when set, is consulted per row; a non-empty return marks
	// the row rejected with that message, producing a PartialFailure.
	RejectRow func(row models.Row) string
	// FailBatch, when set, is consulted per call with the 1-based call
	// number; a non-empty return fails the whole batch with that message.
	FailBatch func(call int) string

	calls int
}

// New creates an empty in-memory destination.
func New() *Destination {
	return &Destination{
		constraints: destinations.Constraints{},
	}
}

// WithConstraints sets the naming constraints the destination reports.
func (d *Destination) WithConstraints(c destinations.Constraints) *Destination {
	d.constraints = c
	return d
}

// BulkInsert appends rows to the in-memory store, applying any configured
// failure injection.
func (d *Destination) BulkInsert(_ context.Context, rows []models.Row) models.BulkResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls++
	if d.FailBatch != nil {
		if msg := d.FailBatch(d.calls); msg != "" {
			return models.TotalFailure(msg)
		}
	}

	var rowErrors []models.RowError
	inserted := 0
	for i, row := range rows {
		if d.RejectRow != nil {
			if msg := d.RejectRow(row); msg != "" {
				rowErrors = append(rowErrors, models.RowError{IndexInBatch: i, Message: msg})
				continue
			}
		}
		d.rows = append(d.rows, row)
		inserted++
	}

	if len(rowErrors) > 0 {
		return models.PartialFailure(inserted, rowErrors)
	}
	return models.AllOk(inserted)
}

// Stats reports the current record count. Sizes are synthetic.
func (d *Destination) Stats(_ context.Context) (models.DestinationStats, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return models.DestinationStats{
		Count: int64(len(d.rows)),
	}, nil
}

// Constraints returns the configured naming constraints.
func (d *Destination) Constraints() destinations.Constraints {
	return d.constraints
}

// Rows returns a copy of everything inserted so far.
func (d *Destination) Rows() []models.Row {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.Row, len(d.rows))
	copy(out, d.rows)
	return out
}

// Calls returns how many BulkInsert calls the destination has received.
func (d *Destination) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}
