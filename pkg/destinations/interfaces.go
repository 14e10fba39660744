// Package destinations defines the destination handle contract the batch
// loader writes through, plus shared capability metadata.
package destinations

import (
	"context"

	"github.com/TFMV/stevedore/pkg/models"
)

// Constraints describes destination-specific naming rules. The validator
// consumes these instead of hard-coding any one store's conventions.
type Constraints struct {
	// ReservedNamePrefixes are prefixes a column name must not start with
	// (MongoDB: "$").
	ReservedNamePrefixes []string
	// ReservedNameChars are characters a column name must not contain
	// (MongoDB: ".").
	ReservedNameChars []string
}

// Destination is an opaque capability over an open, authenticated
// connection to a record-oriented store. The loader depends on exactly
// these operations; connection lifecycle belongs to the caller.
type Destination interface {
	// BulkInsert writes the given rows as one batch and normalizes the
	// store's native error reporting into the three-way BulkResult shape.
	// It must account for every row: inserted plus rejected equals
	// len(rows) for AllOk and PartialFailure outcomes.
	BulkInsert(ctx context.Context, rows []models.Row) models.BulkResult

	// Stats reports destination statistics for display. The loader never
	// consults this.
	Stats(ctx context.Context) (models.DestinationStats, error)

	// Constraints describes the destination's column-naming rules.
	Constraints() Constraints
}
