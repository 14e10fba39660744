package models

// BulkResultKind discriminates the three possible outcomes of a bulk
// insert.
type BulkResultKind int

const (
	// BulkAllOk means every row in the batch was written.
	BulkAllOk BulkResultKind = iota
	// BulkPartialFailure means some rows were written and some rejected
	// with per-row detail.
	BulkPartialFailure
	// BulkTotalFailure means the batch failed as a whole with no per-row
	// detail (connection loss, serialization fault).
	BulkTotalFailure
)

// RowError identifies one rejected row within a batch.
type RowError struct {
	IndexInBatch int    `json:"index_in_batch"`
	Message      string `json:"message"`
}

// BulkResult is the normalized outcome of one bulk-insert call. Every
// destination binding maps its native error reporting into one of the
// three shapes; the loader branches on Kind alone.
type BulkResult struct {
	kind      BulkResultKind
	inserted  int
	rowErrors []RowError
	message   string
}

// AllOk reports a fully successful batch of count rows.
func AllOk(count int) BulkResult {
	return BulkResult{kind: BulkAllOk, inserted: count}
}

// PartialFailure reports a batch where inserted rows were written and the
// rows in rowErrors were rejected.
func PartialFailure(inserted int, rowErrors []RowError) BulkResult {
	return BulkResult{kind: BulkPartialFailure, inserted: inserted, rowErrors: rowErrors}
}

// TotalFailure reports a batch that failed as a whole.
func TotalFailure(message string) BulkResult {
	return BulkResult{kind: BulkTotalFailure, message: message}
}

// Kind returns the outcome discriminator.
func (r BulkResult) Kind() BulkResultKind { return r.kind }

// Inserted returns the number of rows written. Zero for a total failure.
func (r BulkResult) Inserted() int { return r.inserted }

// RowErrors returns the per-row rejections of a partial failure.
func (r BulkResult) RowErrors() []RowError { return r.rowErrors }

// Message returns the failure description of a total failure.
func (r BulkResult) Message() string { return r.message }
