package models

// ValidationReport is the outcome of pre-import validation. Valid is false
// only when a fatal condition fired; warnings never block an import.
type ValidationReport struct {
	Valid    bool         `json:"valid"`
	Errors   []string     `json:"errors"`
	Warnings []string     `json:"warnings"`
	Stats    DatasetStats `json:"stats"`
}

// ImportReport is the final accounting of one load call. Every row of the
// dataset lands in exactly one of InsertedCount or ErrorCount, so
// InsertedCount+ErrorCount == TotalRecords holds after a completed load.
type ImportReport struct {
	ImportID      string   `json:"import_id,omitempty"`
	TotalRecords  int      `json:"total_records"`
	InsertedCount int      `json:"inserted_count"`
	ErrorCount    int      `json:"error_count"`
	Errors        []string `json:"errors"`
}

// DestinationStats describes the destination collection/table, for display
// only. The loader itself never consults it.
type DestinationStats struct {
	Count         int64   `json:"count"`
	SizeBytes     int64   `json:"size_bytes"`
	AvgRecordSize float64 `json:"avg_record_size"`
	StorageSize   int64   `json:"storage_size"`
	IndexCount    int64   `json:"index_count"`
}
