// Package models defines the tabular data model and report types shared
// across the loader, validator, and destination bindings.
package models

import (
	"fmt"
	"sort"
	"strings"
)

// Row is one record of column name to scalar value. A nil value or an
// absent key both count as a missing cell. Values are expected to be
// strings, numbers, booleans, or nil; destination bindings decide how to
// encode anything else.
type Row map[string]any

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// DatasetStats holds metadata derived from a dataset at construction time.
type DatasetStats struct {
	TotalRows     int `json:"total_rows"`
	TotalColumns  int `json:"total_columns"`
	MissingValues int `json:"missing_values"`
	DuplicateRows int `json:"duplicate_rows"`
}

// Dataset is an ordered sequence of rows plus derived metadata. Rows need
// not share identical column sets; Columns is the sorted union of every
// column name seen across all rows. A Dataset is immutable once built.
type Dataset struct {
	rows    []Row
	columns []string
	stats   DatasetStats
}

// NewDataset builds a dataset from the given rows and computes its derived
// metadata. The rows slice is retained by the dataset; callers must not
// mutate it afterwards.
func NewDataset(rows []Row) *Dataset {
	ds := &Dataset{rows: rows}

	columnSet := make(map[string]struct{})
	for _, row := range rows {
		for col := range row {
			columnSet[col] = struct{}{}
		}
	}
	ds.columns = make([]string, 0, len(columnSet))
	for col := range columnSet {
		ds.columns = append(ds.columns, col)
	}
	sort.Strings(ds.columns)

	missing := 0
	seen := make(map[string]struct{}, len(rows))
	duplicates := 0
	for _, row := range rows {
		for _, col := range ds.columns {
			if v, ok := row[col]; !ok || v == nil {
				missing++
			}
		}
		key := fingerprint(row, ds.columns)
		if _, dup := seen[key]; dup {
			duplicates++
		} else {
			seen[key] = struct{}{}
		}
	}

	ds.stats = DatasetStats{
		TotalRows:     len(rows),
		TotalColumns:  len(ds.columns),
		MissingValues: missing,
		DuplicateRows: duplicates,
	}
	return ds
}

// fingerprint renders a row over the full column union so that rows with
// identical content hash to the same key regardless of map iteration
// order. Cells carry a type tag and a length prefix: values of different
// types that print alike stay distinct, and no cell content can masquerade
// as the missing-cell marker or bleed into a neighboring cell.
func fingerprint(row Row, columns []string) string {
	var b strings.Builder
	for _, col := range columns {
		v, ok := row[col]
		if !ok || v == nil {
			b.WriteString("-;")
			continue
		}
		cell := fmt.Sprintf("%T=%v", v, v)
		fmt.Fprintf(&b, "%d:%s;", len(cell), cell)
	}
	return b.String()
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.rows)
}

// Row returns the row at index i.
func (d *Dataset) Row(i int) Row { return d.rows[i] }

// Rows returns the underlying row slice. Callers must treat it as
// read-only.
func (d *Dataset) Rows() []Row { return d.rows }

// Slice returns rows in the half-open interval [lo, hi).
func (d *Dataset) Slice(lo, hi int) []Row { return d.rows[lo:hi] }

// Columns returns the sorted union of column names across all rows.
// Callers must treat it as read-only.
func (d *Dataset) Columns() []string { return d.columns }

// Stats returns the metadata derived when the dataset was built.
func (d *Dataset) Stats() DatasetStats {
	if d == nil {
		return DatasetStats{}
	}
	return d.stats
}
