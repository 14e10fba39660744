// Package ingest builds datasets from external tabular sources.
package ingest

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	stevederrors "github.com/TFMV/stevedore/pkg/errors"
	"github.com/TFMV/stevedore/pkg/models"
)

// CSVOptions configures CSV reading.
type CSVOptions struct {
	// Delimiter is the field separator. Zero means comma.
	Delimiter rune
	// TrimSpace trims leading/trailing whitespace from header names and
	// cell values.
	TrimSpace bool
	// RawStrings disables scalar inference; every non-empty cell stays a
	// string.
	RawStrings bool
}

// ReadCSV reads header-plus-records CSV into a dataset. The header row
// supplies column names; an empty cell is a missing value and its key is
// omitted from the row. Unless RawStrings is set, cells parse into int64,
// float64, or bool when they round-trip cleanly.
func ReadCSV(r io.Reader, opts CSVOptions) (*models.Dataset, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	// Ragged rows are tolerated; short rows simply have missing cells.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return models.NewDataset(nil), nil
	}
	if err != nil {
		return nil, stevederrors.Wrap(err, stevederrors.CodeIngestFailed, "failed to read CSV header")
	}
	if opts.TrimSpace {
		for i := range header {
			header[i] = strings.TrimSpace(header[i])
		}
	}

	var rows []models.Row
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stevederrors.Wrapf(err, stevederrors.CodeIngestFailed, "failed to read CSV line %d", line)
		}

		row := make(models.Row, len(header))
		for i, cell := range record {
			if i >= len(header) {
				break
			}
			if opts.TrimSpace {
				cell = strings.TrimSpace(cell)
			}
			if cell == "" {
				continue
			}
			if opts.RawStrings {
				row[header[i]] = cell
			} else {
				row[header[i]] = inferScalar(cell)
			}
		}
		rows = append(rows, row)
	}

	return models.NewDataset(rows), nil
}

// ReadCSVFile reads a CSV file from disk.
func ReadCSVFile(path string, opts CSVOptions) (*models.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, stevederrors.Wrapf(err, stevederrors.CodeIngestFailed, "failed to open %s", path)
	}
	defer f.Close()
	return ReadCSV(f, opts)
}

// inferScalar parses a cell into the narrowest scalar that round-trips:
// int64, float64, bool, then string.
func inferScalar(cell string) any {
	if i, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return f
	}
	switch cell {
	case "true", "True", "TRUE":
		return true
	case "false", "False", "FALSE":
		return false
	}
	return cell
}
