// Package export writes datasets out to interchange formats.
package export

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	stevederrors "github.com/TFMV/stevedore/pkg/errors"
	"github.com/TFMV/stevedore/pkg/models"
)

// Format identifies a supported export format.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatXML     Format = "xml"
	FormatExcel   Format = "excel"
	FormatParquet Format = "parquet"
)

// Formats lists all supported formats.
func Formats() []Format {
	return []Format{FormatCSV, FormatJSON, FormatXML, FormatExcel, FormatParquet}
}

// ParseFormat maps a user-supplied name to a Format.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(name)) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatXML:
		return FormatXML, nil
	case FormatExcel, "xlsx":
		return FormatExcel, nil
	case FormatParquet:
		return FormatParquet, nil
	default:
		return "", stevederrors.Newf(stevederrors.CodeUnsupported, "unsupported format: %s", name)
	}
}

// extension returns the canonical file extension for the format.
func (f Format) extension() string {
	if f == FormatExcel {
		return ".xlsx"
	}
	return "." + string(f)
}

// ExportRecord describes one completed export.
type ExportRecord struct {
	Format     Format    `json:"format"`
	Path       string    `json:"path"`
	Records    int       `json:"records"`
	ExportedAt time.Time `json:"exported_at"`
}

// Exporter writes datasets to files and keeps a history of what it wrote.
// Cells missing from a row are rendered empty; columns are the dataset's
// sorted union.
type Exporter struct {
	logger  zerolog.Logger
	history []ExportRecord
}

// New creates an Exporter.
func New(logger zerolog.Logger) *Exporter {
	return &Exporter{logger: logger}
}

// Export writes the dataset to path in the given format, appending the
// canonical extension when missing. An empty dataset is rejected: there is
// nothing meaningful to write and a silently empty file hides caller bugs.
func (e *Exporter) Export(ds *models.Dataset, format Format, path string) (ExportRecord, error) {
	if ds.Len() == 0 {
		return ExportRecord{}, stevederrors.New(stevederrors.CodeInvalidRequest, "dataset is empty")
	}
	if !strings.HasSuffix(path, format.extension()) {
		path += format.extension()
	}

	var err error
	switch format {
	case FormatCSV:
		err = e.writeCSV(ds, path)
	case FormatJSON:
		err = e.writeJSON(ds, path)
	case FormatXML:
		err = e.writeXML(ds, path)
	case FormatExcel:
		err = e.writeExcel(ds, path)
	case FormatParquet:
		err = e.writeParquet(ds, path)
	default:
		err = stevederrors.Newf(stevederrors.CodeUnsupported, "unsupported format: %s", format)
	}
	if err != nil {
		return ExportRecord{}, err
	}

	rec := ExportRecord{
		Format:     format,
		Path:       path,
		Records:    ds.Len(),
		ExportedAt: time.Now(),
	}
	e.history = append(e.history, rec)
	e.logger.Info().
		Str("format", string(format)).
		Str("path", path).
		Int("records", rec.Records).
		Msg("export completed")
	return rec, nil
}

// History returns a copy of the export history.
func (e *Exporter) History() []ExportRecord {
	out := make([]ExportRecord, len(e.history))
	copy(out, e.history)
	return out
}

// cellString renders a cell for text formats: missing and nil cells are
// empty strings.
func cellString(row models.Row, col string) string {
	v, ok := row[col]
	if !ok || v == nil {
		return ""
	}
	if s, isString := v.(string); isString {
		return s
	}
	return stringify(v)
}
