package export

import (
	"encoding/json"
	"strings"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	stevederrors "github.com/TFMV/stevedore/pkg/errors"
	"github.com/TFMV/stevedore/pkg/models"
)

// writeParquet writes the dataset as a SNAPPY-compressed Parquet file with
// one optional field per column. Column types come from the first non-nil
// value seen in each column; cells that do not fit the inferred type are
// written as text when the column is textual, otherwise dropped as null.
func (e *Exporter) writeParquet(ds *models.Dataset, path string) error {
	// Schema fields travel as comma-separated key=value tag strings, so
	// these characters in a column name would corrupt the schema.
	for _, col := range ds.Columns() {
		if strings.ContainsAny(col, ",=") {
			return stevederrors.Newf(stevederrors.CodeExportFailed,
				"column name %q cannot be represented in a parquet schema", col)
		}
	}

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return stevederrors.Wrapf(err, stevederrors.CodeExportFailed, "failed to create %s", path)
	}

	types := inferColumnTypes(ds)
	pw, err := writer.NewJSONWriter(buildParquetSchema(ds.Columns(), types), fw, 4)
	if err != nil {
		_ = fw.Close()
		return stevederrors.Wrap(err, stevederrors.CodeExportFailed, "failed to create parquet writer")
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range ds.Rows() {
		out := make(map[string]any, len(ds.Columns()))
		for _, col := range ds.Columns() {
			out[col] = parquetValue(row[col], types[col])
		}
		rec, err := json.Marshal(out)
		if err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return stevederrors.Wrap(err, stevederrors.CodeExportFailed, "failed to encode parquet row")
		}
		if err := pw.Write(string(rec)); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return stevederrors.Wrap(err, stevederrors.CodeExportFailed, "failed to write parquet row")
		}
	}

	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return stevederrors.Wrap(err, stevederrors.CodeExportFailed, "failed to finalize parquet file")
	}
	if err := fw.Close(); err != nil {
		return stevederrors.Wrapf(err, stevederrors.CodeExportFailed, "failed to close %s", path)
	}
	return nil
}

// inferColumnTypes picks a parquet physical type per column from the first
// non-nil value.
func inferColumnTypes(ds *models.Dataset) map[string]string {
	types := make(map[string]string, len(ds.Columns()))
	for _, col := range ds.Columns() {
		types[col] = "BYTE_ARRAY"
		for _, row := range ds.Rows() {
			v, ok := row[col]
			if !ok || v == nil {
				continue
			}
			switch v.(type) {
			case bool:
				types[col] = "BOOLEAN"
			case int64:
				types[col] = "INT64"
			case float64:
				types[col] = "DOUBLE"
			}
			break
		}
	}
	return types
}

// buildParquetSchema renders the JSON schema tags the parquet writer
// expects: every field optional, text columns as UTF8 byte arrays.
func buildParquetSchema(columns []string, types map[string]string) string {
	fields := make([]map[string]string, 0, len(columns))
	for _, col := range columns {
		tag := "name=" + col + ", type=" + types[col] + ", repetitiontype=OPTIONAL"
		if types[col] == "BYTE_ARRAY" {
			tag = "name=" + col + ", type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"
		}
		fields = append(fields, map[string]string{"Tag": tag})
	}
	out := map[string]any{
		"Tag":    "name=parquet_go_root, repetitiontype=REQUIRED",
		"Fields": fields,
	}
	b, _ := json.Marshal(out)
	return string(b)
}

// parquetValue coerces a cell to the column's inferred type, or nil when
// it cannot be represented.
func parquetValue(v any, colType string) any {
	if v == nil {
		return nil
	}
	switch colType {
	case "BOOLEAN":
		if b, ok := v.(bool); ok {
			return b
		}
	case "INT64":
		switch val := v.(type) {
		case int64:
			return val
		case float64:
			return int64(val)
		}
	case "DOUBLE":
		switch val := v.(type) {
		case float64:
			return val
		case int64:
			return float64(val)
		}
	case "BYTE_ARRAY":
		return stringify(v)
	}
	return nil
}
