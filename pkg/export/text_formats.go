package export

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"time"

	stevederrors "github.com/TFMV/stevedore/pkg/errors"
	"github.com/TFMV/stevedore/pkg/models"
)

// writeCSV writes the dataset with a header row over the sorted column
// union.
func (e *Exporter) writeCSV(ds *models.Dataset, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return stevederrors.Wrapf(err, stevederrors.CodeExportFailed, "failed to create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	columns := ds.Columns()
	if err := w.Write(columns); err != nil {
		return stevederrors.Wrap(err, stevederrors.CodeExportFailed, "failed to write CSV header")
	}
	record := make([]string, len(columns))
	for _, row := range ds.Rows() {
		for i, col := range columns {
			record[i] = cellString(row, col)
		}
		if err := w.Write(record); err != nil {
			return stevederrors.Wrap(err, stevederrors.CodeExportFailed, "failed to write CSV row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return stevederrors.Wrap(err, stevederrors.CodeExportFailed, "failed to flush CSV output")
	}
	return nil
}

// jsonDocument is the export envelope; ReadJSON accepts it back.
type jsonDocument struct {
	Metadata jsonMetadata `json:"metadata"`
	Data     []models.Row `json:"data"`
}

type jsonMetadata struct {
	ExportedAt   string `json:"exported_at"`
	TotalRecords int    `json:"total_records"`
	Format       string `json:"format"`
}

// writeJSON writes the dataset wrapped in a metadata envelope, pretty
// printed.
func (e *Exporter) writeJSON(ds *models.Dataset, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return stevederrors.Wrapf(err, stevederrors.CodeExportFailed, "failed to create %s", path)
	}
	defer f.Close()

	doc := jsonDocument{
		Metadata: jsonMetadata{
			ExportedAt:   time.Now().Format(time.RFC3339),
			TotalRecords: ds.Len(),
			Format:       "json",
		},
		Data: ds.Rows(),
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return stevederrors.Wrap(err, stevederrors.CodeExportFailed, "failed to encode JSON")
	}
	return nil
}

// writeXML writes <data> with a metadata block and one <record id="i"> per
// row, field elements named by column. Missing cells are omitted.
func (e *Exporter) writeXML(ds *models.Dataset, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return stevederrors.Wrapf(err, stevederrors.CodeExportFailed, "failed to create %s", path)
	}
	defer f.Close()

	if _, err := f.WriteString(xml.Header); err != nil {
		return stevederrors.Wrap(err, stevederrors.CodeExportFailed, "failed to write XML header")
	}

	enc := xml.NewEncoder(f)
	enc.Indent("", "  ")

	root := xml.StartElement{Name: xml.Name{Local: "data"}}
	if err := enc.EncodeToken(root); err != nil {
		return stevederrors.Wrap(err, stevederrors.CodeExportFailed, "failed to encode XML")
	}

	meta := xml.StartElement{Name: xml.Name{Local: "metadata"}}
	if err := enc.EncodeToken(meta); err != nil {
		return stevederrors.Wrap(err, stevederrors.CodeExportFailed, "failed to encode XML")
	}
	if err := encodeTextElement(enc, "exported_at", time.Now().Format(time.RFC3339)); err != nil {
		return err
	}
	if err := encodeTextElement(enc, "total_records", strconv.Itoa(ds.Len())); err != nil {
		return err
	}
	if err := encodeTextElement(enc, "format", "xml"); err != nil {
		return err
	}
	if err := enc.EncodeToken(meta.End()); err != nil {
		return stevederrors.Wrap(err, stevederrors.CodeExportFailed, "failed to encode XML")
	}

	records := xml.StartElement{Name: xml.Name{Local: "records"}}
	if err := enc.EncodeToken(records); err != nil {
		return stevederrors.Wrap(err, stevederrors.CodeExportFailed, "failed to encode XML")
	}
	for i, row := range ds.Rows() {
		rec := xml.StartElement{
			Name: xml.Name{Local: "record"},
			Attr: []xml.Attr{{Name: xml.Name{Local: "id"}, Value: strconv.Itoa(i)}},
		}
		if err := enc.EncodeToken(rec); err != nil {
			return stevederrors.Wrap(err, stevederrors.CodeExportFailed, "failed to encode XML")
		}
		for _, col := range ds.Columns() {
			v, ok := row[col]
			if !ok || v == nil {
				continue
			}
			if err := encodeTextElement(enc, col, stringify(v)); err != nil {
				return err
			}
		}
		if err := enc.EncodeToken(rec.End()); err != nil {
			return stevederrors.Wrap(err, stevederrors.CodeExportFailed, "failed to encode XML")
		}
	}
	if err := enc.EncodeToken(records.End()); err != nil {
		return stevederrors.Wrap(err, stevederrors.CodeExportFailed, "failed to encode XML")
	}

	if err := enc.EncodeToken(root.End()); err != nil {
		return stevederrors.Wrap(err, stevederrors.CodeExportFailed, "failed to encode XML")
	}
	if err := enc.Flush(); err != nil {
		return stevederrors.Wrap(err, stevederrors.CodeExportFailed, "failed to flush XML output")
	}
	return nil
}

func encodeTextElement(enc *xml.Encoder, name, value string) error {
	el := xml.StartElement{Name: xml.Name{Local: name}}
	if err := enc.EncodeElement(value, el); err != nil {
		return stevederrors.Wrapf(err, stevederrors.CodeExportFailed, "failed to encode XML element %s", name)
	}
	return nil
}

// stringify renders a scalar the way text formats expect: no exponent
// notation for integral floats, Go defaults otherwise.
func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprintf("%v", val)
	}
}
