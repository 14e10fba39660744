package ingest

import (
	"encoding/json"
	"io"
	"os"

	stevederrors "github.com/TFMV/stevedore/pkg/errors"
	"github.com/TFMV/stevedore/pkg/models"
)

// jsonEnvelope matches the export envelope: {"metadata": ..., "data": [...]}.
type jsonEnvelope struct {
	Data []models.Row `json:"data"`
}

// ReadJSON reads either a bare array of objects or the export envelope
// into a dataset. Null fields are dropped so they count as missing cells.
func ReadJSON(r io.Reader) (*models.Dataset, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, stevederrors.Wrap(err, stevederrors.CodeIngestFailed, "failed to read JSON input")
	}

	var rows []models.Row
	if err := json.Unmarshal(raw, &rows); err != nil {
		var envelope jsonEnvelope
		if err2 := json.Unmarshal(raw, &envelope); err2 != nil || envelope.Data == nil {
			return nil, stevederrors.Wrap(err, stevederrors.CodeIngestFailed, "input is neither a JSON array of objects nor a data envelope")
		}
		rows = envelope.Data
	}

	for _, row := range rows {
		for k, v := range row {
			if v == nil {
				delete(row, k)
			}
		}
	}
	return models.NewDataset(rows), nil
}

// ReadJSONFile reads a JSON file from disk.
func ReadJSONFile(path string) (*models.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, stevederrors.Wrapf(err, stevederrors.CodeIngestFailed, "failed to open %s", path)
	}
	defer f.Close()
	return ReadJSON(f)
}
