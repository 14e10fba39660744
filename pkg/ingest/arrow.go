package ingest

import (
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/scalar"

	stevederrors "github.com/TFMV/stevedore/pkg/errors"
	"github.com/TFMV/stevedore/pkg/models"
)

// FromArrow converts an Arrow record batch into a dataset. Null cells are
// omitted so they count as missing values; field names become column
// names.
func FromArrow(record arrow.Record) (*models.Dataset, error) {
	if record == nil {
		return nil, stevederrors.New(stevederrors.CodeInvalidRequest, "record is nil")
	}

	numRows := int(record.NumRows())
	numCols := int(record.NumCols())
	fields := record.Schema().Fields()

	rows := make([]models.Row, 0, numRows)
	for i := 0; i < numRows; i++ {
		row := make(models.Row, numCols)
		for c := 0; c < numCols; c++ {
			sc, err := scalar.GetScalar(record.Column(c), i)
			if err != nil {
				return nil, stevederrors.Wrapf(err, stevederrors.CodeIngestFailed, "failed to get scalar for row %d, col %d", i, c)
			}
			value, err := scalarValue(sc)
			if r, ok := sc.(scalar.Releasable); ok {
				r.Release()
			}
			if err != nil {
				return nil, stevederrors.Wrapf(err, stevederrors.CodeIngestFailed, "failed to convert scalar for row %d, col %d", i, c)
			}
			if value != nil {
				row[fields[c].Name] = value
			}
		}
		rows = append(rows, row)
	}

	return models.NewDataset(rows), nil
}

// scalarValue converts an Arrow scalar into a plain Go value. Nulls map to
// nil. Unsigned values that do not fit in int64 stay uint64.
func scalarValue(s scalar.Scalar) (any, error) {
	if !s.IsValid() {
		return nil, nil
	}

	switch val := s.(type) {
	case *scalar.Boolean:
		return val.Value, nil
	case *scalar.Int8:
		return int64(val.Value), nil
	case *scalar.Int16:
		return int64(val.Value), nil
	case *scalar.Int32:
		return int64(val.Value), nil
	case *scalar.Int64:
		return val.Value, nil
	case *scalar.Uint8:
		return int64(val.Value), nil
	case *scalar.Uint16:
		return int64(val.Value), nil
	case *scalar.Uint32:
		return int64(val.Value), nil
	case *scalar.Uint64:
		if val.Value > math.MaxInt64 {
			return val.Value, nil
		}
		return int64(val.Value), nil
	case *scalar.Float32:
		return float64(val.Value), nil
	case *scalar.Float64:
		return val.Value, nil
	case *scalar.String:
		return string(val.Value.Bytes()), nil
	case *scalar.Binary:
		return string(val.Value.Bytes()), nil
	case scalar.DateScalar:
		return val.ToTime(), nil
	case scalar.TimeScalar:
		return val.ToTime(), nil
	default:
		return nil, fmt.Errorf("unsupported type: %s", val.DataType())
	}
}
