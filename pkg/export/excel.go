package export

import (
	"github.com/xuri/excelize/v2"

	stevederrors "github.com/TFMV/stevedore/pkg/errors"
	"github.com/TFMV/stevedore/pkg/models"
)

const excelSheet = "Sheet1"

// writeExcel writes the dataset to a single-sheet workbook: header row
// over the sorted column union, one row per record, missing cells blank.
func (e *Exporter) writeExcel(ds *models.Dataset, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	columns := ds.Columns()
	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return stevederrors.Wrap(err, stevederrors.CodeExportFailed, "failed to address header cell")
		}
		if err := f.SetCellValue(excelSheet, cell, col); err != nil {
			return stevederrors.Wrap(err, stevederrors.CodeExportFailed, "failed to write header cell")
		}
	}

	for r, row := range ds.Rows() {
		for c, col := range columns {
			v, ok := row[col]
			if !ok || v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return stevederrors.Wrap(err, stevederrors.CodeExportFailed, "failed to address cell")
			}
			if err := f.SetCellValue(excelSheet, cell, v); err != nil {
				return stevederrors.Wrap(err, stevederrors.CodeExportFailed, "failed to write cell")
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return stevederrors.Wrapf(err, stevederrors.CodeExportFailed, "failed to save %s", path)
	}
	return nil
}
