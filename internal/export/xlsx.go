package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Lancamentos"

// WriteXLSX writes docs as a single-sheet workbook. Values are stored as
// numbers formatted with two decimals so spreadsheet sums work.
func WriteXLSX(w io.Writer, docs []Document, opts Options) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("WriteXLSX: naming sheet: %w", err)
	}

	hdr := header(opts)
	row := make([]interface{}, len(hdr))
	for i, h := range hdr {
		row[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &row); err != nil {
		return fmt.Errorf("WriteXLSX: writing header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("WriteXLSX: creating header style: %w", err)
	}
	if err := f.SetRowStyle(sheetName, 1, 1, bold); err != nil {
		return fmt.Errorf("WriteXLSX: styling header: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("WriteXLSX: creating value style: %w", err)
	}

	line := 2
	for _, d := range docs {
		for _, r := range d.Records {
			cell, err := excelize.CoordinatesToCellName(1, line)
			if err != nil {
				return fmt.Errorf("WriteXLSX: cell name: %w", err)
			}
			vals := []interface{}{r.DateString(), r.Establishment, r.Amount.InexactFloat64()}
			if opts.WithSource {
				vals = append(vals, d.Source)
			}
			if err := f.SetSheetRow(sheetName, cell, &vals); err != nil {
				return fmt.Errorf("WriteXLSX: writing row %d: %w", line, err)
			}
			valueCell, _ := excelize.CoordinatesToCellName(3, line)
			if err := f.SetCellStyle(sheetName, valueCell, valueCell, money); err != nil {
				return fmt.Errorf("WriteXLSX: styling row %d: %w", line, err)
			}
			line++
		}
	}

	if err := f.SetColWidth(sheetName, "A", "A", 12); err != nil {
		return fmt.Errorf("WriteXLSX: sizing columns: %w", err)
	}
	if err := f.SetColWidth(sheetName, "B", "B", 48); err != nil {
		return fmt.Errorf("WriteXLSX: sizing columns: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("WriteXLSX: writing workbook: %w", err)
	}
	return nil
}
