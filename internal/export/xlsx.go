package export

import (
	"fmt"
	"io"

	"bookkeeping/internal/core"
	"bookkeeping/internal/ledger"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// WriteXLSX writes the same columns as WriteCSV into a single worksheet
// named after the schema. Known amounts are stored as numbers.
func WriteXLSX[R core.Record](w io.Writer, schema ledger.Schema[R], records []R) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := schema.Title
	if sheet == "" {
		sheet = defaultSheet
	}
	if err := f.SetSheetName(defaultSheet, sheet); err != nil {
		return fmt.Errorf("name worksheet: %w", err)
	}

	header := make([]interface{}, len(schema.Header))
	for i, h := range schema.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, r := range records {
		cells := schema.Encode(r)
		row := make([]interface{}, len(cells))
		for j, c := range cells {
			row[j] = c
		}
		if a := r.Value(); !a.Missing() && schema.AmountColumn < len(row) {
			row[schema.AmountColumn] = a.Decimal.InexactFloat64()
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
