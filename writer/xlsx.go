package writer

import (
	"fmt"
	"io"

	"github.com/aqlanhadi/extrato/extractor/common"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// XLSXWriter writes one sheet with the header row followed by one row per record.
// Amounts are numeric cells; empty columns stay blank.
type XLSXWriter struct {
	Sheet string
}

func (w *XLSXWriter) Extension() string { return ".xlsx" }
func (w *XLSXWriter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (w *XLSXWriter) Write(out io.Writer, stmt common.Statement) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := w.Sheet
	if sheet == "" {
		sheet = "Sheet1"
	} else if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, rec := range stmt.Records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			rec.DisplayDate(),
			rec.Description,
			cellAmount(rec.Debit),
			cellAmount(rec.Credit),
			cellAmount(rec.Balance),
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func cellAmount(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.InexactFloat64()
}
