package exporter

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"

	"kuberdash/pkg/contracts/domain"
)

// SheetName is the worksheet exported tables are written to
const SheetName = "Sheet1"

// WriteExcel writes t as an xlsx workbook. Numeric and temporal cells keep
// their types; missing cells are left blank.
func WriteExcel(w io.Writer, t *domain.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	header := make([]interface{}, t.NumCols())
	for j, name := range t.ColumnNames() {
		header[j] = name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := 0; i < t.NumRows(); i++ {
		row := make([]interface{}, t.NumCols())
		for j, col := range t.Columns {
			row[j] = excelCell(col.Values[i], col.Type)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func excelCell(v domain.Value, ct domain.ColumnType) interface{} {
	if v.Null {
		return nil
	}
	switch ct {
	case domain.ColumnNumeric:
		if math.IsInf(v.Num, 0) {
			return v.Format(ct)
		}
		return v.Num
	case domain.ColumnTemporal:
		return v.Time
	default:
		return v.Str
	}
}
