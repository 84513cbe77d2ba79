package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"ebaystore/parser/internal/domain"
)

// ReportSummary carries the run totals shown on the report's Summary sheet.
type ReportSummary struct {
	Store      string
	Date       time.Time
	Items      int
	Errors     int
	WithCompat int
}

var productSheetColumns = []struct {
	header string
	width  float64
}{
	{"Handle", 40},
	{"Title", 50},
	{"Price", 12},
	{"Currency", 10},
	{"Brand", 20},
	{"Condition", 18},
	{"MPN", 18},
	{"Image Count", 12},
	{"Compatibility Makes", 45},
	{"Compatibility Years", 45},
	{"URL", 60},
}

// WriteExcelReport writes the record set into an XLSX workbook with a
// Products sheet and a Summary sheet.
func WriteExcelReport(filename string, records []domain.DetailRecord, summary ReportSummary) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const productsSheet = "Products"
	if err := f.SetSheetName("Sheet1", productsSheet); err != nil {
		return fmt.Errorf("rename products sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF", Size: 11},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for c, column := range productSheetColumns {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(productsSheet, cell, column.header); err != nil {
			return fmt.Errorf("write header %s: %w", column.header, err)
		}
		if err := f.SetCellStyle(productsSheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("style header %s: %w", column.header, err)
		}
		col, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(productsSheet, col, col, column.width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	for r, record := range records {
		values := []any{
			Handle(record.Title, record.ItemID),
			record.Title,
			record.Price,
			record.Currency,
			record.Brand,
			record.Condition,
			record.MPN,
			len(record.Images),
			strings.Join(record.CompatMakes, ", "),
			strings.Join(record.CompatYears, ", "),
			record.URL,
		}
		for c, value := range values {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(productsSheet, cell, value); err != nil {
				return fmt.Errorf("write record row %d: %w", r+2, err)
			}
		}
	}

	if err := writeSummarySheet(f, headerStyle, summary); err != nil {
		return err
	}

	if err := f.SaveAs(filename); err != nil {
		return fmt.Errorf("save xlsx report: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, headerStyle int, summary ReportSummary) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	rows := [][2]any{
		{"Metric", "Value"},
		{"Store", summary.Store},
		{"Scrape Date", summary.Date.Format("2006-01-02 15:04:05")},
		{"Products", summary.Items},
		{"With Compatibility", summary.WithCompat},
		{"Errors", summary.Errors},
	}
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("write summary row %d: %w", r+1, err)
			}
		}
	}
	if err := f.SetCellStyle(sheet, "A1", "B1", headerStyle); err != nil {
		return fmt.Errorf("style summary header: %w", err)
	}
	if err := f.SetColWidth(sheet, "A", "A", 25); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "B", "B", 40)
}
