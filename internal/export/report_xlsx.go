package export

import (
	"fmt"
	"io"
	"sort"

	"go-stock-ledger/internal/service"

	"github.com/xuri/excelize/v2"
)

const (
	SheetSummary    = "Summary"
	SheetLowStock   = "Low Stock"
	SheetCategories = "Categories"

	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// WriteInventoryReport renders report as an xlsx workbook with one sheet for
// the totals, one for low-stock products and one for the category counts.
func WriteInventoryReport(w io.Writer, report *service.InventoryReport) error {
	f := excelize.NewFile()
	defer f.Close()

	// NewFile starts with "Sheet1".
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return err
	}
	for _, name := range []string{SheetLowStock, SheetCategories} {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}

	summary := [][]interface{}{
		{"Generated At", report.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Total Products", report.TotalProducts},
		{"Total Inventory Value", report.TotalInventoryValue.StringFixed(2)},
		{"Low Stock Count", report.LowStockCount},
	}
	if err := writeRows(f, SheetSummary, nil, summary); err != nil {
		return err
	}

	lowStock := make([][]interface{}, 0, len(report.LowStockProducts))
	for _, p := range report.LowStockProducts {
		lowStock = append(lowStock, []interface{}{p.SKU, p.Name, p.Category, p.Quantity, p.MinStockLevel, p.Location})
	}
	if err := writeRows(f, SheetLowStock,
		[]string{"SKU", "Name", "Category", "Quantity", "Min Stock", "Location"}, lowStock); err != nil {
		return err
	}

	categories := make([]string, 0, len(report.CategoryDistribution))
	for c := range report.CategoryDistribution {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	catRows := make([][]interface{}, 0, len(categories))
	for _, c := range categories {
		catRows = append(catRows, []interface{}{c, report.CategoryDistribution[c]})
	}
	if err := writeRows(f, SheetCategories, []string{"Category", "Products"}, catRows); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeRows(f *excelize.File, sheet string, headings []string, rows [][]interface{}) error {
	rowNo := 1
	if len(headings) > 0 {
		for i, h := range headings {
			cell, err := excelize.CoordinatesToCellName(i+1, rowNo)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, h); err != nil {
				return err
			}
		}
		rowNo++
	}

	for _, row := range rows {
		for i, value := range row {
			cell, err := excelize.CoordinatesToCellName(i+1, rowNo)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("%s!%s: %w", sheet, cell, err)
			}
		}
		rowNo++
	}
	return nil
}
