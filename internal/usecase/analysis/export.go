package analysis

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the report
const SheetName = "Analyse"

var exportHeaders = []string{
	"Service", "Ligne majeure", "Code", "Ligne budgétaire", "Code", "Réf. ligne",
	"Estimé", "Réalisé", "Bon de commande", "Disponible",
}

// ExportXLSX renders the report as a workbook, one row per budget line of.
// Names and major lines without a budget line of get one row with zero amounts.
// The last row carries the totals.
func ExportXLSX(report []MajorLineSummary) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, fmt.Errorf("failed to create amount style: %w", err)
	}

	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(exportHeaders), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	w := &sheetWriter{f: f, row: 2}
	totals := LineOfSummary{EstimatedAmount: decimal.Zero, RealAmount: decimal.Zero, PurchaseOrderAmount: decimal.Zero}

	for _, major := range report {
		prefix := []any{major.ServiceID, major.Name, major.Code}
		if len(major.BudgetLineNames) == 0 {
			w.write(append(prefix, "", "", ""), LineOfSummary{})
			continue
		}
		for _, name := range major.BudgetLineNames {
			namePrefix := append(append([]any{}, prefix...), name.Name, name.Code)
			if len(name.BudgetLineOfs) == 0 {
				w.write(append(namePrefix, ""), LineOfSummary{})
				continue
			}
			for _, lineOf := range name.BudgetLineOfs {
				w.write(append(append([]any{}, namePrefix...), lineOf.NumRef), lineOf)
				totals.EstimatedAmount = totals.EstimatedAmount.Add(lineOf.EstimatedAmount)
				totals.RealAmount = totals.RealAmount.Add(lineOf.RealAmount)
				totals.PurchaseOrderAmount = totals.PurchaseOrderAmount.Add(lineOf.PurchaseOrderAmount)
			}
		}
	}

	totalRow := w.row
	w.write([]any{"Total", "", "", "", "", ""}, totals)
	if w.err != nil {
		return nil, fmt.Errorf("failed to write report rows: %w", w.err)
	}

	first, _ := excelize.CoordinatesToCellName(7, 2)
	end, _ := excelize.CoordinatesToCellName(len(exportHeaders), totalRow)
	if err := f.SetCellStyle(SheetName, first, end, money); err != nil {
		return nil, fmt.Errorf("failed to style amounts: %w", err)
	}
	if err := f.SetColWidth(SheetName, "A", "J", 18); err != nil {
		return nil, fmt.Errorf("failed to size columns: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetWriter appends report rows and keeps the first error
type sheetWriter struct {
	f   *excelize.File
	row int
	err error
}

func (w *sheetWriter) write(labels []any, amounts LineOfSummary) {
	if w.err != nil {
		return
	}
	available := amounts.EstimatedAmount.Sub(amounts.RealAmount).Sub(amounts.PurchaseOrderAmount)
	values := append(labels,
		amounts.EstimatedAmount.InexactFloat64(),
		amounts.RealAmount.InexactFloat64(),
		amounts.PurchaseOrderAmount.InexactFloat64(),
		available.InexactFloat64(),
	)

	cell, _ := excelize.CoordinatesToCellName(1, w.row)
	if err := w.f.SetSheetRow(SheetName, cell, &values); err != nil {
		w.err = err
		return
	}
	w.row++
}
