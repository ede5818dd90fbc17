package export

import (
	"database/sql"
	"fmt"
	"io"

	"quick-ratio/pkg/models"

	"github.com/xuri/excelize/v2"
)

// SheetName nomme la feuille d'une taille de fenêtre.
func SheetName(windowDays int) string {
	return fmt.Sprintf("window_%dd", windowDays)
}

// WriteXLSX écrit un classeur avec une feuille par taille de fenêtre.
func WriteXLSX(w io.Writer, windows []models.WindowMetrics) error {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}

	rowBySheet := map[string]int{}
	var sheets []string
	for i, win := range windows {
		sheet := SheetName(win.WindowDays)
		if _, ok := rowBySheet[sheet]; !ok {
			if len(sheets) == 0 {
				if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
					return fmt.Errorf("rename sheet: %w", err)
				}
			} else if _, err := f.NewSheet(sheet); err != nil {
				return fmt.Errorf("create sheet %s: %w", sheet, err)
			}
			if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
				return fmt.Errorf("write header: %w", err)
			}
			sheets = append(sheets, sheet)
			rowBySheet[sheet] = 1
		}
		rowBySheet[sheet]++

		row := xlsxRow(win)
		cell, err := excelize.CoordinatesToCellName(1, rowBySheet[sheet])
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	if len(sheets) == 0 {
		// classeur vide : en-tête seul
		if err := f.SetSheetRow(f.GetSheetName(0), "A1", &header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// xlsxRow garde les types numériques ; un ratio indéfini laisse la cellule vide.
func xlsxRow(w models.WindowMetrics) []interface{} {
	ratio := func(r sql.NullFloat64) interface{} {
		if !r.Valid {
			return nil
		}
		return r.Float64
	}
	return []interface{}{
		w.WindowEnd.String(),
		w.WindowDays,
		w.Segment,
		w.New,
		w.Resurrected,
		w.Retained,
		w.Churned,
		ratio(w.QuickRatio),
		w.NewValue.InexactFloat64(),
		w.ResurrectedValue.InexactFloat64(),
		w.RetainedValue.InexactFloat64(),
		w.ChurnedValue.InexactFloat64(),
		ratio(w.ValueQuickRatio),
	}
}
