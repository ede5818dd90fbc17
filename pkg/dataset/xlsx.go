package dataset

import (
	"fmt"
	"strings"

	"quick-ratio/pkg/models"

	"github.com/xuri/excelize/v2"
)

// ReadXLSXFile lit une feuille Excel (la première si sheet est vide).
// La première ligne non vide sert d'en-tête.
func ReadXLSXFile(path, sheet string) (models.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return models.Table{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return models.Table{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	start := 0
	for start < len(rows) && isBlank(rows[start]) {
		start++
	}
	if start == len(rows) {
		return models.Table{}, fmt.Errorf("sheet %q is empty: header row is required", sheet)
	}

	header := make([]string, len(rows[start]))
	for i, h := range rows[start] {
		header[i] = strings.TrimSpace(h)
	}
	table := models.Table{Columns: header}
	for _, row := range rows[start+1:] {
		if isBlank(row) {
			continue
		}
		// GetRows tronque les cellules vides en fin de ligne
		padded := make([]string, max(len(header), len(row)))
		copy(padded, row)
		table.Rows = append(table.Rows, padded)
	}
	return table, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
