package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"quick-ratio/pkg/models"
)

const utf8BOM = "\uFEFF"

// ReadCSV lit un CSV avec ligne d'en-tête. Les lignes plus courtes que l'en-tête
// sont complétées par des cellules vides.
func ReadCSV(r io.Reader) (models.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return models.Table{}, fmt.Errorf("empty CSV: header row is required")
	}
	if err != nil {
		return models.Table{}, fmt.Errorf("read CSV header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	table := models.Table{Columns: header}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return models.Table{}, fmt.Errorf("read CSV line %d: %w", line, err)
		}
		if len(record) < len(header) {
			padded := make([]string, len(header))
			copy(padded, record)
			record = padded
		}
		table.Rows = append(table.Rows, record)
	}
	return table, nil
}

// ReadCSVFile ouvre et lit un fichier CSV.
func ReadCSVFile(path string) (models.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Table{}, fmt.Errorf("open CSV file: %w", err)
	}
	defer f.Close()

	table, err := ReadCSV(f)
	if err != nil {
		return models.Table{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return table, nil
}
