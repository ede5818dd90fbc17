package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"quick-ratio/pkg/models"
)

// WriteCSV écrit l'en-tête puis une ligne par fenêtre.
func WriteCSV(w io.Writer, windows []models.WindowMetrics, opts Options) error {
	// Write BOM if requested (helps Excel recognize UTF-8)
	if opts.BOMPrefix {
		if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, record := range Records(windows) {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
