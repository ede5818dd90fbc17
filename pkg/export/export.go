package export

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"quick-ratio/pkg/logger"
	"quick-ratio/pkg/models"
)

// Format de sortie du tableau de métriques.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatXLSX    Format = "xlsx"
	FormatParquet Format = "parquet"
	FormatJSON    Format = "json"
)

// ParseFormat accepte csv, xlsx, parquet, json (insensible à la casse).
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX, FormatParquet, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unsupported output format %q", s)
}

// FormatFromPath déduit le format de l'extension, csv par défaut.
func FormatFromPath(path string) Format {
	if f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), ".")); err == nil {
		return f
	}
	return FormatCSV
}

// Options configure l'écriture.
type Options struct {
	BOMPrefix   bool   // CSV : BOM UTF-8 pour Excel
	Compression string // Parquet : snappy, gzip ou none
}

// Header est l'en-tête commun à tous les formats tabulaires.
var Header = []string{
	"window_end_date", "window_days", "segment",
	"new", "resurrected", "retained", "churned", "user_quick_ratio",
	"new_value", "resurrected_value", "retained_value", "churned_value", "value_quick_ratio",
}

func formatRatio(r sql.NullFloat64) string {
	if !r.Valid {
		return ""
	}
	return strconv.FormatFloat(r.Float64, 'f', -1, 64)
}

// Records convertit les métriques en lignes texte, dans l'ordre de Header.
func Records(windows []models.WindowMetrics) [][]string {
	out := make([][]string, 0, len(windows))
	for _, w := range windows {
		out = append(out, []string{
			w.WindowEnd.String(),
			strconv.Itoa(w.WindowDays),
			w.Segment,
			strconv.Itoa(w.New),
			strconv.Itoa(w.Resurrected),
			strconv.Itoa(w.Retained),
			strconv.Itoa(w.Churned),
			formatRatio(w.QuickRatio),
			w.NewValue.String(),
			w.ResurrectedValue.String(),
			w.RetainedValue.String(),
			w.ChurnedValue.String(),
			formatRatio(w.ValueQuickRatio),
		})
	}
	return out
}

// Write écrit les métriques dans w au format demandé.
func Write(w io.Writer, format Format, windows []models.WindowMetrics, opts Options) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, windows, opts)
	case FormatXLSX:
		return WriteXLSX(w, windows)
	case FormatParquet:
		return WriteParquet(w, windows, opts)
	case FormatJSON:
		return WriteJSON(w, windows)
	}
	return fmt.Errorf("unsupported output format %q", format)
}

// WriteFile crée (ou remplace) path et y écrit les métriques.
func WriteFile(path string, format Format, windows []models.WindowMetrics, opts Options) error {
	logger.GetLogger().WithComponent("export").WithFields(logger.Fields{
		"file_path":    path,
		"format":       string(format),
		"record_count": len(windows),
	}).Info("writing metrics file")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	if err := Write(f, format, windows, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
