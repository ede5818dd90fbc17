package export

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"quick-ratio/pkg/logger"
	"quick-ratio/pkg/models"
)

// Chart regroupe les séries d'un graphique empilé pour une taille de fenêtre et un segment :
// new et resurrected positifs, churned négatif, quick ratio sur un axe secondaire
// symétrique [-QuickRatioAxis, +QuickRatioAxis].
type Chart struct {
	WindowDays     int        `json:"window_days"`
	Segment        string     `json:"segment,omitempty"`
	Dates          []string   `json:"dates"`
	New            []int      `json:"new"`
	Resurrected    []int      `json:"resurrected"`
	Churned        []int      `json:"churned"`
	QuickRatio     []*float64 `json:"user_quick_ratio"`
	QuickRatioAxis float64    `json:"quick_ratio_axis"`
}

// QuickRatioAxis = 1.1 × max|quick_ratio| sur les ratios définis (0 s'il n'y en a aucun).
func QuickRatioAxis(windows []models.WindowMetrics) float64 {
	maxAbs := 0.0
	for _, w := range windows {
		if w.QuickRatio.Valid {
			maxAbs = math.Max(maxAbs, math.Abs(w.QuickRatio.Float64))
		}
	}
	return 1.1 * maxAbs
}

// BuildChart extrait les séries d'une taille de fenêtre et d'un segment.
func BuildChart(windows []models.WindowMetrics, windowDays int, segment string) Chart {
	c := Chart{WindowDays: windowDays, Segment: segment}
	var selected []models.WindowMetrics
	for _, w := range windows {
		if w.WindowDays != windowDays || w.Segment != segment {
			continue
		}
		selected = append(selected, w)
		c.Dates = append(c.Dates, w.WindowEnd.String())
		c.New = append(c.New, w.New)
		c.Resurrected = append(c.Resurrected, w.Resurrected)
		c.Churned = append(c.Churned, w.Churned)
		c.QuickRatio = append(c.QuickRatio, optionalRatio(w.QuickRatio))
	}
	c.QuickRatioAxis = QuickRatioAxis(selected)
	return c
}

type chartKey struct {
	windowDays int
	segment    string
}

// BuildCharts : un graphique par (taille de fenêtre, segment), triés dans cet ordre.
func BuildCharts(windows []models.WindowMetrics) []Chart {
	seen := make(map[chartKey]struct{})
	var keys []chartKey
	for _, w := range windows {
		k := chartKey{windowDays: w.WindowDays, segment: w.Segment}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].windowDays != keys[j].windowDays {
			return keys[i].windowDays < keys[j].windowDays
		}
		return keys[i].segment < keys[j].segment
	})

	charts := make([]Chart, 0, len(keys))
	for _, k := range keys {
		charts = append(charts, BuildChart(windows, k.windowDays, k.segment))
	}
	return charts
}

// WriteChartJSON écrit les séries de tous les graphiques ; ratio indéfini = null.
func WriteChartJSON(w io.Writer, windows []models.WindowMetrics) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildCharts(windows))
}

// WriteChartFile crée (ou remplace) path avec les séries JSON des graphiques.
func WriteChartFile(path string, windows []models.WindowMetrics) error {
	logger.GetLogger().WithComponent("export").WithFields(logger.Fields{
		"file_path": path,
		"format":    "chart-json",
	}).Info("writing chart series")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	if err := WriteChartJSON(f, windows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
