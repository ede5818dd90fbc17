package export

import (
	"encoding/json"
	"io"

	"quick-ratio/pkg/models"
)

type jsonRow struct {
	WindowEndDate    string   `json:"window_end_date"`
	WindowDays       int      `json:"window_days"`
	Segment          string   `json:"segment,omitempty"`
	New              int      `json:"new"`
	Resurrected      int      `json:"resurrected"`
	Retained         int      `json:"retained"`
	Churned          int      `json:"churned"`
	UserQuickRatio   *float64 `json:"user_quick_ratio"`
	NewValue         string   `json:"new_value"`
	ResurrectedValue string   `json:"resurrected_value"`
	RetainedValue    string   `json:"retained_value"`
	ChurnedValue     string   `json:"churned_value"`
	ValueQuickRatio  *float64 `json:"value_quick_ratio"`
}

// WriteJSON écrit un tableau JSON ; les ratios indéfinis valent null.
// Les valeurs sommées restent des chaînes décimales exactes.
func WriteJSON(w io.Writer, windows []models.WindowMetrics) error {
	rows := make([]jsonRow, 0, len(windows))
	for _, win := range windows {
		rows = append(rows, jsonRow{
			WindowEndDate:    win.WindowEnd.String(),
			WindowDays:       win.WindowDays,
			Segment:          win.Segment,
			New:              win.New,
			Resurrected:      win.Resurrected,
			Retained:         win.Retained,
			Churned:          win.Churned,
			UserQuickRatio:   optionalRatio(win.QuickRatio),
			NewValue:         win.NewValue.String(),
			ResurrectedValue: win.ResurrectedValue.String(),
			RetainedValue:    win.RetainedValue.String(),
			ChurnedValue:     win.ChurnedValue.String(),
			ValueQuickRatio:  optionalRatio(win.ValueQuickRatio),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
