package calculator

import (
	"context"
	"errors"
	"testing"

	"quick-ratio/pkg/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A, B, C actifs seulement le jour 1 ; D actif les jours 1 et 2.
func scenarioRows(t *testing.T) []models.ClassifiedActivity {
	t.Helper()
	daily := []models.DailyActivity{
		activity("A", "2024-01-01", 1),
		activity("B", "2024-01-01", 1),
		activity("C", "2024-01-01", 1),
		activity("D", "2024-01-01", 1),
		activity("D", "2024-01-02", 1),
	}
	rows, err := Classify(context.Background(), daily, day("2024-01-02"), ClassifyOptions{})
	require.NoError(t, err)
	return rows
}

func TestQuickRatio(t *testing.T) {
	qr := QuickRatio(10, 5, -5)
	require.True(t, qr.Valid)
	assert.Equal(t, 3.0, qr.Float64)

	assert.Equal(t, 3.0, QuickRatio(10, 5, 5).Float64, "churned sign does not matter")
	assert.False(t, QuickRatio(10, 5, 0).Valid, "no churn: undefined ratio")
}

func TestRollingWindows_Scenario(t *testing.T) {
	windows, err := RollingWindows(scenarioRows(t), day("2024-01-01"), day("2024-01-02"), 1, false)
	require.NoError(t, err)
	require.Len(t, windows, 2)

	d1 := windows[0]
	assert.Equal(t, day("2024-01-01"), d1.WindowEnd)
	assert.Equal(t, 4, d1.New)
	assert.Equal(t, 0, d1.Churned)
	assert.Equal(t, 0, d1.Retained)
	assert.False(t, d1.QuickRatio.Valid)

	d2 := windows[1]
	assert.Equal(t, day("2024-01-02"), d2.WindowEnd)
	assert.Equal(t, 0, d2.New)
	assert.Equal(t, 1, d2.Retained)
	assert.Equal(t, -3, d2.Churned)
	assert.Equal(t, "-3", d2.ChurnedValue.String())
	require.True(t, d2.QuickRatio.Valid)
	assert.Equal(t, 0.0, d2.QuickRatio.Float64)
}

func TestRollingWindows_FullSpanBoundary(t *testing.T) {
	rows := scenarioRows(t)

	windows, err := RollingWindows(rows, day("2024-01-01"), day("2024-01-02"), 2, false)
	require.NoError(t, err)
	require.Len(t, windows, 1, "window equal to the observed span yields one row")
	w := windows[0]
	assert.Equal(t, 4, w.New, "every distinct entity is new exactly once")
	assert.Equal(t, 1, w.New+w.Resurrected+w.Churned, "only D is still active on the last day")
	assert.Equal(t, 5, w.New+w.Retained+w.Resurrected, "active entity-days")
	assert.InDelta(t, 4.0/3.0, w.QuickRatio.Float64, 1e-12)

	_, err = RollingWindows(rows, day("2024-01-01"), day("2024-01-02"), 3, false)
	require.Error(t, err)
	var rangeErr *InsufficientRangeError
	require.True(t, errors.As(err, &rangeErr))
	assert.Equal(t, 3, rangeErr.WindowDays)
	assert.Equal(t, 2, rangeErr.SpanDays)
	assert.True(t, errors.Is(err, ErrInsufficientRange))

	_, err = RollingWindows(rows, day("2024-01-01"), day("2024-01-02"), 0, false)
	assert.True(t, errors.Is(err, ErrInsufficientRange))
}

func TestRollingWindows_SlidingSums(t *testing.T) {
	daily := []models.DailyActivity{
		activity("a", "2024-01-01", 100),
		activity("a", "2024-01-02", 50),
		activity("b", "2024-01-03", 30),
		activity("a", "2024-01-05", 20),
	}
	rows, err := Classify(context.Background(), daily, day("2024-01-06"), ClassifyOptions{})
	require.NoError(t, err)

	windows, err := RollingWindows(rows, day("2024-01-01"), day("2024-01-06"), 3, false)
	require.NoError(t, err)
	require.Len(t, windows, 4)

	// fenêtre (01-01, 01-04] = 01-02..01-04 : retained a, churn a (-50), new b, churn b (-30)
	w := windows[1]
	assert.Equal(t, day("2024-01-04"), w.WindowEnd)
	assert.Equal(t, 1, w.New)
	assert.Equal(t, 1, w.Retained)
	assert.Equal(t, -2, w.Churned)
	assert.Equal(t, "30", w.NewValue.String())
	assert.Equal(t, "50", w.RetainedValue.String())
	assert.Equal(t, "-80", w.ChurnedValue.String())
	assert.InDelta(t, 0.375, w.ValueQuickRatio.Float64, 1e-12)

	// fenêtre 01-04..01-06 : churn b (-30), resurrected a (20), churn a (-20)
	last := windows[3]
	assert.Equal(t, day("2024-01-06"), last.WindowEnd)
	assert.Equal(t, 1, last.Resurrected)
	assert.Equal(t, -2, last.Churned)
	assert.Equal(t, 0, last.New)
	assert.Equal(t, "-50", last.ChurnedValue.String())
	assert.Equal(t, 0.5, last.QuickRatio.Float64)
	assert.InDelta(t, 0.4, last.ValueQuickRatio.Float64, 1e-12)
}

func TestRollingWindows_PerSegment(t *testing.T) {
	daily := []models.DailyActivity{
		{EntityID: "a", Day: day("2024-01-01"), Segment: "fr", Value: decimal.NewFromInt(1)},
		{EntityID: "b", Day: day("2024-01-02"), Segment: "us", Value: decimal.NewFromInt(1)},
	}
	rows, err := Classify(context.Background(), daily, day("2024-01-02"), ClassifyOptions{UseSegment: true})
	require.NoError(t, err)

	windows, err := RollingWindows(rows, day("2024-01-01"), day("2024-01-02"), 1, true)
	require.NoError(t, err)
	require.Len(t, windows, 4, "each segment spans the global range")
	assert.Equal(t, "fr", windows[0].Segment)
	assert.Equal(t, 1, windows[0].New)
	assert.Equal(t, -1, windows[1].Churned)
	assert.Equal(t, "us", windows[2].Segment)
	assert.Equal(t, 0, windows[2].New)
	assert.Equal(t, 1, windows[3].New)
}

func TestRollingWindowsMulti(t *testing.T) {
	rows := scenarioRows(t)
	windows, err := RollingWindowsMulti(rows, day("2024-01-01"), day("2024-01-02"), []int{2, 1, 2}, false)
	require.NoError(t, err)
	require.Len(t, windows, 3)
	assert.Equal(t, 1, windows[0].WindowDays)
	assert.Equal(t, 1, windows[1].WindowDays)
	assert.Equal(t, 2, windows[2].WindowDays)

	_, err = RollingWindowsMulti(rows, day("2024-01-01"), day("2024-01-02"), []int{1, 7}, false)
	assert.True(t, errors.Is(err, ErrInsufficientRange))
}

func TestRollingWindows_RejectsRowsOutsideRange(t *testing.T) {
	rows := []models.ClassifiedActivity{{EntityID: "a", Day: day("2024-02-01"), Status: models.StatusNew}}
	_, err := RollingWindows(rows, day("2024-01-01"), day("2024-01-10"), 1, false)
	assert.True(t, errors.Is(err, ErrInvariant))
}
