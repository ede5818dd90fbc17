package export

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"quick-ratio/pkg/calculator"
	"quick-ratio/pkg/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleWindows() []models.WindowMetrics {
	return []models.WindowMetrics{
		{
			WindowEnd: models.Day(19723), WindowDays: 1,
			New: 4, NewValue: decimal.RequireFromString("40.5"),
		},
		{
			WindowEnd: models.Day(19724), WindowDays: 1,
			Retained: 1, Churned: -3,
			QuickRatio:    sql.NullFloat64{Float64: 0, Valid: true},
			RetainedValue: decimal.NewFromInt(2), ChurnedValue: decimal.NewFromInt(-6),
			ValueQuickRatio: sql.NullFloat64{Float64: 0, Valid: true},
		},
		{
			WindowEnd: models.Day(19724), WindowDays: 2,
			New: 4, Retained: 1, Churned: -3,
			QuickRatio: sql.NullFloat64{Float64: 4.0 / 3.0, Valid: true},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleWindows()[:2], Options{}))

	want := strings.Join([]string{
		"window_end_date,window_days,segment,new,resurrected,retained,churned,user_quick_ratio,new_value,resurrected_value,retained_value,churned_value,value_quick_ratio",
		"2024-01-01,1,,4,0,0,0,,40.5,0,0,0,",
		"2024-01-02,1,,0,0,1,-3,0,0,0,2,-6,0",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_BOM(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil, Options{BOMPrefix: true}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte{0xEF, 0xBB, 0xBF}))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleWindows()))

	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 3)
	assert.Nil(t, rows[0]["user_quick_ratio"], "undefined ratio is null")
	assert.Equal(t, "40.5", rows[0]["new_value"])
	assert.Equal(t, 0.0, rows[1]["user_quick_ratio"])
	assert.Equal(t, "2024-01-02", rows[2]["window_end_date"])
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.xlsx")
	require.NoError(t, WriteFile(path, FormatXLSX, sampleWindows(), Options{}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"window_1d", "window_2d"}, f.GetSheetList())
	rows, err := f.GetRows("window_1d")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, "2024-01-01", rows[1][0])
	assert.Equal(t, "4", rows[1][3])

	rows, err = f.GetRows("window_2d")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestWriteParquet(t *testing.T) {
	for _, compression := range []string{"snappy", "gzip", "none"} {
		var buf bytes.Buffer
		require.NoError(t, WriteParquet(&buf, sampleWindows(), Options{Compression: compression}), compression)
		data := buf.Bytes()
		require.Greater(t, len(data), 8)
		assert.Equal(t, "PAR1", string(data[:4]), compression)
		assert.Equal(t, "PAR1", string(data[len(data)-4:]), compression)
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)

	assert.Equal(t, FormatParquet, FormatFromPath("out/metrics.parquet"))
	assert.Equal(t, FormatCSV, FormatFromPath("metrics.txt"))
	assert.Error(t, Write(&bytes.Buffer{}, Format("pdf"), nil, Options{}))
}

func TestChart(t *testing.T) {
	windows := sampleWindows()
	windows[0].QuickRatio = sql.NullFloat64{Float64: -2, Valid: true}

	assert.InDelta(t, 2.2, QuickRatioAxis(windows), 1e-12)
	assert.Equal(t, 0.0, QuickRatioAxis(nil))

	c := BuildChart(windows, 1, "")
	assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, c.Dates)
	assert.Equal(t, []int{4, 0}, c.New)
	assert.Equal(t, []int{0, -3}, c.Churned)
	require.Len(t, c.QuickRatio, 2)
	assert.Equal(t, -2.0, *c.QuickRatio[0])
	assert.InDelta(t, 2.2, c.QuickRatioAxis, 1e-12)
}

func TestWriteChartFile(t *testing.T) {
	windows := append(sampleWindows(), models.WindowMetrics{
		WindowEnd: models.Day(19724), WindowDays: 1, Segment: "pro", New: 1,
	})
	path := filepath.Join(t.TempDir(), "charts", "series.json")
	require.NoError(t, WriteChartFile(path, windows))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var charts []Chart
	require.NoError(t, json.Unmarshal(data, &charts))
	require.Len(t, charts, 3)

	assert.Equal(t, 1, charts[0].WindowDays)
	assert.Equal(t, "", charts[0].Segment)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, charts[0].Dates)
	assert.Nil(t, charts[0].QuickRatio[0])
	require.NotNil(t, charts[0].QuickRatio[1])
	assert.Equal(t, 0.0, *charts[0].QuickRatio[1])

	assert.Equal(t, "pro", charts[1].Segment)
	assert.Equal(t, []int{1}, charts[1].New)

	assert.Equal(t, 2, charts[2].WindowDays)
	assert.InDelta(t, 1.1*4.0/3.0, charts[2].QuickRatioAxis, 1e-12)
}

// Deux exécutions sur la même entrée donnent un CSV identique octet pour octet.
func TestPipelineOutputIsByteIdentical(t *testing.T) {
	table := models.Table{
		Columns: []string{"user", "ts", "amount", "plan"},
		Rows: [][]string{
			{"u1", "2024-01-01", "10.10", "pro"},
			{"u2", "2024-01-01", "0.20", "free"},
			{"u1", "2024-01-03", "3.30", "pro"},
			{"u3", "2024-01-04", "7", "free"},
			{"u2", "2024-01-05", "1.05", "free"},
			{"u1", "2024-01-06", "2", "pro"},
		},
	}
	cfg := models.Config{
		Columns:    models.Columns{Entity: "user", Timestamp: "ts", Value: "amount", Segment: "plan"},
		WindowDays: []int{2, 3},
		UseSegment: true,
		Workers:    4,
	}

	render := func() []byte {
		report, err := calculator.Run(context.Background(), table, cfg)
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, WriteCSV(&buf, report.Windows, Options{}))
		return buf.Bytes()
	}
	first := render()
	assert.Equal(t, first, render())
	assert.Contains(t, string(first), "2024-01-06,3,pro,")
}

func TestWriteFile_CreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.csv")
	require.NoError(t, WriteFile(path, FormatCSV, sampleWindows(), Options{}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "window_end_date,"))
}
