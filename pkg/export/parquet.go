package export

import (
	"database/sql"
	"fmt"
	"io"
	"strings"

	"quick-ratio/pkg/models"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// ParquetRecord : schéma parquet d'une ligne de métriques.
// window_end_date est un DATE (jours depuis l'epoch), comme models.Day.
type ParquetRecord struct {
	WindowEndDate    int32    `parquet:"name=window_end_date, type=INT32, convertedtype=DATE"`
	WindowDays       int32    `parquet:"name=window_days, type=INT32"`
	Segment          string   `parquet:"name=segment, type=BYTE_ARRAY, convertedtype=UTF8"`
	New              int64    `parquet:"name=new, type=INT64"`
	Resurrected      int64    `parquet:"name=resurrected, type=INT64"`
	Retained         int64    `parquet:"name=retained, type=INT64"`
	Churned          int64    `parquet:"name=churned, type=INT64"`
	UserQuickRatio   *float64 `parquet:"name=user_quick_ratio, type=DOUBLE, repetitiontype=OPTIONAL"`
	NewValue         float64  `parquet:"name=new_value, type=DOUBLE"`
	ResurrectedValue float64  `parquet:"name=resurrected_value, type=DOUBLE"`
	RetainedValue    float64  `parquet:"name=retained_value, type=DOUBLE"`
	ChurnedValue     float64  `parquet:"name=churned_value, type=DOUBLE"`
	ValueQuickRatio  *float64 `parquet:"name=value_quick_ratio, type=DOUBLE, repetitiontype=OPTIONAL"`
}

func optionalRatio(r sql.NullFloat64) *float64 {
	if !r.Valid {
		return nil
	}
	v := r.Float64
	return &v
}

func toParquetRecord(w models.WindowMetrics) ParquetRecord {
	return ParquetRecord{
		WindowEndDate:    int32(w.WindowEnd),
		WindowDays:       int32(w.WindowDays),
		Segment:          w.Segment,
		New:              int64(w.New),
		Resurrected:      int64(w.Resurrected),
		Retained:         int64(w.Retained),
		Churned:          int64(w.Churned),
		UserQuickRatio:   optionalRatio(w.QuickRatio),
		NewValue:         w.NewValue.InexactFloat64(),
		ResurrectedValue: w.ResurrectedValue.InexactFloat64(),
		RetainedValue:    w.RetainedValue.InexactFloat64(),
		ChurnedValue:     w.ChurnedValue.InexactFloat64(),
		ValueQuickRatio:  optionalRatio(w.ValueQuickRatio),
	}
}

// WriteParquet écrit les métriques en parquet (snappy par défaut).
func WriteParquet(w io.Writer, windows []models.WindowMetrics, opts Options) error {
	pw, err := writer.NewParquetWriterFromWriter(w, new(ParquetRecord), 1)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}

	switch strings.ToLower(opts.Compression) {
	case "gzip":
		pw.CompressionType = parquet.CompressionCodec_GZIP
	case "none", "uncompressed":
		pw.CompressionType = parquet.CompressionCodec_UNCOMPRESSED
	default:
		pw.CompressionType = parquet.CompressionCodec_SNAPPY
	}

	for _, win := range windows {
		if err := pw.Write(toParquetRecord(win)); err != nil {
			pw.WriteStop()
			return fmt.Errorf("failed to write parquet record: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("failed to finalize parquet writing: %w", err)
	}
	return nil
}
