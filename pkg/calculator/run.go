package calculator

import (
	"context"
	"fmt"
	"time"

	"quick-ratio/pkg/logger"
	"quick-ratio/pkg/models"

	"github.com/google/uuid"
)

// Run enchaîne activité journalière → classification → fenêtres glissantes
// pour chaque taille de fenêtre configurée.
func Run(ctx context.Context, table models.Table, cfg models.Config) (*models.Report, error) {
	if len(cfg.WindowDays) == 0 {
		return nil, fmt.Errorf("window_days: at least one window size is required")
	}
	runID := uuid.NewString()
	log := logger.GetLogger().WithComponent("calculator").WithFields(logger.Fields{"run_id": runID})

	started := time.Now()
	daily, diag, err := BuildDailyActivity(table, cfg.Columns)
	if err != nil {
		return nil, fmt.Errorf("daily activity: %w", err)
	}
	first, last := DayRange(daily)
	if cfg.Verbose {
		log.WithFields(logger.Fields{
			"rows_read":         diag.RowsRead,
			"rows_kept":         diag.RowsKept,
			"missing_entity":    diag.MissingEntity,
			"invalid_timestamp": diag.InvalidTimestamp,
			"invalid_value":     diag.InvalidValue,
			"daily_rows":        len(daily),
			"first_day":         first.String(),
			"last_day":          last.String(),
			"elapsed":           time.Since(started).String(),
		}).Info("daily activity built")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started = time.Now()
	classified, err := Classify(ctx, daily, last, ClassifyOptions{
		UseSegment: cfg.UseSegment,
		PeriodDays: cfg.PeriodDays,
		Workers:    cfg.Workers,
		Progress:   cfg.Progress,
	})
	if err != nil {
		return nil, err
	}
	entities := countEntities(classified)
	if cfg.Verbose {
		log.WithFields(logger.Fields{
			"classified_rows": len(classified),
			"entities":        entities,
			"elapsed":         time.Since(started).String(),
		}).Info("activity classified")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	windows, err := RollingWindowsMulti(classified, first, last, cfg.WindowDays, cfg.UseSegment)
	if err != nil {
		return nil, fmt.Errorf("rolling windows: %w", err)
	}
	if cfg.Verbose {
		log.WithFields(logger.Fields{
			"window_sizes": cfg.WindowDays,
			"rows":         len(windows),
		}).Info("rolling windows computed")
	}

	return &models.Report{
		RunID:       runID,
		FirstDay:    first,
		LastDay:     last,
		Entities:    entities,
		Diagnostics: diag,
		Windows:     windows,
	}, nil
}

func countEntities(rows []models.ClassifiedActivity) int {
	seen := make(map[string]struct{})
	for _, r := range rows {
		seen[r.EntityID] = struct{}{}
	}
	return len(seen)
}
