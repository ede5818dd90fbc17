package calculator

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"quick-ratio/pkg/models"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ClassifyOptions paramètre le classifieur de statuts.
type ClassifyOptions struct {
	UseSegment bool
	PeriodDays int // écart maximal (en jours) entre deux jours actifs pour rester "retained"
	Workers    int
	Progress   bool
}

type timelineKey struct {
	entity  string
	segment string
}

// Classify décore chaque jour actif d'un statut et synthétise les lignes Churned.
//
// Pour chaque entité (ou couple entité/segment si UseSegment), les jours actifs sont
// parcourus dans l'ordre : premier jour → New ; écart <= PeriodDays → Retained ;
// écart plus grand → Churned à last+PeriodDays (valeur négative du dernier jour actif)
// puis Resurrected. Un Churned final est émis si last+PeriodDays <= lastDay.
func Classify(ctx context.Context, rows []models.DailyActivity, lastDay models.Day, opts ClassifyOptions) ([]models.ClassifiedActivity, error) {
	period := opts.PeriodDays
	if period <= 0 {
		period = 1
	}

	seen := make(map[activityKey]struct{}, len(rows))
	for _, r := range rows {
		k := activityKey{entity: r.EntityID, day: r.Day, segment: r.Segment}
		if _, dup := seen[k]; dup {
			return nil, &InvariantError{Detail: fmt.Sprintf("duplicate daily activity for entity=%q day=%s segment=%q",
				r.EntityID, r.Day, r.Segment)}
		}
		seen[k] = struct{}{}
	}

	if !opts.UseSegment {
		rows = mergeSegments(rows)
	}

	timelines := make(map[timelineKey][]models.DailyActivity)
	for _, r := range rows {
		k := timelineKey{entity: r.EntityID, segment: r.Segment}
		timelines[k] = append(timelines[k], r)
	}
	keys := make([]timelineKey, 0, len(timelines))
	for k := range timelines {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].segment != keys[j].segment {
			return keys[i].segment < keys[j].segment
		}
		return keys[i].entity < keys[j].entity
	})

	var bar *progressbar.ProgressBar
	if opts.Progress {
		bar = progressbar.Default(int64(len(keys)), "classify")
	} else {
		bar = progressbar.DefaultSilent(int64(len(keys)))
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([][]models.ClassifiedActivity, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, k := range keys {
		i := i
		days := timelines[k]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sort.Slice(days, func(a, b int) bool { return days[a].Day < days[b].Day })
			results[i] = classifyTimeline(days, lastDay, period)
			_ = bar.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	_ = bar.Finish()

	total := 0
	for _, r := range results {
		total += len(r)
	}
	out := make([]models.ClassifiedActivity, 0, total)
	for _, r := range results {
		out = append(out, r...)
	}
	sortClassified(out)
	return out, nil
}

// classifyTimeline traite la chronologie d'une seule entité (jours triés, sans doublon).
func classifyTimeline(days []models.DailyActivity, lastDay models.Day, period int) []models.ClassifiedActivity {
	out := make([]models.ClassifiedActivity, 0, 2*len(days))
	churn := func(prev models.DailyActivity) models.ClassifiedActivity {
		return models.ClassifiedActivity{
			EntityID: prev.EntityID,
			Day:      prev.Day + models.Day(period),
			Segment:  prev.Segment,
			Status:   models.StatusChurned,
			Value:    prev.Value.Neg(),
		}
	}

	var prev models.DailyActivity
	for i, d := range days {
		status := models.StatusNew
		if i > 0 {
			if int(d.Day-prev.Day) <= period {
				status = models.StatusRetained
			} else {
				out = append(out, churn(prev))
				status = models.StatusResurrected
			}
		}
		out = append(out, models.ClassifiedActivity{
			EntityID: d.EntityID,
			Day:      d.Day,
			Segment:  d.Segment,
			Status:   status,
			Value:    d.Value,
		})
		prev = d
	}
	if len(days) > 0 && prev.Day+models.Day(period) <= lastDay {
		out = append(out, churn(prev))
	}
	return out
}

// mergeSegments ignore le segment : une ligne par (entité, jour).
func mergeSegments(rows []models.DailyActivity) []models.DailyActivity {
	type key struct {
		entity string
		day    models.Day
	}
	sums := make(map[key]decimal.Decimal, len(rows))
	for _, r := range rows {
		k := key{entity: r.EntityID, day: r.Day}
		sums[k] = sums[k].Add(r.Value)
	}
	out := make([]models.DailyActivity, 0, len(sums))
	for k, v := range sums {
		out = append(out, models.DailyActivity{EntityID: k.entity, Day: k.day, Value: v})
	}
	sortDaily(out)
	return out
}

func sortClassified(rows []models.ClassifiedActivity) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Segment != b.Segment {
			return a.Segment < b.Segment
		}
		if a.EntityID != b.EntityID {
			return a.EntityID < b.EntityID
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		return a.Status < b.Status
	})
}
