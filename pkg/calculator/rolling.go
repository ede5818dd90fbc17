package calculator

import (
	"database/sql"
	"fmt"
	"math"
	"sort"

	"quick-ratio/pkg/models"

	"github.com/shopspring/decimal"
)

// QuickRatio = (new + resurrected) / |churned| ; invalide quand churned == 0.
func QuickRatio(newN, resurrected, churned float64) sql.NullFloat64 {
	if churned == 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: (newN + resurrected) / math.Abs(churned), Valid: true}
}

func valueQuickRatio(newV, resurrected, churned decimal.Decimal) sql.NullFloat64 {
	if churned.IsZero() {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: newV.Add(resurrected).Div(churned.Abs()).InexactFloat64(), Valid: true}
}

// bucket cumule, par statut, le nombre de lignes (Churned compte -1) et la valeur.
type bucket struct {
	count [4]int
	value [4]decimal.Decimal
}

func (b *bucket) add(o *bucket, sign int) {
	for s := range b.count {
		b.count[s] += sign * o.count[s]
		if sign > 0 {
			b.value[s] = b.value[s].Add(o.value[s])
		} else {
			b.value[s] = b.value[s].Sub(o.value[s])
		}
	}
}

// RollingWindows fait glisser une fenêtre de windowDays jours sur [first, last].
//
// La fenêtre qui se termine le jour e couvre (e - windowDays, e]. La première fin
// possible est first + windowDays - 1, la dernière est last : une fenêtre égale à
// l'étendue observée (last - first + 1) donne exactement une ligne.
func RollingWindows(rows []models.ClassifiedActivity, first, last models.Day, windowDays int, useSegment bool) ([]models.WindowMetrics, error) {
	span := int(last-first) + 1
	if windowDays <= 0 || windowDays > span {
		return nil, &InsufficientRangeError{WindowDays: windowDays, SpanDays: span}
	}

	perSegment := map[string][]bucket{}
	if !useSegment {
		perSegment[""] = make([]bucket, span)
	}
	for _, r := range rows {
		if r.Day < first || r.Day > last {
			return nil, &InvariantError{Detail: fmt.Sprintf("classified row for %q on %s outside observed range [%s, %s]",
				r.EntityID, r.Day, first, last)}
		}
		seg := ""
		if useSegment {
			seg = r.Segment
		}
		days, ok := perSegment[seg]
		if !ok {
			days = make([]bucket, span)
			perSegment[seg] = days
		}
		b := &days[r.Day-first]
		if r.Status == models.StatusChurned {
			b.count[r.Status]--
		} else {
			b.count[r.Status]++
		}
		b.value[r.Status] = b.value[r.Status].Add(r.Value)
	}

	segments := make([]string, 0, len(perSegment))
	for s := range perSegment {
		segments = append(segments, s)
	}
	sort.Strings(segments)

	out := make([]models.WindowMetrics, 0, len(segments)*(span-windowDays+1))
	for _, seg := range segments {
		days := perSegment[seg]
		var running bucket
		for i := 0; i < span; i++ {
			running.add(&days[i], 1)
			if i >= windowDays {
				running.add(&days[i-windowDays], -1)
			}
			if i < windowDays-1 {
				continue
			}
			out = append(out, windowRow(&running, first+models.Day(i), windowDays, seg))
		}
	}
	return out, nil
}

func windowRow(b *bucket, end models.Day, windowDays int, segment string) models.WindowMetrics {
	m := models.WindowMetrics{
		WindowEnd:  end,
		WindowDays: windowDays,
		Segment:    segment,

		New:         b.count[models.StatusNew],
		Resurrected: b.count[models.StatusResurrected],
		Retained:    b.count[models.StatusRetained],
		Churned:     b.count[models.StatusChurned],

		NewValue:         b.value[models.StatusNew],
		ResurrectedValue: b.value[models.StatusResurrected],
		RetainedValue:    b.value[models.StatusRetained],
		ChurnedValue:     b.value[models.StatusChurned],
	}
	m.QuickRatio = QuickRatio(float64(m.New), float64(m.Resurrected), float64(m.Churned))
	m.ValueQuickRatio = valueQuickRatio(m.NewValue, m.ResurrectedValue, m.ChurnedValue)
	return m
}

// RollingWindowsMulti calcule une séquence indépendante par taille de fenêtre,
// triée par (taille, segment, fin de fenêtre).
func RollingWindowsMulti(rows []models.ClassifiedActivity, first, last models.Day, sizes []int, useSegment bool) ([]models.WindowMetrics, error) {
	uniq := append([]int(nil), sizes...)
	sort.Ints(uniq)
	var out []models.WindowMetrics
	for i, w := range uniq {
		if i > 0 && w == uniq[i-1] {
			continue
		}
		windows, err := RollingWindows(rows, first, last, w, useSegment)
		if err != nil {
			return nil, err
		}
		out = append(out, windows...)
	}
	return out, nil
}
