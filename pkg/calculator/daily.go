package calculator

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"quick-ratio/pkg/models"

	"github.com/shopspring/decimal"
)

// Formats acceptés pour la colonne timestamp. Sans fuseau explicite, l'heure est lue en UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"20060102",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	// rendus par défaut des cellules date d'Excel
	"01-02-06",
	"1/2/06 15:04",
	"1/2/06",
}

// Secondes Unix acceptées : 9 ou 10 chiffres (1973-03-03 à 2286-11-20).
const (
	minUnixSeconds = 100_000_000
	maxUnixSeconds = 9_999_999_999
)

type columnIndex struct {
	entity, timestamp, value, segment int
}

// resolveColumns vérifie que chaque colonne sélectionnée existe (-1 = non sélectionnée).
func resolveColumns(table models.Table, cols models.Columns) (columnIndex, error) {
	pos := make(map[string]int, len(table.Columns))
	for i, c := range table.Columns {
		name := strings.TrimSpace(c)
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}
	lookup := func(role, name string, required bool) (int, error) {
		name = strings.TrimSpace(name)
		if name == "" {
			if required {
				return -1, &SchemaError{Role: role, Column: name, Available: table.Columns}
			}
			return -1, nil
		}
		i, ok := pos[name]
		if !ok {
			return -1, &SchemaError{Role: role, Column: name, Available: table.Columns}
		}
		return i, nil
	}

	var idx columnIndex
	var err error
	if idx.entity, err = lookup("entity", cols.Entity, true); err != nil {
		return idx, err
	}
	if idx.timestamp, err = lookup("timestamp", cols.Timestamp, true); err != nil {
		return idx, err
	}
	if idx.value, err = lookup("value", cols.Value, false); err != nil {
		return idx, err
	}
	if idx.segment, err = lookup("segment", cols.Segment, false); err != nil {
		return idx, err
	}
	return idx, nil
}

// ParseTimestamp lit un horodatage dans l'un des formats connus ou en secondes Unix.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		if secs < minUnixSeconds || secs > maxUnixSeconds {
			return time.Time{}, fmt.Errorf("integer timestamp %q outside unix seconds range", s)
		}
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ParseRecords nettoie la table : lignes sans entité, avec timestamp ou valeur illisible
// sont écartées et comptées.
func ParseRecords(table models.Table, cols models.Columns) ([]models.RawRecord, models.Diagnostics, error) {
	var diag models.Diagnostics
	idx, err := resolveColumns(table, cols)
	if err != nil {
		return nil, diag, err
	}

	one := decimal.NewFromInt(1)
	records := make([]models.RawRecord, 0, len(table.Rows))
	for _, row := range table.Rows {
		diag.RowsRead++

		entity := cell(row, idx.entity)
		if entity == "" {
			diag.MissingEntity++
			continue
		}
		ts, err := ParseTimestamp(cell(row, idx.timestamp))
		if err != nil {
			diag.InvalidTimestamp++
			continue
		}
		value := one
		if idx.value >= 0 {
			v, err := decimal.NewFromString(cell(row, idx.value))
			if err != nil {
				diag.InvalidValue++
				continue
			}
			value = v
		}

		records = append(records, models.RawRecord{
			EntityID:  entity,
			Timestamp: ts,
			Value:     value,
			Segment:   cell(row, idx.segment),
		})
		diag.RowsKept++
	}
	return records, diag, nil
}

type activityKey struct {
	entity  string
	day     models.Day
	segment string
}

// AggregateDaily regroupe les enregistrements par (entité, jour UTC, segment) et somme les valeurs.
// Le résultat est trié par (segment, entité, jour).
func AggregateDaily(records []models.RawRecord) []models.DailyActivity {
	sums := make(map[activityKey]decimal.Decimal, len(records))
	for _, r := range records {
		k := activityKey{entity: r.EntityID, day: models.DayOf(r.Timestamp), segment: r.Segment}
		sums[k] = sums[k].Add(r.Value)
	}

	out := make([]models.DailyActivity, 0, len(sums))
	for k, v := range sums {
		out = append(out, models.DailyActivity{EntityID: k.entity, Day: k.day, Segment: k.segment, Value: v})
	}
	sortDaily(out)
	return out
}

func sortDaily(rows []models.DailyActivity) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Segment != b.Segment {
			return a.Segment < b.Segment
		}
		if a.EntityID != b.EntityID {
			return a.EntityID < b.EntityID
		}
		return a.Day < b.Day
	})
}

// BuildDailyActivity : table brute → activité journalière.
// Échoue avec *SchemaError si une colonne manque, *EmptyInputError si rien ne reste après nettoyage.
func BuildDailyActivity(table models.Table, cols models.Columns) ([]models.DailyActivity, models.Diagnostics, error) {
	records, diag, err := ParseRecords(table, cols)
	if err != nil {
		return nil, diag, err
	}
	if len(records) == 0 {
		return nil, diag, &EmptyInputError{Diagnostics: diag}
	}
	return AggregateDaily(records), diag, nil
}

// DayRange renvoie le premier et le dernier jour observés.
func DayRange(rows []models.DailyActivity) (first, last models.Day) {
	for i, r := range rows {
		if i == 0 || r.Day < first {
			first = r.Day
		}
		if i == 0 || r.Day > last {
			last = r.Day
		}
	}
	return first, last
}
