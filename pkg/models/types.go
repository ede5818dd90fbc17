package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

/*
LOAD → types simples pour transporter les données brutes (CSV, Excel, SQL).
*/

// Table est un jeu de données tabulaire dont toutes les cellules sont du texte brut.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Columns désigne les colonnes choisies par l'utilisateur dans la Table.
type Columns struct {
	Entity    string // identifiant de l'entité (client, utilisateur...)
	Timestamp string // date ou date-heure de l'activité
	Value     string // valeur à mesurer ; vide = 1 par enregistrement
	Segment   string // optionnel
}

// RawRecord représente une ligne d'entrée nettoyée.
type RawRecord struct {
	EntityID  string
	Timestamp time.Time
	Value     decimal.Decimal
	Segment   string
}

// Diagnostics compte les lignes lues et rejetées pendant le nettoyage.
type Diagnostics struct {
	RowsRead         int `json:"rows_read"`
	RowsKept         int `json:"rows_kept"`
	MissingEntity    int `json:"missing_entity"`
	InvalidTimestamp int `json:"invalid_timestamp"`
	InvalidValue     int `json:"invalid_value"`
}

// Dropped renvoie le nombre total de lignes rejetées.
func (d Diagnostics) Dropped() int {
	return d.MissingEntity + d.InvalidTimestamp + d.InvalidValue
}

/*
COMPUTE → activité journalière, statuts et fenêtres glissantes
*/

// Day est un jour calendaire UTC, exprimé en jours depuis 1970-01-01.
type Day int

const dayLayout = "2006-01-02"

// DayOf tronque t au jour calendaire UTC.
func DayOf(t time.Time) Day {
	u := t.UTC()
	midnight := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return Day(midnight.Unix() / 86400)
}

// Time renvoie minuit UTC du jour.
func (d Day) Time() time.Time {
	return time.Unix(int64(d)*86400, 0).UTC()
}

func (d Day) String() string {
	return d.Time().Format(dayLayout)
}

// DailyActivity : une ligne par (entité, jour, segment), valeur sommée.
type DailyActivity struct {
	EntityID string
	Day      Day
	Segment  string
	Value    decimal.Decimal
}

// Status est le statut de croissance d'une entité pour un jour donné.
type Status int

const (
	StatusNew Status = iota
	StatusRetained
	StatusResurrected
	StatusChurned
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusRetained:
		return "retained"
	case StatusResurrected:
		return "resurrected"
	case StatusChurned:
		return "churned"
	}
	return "unknown"
}

// ClassifiedActivity est une ligne d'activité décorée de son statut.
// Les lignes Churned sont synthétiques et portent la valeur négative du dernier jour actif.
type ClassifiedActivity struct {
	EntityID string
	Day      Day
	Segment  string
	Status   Status
	Value    decimal.Decimal
}

// WindowMetrics contient les métriques d'une fenêtre glissante.
// Les compteurs Churned et ChurnedValue sont négatifs (ou nuls).
type WindowMetrics struct {
	WindowEnd  Day
	WindowDays int
	Segment    string

	New         int
	Resurrected int
	Retained    int
	Churned     int
	QuickRatio  sql.NullFloat64 // invalide quand Churned == 0

	NewValue         decimal.Decimal
	ResurrectedValue decimal.Decimal
	RetainedValue    decimal.Decimal
	ChurnedValue     decimal.Decimal
	ValueQuickRatio  sql.NullFloat64 // invalide quand ChurnedValue == 0
}

// Report est le résultat complet d'une exécution.
type Report struct {
	RunID       string
	FirstDay    Day
	LastDay     Day
	Entities    int
	Diagnostics Diagnostics
	Windows     []WindowMetrics
}

/*
CONFIG → paramètres du calcul
*/
// Config contient les paramètres passés à la fonction de calcul.
type Config struct {
	Columns    Columns
	WindowDays []int // tailles de fenêtre, ex: [7]
	PeriodDays int   // granularité de rétention en jours (1 par défaut)
	UseSegment bool  // classification indépendante par segment
	Workers    int   // classification parallèle par entité (0 = nombre de CPU)
	Progress   bool  // barre de progression
	Verbose    bool  // Flag pour activer les logs détaillés.
}
