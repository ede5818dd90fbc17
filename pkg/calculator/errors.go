package calculator

import (
	"errors"
	"fmt"
	"strings"

	"quick-ratio/pkg/models"
)

// Sentinelles pour errors.Is ; les erreurs typées ci-dessous s'y déballent.
var (
	ErrSchema            = errors.New("schema error")
	ErrEmptyInput        = errors.New("empty input")
	ErrInvariant         = errors.New("invariant violation")
	ErrInsufficientRange = errors.New("insufficient range")
)

// SchemaError : une colonne sélectionnée n'existe pas dans la table.
type SchemaError struct {
	Role      string // entity, timestamp, value, segment
	Column    string
	Available []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: %s column %q not found (available: %s)",
		e.Role, e.Column, strings.Join(e.Available, ", "))
}

func (e *SchemaError) Code() string  { return "SCHEMA_ERROR" }
func (e *SchemaError) Unwrap() error { return ErrSchema }

// EmptyInputError : aucune ligne valide après nettoyage.
type EmptyInputError struct {
	Diagnostics models.Diagnostics
}

func (e *EmptyInputError) Error() string {
	d := e.Diagnostics
	return fmt.Sprintf("empty input: 0 valid rows out of %d (missing entity=%d, invalid timestamp=%d, invalid value=%d)",
		d.RowsRead, d.MissingEntity, d.InvalidTimestamp, d.InvalidValue)
}

func (e *EmptyInputError) Code() string  { return "EMPTY_INPUT" }
func (e *EmptyInputError) Unwrap() error { return ErrEmptyInput }

// InvariantError : précondition interne violée (toujours fatale).
type InvariantError struct {
	Detail string
}

func (e *InvariantError) Error() string {
	return "invariant: " + e.Detail
}

func (e *InvariantError) Code() string  { return "INVARIANT_VIOLATION" }
func (e *InvariantError) Unwrap() error { return ErrInvariant }

// InsufficientRangeError : la fenêtre demandée dépasse l'historique observé.
type InsufficientRangeError struct {
	WindowDays int
	SpanDays   int
}

func (e *InsufficientRangeError) Error() string {
	if e.WindowDays <= 0 {
		return fmt.Sprintf("insufficient range: window_days must be > 0, got %d", e.WindowDays)
	}
	return fmt.Sprintf("insufficient range: window of %d days exceeds observed span of %d days",
		e.WindowDays, e.SpanDays)
}

func (e *InsufficientRangeError) Code() string  { return "INSUFFICIENT_RANGE" }
func (e *InsufficientRangeError) Unwrap() error { return ErrInsufficientRange }

// ErrorCode renvoie le code stable d'une erreur du moteur, ou "" si err n'en vient pas.
func ErrorCode(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return ""
}
