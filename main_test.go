package main

import (
	"errors"
	"fmt"
	"testing"

	"quick-ratio/pkg/calculator"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("daily activity: %w", &calculator.SchemaError{Role: "entity", Column: "user"}), exitSchema},
		{fmt.Errorf("daily activity: %w", &calculator.EmptyInputError{}), exitEmpty},
		{fmt.Errorf("rolling windows: %w", &calculator.InsufficientRangeError{WindowDays: 30, SpanDays: 3}), exitRange},
		{&calculator.InvariantError{Detail: "duplicate key"}, exitInvariant},
		{errors.New("disk full"), exitOther},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, exitCode(c.err), c.err.Error())
	}
}
