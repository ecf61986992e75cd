package core

import (
	"errors"
	"fmt"
)

// Fatal pipeline errors. Everything else is absorbed into the report.
var (
	// ErrEmptyInput is returned when a batch has zero rows.
	ErrEmptyInput = errors.New("empty input: no rows supplied")

	// ErrUnsupportedKind is returned when no definition is registered for a kind.
	ErrUnsupportedKind = errors.New("unsupported record kind")
)

// RequiredFieldAbsentError reports a required canonical field that has no value in any row
// after column mapping.
type RequiredFieldAbsentError struct {
	Kind    RecordKind
	Field   string
	Aliases []string
}

func (e *RequiredFieldAbsentError) Error() string {
	return fmt.Sprintf("required field absent: %s field %q has no values (accepted columns: %v)",
		e.Kind, e.Field, e.Aliases)
}

// ParseReason is the reason code attached to a per-cell coercion failure.
type ParseReason string

const (
	ReasonNone                ParseReason = ""
	ReasonBlank               ParseReason = "blank"
	ReasonUnparsableTimestamp ParseReason = "unparsable_timestamp"
	ReasonNoDigits            ParseReason = "no_digits"
	ReasonUnparsableNumber    ParseReason = "unparsable_number"
	ReasonUnsupportedType     ParseReason = "unsupported_type"
)

// ParseFailure records a cell that coerced to null.
type ParseFailure struct {
	Row    int
	Field  string
	Value  any
	Reason ParseReason
}

func (p ParseFailure) Error() string {
	return fmt.Sprintf("row %d: %s: %s (%v)", p.Row, p.Field, p.Reason, p.Value)
}
