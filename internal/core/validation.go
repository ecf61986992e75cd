package core

// validation.go decides row acceptance for normalized rows.
//
// Rules are evaluated in a fixed order and every violation is collected:
//  1. Identifier format: the kind's id field must match its pattern
//  2. Timestamp validity: the kind's time field must be non-null
//  3. Numeric range: each ranged field must be a number within [Min, Max]
//  4. Categorical membership: each enumerated field must hold one of its values
//
// After filtering, the minimum-sample override may replace the accepted set with the full
// batch, and the kind's correction hook repairs accepted rows instead of rejecting them.

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string // Canonical field name
	Value   any    // The invalid value
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// RowValidator validates normalized rows against a kind definition.
type RowValidator struct {
	def KindDefinition
}

// NewRowValidator creates a validator for the given kind definition.
func NewRowValidator(def KindDefinition) *RowValidator {
	return &RowValidator{def: def}
}

// ValidateRow evaluates every rule and returns the acceptance decision.
func (v *RowValidator) ValidateRow(row Row) Decision {
	d := Decision{Accepted: true}
	reject := func(rule Rule, err ValidationError) {
		d.Accepted = false
		d.Violations = append(d.Violations, Violation{Rule: rule, Field: err.Field, Message: err.Error()})
	}

	if v.def.IDField != "" {
		id, _ := row[v.def.IDField].(string)
		if !v.def.IDPattern.MatchString(id) {
			reject(RuleIdentifierFormat, ValidationError{
				Field:   v.def.IDField,
				Value:   row[v.def.IDField],
				Message: fmt.Sprintf("identifier %q does not match %s", id, v.def.IDPattern),
			})
		}
	}

	if v.def.TimeField != "" {
		if t, ok := row[v.def.TimeField].(time.Time); !ok || t.IsZero() {
			reject(RuleTimestamp, ValidationError{
				Field:   v.def.TimeField,
				Value:   row[v.def.TimeField],
				Message: "missing or unparsable timestamp",
			})
		}
	}

	for _, spec := range v.def.Fields {
		if spec.Range == nil {
			continue
		}
		if err := validateRange(row[spec.Name], spec); err != nil {
			reject(RuleRange, *err)
		}
	}

	for _, spec := range v.def.Fields {
		if len(spec.EnumValues) == 0 {
			continue
		}
		if err := validateCategory(row[spec.Name], spec); err != nil {
			reject(RuleCategory, *err)
		}
	}

	return d
}

// validateRange checks a number against the field's range. Returns nil if valid.
func validateRange(value any, spec FieldSpec) *ValidationError {
	if spec.Range == nil {
		return nil
	}
	f, ok := value.(float64)
	if !ok {
		return &ValidationError{Field: spec.Name, Value: value, Message: "missing or non-numeric value"}
	}
	if !spec.Range.Contains(f) {
		return &ValidationError{
			Field:   spec.Name,
			Value:   value,
			Message: fmt.Sprintf("value %g outside range %g - %g", f, spec.Range.Min, spec.Range.Max),
		}
	}
	return nil
}

// validateCategory checks text against the field's value set. Returns nil if valid.
func validateCategory(value any, spec FieldSpec) *ValidationError {
	if len(spec.EnumValues) == 0 {
		return nil
	}
	s, _ := value.(string)
	for _, ev := range spec.EnumValues {
		if strings.EqualFold(ev, s) && s != "" {
			return nil
		}
	}
	return &ValidationError{
		Field:   spec.Name,
		Value:   value,
		Message: fmt.Sprintf("value %q must be one of: %s", s, strings.Join(spec.EnumValues, ", ")),
	}
}

// FilterOutcome is the result of the Validator/Filter stage.
type FilterOutcome struct {
	Accepted        []Row
	Decisions       []Decision
	Passed          int            // rows that satisfied every rule
	OverrideApplied bool           // minimum-sample override replaced the accepted set
	Violations      map[string]int // rule:field -> count
	Corrections     int            // rows repaired by the kind's correction hook
}

// Filter evaluates all rows, applies the minimum-sample override and the kind's
// correction hook. Input rows are not modified.
func Filter(def KindDefinition, rows []Row, policy Policy, src Source) FilterOutcome {
	v := NewRowValidator(def)
	out := FilterOutcome{
		Decisions:  make([]Decision, len(rows)),
		Violations: make(map[string]int),
	}

	for i, row := range rows {
		d := v.ValidateRow(row)
		out.Decisions[i] = d
		if d.Accepted {
			out.Passed++
			out.Accepted = append(out.Accepted, row.Clone())
			continue
		}
		for _, viol := range d.Violations {
			out.Violations[viol.Key()]++
		}
	}

	if policy.overrideFires(out.Passed, len(rows)) {
		out.OverrideApplied = true
		out.Accepted = make([]Row, len(rows))
		for i, row := range rows {
			out.Accepted[i] = row.Clone()
		}
	}

	out.Corrections = applyCorrections(def, out.Accepted, src)
	return out
}

// applyCorrections runs the kind's correction hook over rows and returns how many changed.
func applyCorrections(def KindDefinition, rows []Row, src Source) int {
	if def.Correct == nil {
		return 0
	}
	n := 0
	for _, row := range rows {
		if def.Correct(row, src) {
			n++
		}
	}
	return n
}
