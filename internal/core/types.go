// Package core provides the import normalisation and validation pipeline.
// This package has no UI or storage dependencies and can be used by any frontend.
package core

import (
	"regexp"
	"time"
)

// RecordKind identifies one of the upload categories.
type RecordKind string

const (
	KindEquipment   RecordKind = "equipment"
	KindOperation   RecordKind = "operation"
	KindMaterial    RecordKind = "material"
	KindEnvironment RecordKind = "environment"
)

// FieldType represents the semantic type of a canonical field.
type FieldType int

const (
	FieldIdentifier FieldType = iota
	FieldTimestamp
	FieldNumeric
	FieldDuration // numeric, converted to hours
	FieldCategorical
)

// IDKind selects the identifier extraction rule for a FieldIdentifier.
type IDKind string

const (
	IDEquipment IDKind = "equipment"
	IDWorker    IDKind = "worker"
	IDMaterial  IDKind = "material"
	IDSensor    IDKind = "sensor"
)

// Range is an inclusive numeric validity range.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within [Min, Max].
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// FieldSpec defines one canonical field of a record kind.
type FieldSpec struct {
	Name       string              // Canonical field name
	Aliases    []string            // Accepted upload labels, matched exactly and in order
	Type       FieldType           // Semantic type
	IDKind     IDKind              // Identifier rule (FieldIdentifier only)
	Required   bool                // Upload must supply at least one value
	Default    any                 // Backfill value; nil means mean/mode
	Range      *Range              // Valid numeric range, nil if unchecked
	EnumValues []string            // Valid values for FieldCategorical
	Normalizer func(string) string // Optional transformation for categorical text
}

// IsNumeric reports whether the field holds float64 values.
func (f FieldSpec) IsNumeric() bool {
	return f.Type == FieldNumeric || f.Type == FieldDuration
}

// Source is the random source used for corrections and synthetic rows.
// *math/rand/v2.Rand satisfies it.
type Source interface {
	Float64() float64
	IntN(n int) int
}

// CorrectFunc repairs an accepted row in place and reports whether it changed anything.
type CorrectFunc func(row Row, src Source) bool

// MockFunc builds one synthetic, schema-valid row.
type MockFunc func(src Source, now time.Time) Row

// KindDefinition contains everything needed to process one record kind.
type KindDefinition struct {
	Kind   RecordKind
	Label  string
	Fields []FieldSpec

	// IDField is checked against IDPattern; TimeField must be non-null.
	IDField   string
	IDPattern *regexp.Regexp
	IDExample string
	TimeField string

	// Correct is applied to accepted rows after filtering. Optional.
	Correct CorrectFunc
	// CorrectionDoc describes Correct for the field-format documentation.
	CorrectionDoc string

	// Mock generates rows for the augmenter. Optional; without it no rows are appended.
	Mock MockFunc
}

// Field returns the spec with the given canonical name.
func (d KindDefinition) Field(name string) (FieldSpec, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// FieldNames returns the canonical field names in declaration order.
func (d KindDefinition) FieldNames() []string {
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
	}
	return names
}

// RawRow is one uploaded row: arbitrary label to untyped cell (string, number or nil).
type RawRow map[string]any

// Row maps canonical field names to typed values: string, float64, time.Time or nil.
// Every canonical field of the kind is present as a key.
type Row map[string]any

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Decision is the acceptance decision for one normalized row.
type Decision struct {
	Accepted   bool
	Violations []Violation
}

// Violation names a failed rule, the field it applied to and what was wrong.
type Violation struct {
	Rule    Rule
	Field   string
	Message string
}

// Key returns the tally key used in reports, e.g. "range:runtime_hours".
func (v Violation) Key() string {
	return string(v.Rule) + ":" + v.Field
}

// Rule identifies a validator rule.
type Rule string

const (
	RuleIdentifierFormat Rule = "identifier_format"
	RuleTimestamp        Rule = "timestamp"
	RuleRange            Rule = "range"
	RuleCategory         Rule = "category"
)

// Result is the output of one pipeline invocation.
type Result struct {
	Kind   RecordKind
	Rows   []Row
	Report Report
}
