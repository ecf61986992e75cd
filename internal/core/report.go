package core

import (
	"fmt"
	"math"
	"sort"
)

// Report summarizes one pipeline invocation for the caller.
type Report struct {
	Kind            RecordKind        `json:"kind"`
	OriginalRows    int               `json:"originalRows"`
	PassedRows      int               `json:"passedRows"`
	AcceptedRows    int               `json:"acceptedRows"`
	RejectedRows    int               `json:"rejectedRows"`
	RejectionRate   float64           `json:"rejectionRate"` // percent, 2 decimals
	Violations      map[string]int    `json:"violations"`
	OverrideApplied bool              `json:"overrideApplied"`
	Corrections     int               `json:"corrections"`
	Backfilled      map[string]int    `json:"backfilled"`
	Unfilled        map[string]int    `json:"unfilled,omitempty"` // fields left null after backfill
	ParseFailures   map[string]int    `json:"parseFailures"` // field:reason -> count
	SyntheticRows   int               `json:"syntheticRows"`
	FinalRows       int               `json:"finalRows"`
	ColumnMapping   map[string]string `json:"columnMapping"`
	UnmatchedFields []string          `json:"unmatchedFields,omitempty"`
	Warnings        []string          `json:"warnings,omitempty"`
	Rejections      []RowRejection    `json:"rejections,omitempty"`
	FieldRules      []FieldRule       `json:"fieldRules"`
}

// MaxRejectionSamples caps Report.Rejections.
const MaxRejectionSamples = 20

// RowRejection explains why one uploaded row failed validation.
type RowRejection struct {
	Row     int      `json:"row"` // 1-based data row, header excluded
	Reasons []string `json:"reasons"`
}

// Message returns a one-line human-readable summary.
func (r Report) Message() string {
	msg := fmt.Sprintf("%d %s rows processed (%d of %d uploaded rows accepted)",
		r.FinalRows, r.Kind, r.AcceptedRows, r.OriginalRows)
	if r.SyntheticRows > 0 {
		msg += fmt.Sprintf(", including %d synthetic rows", r.SyntheticRows)
	}
	return msg
}

// ViolationKeys returns the violation tally keys sorted by descending count.
func (r Report) ViolationKeys() []string {
	keys := make([]string, 0, len(r.Violations))
	for k := range r.Violations {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if r.Violations[keys[i]] != r.Violations[keys[j]] {
			return r.Violations[keys[i]] > r.Violations[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

// FieldRule documents the accepted format of one canonical field.
type FieldRule struct {
	Field    string   `json:"field"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Aliases  []string `json:"aliases"`
	Pattern  string   `json:"pattern,omitempty"`
	Example  string   `json:"example,omitempty"`
	Values   []string `json:"values,omitempty"`
	Range    *Range   `json:"range,omitempty"`
	Default  any      `json:"default,omitempty"`
	Note     string   `json:"note,omitempty"`
}

// FieldRules returns the static field-format documentation for a kind.
func FieldRules(def KindDefinition) []FieldRule {
	rules := make([]FieldRule, 0, len(def.Fields))
	for _, f := range def.Fields {
		rule := FieldRule{
			Field:    f.Name,
			Type:     fieldTypeName(f.Type),
			Required: f.Required,
			Aliases:  f.Aliases,
			Values:   f.EnumValues,
			Range:    f.Range,
			Default:  f.Default,
		}
		if f.Name == def.IDField && def.IDPattern != nil {
			rule.Pattern = def.IDPattern.String()
			rule.Example = def.IDExample
		}
		if f.Type == FieldDuration {
			rule.Note = "converted to hours (d x24, h x1, m /60, s /3600; no unit = hours)"
		}
		rules = append(rules, rule)
	}
	if def.CorrectionDoc != "" {
		rules = append(rules, FieldRule{Field: "*", Type: "rule", Note: def.CorrectionDoc})
	}
	return rules
}

// reportInput gathers the stage outputs the report is built from.
type reportInput struct {
	original  int
	mapping   ColumnMapping
	failures  []ParseFailure
	filter    FilterOutcome
	backfill  map[string]int
	unfilled  map[string]int
	synthetic int
	final     int
	policy    Policy
}

func buildReport(def KindDefinition, in reportInput) Report {
	r := Report{
		Kind:            def.Kind,
		OriginalRows:    in.original,
		PassedRows:      in.filter.Passed,
		AcceptedRows:    len(in.filter.Accepted),
		RejectedRows:    in.original - in.filter.Passed,
		Violations:      in.filter.Violations,
		OverrideApplied: in.filter.OverrideApplied,
		Corrections:     in.filter.Corrections,
		Backfilled:      in.backfill,
		Unfilled:        in.unfilled,
		ParseFailures:   make(map[string]int),
		SyntheticRows:   in.synthetic,
		FinalRows:       in.final,
		ColumnMapping:   in.mapping.Resolved,
		UnmatchedFields: in.mapping.Unmatched,
		FieldRules:      FieldRules(def),
	}

	if in.original > 0 {
		rate := float64(r.RejectedRows) / float64(in.original) * 100
		r.RejectionRate = math.Round(rate*100) / 100
	}

	for _, f := range in.failures {
		r.ParseFailures[f.Field+":"+string(f.Reason)]++
	}

	for i, d := range in.filter.Decisions {
		if d.Accepted {
			continue
		}
		if len(r.Rejections) == MaxRejectionSamples {
			break
		}
		rej := RowRejection{Row: i + 1, Reasons: make([]string, len(d.Violations))}
		for j, v := range d.Violations {
			rej.Reasons[j] = v.Message
		}
		r.Rejections = append(r.Rejections, rej)
	}

	if in.mapping.Matched() == 0 {
		r.Warnings = append(r.Warnings, "no upload column matched any canonical field")
	}
	if r.OverrideApplied {
		r.Warnings = append(r.Warnings, fmt.Sprintf(
			"insufficient valid data: only %d of %d rows passed validation (below %.0f%% and %d rows); filters skipped and unfiltered rows kept",
			r.PassedRows, r.OriginalRows, in.policy.MinAcceptedRatio*100, in.policy.MinAcceptedRows))
	}
	for _, f := range def.Fields {
		if n := in.unfilled[f.Name]; n > 0 {
			r.Warnings = append(r.Warnings, fmt.Sprintf(
				"%s has no usable values to backfill from; %d rows left empty", f.Name, n))
		}
	}
	if r.SyntheticRows > 0 {
		r.Warnings = append(r.Warnings, fmt.Sprintf(
			"insufficient valid data: %d rows after filtering, %d synthetic rows appended to reach %d",
			r.AcceptedRows, r.SyntheticRows, r.FinalRows))
	}

	return r
}

// fieldTypeName returns a human-readable name for a field type.
func fieldTypeName(ft FieldType) string {
	switch ft {
	case FieldIdentifier:
		return "identifier"
	case FieldTimestamp:
		return "timestamp"
	case FieldNumeric:
		return "numeric"
	case FieldDuration:
		return "duration"
	case FieldCategorical:
		return "categorical"
	default:
		return "value"
	}
}
