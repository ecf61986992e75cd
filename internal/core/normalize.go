package core

import (
	"log/slog"
	"time"
)

// Normalizer type-coerces mapped rows field by field.
type Normalizer struct {
	loc    *time.Location
	logger *slog.Logger
}

// NewNormalizer creates a normalizer that parses zone-less timestamps in loc.
func NewNormalizer(loc *time.Location, logger *slog.Logger) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{loc: loc, logger: logger}
}

// Normalize coerces every canonical field of every row according to its semantic type.
// Cells that fail coercion become nil and are returned as ParseFailures.
func (n *Normalizer) Normalize(def KindDefinition, rows []Row) ([]Row, []ParseFailure) {
	out := make([]Row, len(rows))
	var failures []ParseFailure

	for i, row := range rows {
		norm := make(Row, len(def.Fields))
		for _, field := range def.Fields {
			raw := row[field.Name]
			value, reason := n.coerce(field, raw)
			switch reason {
			case ReasonNone:
				norm[field.Name] = value
			case ReasonBlank:
				norm[field.Name] = nil
			default:
				norm[field.Name] = nil
				failures = append(failures, ParseFailure{Row: i, Field: field.Name, Value: raw, Reason: reason})
				n.logger.Debug("cell coercion failed",
					"kind", def.Kind,
					"row", i,
					"field", field.Name,
					"value", raw,
					"reason", reason,
				)
			}
		}
		out[i] = norm
	}

	return out, failures
}

// coerce dispatches on the field's semantic type.
func (n *Normalizer) coerce(field FieldSpec, raw any) (any, ParseReason) {
	switch field.Type {
	case FieldTimestamp:
		t, reason := ParseTimestamp(raw, n.loc)
		if reason != ReasonNone {
			return nil, reason
		}
		return t, reason
	case FieldIdentifier:
		id, reason := CanonicalID(raw, field.IDKind)
		if reason != ReasonNone {
			return nil, reason
		}
		return id, reason
	case FieldNumeric:
		f, reason := ParseNumeric(raw)
		if reason != ReasonNone {
			return nil, reason
		}
		return f, reason
	case FieldDuration:
		f, reason := ParseDuration(raw)
		if reason != ReasonNone {
			return nil, reason
		}
		return f, reason
	case FieldCategorical:
		s, reason := NormalizeCategory(raw, field)
		if reason != ReasonNone {
			return nil, reason
		}
		return s, reason
	default:
		return nil, ReasonUnsupportedType
	}
}
