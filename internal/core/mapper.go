package core

// mapper.go resolves uploaded column labels to canonical field names.
//
// Resolution is per batch: the labels of every row are collected, and for each canonical
// field the alias list is walked in order until an alias equals one of the labels. Matching
// is exact. Fields with no matching label are null in every row.

// ColumnMapping records which upload label fed each canonical field.
type ColumnMapping struct {
	Resolved  map[string]string // canonical field -> source label
	Unmatched []string          // canonical fields with no matching label
}

// Matched returns the number of canonical fields that found a source column.
func (m ColumnMapping) Matched() int {
	return len(m.Resolved)
}

// MapColumns projects raw rows onto the kind's canonical fields.
// No rows are dropped; every canonical field is present in every output row.
func MapColumns(def KindDefinition, rows []RawRow) ([]Row, ColumnMapping) {
	labels := make(map[string]bool)
	for _, raw := range rows {
		for label := range raw {
			labels[label] = true
		}
	}

	mapping := ColumnMapping{Resolved: make(map[string]string)}
	for _, field := range def.Fields {
		found := false
		for _, alias := range field.Aliases {
			if labels[alias] {
				mapping.Resolved[field.Name] = alias
				found = true
				break
			}
		}
		if !found {
			mapping.Unmatched = append(mapping.Unmatched, field.Name)
		}
	}

	out := make([]Row, len(rows))
	for i, raw := range rows {
		row := make(Row, len(def.Fields))
		for _, field := range def.Fields {
			if label, ok := mapping.Resolved[field.Name]; ok {
				row[field.Name] = raw[label]
			} else {
				row[field.Name] = nil
			}
		}
		out[i] = row
	}

	return out, mapping
}

// checkRequired returns a RequiredFieldAbsentError for the first required field that is
// blank in every mapped row.
func checkRequired(def KindDefinition, rows []Row) error {
	for _, field := range def.Fields {
		if !field.Required {
			continue
		}
		present := false
		for _, row := range rows {
			if _, ok := cellString(row[field.Name]); ok {
				present = true
				break
			}
		}
		if !present {
			return &RequiredFieldAbsentError{Kind: def.Kind, Field: field.Name, Aliases: field.Aliases}
		}
	}
	return nil
}
