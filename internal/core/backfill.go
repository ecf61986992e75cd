package core

import (
	"sort"
	"time"
)

// UnknownPlaceholder fills a text column that has no values at all.
const UnknownPlaceholder = "未知"

// Backfill replaces nil cells in rows, in place, field by field: the field's declared
// default, else the column mean for numeric fields (0 when the column is all nil), else the
// column mode (UnknownPlaceholder when the column is all nil). A timestamp field with no
// time in any row stays nil and is counted by unfilledFields. Returns the number of cells
// filled per field.
func Backfill(def KindDefinition, rows []Row) map[string]int {
	filled := make(map[string]int)

	for _, field := range def.Fields {
		missing := 0
		for _, row := range rows {
			if row[field.Name] == nil {
				missing++
			}
		}
		if missing == 0 {
			continue
		}

		fill := fillValue(field, rows)
		if fill == nil {
			continue
		}
		for _, row := range rows {
			if row[field.Name] == nil {
				row[field.Name] = fill
			}
		}
		filled[field.Name] = missing
	}

	return filled
}

// fillValue chooses the substitute for a field's nil cells.
func fillValue(field FieldSpec, rows []Row) any {
	if field.Default != nil {
		return field.Default
	}
	if field.IsNumeric() {
		return columnMean(field.Name, rows)
	}
	if field.Type == FieldTimestamp {
		return timeMode(field.Name, rows)
	}
	return textMode(field.Name, rows)
}

func columnMean(name string, rows []Row) float64 {
	sum, n := 0.0, 0
	for _, row := range rows {
		if f, ok := row[name].(float64); ok {
			sum += f
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// textMode returns the most frequent string; ties resolve to the smallest value.
func textMode(name string, rows []Row) any {
	counts := make(map[string]int)
	for _, row := range rows {
		if s, ok := row[name].(string); ok {
			counts[s]++
		}
	}
	if len(counts) == 0 {
		return UnknownPlaceholder
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best := keys[0]
	for _, k := range keys[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return best
}

// timeMode returns the most frequent instant; ties resolve to the earliest.
// Returns nil when the column has no times.
func timeMode(name string, rows []Row) any {
	counts := make(map[int64]int)
	values := make(map[int64]time.Time)
	for _, row := range rows {
		if t, ok := row[name].(time.Time); ok {
			key := t.UnixNano()
			counts[key]++
			values[key] = t
		}
	}
	if len(counts) == 0 {
		return nil
	}

	keys := make([]int64, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	best := keys[0]
	for _, k := range keys[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return values[best]
}

// unfilledFields counts the nil cells left per field, omitting complete fields.
func unfilledFields(def KindDefinition, rows []Row) map[string]int {
	out := make(map[string]int)
	for _, field := range def.Fields {
		for _, row := range rows {
			if row[field.Name] == nil {
				out[field.Name]++
			}
		}
	}
	return out
}
