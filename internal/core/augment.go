package core

import "time"

// Augment appends synthetic rows produced by the kind's mock generator until the dataset
// reaches the policy target. Real rows keep their positions; synthetic rows go at the end.
// Returns the extended slice and the number of rows appended.
func Augment(def KindDefinition, rows []Row, policy Policy, src Source, now time.Time) ([]Row, int) {
	n := policy.syntheticCount(len(rows))
	if n == 0 || def.Mock == nil {
		return rows, 0
	}

	for i := 0; i < n; i++ {
		mock := def.Mock(src, now)
		row := make(Row, len(def.Fields))
		for _, field := range def.Fields {
			row[field.Name] = mock[field.Name]
		}
		rows = append(rows, row)
	}
	return rows, n
}
