package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// EncodeRow serializes a normalized row as a JSON object. Timestamps use RFC 3339.
func EncodeRow(row Row) ([]byte, error) {
	return json.Marshal(row)
}

// DecodeRow restores a row previously written by EncodeRow, re-typing timestamp and
// numeric fields from the kind definition. Unknown keys are dropped.
func DecodeRow(def KindDefinition, data []byte) (Row, error) {
	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("decode %s row: %w", def.Kind, err)
	}

	row := make(Row, len(def.Fields))
	for _, field := range def.Fields {
		v := generic[field.Name]
		if v == nil {
			row[field.Name] = nil
			continue
		}
		switch {
		case field.Type == FieldTimestamp:
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("decode %s row: field %s: expected timestamp string", def.Kind, field.Name)
			}
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return nil, fmt.Errorf("decode %s row: field %s: %w", def.Kind, field.Name, err)
			}
			row[field.Name] = t
		case field.IsNumeric():
			f, ok := v.(float64)
			if !ok {
				return nil, fmt.Errorf("decode %s row: field %s: expected number", def.Kind, field.Name)
			}
			row[field.Name] = f
		default:
			row[field.Name] = fmt.Sprint(v)
		}
	}
	return row, nil
}

// Float returns the float64 value of field, or 0 and false when it is null.
func (r Row) Float(field string) (float64, bool) {
	f, ok := r[field].(float64)
	return f, ok
}

// Text returns the string value of field, or "" when it is null.
func (r Row) Text(field string) string {
	s, _ := r[field].(string)
	return s
}

// Time returns the time value of field, or the zero time when it is null.
func (r Row) Time(field string) time.Time {
	t, _ := r[field].(time.Time)
	return t
}

// EquipmentRecord is the typed view of a canonical equipment row.
type EquipmentRecord struct {
	DeviceID      string
	Timestamp     time.Time
	Status        string
	RuntimeHours  float64
	FailureCount  float64
	WarningStatus string
}

// MaterialRecord is the typed view of a canonical material row.
type MaterialRecord struct {
	Date              time.Time
	MaterialID        string
	Quantity          float64
	QualifiedQuantity float64
}

// EquipmentRecords converts canonical equipment rows. Null numerics read as 0.
func EquipmentRecords(rows []Row) []EquipmentRecord {
	out := make([]EquipmentRecord, len(rows))
	for i, r := range rows {
		runtime, _ := r.Float("runtime_hours")
		failures, _ := r.Float("failure_count")
		out[i] = EquipmentRecord{
			DeviceID:      r.Text("device_id"),
			Timestamp:     r.Time("timestamp"),
			Status:        r.Text("status"),
			RuntimeHours:  runtime,
			FailureCount:  failures,
			WarningStatus: r.Text("warning_status"),
		}
	}
	return out
}

// MaterialRecords converts canonical material rows. Null numerics read as 0.
func MaterialRecords(rows []Row) []MaterialRecord {
	out := make([]MaterialRecord, len(rows))
	for i, r := range rows {
		qty, _ := r.Float("quantity")
		qualified, _ := r.Float("qualified_quantity")
		out[i] = MaterialRecord{
			Date:              r.Time("date"),
			MaterialID:        r.Text("material_id"),
			Quantity:          qty,
			QualifiedQuantity: qualified,
		}
	}
	return out
}
