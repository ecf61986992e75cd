// Package export writes canonical datasets back out as spreadsheet files.
//
// Columns follow the kind definition's field order and are headed by canonical field
// names, so an exported file can be re-imported without any column mapping.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/oeedash/internal/core"
)

// Format is an output file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ErrUnknownFormat is returned by ParseFormat for anything but csv and xlsx.
var ErrUnknownFormat = errors.New("unsupported file format")

// TimeLayout is the layout of exported timestamps. It carries the offset so a
// re-import is independent of the importer's configured time zone.
const TimeLayout = time.RFC3339

// sheetName is the single worksheet written to XLSX exports.
const sheetName = "Sheet1"

// ParseFormat resolves a format name. An empty name is CSV.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// FileName builds a download name such as "equipment_20240511_080000.csv".
func FileName(kind core.RecordKind, f Format, at time.Time) string {
	return fmt.Sprintf("%s_%s.%s", kind, at.Format("20060102_150405"), f)
}

// Write encodes rows of def in format f.
func Write(w io.Writer, f Format, def core.KindDefinition, rows []core.Row) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, def, rows)
	case FormatXLSX:
		return WriteXLSX(w, def, rows)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// WriteCSV writes a header of canonical names followed by one record per row.
// Null cells are written empty.
func WriteCSV(w io.Writer, def core.KindDefinition, rows []core.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(def.FieldNames()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(def.Fields))
	for _, row := range rows {
		for i, field := range def.Fields {
			record[i] = FormatCell(row[field.Name])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a single-sheet workbook. Numeric fields stay numeric cells.
func WriteXLSX(w io.Writer, def core.KindDefinition, rows []core.Row) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return fmt.Errorf("open xlsx stream: %w", err)
	}

	header := make([]any, len(def.Fields))
	for i, name := range def.FieldNames() {
		header[i] = name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}

	for n, row := range rows {
		values := make([]any, len(def.Fields))
		for i, field := range def.Fields {
			values[i] = xlsxCell(row[field.Name])
		}
		cell, err := excelize.CoordinatesToCellName(1, n+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", n+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush xlsx: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// FormatCell renders one canonical value as text.
func FormatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		if val.IsZero() {
			return ""
		}
		return val.Format(TimeLayout)
	default:
		return fmt.Sprint(v)
	}
}

func xlsxCell(v any) any {
	switch val := v.(type) {
	case float64:
		return val
	default:
		return FormatCell(v)
	}
}
