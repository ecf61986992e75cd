// Package reader turns uploaded spreadsheet files into raw rows for the import pipeline.
//
// Supported inputs are CSV (UTF-8 with or without BOM, UTF-16 with BOM, GBK/GB18030),
// XLSX workbooks and HTML tables, which many reporting tools save with an ".xls" extension.
// The first non-empty row is the header; every later non-empty row becomes one RawRow
// keyed by header label.
package reader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/oeedash/internal/core"
)

// Format identifies a tabular file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatHTML Format = "html"
)

var (
	// ErrUnsupportedFormat is returned for files that are not CSV, XLSX or an HTML table,
	// including legacy binary .xls workbooks.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrEmptyFile is returned when the upload has no bytes or no header row.
	ErrEmptyFile = errors.New("empty file")

	// ErrEncoding is returned when a text file cannot be decoded to UTF-8.
	ErrEncoding = errors.New("encoding error")
)

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// Table is a decoded upload.
type Table struct {
	Format   Format
	Encoding string // source text encoding; empty for XLSX
	Sheet    string // worksheet name; XLSX only
	Headers  []string
	Rows     []core.RawRow
}

// Read decodes an upload. The name is only used for its extension.
func Read(name string, r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return ReadBytes(name, data)
}

// ReadBytes decodes an upload held in memory.
func ReadBytes(name string, data []byte) (*Table, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	format, err := DetectFormat(name, data)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatXLSX:
		return ReadXLSX(data)
	case FormatHTML:
		return ReadHTML(data)
	default:
		return ReadCSV(data)
	}
}

// DetectFormat chooses a format from the file extension, confirmed by the leading bytes.
func DetectFormat(name string, data []byte) (Format, error) {
	if bytes.HasPrefix(data, oleMagic) {
		return "", fmt.Errorf("%w: legacy binary workbook, save as .xlsx or .csv", ErrUnsupportedFormat)
	}
	if bytes.HasPrefix(data, zipMagic) {
		return FormatXLSX, nil
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return "", fmt.Errorf("%w: %s is not a valid workbook", ErrUnsupportedFormat, name)
	case ".xls", ".htm", ".html":
		if looksLikeHTML(data) {
			return FormatHTML, nil
		}
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	case ".csv", ".txt", "":
		if looksLikeHTML(data) {
			return FormatHTML, nil
		}
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// looksLikeHTML reports whether the content starts with markup containing a table.
func looksLikeHTML(data []byte) bool {
	head := data
	if len(head) > 4096 {
		head = head[:4096]
	}
	head = bytes.TrimLeft(bytes.TrimPrefix(head, utf8BOM), " \t\r\n")
	if !bytes.HasPrefix(head, []byte("<")) {
		return false
	}
	return bytes.Contains(bytes.ToLower(data), []byte("<table"))
}

// CleanCell normalizes a cell value from spreadsheet exports.
// Handles Excel formula-style text ("=\"value\"") and surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}

// buildTable turns records into a header and keyed rows. Blank rows are skipped, blank or
// repeated header labels drop their column, and missing trailing cells are omitted.
func buildTable(records [][]string) (*Table, error) {
	start := -1
	for i, rec := range records {
		if !isEmptyRow(rec) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, ErrEmptyFile
	}

	headers := make([]string, len(records[start]))
	seen := make(map[string]bool)
	for i, h := range records[start] {
		h = CleanCell(h)
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		headers[i] = h
	}

	t := &Table{}
	for _, h := range headers {
		if h != "" {
			t.Headers = append(t.Headers, h)
		}
	}

	for _, rec := range records[start+1:] {
		if isEmptyRow(rec) {
			continue
		}
		row := make(core.RawRow, len(t.Headers))
		for i, cell := range rec {
			if i >= len(headers) || headers[i] == "" {
				continue
			}
			row[headers[i]] = CleanCell(cell)
		}
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
