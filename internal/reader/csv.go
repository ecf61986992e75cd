package reader

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV decodes a delimited text file. The delimiter is a comma unless the header line
// contains more tabs or semicolons.
func ReadCSV(data []byte) (*Table, error) {
	text, name, err := decodeText(data)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.Comma = sniffDelimiter(text)

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}

	t, err := buildTable(records)
	if err != nil {
		return nil, err
	}
	t.Format = FormatCSV
	t.Encoding = name
	return t, nil
}

// decodeText converts data to UTF-8 and strips any byte-order mark.
//
// BOMs are trusted first. Valid UTF-8 is kept as is. Anything else is sniffed with the
// HTML charset detector and, when it is not certain, read as GB18030 (a superset of GBK),
// which is what Chinese-locale spreadsheet tools write by default.
func decodeText(data []byte) ([]byte, string, error) {
	switch {
	case bytes.HasPrefix(data, utf8BOM):
		return data[len(utf8BOM):], "utf-8", nil
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		return transformAll(data, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), "utf-16le")
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return transformAll(data, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), "utf-16be")
	case utf8.Valid(data):
		return data, "utf-8", nil
	}

	enc, name, certain := charset.DetermineEncoding(data, "text/plain")
	if !certain || enc == nil || name == "windows-1252" {
		enc, name = simplifiedchinese.GB18030, "gb18030"
	}
	return transformAll(data, enc, name)
}

func transformAll(data []byte, enc encoding.Encoding, name string) ([]byte, string, error) {
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), enc.NewDecoder()))
	if err != nil {
		return nil, name, fmt.Errorf("%w: decode %s: %v", ErrEncoding, name, err)
	}
	return out, name, nil
}

// sniffDelimiter picks the most frequent of comma, tab and semicolon on the first line.
func sniffDelimiter(text []byte) rune {
	line := text
	if i := bytes.IndexByte(text, '\n'); i >= 0 {
		line = text[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{'\t', ';'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}
