package reader

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ReadXLSX decodes the first non-empty worksheet of a workbook.
// Cells are read as displayed, so dates keep their formatted text.
func ReadXLSX(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		records, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		t, err := buildTable(records)
		if errors.Is(err, ErrEmptyFile) {
			continue
		}
		if err != nil {
			return nil, err
		}
		t.Format = FormatXLSX
		t.Sheet = sheet
		return t, nil
	}
	return nil, ErrEmptyFile
}
