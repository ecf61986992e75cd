package reader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/JonMunkholm/oeedash/internal/core"
)

const equipmentCSV = "设备ID,时间戳,设备状态\nCNC001,2024-05-03 08:00:00,运行中\n\nCNC002,2024-05-03 09:00:00,停机\n"

func encode(t *testing.T, text string, enc transform.Transformer) []byte {
	t.Helper()
	out, _, err := transform.Bytes(enc, []byte(text))
	require.NoError(t, err)
	return out
}

func assertEquipmentRows(t *testing.T, tbl *Table) {
	t.Helper()
	assert.Equal(t, []string{"设备ID", "时间戳", "设备状态"}, tbl.Headers)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, core.RawRow{"设备ID": "CNC001", "时间戳": "2024-05-03 08:00:00", "设备状态": "运行中"}, tbl.Rows[0])
	assert.Equal(t, "停机", tbl.Rows[1]["设备状态"])
}

func TestReadCSV_Encodings(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		encoding string
	}{
		{"utf-8", []byte(equipmentCSV), "utf-8"},
		{"utf-8 with BOM", append([]byte{0xEF, 0xBB, 0xBF}, equipmentCSV...), "utf-8"},
		{"gbk", encode(t, equipmentCSV, simplifiedchinese.GBK.NewEncoder()), "gb18030"},
		{"utf-16le with BOM", encode(t, equipmentCSV, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()), "utf-16le"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := ReadBytes("equipment.csv", tt.data)
			require.NoError(t, err)
			assert.Equal(t, FormatCSV, tbl.Format)
			assert.Equal(t, tt.encoding, tbl.Encoding)
			assertEquipmentRows(t, tbl)
		})
	}
}

func TestReadCSV_Shapes(t *testing.T) {
	t.Run("semicolon delimiter", func(t *testing.T) {
		tbl, err := ReadCSV([]byte("工号;操作类型\nW001;上料\n"))
		require.NoError(t, err)
		assert.Equal(t, core.RawRow{"工号": "W001", "操作类型": "上料"}, tbl.Rows[0])
	})

	t.Run("ragged rows and excel text cells", func(t *testing.T) {
		tbl, err := ReadCSV([]byte("a,b,c\n=\"007\",2\n1,2,3,4\n"))
		require.NoError(t, err)
		require.Len(t, tbl.Rows, 2)
		assert.Equal(t, core.RawRow{"a": "007", "b": "2"}, tbl.Rows[0])
		assert.Equal(t, core.RawRow{"a": "1", "b": "2", "c": "3"}, tbl.Rows[1])
	})

	t.Run("duplicate and blank headers drop their column", func(t *testing.T) {
		tbl, err := ReadCSV([]byte("温度,,温度,湿度\n20,x,99,50\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"温度", "湿度"}, tbl.Headers)
		assert.Equal(t, core.RawRow{"温度": "20", "湿度": "50"}, tbl.Rows[0])
	})

	t.Run("leading blank lines", func(t *testing.T) {
		tbl, err := ReadCSV([]byte("\n,,\nx,y\n1,2\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y"}, tbl.Headers)
		assert.Len(t, tbl.Rows, 1)
	})

	t.Run("header only", func(t *testing.T) {
		tbl, err := ReadCSV([]byte("x,y\n"))
		require.NoError(t, err)
		assert.Empty(t, tbl.Rows)
	})
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"日期", "物料编号", "产品数量", "合格产品数量"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"2024-05-01", "CNC001", 100, 95}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"2024-05-02", "CNC002", 120, 118}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	// Extension is ignored for zip content.
	tbl, err := ReadBytes("material.xls", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, tbl.Format)
	assert.Equal(t, "Sheet1", tbl.Sheet)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, core.RawRow{"日期": "2024-05-01", "物料编号": "CNC001", "产品数量": "100", "合格产品数量": "95"}, tbl.Rows[0])
}

func TestReadHTML(t *testing.T) {
	doc := `<html><head><meta charset="utf-8"></head><body>
<table>
  <tr><th>温湿度传感器ID</th><th>温度</th><th>湿度</th></tr>
  <tr><td> TEMP001 </td><td>23.5</td><td>55</td></tr>
  <tr><td></td><td></td><td></td></tr>
  <tr><td>TEMP002</td><td>24</td><td>60</td></tr>
</table></body></html>`

	tbl, err := ReadBytes("environment.xls", []byte(doc))
	require.NoError(t, err)
	assert.Equal(t, FormatHTML, tbl.Format)
	assert.Equal(t, []string{"温湿度传感器ID", "温度", "湿度"}, tbl.Headers)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "TEMP001", tbl.Rows[0]["温湿度传感器ID"])
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		data    []byte
		wantErr error
	}{
		{"empty", "a.csv", nil, ErrEmptyFile},
		{"whitespace only", "a.csv", []byte("\n \n"), ErrEmptyFile},
		{"legacy workbook", "a.xls", []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0, 0}, ErrUnsupportedFormat},
		{"xlsx that is not a zip", "a.xlsx", []byte("a,b\n1,2\n"), ErrUnsupportedFormat},
		{"unknown extension", "a.pdf", []byte("%PDF-1.4"), ErrUnsupportedFormat},
		{"html without table", "a.html", []byte("<html><body>hi</body></html>"), ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(tt.file, strings.NewReader(string(tt.data)))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestErrorsMapToUserMessages(t *testing.T) {
	_, err := ReadBytes("a.pdf", []byte("%PDF"))
	assert.Equal(t, "FILE002", core.MapError(err).Code)

	_, err = ReadBytes("a.csv", nil)
	assert.Equal(t, "FILE005", core.MapError(err).Code)
}

func TestCleanCell(t *testing.T) {
	cases := map[string]string{
		`  CNC001 `:   "CNC001",
		`="00123"`:    "00123",
		`=SUM`:        "SUM",
		`"quoted"`:    "quoted",
		`'single'`:    "single",
		`plain value`: "plain value",
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanCell(in), "CleanCell(%q)", in)
	}
}
