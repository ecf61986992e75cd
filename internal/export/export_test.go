package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/oeedash/internal/core"
	_ "github.com/JonMunkholm/oeedash/internal/core/kinds"
	"github.com/JonMunkholm/oeedash/internal/reader"
)

func materialRows() []core.Row {
	return []core.Row{
		{
			"date":               time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
			"material_id":        "CNC001",
			"quantity":           1920.0,
			"qualified_quantity": 1728.0,
		},
		{
			"date":               time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC),
			"material_id":        "CNC002",
			"quantity":           12.5,
			"qualified_quantity": nil,
		},
	}
}

func materialDef(t *testing.T) core.KindDefinition {
	t.Helper()
	def, ok := core.Get(core.KindMaterial)
	require.True(t, ok)
	return def
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatCSV, "CSV": FormatCSV, "xlsx": FormatXLSX, " excel ": FormatXLSX} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("pdf")
	assert.ErrorIs(t, err, ErrUnknownFormat)
	assert.Equal(t, "FILE002", core.MapError(err).Code)
}

func TestWriteCSV(t *testing.T) {
	def := materialDef(t)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, def, materialRows()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(def.FieldNames(), ","), lines[0])
	assert.Contains(t, lines[1], "2024-05-10T00:00:00Z")
	assert.Contains(t, lines[1], "1920")
	assert.True(t, strings.HasSuffix(lines[2], ","), "null cell should be empty: %q", lines[2])
}

func TestWriteCSV_ReimportsThroughPipeline(t *testing.T) {
	def := materialDef(t)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, def, materialRows()[:1]))

	tbl, err := reader.ReadBytes("material.csv", buf.Bytes())
	require.NoError(t, err)

	policy := core.DefaultPolicy()
	policy.DisableAugment = true
	res, err := core.NewPipeline(core.Options{Policy: policy, NewSource: core.SeededSource(1)}).
		Process(core.KindMaterial, tbl.Rows)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	row := res.Rows[0]
	assert.Equal(t, "CNC001", row["material_id"])
	assert.Equal(t, 1920.0, row["quantity"])
	assert.True(t, row.Time("date").Equal(time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)))
	assert.Empty(t, res.Report.UnmatchedFields)
}

func TestWriteXLSX(t *testing.T) {
	def := materialDef(t)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, def, materialRows()))

	tbl, err := reader.ReadBytes("material.xlsx", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, reader.FormatXLSX, tbl.Format)
	assert.Equal(t, def.FieldNames(), tbl.Headers)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "CNC002", tbl.Rows[1]["material_id"])
	assert.Equal(t, "12.5", tbl.Rows[1]["quantity"])
}

func TestFormatCell(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"运行中", "运行中"},
		{100.0, "100"},
		{0.85, "0.85"},
		{time.Time{}, ""},
		{time.Date(2024, 5, 10, 8, 0, 0, 0, time.FixedZone("CST", 8*3600)), "2024-05-10T08:00:00+08:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCell(tt.in), "FormatCell(%v)", tt.in)
	}
}

func TestFileName(t *testing.T) {
	at := time.Date(2024, 5, 11, 8, 30, 0, 0, time.UTC)
	assert.Equal(t, "equipment_20240511_083000.xlsx", FileName(core.KindEquipment, FormatXLSX, at))
}
