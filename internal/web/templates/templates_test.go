package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/google/uuid"

	"github.com/JonMunkholm/oeedash/internal/core"
	"github.com/JonMunkholm/oeedash/internal/store"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	return buf.String()
}

func TestErrorAlert(t *testing.T) {
	html := render(t, ErrorAlert("File <too> large", "Upload a smaller file", "FILE001"))

	if !strings.Contains(html, "File &lt;too&gt; large") {
		t.Errorf("message not escaped: %s", html)
	}
	if !strings.Contains(html, "Upload a smaller file") || !strings.Contains(html, "FILE001") {
		t.Errorf("missing action or code: %s", html)
	}

	html = render(t, ErrorAlert("Oops", "", ""))
	if strings.Contains(html, "Code:") {
		t.Errorf("empty code rendered: %s", html)
	}
}

func TestImportReport(t *testing.T) {
	imp := store.Import{
		ID:        uuid.New(),
		Kind:      core.KindEquipment,
		FileName:  "设备<1>.csv",
		Replace:   true,
		CreatedAt: time.Date(2024, 5, 11, 8, 0, 0, 0, time.UTC),
		Report: core.Report{
			Kind:            core.KindEquipment,
			OriginalRows:    12,
			PassedRows:      10,
			AcceptedRows:    10,
			RejectedRows:    2,
			RejectionRate:   16.67,
			Violations:      map[string]int{"range:runtime_hours": 2},
			Backfilled:      map[string]int{"failure_count": 3},
			Rejections: []core.RowRejection{
				{Row: 4, Reasons: []string{"runtime_hours: value 1200 outside range 0 - 1000"}},
			},
			ColumnMapping:   map[string]string{"device_id": "设备ID"},
			FinalRows:       10,
			OverrideApplied: true,
			FieldRules: []core.FieldRule{
				{Field: "device_id", Type: "identifier", Required: true, Aliases: []string{"device_id", "设备ID"}, Example: "CNC001"},
				{Field: "runtime_hours", Type: "duration", Range: &core.Range{Min: 0, Max: 1000}},
			},
		},
	}

	html := render(t, ImportReport(imp))

	for _, want := range []string{
		"<!DOCTYPE html>",
		"设备&lt;1&gt;.csv",
		"replaced dataset",
		"16.67%",
		"range:runtime_hours",
		"failure_count",
		"设备ID",
		"not found",
		"CNC001",
		"0 – 1000",
		"all uploaded rows were kept",
		`id="rejections"`,
		"runtime_hours: value 1200 outside range 0 - 1000",
		"Showing the first 1 rejected rows.",
		imp.Report.Message(),
	} {
		if !strings.Contains(html, want) {
			t.Errorf("report page missing %q", want)
		}
	}
	if strings.Contains(html, `id="parse-failures"`) {
		t.Error("empty parse failure table rendered")
	}
}
