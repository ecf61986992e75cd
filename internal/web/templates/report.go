package templates

import (
	"context"
	"io"
	"sort"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/oeedash/internal/core"
	"github.com/JonMunkholm/oeedash/internal/store"
)

// ImportReport renders the processing report of a stored import as a full page.
func ImportReport(imp store.Import) templ.Component {
	return Page("Import "+imp.ID.String(), importReportBody(imp))
}

func importReportBody(imp store.Import) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		r := imp.Report

		h.raw(`<h1 class="text-xl font-bold">`)
		h.text(imp.FileName)
		h.raw(`</h1><p class="text-sm text-gray-600">`)
		h.textf("%s · %s · %s", imp.Kind, mode(imp.Replace), imp.CreatedAt.Format("2006-01-02 15:04:05 MST"))
		h.raw(`</p><p id="summary">`)
		h.text(r.Message())
		h.raw(`</p>`)

		h.raw(`<table id="counts" class="table"><tbody>`)
		countRow(h, "Uploaded rows", r.OriginalRows)
		countRow(h, "Passed validation", r.PassedRows)
		countRow(h, "Accepted", r.AcceptedRows)
		countRow(h, "Rejected", r.RejectedRows)
		h.raw(`<tr><th>Rejection rate</th><td>`)
		h.textf("%.2f%%", r.RejectionRate)
		h.raw(`</td></tr>`)
		countRow(h, "Corrections", r.Corrections)
		countRow(h, "Synthetic rows", r.SyntheticRows)
		countRow(h, "Final rows", r.FinalRows)
		h.raw(`</tbody></table>`)

		if r.OverrideApplied {
			h.raw(`<p class="alert alert-warning">Too few rows passed validation; all uploaded rows were kept.</p>`)
		}
		for _, warning := range r.Warnings {
			h.raw(`<p class="alert alert-warning">`)
			h.text(warning)
			h.raw(`</p>`)
		}

		if len(r.Violations) > 0 {
			h.raw(`<h2>Violations</h2><table id="violations" class="table"><tbody>`)
			for _, key := range r.ViolationKeys() {
				countRow(h, key, r.Violations[key])
			}
			h.raw(`</tbody></table>`)
		}
		if len(r.Rejections) > 0 {
			h.raw(`<h2>Rejected rows</h2><table id="rejections" class="table"><thead><tr><th>Row</th><th>Reasons</th></tr></thead><tbody>`)
			for _, rej := range r.Rejections {
				h.raw(`<tr><td>`)
				h.textf("%d", rej.Row)
				h.raw(`</td><td>`)
				h.text(strings.Join(rej.Reasons, "; "))
				h.raw(`</td></tr>`)
			}
			h.raw(`</tbody></table>`)
			if len(r.Rejections) < r.RejectedRows {
				h.raw(`<p class="text-gray-400">Showing the first `)
				h.textf("%d", len(r.Rejections))
				h.raw(` rejected rows.</p>`)
			}
		}
		tally(h, "backfilled", "Backfilled values", r.Backfilled)
		tally(h, "parse-failures", "Unparsable values", r.ParseFailures)

		h.raw(`<h2>Columns</h2><table id="mapping" class="table"><thead><tr><th>Field</th><th>Source column</th></tr></thead><tbody>`)
		for _, rule := range r.FieldRules {
			h.raw(`<tr><td>`)
			h.text(rule.Field)
			h.raw(`</td><td>`)
			if src, ok := r.ColumnMapping[rule.Field]; ok {
				h.text(src)
			} else {
				h.raw(`<span class="text-gray-400">not found</span>`)
			}
			h.raw(`</td></tr>`)
		}
		h.raw(`</tbody></table>`)

		fieldRules(h, r.FieldRules)
		return h.err
	})
}

func fieldRules(h *htmlWriter, rules []core.FieldRule) {
	if len(rules) == 0 {
		return
	}
	h.raw(`<h2>Field formats</h2><table id="field-rules" class="table"><thead><tr>`)
	h.raw(`<th>Field</th><th>Type</th><th>Required</th><th>Accepted headers</th><th>Format</th></tr></thead><tbody>`)
	for _, rule := range rules {
		h.raw(`<tr><td>`)
		h.text(rule.Field)
		h.raw(`</td><td>`)
		h.text(rule.Type)
		h.raw(`</td><td>`)
		if rule.Required {
			h.raw(`yes`)
		}
		h.raw(`</td><td>`)
		h.text(strings.Join(rule.Aliases, ", "))
		h.raw(`</td><td>`)
		switch {
		case rule.Example != "":
			h.text(rule.Example)
		case len(rule.Values) > 0:
			h.text(strings.Join(rule.Values, " / "))
		case rule.Range != nil:
			h.textf("%g – %g", rule.Range.Min, rule.Range.Max)
		}
		h.raw(`</td></tr>`)
	}
	h.raw(`</tbody></table>`)
}

func tally(h *htmlWriter, id, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h.raw(`<h2>`)
	h.text(title)
	h.raw(`</h2><table id="`)
	h.text(id)
	h.raw(`" class="table"><tbody>`)
	for _, k := range keys {
		countRow(h, k, counts[k])
	}
	h.raw(`</tbody></table>`)
}

func countRow(h *htmlWriter, label string, n int) {
	h.raw(`<tr><th>`)
	h.text(label)
	h.raw(`</th><td>`)
	h.textf("%d", n)
	h.raw(`</td></tr>`)
}

func mode(replace bool) string {
	if replace {
		return "replaced dataset"
	}
	return "appended"
}
