package web

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/oeedash/internal/core"
	"github.com/JonMunkholm/oeedash/internal/export"
)

// defaultDataLimit is how many rows handleDataset returns without ?limit=.
const defaultDataLimit = 50

// DatasetResponse is one page of a stored canonical dataset.
type DatasetResponse struct {
	Kind    core.RecordKind `json:"kind"`
	Count   int             `json:"count"` // total stored rows
	Columns []string        `json:"columns"`
	Offset  int             `json:"offset"`
	Rows    []core.Row      `json:"rows"`
}

// handleDataset returns stored rows of a kind. ?limit=0 returns every row after ?offset.
func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	def, err := kindParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	limit, err := parseIntParam(r, "limit", defaultDataLimit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	offset, err := parseIntParam(r, "offset", 0)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	rows, err := s.service.Dataset(r.Context(), def.Kind)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp := DatasetResponse{
		Kind:    def.Kind,
		Count:   len(rows),
		Columns: def.FieldNames(),
		Offset:  offset,
		Rows:    page(rows, offset, limit),
	}
	writeJSON(w, http.StatusOK, resp)
}

// page returns rows[offset:offset+limit], clamped. A zero limit means no limit.
func page(rows []core.Row, offset, limit int) []core.Row {
	if offset >= len(rows) {
		return []core.Row{}
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

// handleExport downloads the stored dataset of a kind as CSV (default) or XLSX.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	def, err := kindParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	rows, err := s.service.Dataset(r.Context(), def.Kind)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	// Encode before writing headers so a failure still gets an error response.
	var buf bytes.Buffer
	if err := export.Write(&buf, format, def, rows); err != nil {
		s.respondError(w, r, err)
		return
	}

	filename := export.FileName(def.Kind, format, s.now())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Write(buf.Bytes())
}

// handleStats returns row counts and the latest import for every kind.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleOEE returns per-device effectiveness metrics over the last ?days= days.
func (s *Server) handleOEE(w http.ResponseWriter, r *http.Request) {
	days, err := parseIntParam(r, "days", 0)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	summary, err := s.service.OEE(r.Context(), days)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
