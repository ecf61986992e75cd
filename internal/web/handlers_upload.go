package web

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/oeedash/internal/core"
	"github.com/JonMunkholm/oeedash/internal/service"
	"github.com/JonMunkholm/oeedash/internal/store"
	"github.com/JonMunkholm/oeedash/internal/web/middleware"
	"github.com/JonMunkholm/oeedash/internal/web/templates"
)

const (
	// multipartOverhead is the slack allowed on top of the file size for form framing.
	multipartOverhead = 1 << 20

	// multipartMemory is how much of a form is kept in memory before spilling to disk.
	multipartMemory = 8 << 20
)

// fileFields are the accepted multipart field names of the upload, in order.
var fileFields = []string{"file", "dataFile"}

// ImportResponse is the JSON body of a successful import.
type ImportResponse struct {
	*service.ImportOutcome
	Message   string `json:"message"`
	ReportURL string `json:"reportUrl"`
}

// handleImport runs one uploaded file through the pipeline and stores the result.
// The kind comes from the URL or, on /api/import, from the "kind" or "dataType" field.
// "replace" swaps the stored dataset instead of appending to it.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.service.MaxFileSize()+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, fmt.Errorf("%w: limit is %d bytes", service.ErrFileTooLarge, s.service.MaxFileSize()))
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: %v", service.ErrNoFile, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	def, err := lookupKind(firstNonEmpty(chi.URLParam(r, "kind"), r.FormValue("kind"), r.FormValue("dataType")))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	replace, err := parseBool("replace", r.FormValue("replace"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	file, header, err := formFile(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer file.Close()

	out, err := s.service.Import(r.Context(), service.ImportRequest{
		Kind:         def.Kind,
		FileName:     header.Filename,
		Data:         file,
		Replace:      replace,
		UploadedFrom: middleware.ClientIP(r.Context()),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, ImportResponse{
		ImportOutcome: out,
		Message:       out.Import.Report.Message(),
		ReportURL:     "/imports/" + out.Import.ID.String(),
	})
}

// formFile returns the first uploaded file among fileFields.
func formFile(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	for _, name := range fileFields {
		file, header, err := r.FormFile(name)
		if err == nil {
			return file, header, nil
		}
		if !errors.Is(err, http.ErrMissingFile) {
			return nil, nil, fmt.Errorf("%w: %v", service.ErrNoFile, err)
		}
	}
	return nil, nil, service.ErrNoFile
}

// handleListImports returns import history, newest first, optionally filtered by ?kind=.
func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	var kind core.RecordKind
	if name := r.URL.Query().Get("kind"); name != "" {
		def, err := lookupKind(name)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		kind = def.Kind
	}

	limit, err := parseIntParam(r, "limit", service.DefaultHistoryLimit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	imports, err := s.service.ListImports(r.Context(), kind, limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, imports)
}

// handleImportReport returns the stored processing report of one import as JSON.
func (s *Server) handleImportReport(w http.ResponseWriter, r *http.Request) {
	imp, ok := s.loadImport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, imp)
}

// handleImportPage renders the processing report of one import as HTML.
func (s *Server) handleImportPage(w http.ResponseWriter, r *http.Request) {
	imp, ok := s.loadImport(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ImportReport(imp).Render(r.Context(), w); err != nil {
		s.respondError(w, r, err)
	}
}

func (s *Server) loadImport(w http.ResponseWriter, r *http.Request) (store.Import, bool) {
	id, err := importIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return store.Import{}, false
	}
	imp, err := s.service.GetImport(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return store.Import{}, false
	}
	return imp, true
}

// handleActiveImports lists imports still being processed and the slot usage.
func (s *Server) handleActiveImports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"imports": s.service.ActiveImports(),
		"limiter": s.service.LimiterStatus(),
	})
}

// handleCancelImport cancels a running import.
func (s *Server) handleCancelImport(w http.ResponseWriter, r *http.Request) {
	id, err := importIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.service.CancelImport(id); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
