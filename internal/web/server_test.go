package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/oeedash/internal/config"
	"github.com/JonMunkholm/oeedash/internal/core"
	_ "github.com/JonMunkholm/oeedash/internal/core/kinds"
	"github.com/JonMunkholm/oeedash/internal/oee"
	"github.com/JonMunkholm/oeedash/internal/service"
	"github.com/JonMunkholm/oeedash/internal/store"
)

var testNow = time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC)

const equipmentCSV = `设备ID,时间戳,设备状态,总运行时间,故障次数,预警状态
CNC001,2024-05-10 08:00:00,运行中,120,1,正常
cnc-1,2024-05-09 08:00:00,停机,10,0,正常
CNC002,2024-05-10 09:00:00,待机,5,0,轻微
`

const materialCSV = `日期,物料编号,产品数量,合格产品数量
2024-05-10,CNC001,1920,1728
`

func testConfig() *config.Config {
	return &config.Config{
		Security: config.SecurityConfig{EnableCSP: true},
		Rate:     config.RateLimitConfig{RequestsPerMinute: 100, UploadLimit: 10},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, svcCfg service.Config) *Server {
	t.Helper()
	policy := core.DefaultPolicy()
	policy.DisableAugment = true

	p := core.NewPipeline(core.Options{
		Policy:    policy,
		Logger:    slog.New(slog.DiscardHandler),
		NewSource: core.SeededSource(1),
		Now:       func() time.Time { return testNow },
	})
	svcCfg.Now = func() time.Time { return testNow }
	svc := service.New(store.NewMemory(), p, svcCfg)

	s := NewServer(svc, cfg)
	s.now = func() time.Time { return testNow }
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s
}

type upload struct {
	field    string
	fileName string
	body     string
	values   map[string]string
}

func multipartRequest(t *testing.T, path string, u upload) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range u.values {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if u.fileName != "" {
		field := u.field
		if field == "" {
			field = "file"
		}
		fw, err := mw.CreateFormFile(field, u.fileName)
		if err != nil {
			t.Fatal(err)
		}
		io.WriteString(fw, u.body)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	return serve(s, httptest.NewRequest(http.MethodGet, path, nil))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func importFile(t *testing.T, s *Server, kind core.RecordKind, body string, replace bool) store.Import {
	t.Helper()
	values := map[string]string{}
	if replace {
		values["replace"] = "true"
	}
	rec := serve(s, multipartRequest(t, "/api/import/"+string(kind), upload{
		fileName: string(kind) + ".csv",
		body:     body,
		values:   values,
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("import %s: status %d: %s", kind, rec.Code, rec.Body.String())
	}
	resp := decode[struct {
		Import    store.Import `json:"import"`
		Message   string       `json:"message"`
		ReportURL string       `json:"reportUrl"`
	}](t, rec)
	if resp.Message == "" || resp.ReportURL != "/imports/"+resp.Import.ID.String() {
		t.Errorf("import response = %+v", resp)
	}
	return resp.Import
}

// ----------------------------------------------------------------------------
// Import and Query Tests
// ----------------------------------------------------------------------------

func TestImportAndQuery(t *testing.T) {
	s := newTestServer(t, testConfig(), service.Config{})

	imp := importFile(t, s, core.KindEquipment, equipmentCSV, true)
	if imp.Report.FinalRows != 3 || imp.UploadedFrom != "192.0.2.1" {
		t.Errorf("stored import = %+v", imp)
	}

	rec := get(s, "/api/data/equipment?limit=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("dataset status %d", rec.Code)
	}
	data := decode[DatasetResponse](t, rec)
	if data.Count != 3 || len(data.Rows) != 2 || data.Columns[0] != "device_id" {
		t.Errorf("dataset = %+v", data)
	}
	if data.Rows[1]["device_id"] != "CNC001" {
		t.Errorf("row 1 device_id = %v, want CNC001", data.Rows[1]["device_id"])
	}

	history := decode[[]store.Import](t, get(s, "/api/imports?kind=equipment"))
	if len(history) != 1 || history[0].ID != imp.ID {
		t.Errorf("history = %+v", history)
	}

	report := decode[store.Import](t, get(s, "/api/imports/"+imp.ID.String()+"/report"))
	if report.Report.OriginalRows != 3 || report.Report.ColumnMapping["device_id"] != "设备ID" {
		t.Errorf("report = %+v", report.Report)
	}

	rec = get(s, "/imports/"+imp.ID.String())
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "equipment.csv") {
		t.Errorf("report page status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("report page content type = %q", ct)
	}

	stats := decode[[]service.KindStats](t, get(s, "/api/stats"))
	if len(stats) != core.KindCount() {
		t.Errorf("stats has %d kinds", len(stats))
	}
}

func TestImport_FormVariants(t *testing.T) {
	s := newTestServer(t, testConfig(), service.Config{})

	rec := serve(s, multipartRequest(t, "/api/import", upload{
		field:    "dataFile",
		fileName: "物料.csv",
		body:     materialCSV,
		values:   map[string]string{"dataType": "material", "replace": "on"},
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	data := decode[DatasetResponse](t, get(s, "/api/data/material"))
	if data.Count != 1 || data.Rows[0]["material_id"] != "CNC001" {
		t.Errorf("material dataset = %+v", data)
	}
}

func TestExport(t *testing.T) {
	s := newTestServer(t, testConfig(), service.Config{})
	importFile(t, s, core.KindEquipment, equipmentCSV, true)

	rec := get(s, "/api/export/equipment")
	if rec.Code != http.StatusOK {
		t.Fatalf("csv export status %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "equipment_20240511_000000.csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 4 || !strings.HasPrefix(lines[0], "device_id,timestamp,status") {
		t.Errorf("csv export = %q", rec.Body.String())
	}

	rec = get(s, "/api/export/equipment?format=xlsx")
	if rec.Code != http.StatusOK || !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Errorf("xlsx export status %d", rec.Code)
	}
}

func TestOEEEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig(), service.Config{})
	importFile(t, s, core.KindEquipment, equipmentCSV, true)
	importFile(t, s, core.KindMaterial, materialCSV, true)

	rec := get(s, "/api/metrics/oee?days=10")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	summary := decode[oee.Summary](t, rec)
	if len(summary.Devices) != 2 || summary.Devices[0].OEE != 36 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestKindsAndHealth(t *testing.T) {
	s := newTestServer(t, testConfig(), service.Config{})

	kinds := decode[[]service.KindInfo](t, get(s, "/api/kinds"))
	if len(kinds) != core.KindCount() {
		t.Errorf("kinds = %d, want %d", len(kinds), core.KindCount())
	}

	rec := get(s, "/healthz")
	body := decode[map[string]any](t, rec)
	if rec.Code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("healthz = %d %v", rec.Code, body)
	}
}

// ----------------------------------------------------------------------------
// Error Tests
// ----------------------------------------------------------------------------

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name   string
		req    func(t *testing.T) *http.Request
		status int
		code   string
	}{
		{
			name: "unknown kind upload",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/import/gearbox", upload{fileName: "g.csv", body: equipmentCSV})
			},
			status: http.StatusNotFound,
			code:   "IMP002",
		},
		{
			name: "no file",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/import/equipment", upload{values: map[string]string{"replace": "true"}})
			},
			status: http.StatusBadRequest,
			code:   "FILE004",
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/import/equipment", strings.NewReader("x"))
			},
			status: http.StatusBadRequest,
			code:   "FILE004",
		},
		{
			name: "header only",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/import/equipment", upload{fileName: "e.csv", body: "设备ID,时间戳,设备状态\n"})
			},
			status: http.StatusUnprocessableEntity,
			code:   "IMP001",
		},
		{
			name: "too large",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/import/equipment", upload{fileName: "e.csv", body: equipmentCSV + strings.Repeat("CNC003,2024-05-10 08:00:00,运行中,1,0,正常\n", 20)})
			},
			status: http.StatusRequestEntityTooLarge,
			code:   "FILE001",
		},
		{
			name: "bad replace flag",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/import/equipment", upload{fileName: "e.csv", body: equipmentCSV, values: map[string]string{"replace": "maybe"}})
			},
			status: http.StatusBadRequest,
			code:   "REQ001",
		},
		{
			name:   "bad import id",
			req:    func(t *testing.T) *http.Request { return httptest.NewRequest(http.MethodGet, "/api/imports/xyz/report", nil) },
			status: http.StatusBadRequest,
			code:   "REQ001",
		},
		{
			name: "unknown import",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodGet, "/api/imports/"+uuid.NewString()+"/report", nil)
			},
			status: http.StatusNotFound,
			code:   "UPL003",
		},
		{
			name: "cancel unknown import",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/imports/"+uuid.NewString()+"/cancel", nil)
			},
			status: http.StatusNotFound,
			code:   "UPL003",
		},
		{
			name:   "oee without data",
			req:    func(t *testing.T) *http.Request { return httptest.NewRequest(http.MethodGet, "/api/metrics/oee", nil) },
			status: http.StatusNotFound,
			code:   "IMP004",
		},
		{
			name:   "negative days",
			req:    func(t *testing.T) *http.Request { return httptest.NewRequest(http.MethodGet, "/api/metrics/oee?days=-1", nil) },
			status: http.StatusBadRequest,
			code:   "REQ001",
		},
		{
			name:   "bad export format",
			req:    func(t *testing.T) *http.Request { return httptest.NewRequest(http.MethodGet, "/api/export/equipment?format=pdf", nil) },
			status: http.StatusBadRequest,
			code:   "FILE002",
		},
		{
			name:   "unknown dataset",
			req:    func(t *testing.T) *http.Request { return httptest.NewRequest(http.MethodGet, "/api/data/gearbox", nil) },
			status: http.StatusNotFound,
			code:   "IMP002",
		},
		{
			name:   "unknown history kind",
			req:    func(t *testing.T) *http.Request { return httptest.NewRequest(http.MethodGet, "/api/imports?kind=gearbox", nil) },
			status: http.StatusNotFound,
			code:   "IMP002",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, testConfig(), service.Config{MaxFileSize: 512})

			rec := serve(s, tt.req(t))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			body := decode[ErrorResponse](t, rec)
			if body.Code != tt.code || body.Message == "" {
				t.Errorf("error body = %+v, want code %s", body, tt.code)
			}
		})
	}
}

func TestErrorPage_RendersHTML(t *testing.T) {
	s := newTestServer(t, testConfig(), service.Config{})

	rec := get(s, "/imports/"+uuid.NewString())
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "UPL003") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

// ----------------------------------------------------------------------------
// Middleware Stack Tests
// ----------------------------------------------------------------------------

func TestUploadRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate.Enabled = true
	cfg.Rate.UploadLimit = 1
	s := newTestServer(t, cfg, service.Config{})

	importFile(t, s, core.KindEquipment, equipmentCSV, true)

	rec := serve(s, multipartRequest(t, "/api/import/equipment", upload{fileName: "e.csv", body: equipmentCSV}))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	if body := decode[ErrorResponse](t, rec); body.Code != "RATE001" {
		t.Errorf("code = %s, want RATE001", body.Code)
	}

	// Reads have their own budget.
	if rec := get(s, "/api/kinds"); rec.Code != http.StatusOK {
		t.Errorf("kinds after upload limit: status %d", rec.Code)
	}
}

func TestRateLimiter_Window(t *testing.T) {
	now := testNow
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     2,
		window:   time.Minute,
		now:      func() time.Time { return now },
	}

	if !rl.allow("a") || !rl.allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.allow("a") {
		t.Error("third request in window should be limited")
	}
	if !rl.allow("b") {
		t.Error("other clients have their own budget")
	}

	now = now.Add(61 * time.Second)
	if !rl.allow("a") {
		t.Error("budget should reset after the window")
	}
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret"}
	s := newTestServer(t, cfg, service.Config{})

	if rec := get(s, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("healthz without key: %d", rec.Code)
	}
	if rec := get(s, "/api/kinds"); rec.Code != http.StatusUnauthorized {
		t.Errorf("kinds without key: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/kinds", nil)
	req.Header.Set("X-API-Key", "secret")
	if rec := serve(s, req); rec.Code != http.StatusOK {
		t.Errorf("kinds with key: %d", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, testConfig(), service.Config{})
	rec := get(s, "/healthz")
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" || rec.Header().Get("Content-Security-Policy") == "" {
		t.Errorf("headers = %v", rec.Header())
	}

	cfg := testConfig()
	cfg.Security.EnableCSP = false
	s = newTestServer(t, cfg, service.Config{})
	if csp := get(s, "/healthz").Header().Get("Content-Security-Policy"); csp != "" {
		t.Errorf("CSP set while disabled: %q", csp)
	}
}

func TestActiveImports(t *testing.T) {
	s := newTestServer(t, testConfig(), service.Config{MaxConcurrent: 3})

	body := decode[struct {
		Imports []service.ActiveImport `json:"imports"`
		Limiter core.LimiterStatus     `json:"limiter"`
	}](t, get(s, "/api/imports/active"))
	if len(body.Imports) != 0 || body.Limiter.MaxConcurrent != 3 || body.Limiter.Available != 3 {
		t.Errorf("active = %+v", body)
	}
}
