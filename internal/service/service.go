// Package service orchestrates imports: it bounds concurrency, reads uploaded files,
// runs the normalisation pipeline and persists the canonical rows. It also answers the
// read-side queries of the dashboard.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/oeedash/internal/core"
	"github.com/JonMunkholm/oeedash/internal/oee"
	"github.com/JonMunkholm/oeedash/internal/store"
)

// Service errors. Messages are matched by core.MapError.
var (
	ErrFileTooLarge    = errors.New("file too large")
	ErrNoFile          = errors.New("no file provided")
	ErrNoData          = errors.New("no dataset stored")
	ErrImportCancelled = errors.New("import cancelled")
)

// Defaults applied by New when a Config field is zero.
const (
	DefaultMaxFileSize   = 32 << 20
	DefaultImportTimeout = 2 * time.Minute
	DefaultOEEWindowDays = 30
)

// Config holds the service settings.
type Config struct {
	MaxFileSize   int64
	MaxConcurrent int
	MaxWait       time.Duration
	Timeout       time.Duration

	OEE           oee.Config
	OEEWindowDays int

	// Now is the clock used for import timestamps and OEE windows. Defaults to time.Now.
	Now func() time.Time
}

// Service provides the import and query operations used by the web layer and the CLI.
type Service struct {
	store    store.Store
	pipeline *core.Pipeline
	limiter  *core.ImportLimiter
	cfg      Config

	mu     sync.RWMutex
	active map[uuid.UUID]*activeImport
}

// New creates a Service on top of st and p.
func New(st store.Store, p *core.Pipeline, cfg Config) *Service {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultImportTimeout
	}
	if cfg.OEEWindowDays <= 0 {
		cfg.OEEWindowDays = DefaultOEEWindowDays
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		store:    st,
		pipeline: p,
		limiter:  core.NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		cfg:      cfg,
		active:   make(map[uuid.UUID]*activeImport),
	}
}

// Store returns the underlying store.
func (s *Service) Store() store.Store {
	return s.store
}

// MaxFileSize returns the upload size limit in bytes.
func (s *Service) MaxFileSize() int64 {
	return s.cfg.MaxFileSize
}

// KindInfo describes one registered record kind and its accepted field formats.
type KindInfo struct {
	Kind   core.RecordKind  `json:"kind"`
	Label  string           `json:"label"`
	Fields []core.FieldRule `json:"fields"`
}

// Kinds lists every registered record kind.
func (s *Service) Kinds() []KindInfo {
	defs := core.All()
	out := make([]KindInfo, len(defs))
	for i, def := range defs {
		out[i] = KindInfo{Kind: def.Kind, Label: def.Label, Fields: core.FieldRules(def)}
	}
	return out
}

// Ping checks that the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping store: %w", err)
	}
	return nil
}

// LimiterStatus returns the current import slot usage.
func (s *Service) LimiterStatus() core.LimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until every running import finishes or ctx is done.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
