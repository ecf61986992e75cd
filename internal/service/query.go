package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/JonMunkholm/oeedash/internal/core"
	"github.com/JonMunkholm/oeedash/internal/oee"
	"github.com/JonMunkholm/oeedash/internal/store"
)

// DefaultHistoryLimit caps ListImports when the caller passes no limit.
const DefaultHistoryLimit = 50

// Dataset returns the stored canonical rows of kind.
func (s *Service) Dataset(ctx context.Context, kind core.RecordKind) ([]core.Row, error) {
	if _, ok := core.Get(kind); !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnsupportedKind, kind)
	}
	rows, err := s.store.Dataset(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("load %s dataset: %w", kind, err)
	}
	return rows, nil
}

// ListImports returns the import history of kind, newest first. An empty kind lists all.
func (s *Service) ListImports(ctx context.Context, kind core.RecordKind, limit int) ([]store.Import, error) {
	if kind != "" {
		if _, ok := core.Get(kind); !ok {
			return nil, fmt.Errorf("%w: %q", core.ErrUnsupportedKind, kind)
		}
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	imports, err := s.store.ListImports(ctx, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	if imports == nil {
		imports = []store.Import{}
	}
	return imports, nil
}

// GetImport returns one stored import record.
func (s *Service) GetImport(ctx context.Context, id uuid.UUID) (store.Import, error) {
	return s.store.Import(ctx, id)
}

// KindStats summarizes the stored dataset of one kind.
type KindStats struct {
	Kind       core.RecordKind `json:"kind"`
	Label      string          `json:"label"`
	Rows       int             `json:"rows"`
	LastImport *store.Import   `json:"lastImport,omitempty"`
}

// Stats returns row counts and the latest import for every registered kind.
func (s *Service) Stats(ctx context.Context) ([]KindStats, error) {
	defs := core.All()
	out := make([]KindStats, 0, len(defs))
	for _, def := range defs {
		rows, err := s.store.Dataset(ctx, def.Kind)
		if err != nil {
			return nil, fmt.Errorf("load %s dataset: %w", def.Kind, err)
		}
		stats := KindStats{Kind: def.Kind, Label: def.Label, Rows: len(rows)}

		last, err := s.store.ListImports(ctx, def.Kind, 1)
		if err != nil {
			return nil, fmt.Errorf("list %s imports: %w", def.Kind, err)
		}
		if len(last) > 0 {
			stats.LastImport = &last[0]
		}
		out = append(out, stats)
	}
	return out, nil
}

// OEE computes per-device effectiveness over the last days of stored data.
// A non-positive days selects the configured window. Returns ErrNoData when no
// equipment rows are stored.
func (s *Service) OEE(ctx context.Context, days int) (oee.Summary, error) {
	if days <= 0 {
		days = s.cfg.OEEWindowDays
	}

	equipment, err := s.store.Dataset(ctx, core.KindEquipment)
	if err != nil {
		return oee.Summary{}, fmt.Errorf("load equipment dataset: %w", err)
	}
	if len(equipment) == 0 {
		return oee.Summary{}, fmt.Errorf("%w: import equipment data first", ErrNoData)
	}
	material, err := s.store.Dataset(ctx, core.KindMaterial)
	if err != nil {
		return oee.Summary{}, fmt.Errorf("load material dataset: %w", err)
	}

	window := oee.LastDays(s.cfg.Now(), days)
	return oee.Calculate(core.EquipmentRecords(equipment), core.MaterialRecords(material), window, s.cfg.OEE), nil
}
