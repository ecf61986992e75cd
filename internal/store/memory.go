package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/JonMunkholm/oeedash/internal/core"
)

// Memory is a Store held in process memory. Safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	imports  []Import
	datasets map[core.RecordKind][]core.Row
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{datasets: make(map[core.RecordKind][]core.Row)}
}

func (m *Memory) SaveImport(ctx context.Context, imp Import, rows []core.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	imp = normalizeImport(imp)

	cloned := make([]core.Row, len(rows))
	for i, row := range rows {
		cloned[i] = row.Clone()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.imports = append(m.imports, imp)
	if imp.Replace {
		m.datasets[imp.Kind] = cloned
	} else {
		m.datasets[imp.Kind] = append(m.datasets[imp.Kind], cloned...)
	}
	return nil
}

func (m *Memory) Import(ctx context.Context, id uuid.UUID) (Import, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, imp := range m.imports {
		if imp.ID == id {
			return imp, nil
		}
	}
	return Import{}, ErrImportNotFound
}

func (m *Memory) ListImports(ctx context.Context, kind core.RecordKind, limit int) ([]Import, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Import
	for i := len(m.imports) - 1; i >= 0; i-- {
		if kind == "" || m.imports[i].Kind == kind {
			out = append(out, m.imports[i])
		}
	}
	// Stable keeps later inserts first among equal timestamps.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Dataset(ctx context.Context, kind core.RecordKind) ([]core.Row, error) {
	if _, err := definition(kind); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.datasets[kind]
	out := make([]core.Row, len(stored))
	for i, row := range stored {
		out[i] = row.Clone()
	}
	return out, nil
}

func (m *Memory) Ping(ctx context.Context) error { return ctx.Err() }

func (m *Memory) Close() error { return nil }
