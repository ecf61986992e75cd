// Package store persists import records and the canonical dataset of each record kind.
//
// Three backends share one contract: PostgreSQL through a pgx pool for the server,
// SQLite for the CLI and single-node deployments, and an in-memory store for tests
// and database-less runs. Open selects one from a connection URL.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/oeedash/internal/core"
)

// ErrImportNotFound is returned when no import record has the requested ID.
var ErrImportNotFound = errors.New("import not found")

// Import is the stored record of one processed upload.
type Import struct {
	ID           uuid.UUID       `json:"id"`
	Kind         core.RecordKind `json:"kind"`
	FileName     string          `json:"fileName"`
	Replace      bool            `json:"replace"`
	UploadedFrom string          `json:"uploadedFrom,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	Report       core.Report     `json:"report"`
}

// Store is the persistence contract used by the import service.
//
// SaveImport is atomic: the import record and its rows are written together or not at
// all. Writes to the same kind are serialized, so a replace never interleaves with a
// concurrent append.
type Store interface {
	// SaveImport records imp and stores rows as the kind's dataset (imp.Replace) or
	// appends them to it.
	SaveImport(ctx context.Context, imp Import, rows []core.Row) error

	// Import returns the record with the given ID or ErrImportNotFound.
	Import(ctx context.Context, id uuid.UUID) (Import, error)

	// ListImports returns import records newest first. An empty kind lists every kind;
	// a non-positive limit returns all records.
	ListImports(ctx context.Context, kind core.RecordKind, limit int) ([]Import, error)

	// Dataset returns the stored canonical rows of kind in insertion order.
	Dataset(ctx context.Context, kind core.RecordKind) ([]core.Row, error)

	Ping(ctx context.Context) error
	Close() error
}

// Options configures Open.
type Options struct {
	// URL selects the backend: empty for memory, "sqlite:" or "file:" prefixes (or a
	// path ending in .db) for SQLite, "postgres://" or "postgresql://" for PostgreSQL.
	URL string

	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Backend names returned by Describe.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Describe returns the backend name Open would select for url.
func Describe(url string) string {
	switch {
	case url == "":
		return BackendMemory
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return BackendPostgres
	default:
		return BackendSQLite
	}
}

// Open connects to the backend selected by opts.URL and prepares its schema.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch Describe(opts.URL) {
	case BackendMemory:
		return NewMemory(), nil
	case BackendPostgres:
		return OpenPostgres(ctx, opts)
	default:
		return OpenSQLite(ctx, sqlitePath(opts.URL))
	}
}

// sqlitePath strips the "sqlite:" scheme; "file:" URIs are passed to the driver as is.
func sqlitePath(url string) string {
	if rest, ok := strings.CutPrefix(url, "sqlite://"); ok {
		return rest
	}
	if rest, ok := strings.CutPrefix(url, "sqlite:"); ok {
		return rest
	}
	return url
}

// definition resolves the kind definition needed to decode stored rows.
func definition(kind core.RecordKind) (core.KindDefinition, error) {
	def, ok := core.Get(kind)
	if !ok {
		return core.KindDefinition{}, fmt.Errorf("%w: %q", core.ErrUnsupportedKind, kind)
	}
	return def, nil
}

// encodeRows serializes rows for the database backends.
func encodeRows(rows []core.Row) ([][]byte, error) {
	out := make([][]byte, len(rows))
	for i, row := range rows {
		data, err := core.EncodeRow(row)
		if err != nil {
			return nil, fmt.Errorf("encode row %d: %w", i, err)
		}
		out[i] = data
	}
	return out, nil
}

// normalizeImport fills the ID and creation time when the caller left them empty.
func normalizeImport(imp Import) Import {
	if imp.ID == uuid.Nil {
		imp.ID = uuid.New()
	}
	if imp.CreatedAt.IsZero() {
		imp.CreatedAt = time.Now()
	}
	imp.CreatedAt = imp.CreatedAt.UTC()
	if imp.Kind == "" {
		imp.Kind = imp.Report.Kind
	}
	return imp
}
