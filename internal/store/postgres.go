package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/oeedash/internal/core"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS imports (
	id            UUID PRIMARY KEY,
	kind          TEXT NOT NULL,
	file_name     TEXT NOT NULL,
	replace_mode  BOOLEAN NOT NULL,
	uploaded_from TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL,
	report        JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS imports_kind_created ON imports (kind, created_at DESC);
CREATE TABLE IF NOT EXISTS dataset_rows (
	seq       BIGSERIAL PRIMARY KEY,
	kind      TEXT NOT NULL,
	import_id UUID NOT NULL REFERENCES imports (id),
	data      JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS dataset_rows_kind ON dataset_rows (kind, seq);
`

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects a pool using opts and applies the schema.
func OpenPostgres(ctx context.Context, opts Options) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		poolConfig.MinConns = int32(opts.MinConns)
	}
	if opts.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := NewPostgres(pool)
	if err := p.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgres wraps an existing pool. Call Migrate before first use on a fresh database.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}
	return nil
}

func (p *Postgres) SaveImport(ctx context.Context, imp Import, rows []core.Row) error {
	imp = normalizeImport(imp)

	report, err := json.Marshal(imp.Report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	encoded, err := encodeRows(rows)
	if err != nil {
		return err
	}
	id := pgtype.UUID{Bytes: imp.ID, Valid: true}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Writers of the same kind queue behind this lock until commit.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, string(imp.Kind)); err != nil {
		return fmt.Errorf("lock %s dataset: %w", imp.Kind, err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO imports (id, kind, file_name, replace_mode, uploaded_from, created_at, report)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, string(imp.Kind), imp.FileName, imp.Replace, imp.UploadedFrom, imp.CreatedAt, report)
	if err != nil {
		return fmt.Errorf("insert import: %w", err)
	}

	if imp.Replace {
		if _, err := tx.Exec(ctx, `DELETE FROM dataset_rows WHERE kind = $1`, string(imp.Kind)); err != nil {
			return fmt.Errorf("clear %s dataset: %w", imp.Kind, err)
		}
	}

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"dataset_rows"},
		[]string{"kind", "import_id", "data"},
		pgx.CopyFromSlice(len(encoded), func(i int) ([]any, error) {
			return []any{string(imp.Kind), id, encoded[i]}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy %s rows: %w", imp.Kind, err)
	}
	if int(copied) != len(encoded) {
		return fmt.Errorf("copy %s rows: wrote %d of %d", imp.Kind, copied, len(encoded))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

func (p *Postgres) Import(ctx context.Context, id uuid.UUID) (Import, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT id, kind, file_name, replace_mode, uploaded_from, created_at, report
		 FROM imports WHERE id = $1`, pgtype.UUID{Bytes: id, Valid: true})

	imp, err := scanPostgresImport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Import{}, ErrImportNotFound
	}
	return imp, err
}

func (p *Postgres) ListImports(ctx context.Context, kind core.RecordKind, limit int) ([]Import, error) {
	var pgLimit pgtype.Int8
	if limit > 0 {
		pgLimit = pgtype.Int8{Int64: int64(limit), Valid: true}
	}
	rows, err := p.pool.Query(ctx,
		`SELECT id, kind, file_name, replace_mode, uploaded_from, created_at, report
		 FROM imports
		 WHERE $1 = '' OR kind = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, string(kind), pgLimit)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	defer rows.Close()

	var out []Import
	for rows.Next() {
		imp, err := scanPostgresImport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, imp)
	}
	return out, rows.Err()
}

func (p *Postgres) Dataset(ctx context.Context, kind core.RecordKind) ([]core.Row, error) {
	def, err := definition(kind)
	if err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx,
		`SELECT data FROM dataset_rows WHERE kind = $1 ORDER BY seq`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query %s dataset: %w", kind, err)
	}
	defer rows.Close()

	out := []core.Row{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", kind, err)
		}
		row, err := core.DecodeRow(def, data)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (p *Postgres) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func scanPostgresImport(row pgx.Row) (Import, error) {
	var (
		imp       Import
		id        pgtype.UUID
		kind      string
		createdAt time.Time
		report    []byte
	)
	if err := row.Scan(&id, &kind, &imp.FileName, &imp.Replace, &imp.UploadedFrom, &createdAt, &report); err != nil {
		return Import{}, err
	}

	imp.ID = uuid.UUID(id.Bytes)
	imp.Kind = core.RecordKind(kind)
	imp.CreatedAt = createdAt.UTC()
	if err := json.Unmarshal(report, &imp.Report); err != nil {
		return Import{}, fmt.Errorf("decode report for import %s: %w", imp.ID, err)
	}
	return imp, nil
}
