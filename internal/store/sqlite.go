package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/JonMunkholm/oeedash/internal/core"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS imports (
		id            TEXT PRIMARY KEY,
		kind          TEXT NOT NULL,
		file_name     TEXT NOT NULL,
		replace_mode  INTEGER NOT NULL,
		uploaded_from TEXT NOT NULL DEFAULT '',
		created_at    INTEGER NOT NULL,
		report        TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS imports_kind_created ON imports (kind, created_at)`,
	`CREATE TABLE IF NOT EXISTS dataset_rows (
		seq       INTEGER PRIMARY KEY AUTOINCREMENT,
		kind      TEXT NOT NULL,
		import_id TEXT NOT NULL REFERENCES imports (id),
		data      TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS dataset_rows_kind ON dataset_rows (kind, seq)`,
}

// SQLite is a Store backed by a single SQLite database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One connection serializes writers and keeps ":memory:" databases alive.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	stmts := append([]string{
		`PRAGMA foreign_keys = ON`,
		`PRAGMA busy_timeout = 5000`,
	}, sqliteSchema...)
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) SaveImport(ctx context.Context, imp Import, rows []core.Row) error {
	imp = normalizeImport(imp)

	report, err := json.Marshal(imp.Report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	encoded, err := encodeRows(rows)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO imports (id, kind, file_name, replace_mode, uploaded_from, created_at, report)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		imp.ID.String(), string(imp.Kind), imp.FileName, imp.Replace, imp.UploadedFrom,
		imp.CreatedAt.UnixNano(), string(report))
	if err != nil {
		return fmt.Errorf("insert import: %w", err)
	}

	if imp.Replace {
		if _, err := tx.ExecContext(ctx, `DELETE FROM dataset_rows WHERE kind = ?`, string(imp.Kind)); err != nil {
			return fmt.Errorf("clear %s dataset: %w", imp.Kind, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO dataset_rows (kind, import_id, data) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare row insert: %w", err)
	}
	defer stmt.Close()

	for i, data := range encoded {
		if _, err := stmt.ExecContext(ctx, string(imp.Kind), imp.ID.String(), string(data)); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

func (s *SQLite) Import(ctx context.Context, id uuid.UUID) (Import, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, file_name, replace_mode, uploaded_from, created_at, report
		 FROM imports WHERE id = ?`, id.String())

	imp, err := scanSQLiteImport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Import{}, ErrImportNotFound
	}
	return imp, err
}

func (s *SQLite) ListImports(ctx context.Context, kind core.RecordKind, limit int) ([]Import, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, file_name, replace_mode, uploaded_from, created_at, report
		 FROM imports
		 WHERE ? = '' OR kind = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`, string(kind), string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	defer rows.Close()

	var out []Import
	for rows.Next() {
		imp, err := scanSQLiteImport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, imp)
	}
	return out, rows.Err()
}

func (s *SQLite) Dataset(ctx context.Context, kind core.RecordKind) ([]core.Row, error) {
	def, err := definition(kind)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM dataset_rows WHERE kind = ? ORDER BY seq`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query %s dataset: %w", kind, err)
	}
	defer rows.Close()

	out := []core.Row{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", kind, err)
		}
		row, err := core.DecodeRow(def, []byte(data))
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLite) Close() error { return s.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLiteImport(sc scanner) (Import, error) {
	var (
		imp                  Import
		id, kind, reportJSON string
		createdAt            int64
	)
	err := sc.Scan(&id, &kind, &imp.FileName, &imp.Replace, &imp.UploadedFrom, &createdAt, &reportJSON)
	if err != nil {
		return Import{}, err
	}

	if imp.ID, err = uuid.Parse(id); err != nil {
		return Import{}, fmt.Errorf("parse import id %q: %w", id, err)
	}
	imp.Kind = core.RecordKind(kind)
	imp.CreatedAt = time.Unix(0, createdAt).UTC()
	if err := json.Unmarshal([]byte(reportJSON), &imp.Report); err != nil {
		return Import{}, fmt.Errorf("decode report for import %s: %w", id, err)
	}
	return imp, nil
}
