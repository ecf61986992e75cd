package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/oeedash/internal/core"
	"github.com/JonMunkholm/oeedash/internal/logging"
	"github.com/JonMunkholm/oeedash/internal/reader"
	"github.com/JonMunkholm/oeedash/internal/store"
)

// ImportRequest is one uploaded file destined for a record kind.
type ImportRequest struct {
	Kind     core.RecordKind
	FileName string
	Data     io.Reader
	// Replace swaps the stored dataset of Kind for this upload; otherwise rows are appended.
	Replace bool
	// UploadedFrom is the client address recorded with the import.
	UploadedFrom string
}

// ImportOutcome is the result of a successful import.
type ImportOutcome struct {
	Import   store.Import  `json:"import"`
	Format   reader.Format `json:"format"`
	Encoding string        `json:"encoding,omitempty"`
	Sheet    string        `json:"sheet,omitempty"`
	Rows     []core.Row    `json:"-"`
}

// ActiveImport describes an import that is still being processed.
type ActiveImport struct {
	ID        uuid.UUID       `json:"id"`
	Kind      core.RecordKind `json:"kind"`
	FileName  string          `json:"fileName"`
	StartedAt time.Time       `json:"startedAt"`
}

type activeImport struct {
	info   ActiveImport
	cancel context.CancelCauseFunc
}

// Import reads req.Data, runs the pipeline for req.Kind and stores the result.
//
// Fatal pipeline errors (empty input, unknown kind, absent required field) and file
// errors are returned unchanged for mapping by core.MapError. Returns
// core.ErrTooManyImports if no slot frees up in time, and ErrImportCancelled if
// CancelImport is called while the import runs.
func (s *Service) Import(ctx context.Context, req ImportRequest) (*ImportOutcome, error) {
	def, ok := core.Get(req.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnsupportedKind, req.Kind)
	}
	if req.Data == nil {
		return nil, ErrNoFile
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancelTimeout := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancelTimeout()
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	id := uuid.New()
	s.track(id, req, cancel)
	defer s.untrack(id)

	logger := logging.WithFields(ctx,
		"import_id", id,
		"kind", req.Kind,
		"file", req.FileName,
	)
	logger.Info("import started", "replace", req.Replace)

	data, err := readLimited(req.Data, s.cfg.MaxFileSize)
	if err != nil {
		return nil, err
	}

	tbl, err := reader.ReadBytes(req.FileName, data)
	if err != nil {
		return nil, err
	}
	logger.Debug("file read",
		"format", tbl.Format,
		"encoding", tbl.Encoding,
		"rows", len(tbl.Rows),
	)
	if err := interrupted(ctx); err != nil {
		return nil, err
	}

	res, err := s.pipeline.ProcessDefinition(def, tbl.Rows)
	if err != nil {
		logger.Warn("import rejected", "error", err)
		return nil, err
	}
	if err := interrupted(ctx); err != nil {
		return nil, err
	}

	imp := store.Import{
		ID:           id,
		Kind:         req.Kind,
		FileName:     req.FileName,
		Replace:      req.Replace,
		UploadedFrom: req.UploadedFrom,
		CreatedAt:    s.cfg.Now().UTC(),
		Report:       res.Report,
	}
	if err := s.store.SaveImport(ctx, imp, res.Rows); err != nil {
		if cause := interrupted(ctx); cause != nil {
			return nil, cause
		}
		return nil, fmt.Errorf("save import: %w", err)
	}

	logger.Info("import stored",
		"rows", len(res.Rows),
		"accepted", res.Report.AcceptedRows,
		"rejected", res.Report.RejectedRows,
		"synthetic", res.Report.SyntheticRows,
	)

	return &ImportOutcome{
		Import:   imp,
		Format:   tbl.Format,
		Encoding: tbl.Encoding,
		Sheet:    tbl.Sheet,
		Rows:     res.Rows,
	}, nil
}

// CancelImport cancels an import that is still running.
func (s *Service) CancelImport(id uuid.UUID) error {
	s.mu.RLock()
	a, ok := s.active[id]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s is not running", store.ErrImportNotFound, id)
	}
	a.cancel(ErrImportCancelled)
	slog.Info("import cancelled", "import_id", id)
	return nil
}

// ActiveImports lists running imports, oldest first.
func (s *Service) ActiveImports() []ActiveImport {
	s.mu.RLock()
	out := make([]ActiveImport, 0, len(s.active))
	for _, a := range s.active {
		out = append(out, a.info)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

func (s *Service) track(id uuid.UUID, req ImportRequest, cancel context.CancelCauseFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[id] = &activeImport{
		info: ActiveImport{
			ID:        id,
			Kind:      req.Kind,
			FileName:  req.FileName,
			StartedAt: s.cfg.Now(),
		},
		cancel: cancel,
	}
}

func (s *Service) untrack(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, id)
}

// readLimited reads at most limit bytes, failing with ErrFileTooLarge beyond that.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, limit)
	}
	return data, nil
}

// interrupted returns the reason ctx ended, or nil while it is live.
func interrupted(ctx context.Context) error {
	if ctx.Err() == nil {
		return nil
	}
	cause := context.Cause(ctx)
	if errors.Is(cause, ErrImportCancelled) {
		return ErrImportCancelled
	}
	return cause
}
