package core

import (
	"log/slog"
	"math/rand/v2"
	"time"
)

// Options configures a Pipeline. Zero values fall back to defaults.
type Options struct {
	Policy   Policy
	Location *time.Location // zone for timestamps without an offset; UTC if nil
	Logger   *slog.Logger

	// NewSource returns the random source for one invocation. Defaults to a time-seeded PCG.
	NewSource func() Source
	// Now returns the reference time for synthetic rows. Defaults to time.Now.
	Now func() time.Time
}

// Pipeline runs the Mapper, Normalizer, Validator/Filter, Backfiller and Augmenter stages
// over one batch of uploaded rows. Safe for concurrent use; invocations share no state.
type Pipeline struct {
	policy     Policy
	normalizer *Normalizer
	logger     *slog.Logger
	newSource  func() Source
	now        func() time.Time
}

// NewPipeline creates a pipeline with the given options.
func NewPipeline(opts Options) *Pipeline {
	if opts.Policy == (Policy{}) {
		opts.Policy = DefaultPolicy()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.NewSource == nil {
		opts.NewSource = func() Source {
			seed := uint64(time.Now().UnixNano())
			return rand.New(rand.NewPCG(seed, seed>>1))
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		policy:     opts.Policy,
		normalizer: NewNormalizer(opts.Location, opts.Logger),
		logger:     opts.Logger,
		newSource:  opts.NewSource,
		now:        opts.Now,
	}
}

// SeededSource returns a source factory that yields the same sequence on every invocation.
func SeededSource(seed uint64) func() Source {
	return func() Source {
		return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// Policy returns the thresholds the pipeline was built with.
func (p *Pipeline) Policy() Policy {
	return p.policy
}

// Process normalizes and validates one batch of rows of the given kind.
//
// Fatal errors are ErrUnsupportedKind, ErrEmptyInput and *RequiredFieldAbsentError.
// Per-cell and per-row problems never fail the call; they are tallied in the report.
func (p *Pipeline) Process(kind RecordKind, raw []RawRow) (*Result, error) {
	def, ok := Get(kind)
	if !ok {
		return nil, ErrUnsupportedKind
	}
	return p.ProcessDefinition(def, raw)
}

// ProcessDefinition is Process with an explicit kind definition.
func (p *Pipeline) ProcessDefinition(def KindDefinition, raw []RawRow) (*Result, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyInput
	}

	log := p.logger.With("kind", def.Kind)
	src := p.newSource()

	mapped, mapping := MapColumns(def, raw)
	if mapping.Matched() == 0 {
		log.Warn("no upload column matched", "rows", len(raw))
	}
	if err := checkRequired(def, mapped); err != nil {
		return nil, err
	}

	normalized, failures := p.normalizer.Normalize(def, mapped)

	outcome := Filter(def, normalized, p.policy, src)
	if outcome.OverrideApplied {
		log.Warn("minimum-sample override applied",
			"passed", outcome.Passed,
			"total", len(normalized),
		)
	}

	rows := outcome.Accepted
	filled := Backfill(def, rows)
	if len(filled) > 0 {
		// Backfilled values can break cross-field constraints; repair again.
		applyCorrections(def, rows, src)
	}
	unfilled := unfilledFields(def, rows)
	for field, n := range unfilled {
		log.Warn("field left empty after backfill", "field", field, "rows", n)
	}

	rows, synthetic := Augment(def, rows, p.policy, src, p.now())
	if synthetic > 0 {
		log.Warn("synthetic rows appended", "accepted", len(outcome.Accepted), "synthetic", synthetic)
	}

	report := buildReport(def, reportInput{
		original:  len(raw),
		mapping:   mapping,
		failures:  failures,
		filter:    outcome,
		backfill:  filled,
		unfilled:  unfilled,
		synthetic: synthetic,
		final:     len(rows),
		policy:    p.policy,
	})

	log.Info("batch processed",
		"original", report.OriginalRows,
		"accepted", report.AcceptedRows,
		"rejected", report.RejectedRows,
		"parse_failures", len(failures),
		"final", report.FinalRows,
	)

	return &Result{Kind: def.Kind, Rows: rows, Report: report}, nil
}
