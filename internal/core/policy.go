package core

// Default policy thresholds.
const (
	DefaultMinAcceptedRatio = 0.3
	DefaultMinAcceptedRows  = 10
	DefaultAugmentBelow     = 20
	DefaultAugmentTarget    = 50
)

// Policy holds the tunable thresholds of the pipeline.
type Policy struct {
	// MinAcceptedRatio and MinAcceptedRows control the minimum-sample override: when the
	// rows passing every rule are fewer than both MinAcceptedRatio of the batch and
	// MinAcceptedRows, filtering is skipped and the whole normalized batch is kept.
	MinAcceptedRatio float64
	MinAcceptedRows  int

	// AugmentBelow and AugmentTarget control the augmenter: a dataset smaller than
	// AugmentBelow receives AugmentTarget minus its size synthetic rows.
	AugmentBelow   int
	AugmentTarget  int
	DisableAugment bool
}

// DefaultPolicy returns the standard thresholds.
func DefaultPolicy() Policy {
	return Policy{
		MinAcceptedRatio: DefaultMinAcceptedRatio,
		MinAcceptedRows:  DefaultMinAcceptedRows,
		AugmentBelow:     DefaultAugmentBelow,
		AugmentTarget:    DefaultAugmentTarget,
	}
}

// overrideFires reports whether passed rows out of total trigger the override.
func (p Policy) overrideFires(passed, total int) bool {
	if total == 0 {
		return false
	}
	return float64(passed) < p.MinAcceptedRatio*float64(total) && passed < p.MinAcceptedRows
}

// syntheticCount returns how many rows the augmenter should append to a dataset of size n.
func (p Policy) syntheticCount(n int) int {
	if p.DisableAugment || n >= p.AugmentBelow || p.AugmentTarget <= n {
		return 0
	}
	return p.AugmentTarget - n
}
