package miner

import (
	"fmt"

	"mdr/internal/similarity"
)

// Defaults for Config. The thresholds and window width are the values
// published with the original MDR heuristic.
const (
	DefaultMaxWindow       = 10
	DefaultRegionThreshold = 0.3
	DefaultRecordThreshold = 0.3
	DefaultMinimumDepth    = 3
)

// Config controls one mining run. The zero value is not usable; start from
// DefaultConfig and override fields as needed.
type Config struct {
	// MaxWindow is the largest generalized-node width considered.
	MaxWindow int

	// RegionThreshold is the maximum score for two adjacent windows to count
	// as similar during region detection.
	RegionThreshold float64

	// RecordThreshold1 is the threshold used when splitting size-1 gnodes
	// into per-child records.
	RecordThreshold1 float64

	// RecordThresholdN is the threshold used when splitting size-n gnodes
	// into non-contiguous records.
	RecordThresholdN float64

	// MinimumDepth is the shallowest depth at which a node's children are
	// analyzed. The mining root counts as depth 0.
	MinimumDepth int

	// Ratio is the similarity primitive. Nil selects
	// similarity.LevenshteinRatio.
	Ratio similarity.Ratio

	// Observer, when non-nil, is invoked at phase boundaries. It is
	// instrumentation only and has no effect on results.
	Observer func(phase Phase)
}

// DefaultConfig returns a Config with the published defaults.
func DefaultConfig() Config {
	return Config{
		MaxWindow:        DefaultMaxWindow,
		RegionThreshold:  DefaultRegionThreshold,
		RecordThreshold1: DefaultRecordThreshold,
		RecordThresholdN: DefaultRecordThreshold,
		MinimumDepth:     DefaultMinimumDepth,
	}
}

// Validate rejects configurations before any traversal happens.
//
// Errors:
//   - MaxWindow must be positive.
//   - Every threshold must be within [0, 1].
//   - MinimumDepth must not be negative.
func (c Config) Validate() error {
	if c.MaxWindow <= 0 {
		return fmt.Errorf("miner: max window must be positive, got %d", c.MaxWindow)
	}
	for _, t := range []struct {
		name  string
		value float64
	}{
		{"region threshold", c.RegionThreshold},
		{"record threshold 1", c.RecordThreshold1},
		{"record threshold n", c.RecordThresholdN},
	} {
		if t.value < 0 || t.value > 1 {
			return fmt.Errorf("miner: %s must be in [0,1], got %g", t.name, t.value)
		}
	}
	if c.MinimumDepth < 0 {
		return fmt.Errorf("miner: minimum depth must not be negative, got %d", c.MinimumDepth)
	}
	return nil
}
