package fixes

import (
	"errors"
	"fmt"
)

// Policy holds the tunable knobs of option generation.
type Policy struct {
	// MaxCompressionRatio is the largest share of characters compress may remove.
	MaxCompressionRatio float64
	// MinGapMS is the gap extend_timing keeps before the next cue.
	MinGapMS int64
	// TailExtensionMS caps how far the final cue may be extended.
	TailExtensionMS int64
	// MinSplitWords is the fewest words a cue needs before it can be split.
	MinSplitWords int
}

// DefaultPolicy returns the stock generation policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxCompressionRatio: 0.4,
		MinGapMS:            80,
		TailExtensionMS:     2000,
		MinSplitWords:       4,
	}
}

// Validate rejects policies that would make every option meaningless.
func (p Policy) Validate() error {
	if p.MaxCompressionRatio <= 0 || p.MaxCompressionRatio >= 1 {
		return fmt.Errorf("max compression ratio must be between 0 and 1 (got %g)", p.MaxCompressionRatio)
	}
	if p.MinGapMS < 0 {
		return errors.New("min gap must not be negative")
	}
	if p.TailExtensionMS < 0 {
		return errors.New("tail extension must not be negative")
	}
	if p.MinSplitWords < 2 {
		return fmt.Errorf("min split words must be at least 2 (got %d)", p.MinSplitWords)
	}
	return nil
}
