package subtitles

import (
	"errors"
	"fmt"
)

// Allowed constraint ranges.
const (
	MinMaxLines        = 1
	MaxMaxLines        = 4
	MinMaxCharsPerLine = 20
	MaxMaxCharsPerLine = 80
	MinMaxCPS          = 10.0
	MaxMaxCPS          = 30.0
	MinMinDurationMS   = 100
	MaxMinDurationMS   = 2000
)

// ErrInvalidConstraints marks a constraint set outside the supported ranges.
var ErrInvalidConstraints = errors.New("invalid constraints")

// Constraints is the readability limit set fixed for the lifetime of a job.
type Constraints struct {
	MaxLines        int     `json:"max_lines" toml:"max_lines"`
	MaxCharsPerLine int     `json:"max_chars_per_line" toml:"max_chars_per_line"`
	MaxCPS          float64 `json:"max_cps" toml:"max_cps"`
	MinDurationMS   int64   `json:"min_duration_ms" toml:"min_duration_ms"`
}

// DefaultConstraints returns the broadcast defaults.
func DefaultConstraints() Constraints {
	return Constraints{
		MaxLines:        2,
		MaxCharsPerLine: 42,
		MaxCPS:          17.0,
		MinDurationMS:   500,
	}
}

// Validate checks every limit against its supported range.
func (c Constraints) Validate() error {
	if c.MaxLines < MinMaxLines || c.MaxLines > MaxMaxLines {
		return fmt.Errorf("%w: max_lines must be between %d and %d (got %d)", ErrInvalidConstraints, MinMaxLines, MaxMaxLines, c.MaxLines)
	}
	if c.MaxCharsPerLine < MinMaxCharsPerLine || c.MaxCharsPerLine > MaxMaxCharsPerLine {
		return fmt.Errorf("%w: max_chars_per_line must be between %d and %d (got %d)", ErrInvalidConstraints, MinMaxCharsPerLine, MaxMaxCharsPerLine, c.MaxCharsPerLine)
	}
	if c.MaxCPS < MinMaxCPS || c.MaxCPS > MaxMaxCPS {
		return fmt.Errorf("%w: max_cps must be between %.0f and %.0f (got %g)", ErrInvalidConstraints, MinMaxCPS, MaxMaxCPS, c.MaxCPS)
	}
	if c.MinDurationMS < MinMinDurationMS || c.MinDurationMS > MaxMinDurationMS {
		return fmt.Errorf("%w: min_duration_ms must be between %d and %d (got %d)", ErrInvalidConstraints, MinMinDurationMS, MaxMinDurationMS, c.MinDurationMS)
	}
	return nil
}
