package main

import (
	"github.com/spf13/cobra"

	"subconform/internal/config"
	"subconform/internal/subtitles"
)

// constraintFlags overrides the configured QC limits for one invocation.
// Zero values keep the configured limit.
type constraintFlags struct {
	maxLines      int
	maxChars      int
	maxCPS        float64
	minDurationMS int64
}

func (f *constraintFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.maxLines, "max-lines", 0, "Maximum lines per cue (1-4)")
	cmd.Flags().IntVar(&f.maxChars, "max-chars", 0, "Maximum characters per line (20-80)")
	cmd.Flags().Float64Var(&f.maxCPS, "max-cps", 0, "Maximum reading speed in characters per second (10-30)")
	cmd.Flags().Int64Var(&f.minDurationMS, "min-duration", 0, "Minimum cue duration in milliseconds (100-2000)")
}

func (f *constraintFlags) resolve(cfg *config.Config) subtitles.Constraints {
	c := cfg.Constraints
	if f.maxLines > 0 {
		c.MaxLines = f.maxLines
	}
	if f.maxChars > 0 {
		c.MaxCharsPerLine = f.maxChars
	}
	if f.maxCPS > 0 {
		c.MaxCPS = f.maxCPS
	}
	if f.minDurationMS > 0 {
		c.MinDurationMS = f.minDurationMS
	}
	return c
}
