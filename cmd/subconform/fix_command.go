package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"subconform/internal/api"
	"subconform/internal/fileutil"
)

func newFixCommand(ctx *commandContext) *cobra.Command {
	var (
		limits    constraintFlags
		output    string
		issueType string
		maxFixes  int
	)
	cmd := &cobra.Command{
		Use:   "fix FILE",
		Short: "Apply the best automatic fix to every failing cue",
		Long: "Apply the best automatic fix to every failing cue and write the repaired file.\n" +
			"Without --output the repaired subtitles go to stdout and the summary to stderr.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			output = strings.TrimSpace(output)
			if ctx.jsonMode() && output == "" {
				return fmt.Errorf("--json requires --output for the repaired file")
			}
			logger, err := ctx.oneShotLogger()
			if err != nil {
				return err
			}
			data, err := readInput(args[0])
			if err != nil {
				return err
			}
			result, err := api.FixFile(cmd.Context(), newOrchestrator(cfg, logger), data, filepath.Base(args[0]), limits.resolve(cfg), api.AutoFixRequest{
				IssueType: issueType,
				MaxFixes:  maxFixes,
			})
			if err != nil {
				return err
			}

			summaryOut := cmd.OutOrStdout()
			if output == "" {
				if _, err := cmd.OutOrStdout().Write(result.Output); err != nil {
					return err
				}
				summaryOut = cmd.ErrOrStderr()
			} else if err := fileutil.WriteFileAtomic(output, result.Output, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}

			if ctx.jsonMode() {
				return writeJSON(cmd, result)
			}
			fix := result.AutoFix
			fmt.Fprintf(summaryOut, "Fixed %d cues, %d failed, %d skipped; %d issues remain\n",
				fix.FixedCount, fix.FailedCount, fix.SkippedCount, fix.RemainingIssues)
			for _, failed := range fix.FailedCues {
				fmt.Fprintf(summaryOut, "  cue %d: %s\n", failed.CueIndex, failed.Reason)
			}
			if output != "" {
				fmt.Fprintf(summaryOut, "Wrote %s\n", output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the repaired file here instead of stdout")
	cmd.Flags().StringVar(&issueType, "issue-type", "", "Only fix cues with this issue type")
	cmd.Flags().IntVar(&maxFixes, "max-fixes", 0, "Stop after this many fixed cues (0 for no limit)")
	limits.register(cmd)
	return cmd
}
