package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"subconform/internal/api"
	"subconform/internal/fixes"
)

func newSuggestCommand(ctx *commandContext) *cobra.Command {
	var (
		limits constraintFlags
		index  int
	)
	cmd := &cobra.Command{
		Use:   "suggest FILE --cue N",
		Short: "List ranked fix options for one cue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("cue") {
				return fmt.Errorf("--cue is required")
			}
			logger, err := ctx.oneShotLogger()
			if err != nil {
				return err
			}
			data, err := readInput(args[0])
			if err != nil {
				return err
			}
			suggestions, err := api.SuggestFile(newOrchestrator(cfg, logger), data, filepath.Base(args[0]), limits.resolve(cfg), index)
			if err != nil {
				return err
			}
			if ctx.jsonMode() {
				return writeJSON(cmd, suggestions)
			}
			renderSuggestions(cmd, suggestions)
			return nil
		},
	}
	cmd.Flags().IntVar(&index, "cue", 0, "Cue index as numbered in the file")
	limits.register(cmd)
	return cmd
}

func renderSuggestions(cmd *cobra.Command, s fixes.Suggestions) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	for _, line := range renderSectionHeader(fmt.Sprintf("Cue %d", s.CueIndex), colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, s.OriginalText)
	fmt.Fprintf(out, "cps %s, %d lines, longest line %d, %d ms\n\n",
		formatCPS(s.Metrics), s.Metrics.LineCount, s.Metrics.MaxLineLength, s.Metrics.DurationMS)
	for _, issue := range s.Issues {
		fmt.Fprintln(out, renderStatusLine(string(issue.Type), severityKind(string(issue.Severity)), issue.Message, colorize))
	}

	rows := make([][]string, 0, len(s.Options))
	for i, opt := range s.Options {
		detail := opt.PreviewText
		if !opt.Applicable && opt.Reason != "" {
			detail = opt.Reason
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			string(opt.Type),
			yesNo(opt.Applicable),
			strconv.FormatFloat(opt.Confidence, 'f', 2, 64),
			strings.ReplaceAll(detail, "\n", " / "),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Fix", "Applicable", "Confidence", "Preview"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignWrap},
	))
}
