package main

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"subconform/internal/api"
	"subconform/internal/qc"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var limits constraintFlags
	cmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Report constraint violations in a subtitle file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			data, err := readInput(args[0])
			if err != nil {
				return err
			}
			report, err := api.CheckFile(data, filepath.Base(args[0]), limits.resolve(cfg))
			if err != nil {
				return err
			}
			if ctx.jsonMode() {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				renderQCReport(cmd, report)
			}
			if !report.Summary.Passed {
				return fmt.Errorf("qc failed: %d errors, %d warnings", report.Summary.ErrorsCount, report.Summary.WarningsCount)
			}
			return nil
		},
	}
	limits.register(cmd)
	return cmd
}

func renderQCReport(cmd *cobra.Command, report api.QCReport) {
	out := cmd.OutOrStdout()
	summary := report.Summary
	if len(report.Issues) > 0 {
		rows := make([][]string, 0, len(report.Issues))
		for _, issue := range report.Issues {
			rows = append(rows, []string{
				strconv.Itoa(issue.CueIndex),
				string(issue.Type),
				string(issue.Severity),
				issue.Message,
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Cue", "Issue", "Severity", "Message"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignWrap},
		))
	}
	kind := statusOK
	verdict := "passed"
	if !summary.Passed {
		kind = statusError
		verdict = "failed"
	} else if summary.WarningsCount > 0 {
		kind = statusWarn
	}
	colorize := shouldColorize(out)
	fmt.Fprintln(out, renderStatusLine("QC", kind,
		fmt.Sprintf("%s: %d cues, %d errors, %d warnings", verdict, summary.TotalCues, summary.ErrorsCount, summary.WarningsCount),
		colorize))
}

func formatCPS(m qc.Metrics) string {
	if math.IsInf(m.CPS, 0) {
		return "inf"
	}
	return strconv.FormatFloat(m.CPS, 'f', 1, 64)
}
