package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"subconform/internal/logging"
	"subconform/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines     int
		follow    bool
		jobID     string
		component string
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show daemon logs from the API, or from the log file when the daemon is down",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := logs.NewStreamClient(cfg.Paths.APIBind, cfg.Paths.APIToken)
			if err != nil {
				return err
			}
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			printed, err := logs.Stream(runCtx, client, logs.Options{
				Lines:     lines,
				Follow:    follow,
				JobID:     jobID,
				Component: component,
				FilePath:  filepath.Join(cfg.Paths.LogDir, logging.LogFileName),
			}, func(evt logging.LogEvent) {
				if ctx.jsonMode() {
					_ = enc.Encode(evt)
					return
				}
				fmt.Fprintln(out, formatLogEvent(evt))
			}, func(line string) {
				fmt.Fprintln(out, line)
			})
			if err != nil {
				return err
			}
			if !printed && !follow {
				fmt.Fprintln(cmd.ErrOrStderr(), "No log entries")
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of recent entries to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new entries")
	cmd.Flags().StringVar(&jobID, "job", "", "Only show entries for this job id (daemon only)")
	cmd.Flags().StringVar(&component, "component", "", "Only show entries from this component (daemon only)")
	return cmd
}

func formatLogEvent(evt logging.LogEvent) string {
	var b strings.Builder
	if !evt.Timestamp.IsZero() {
		b.WriteString(evt.Timestamp.Local().Format(time.DateTime))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s ", strings.ToUpper(evt.Level))
	if evt.Component != "" {
		fmt.Fprintf(&b, "[%s] ", evt.Component)
	}
	b.WriteString(evt.Message)
	if evt.JobID != "" {
		fmt.Fprintf(&b, " job=%s", evt.JobID)
	}
	if evt.Stage != "" {
		fmt.Fprintf(&b, " stage=%s", evt.Stage)
	}
	return b.String()
}
