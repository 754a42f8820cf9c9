package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"subconform/internal/daemonctl"
	"subconform/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check directories, the job database, and the translation provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			failed := preflight.Failed(results)
			daemonState := "not running"
			if cfg.Paths.APIBind != "" {
				if health, err := daemonctl.Probe(cmd.Context(), cfg.Paths.APIBind, cfg.Paths.APIToken); err == nil {
					daemonState = fmt.Sprintf("running (pid %d, %s)", health.PID, health.Status)
				}
			}

			if ctx.jsonMode() {
				if err := writeJSON(cmd, struct {
					ConfigPath string             `json:"config_path"`
					Daemon     string             `json:"daemon"`
					Passed     bool               `json:"passed"`
					Checks     []preflight.Result `json:"checks"`
				}{ctx.configPath, daemonState, len(failed) == 0, results}); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range renderSectionHeader("subconform "+version, colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out, renderStatusLine("Config", statusInfo, ctx.configPath, colorize))
				fmt.Fprintln(out, renderStatusLine("API", statusInfo, cfg.Paths.APIBind, colorize))
				fmt.Fprintln(out, renderStatusLine("Daemon", statusInfo, daemonState, colorize))
				for _, r := range results {
					kind := statusOK
					if !r.Passed {
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
				}
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d of %d checks failed", len(failed), len(results))
			}
			return nil
		},
	}
}
