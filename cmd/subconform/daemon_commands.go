package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"subconform/internal/daemonctl"
)

const (
	startWaitTimeout = 15 * time.Second
	stopGracePeriod  = 10 * time.Second
)

func newStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Paths.APIBind == "" {
				return errors.New("paths.api_bind is empty; run \"serve\" in the foreground instead")
			}
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			opts := daemonctl.LaunchOptions{
				ConfigPath: ctx.configPath,
				APIBind:    cfg.Paths.APIBind,
				APIToken:   cfg.Paths.APIToken,
			}
			result, err := daemonctl.EnsureStarted(cmd.Context(), exe, opts, startWaitTimeout)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch result.State {
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintf(out, "Daemon already running (pid %d) on %s\n", result.PID, cfg.Paths.APIBind)
			default:
				fmt.Fprintf(out, "Daemon started (pid %d) on %s\n", result.PID, cfg.Paths.APIBind)
			}
			return nil
		},
	}
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the background daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(cmd.Context(), cfg.Paths.APIBind, cfg.Paths.APIToken, stopGracePeriod)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(out, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(out, "Daemon (pid %d) did not stop within %s and was killed\n", result.PID, stopGracePeriod)
				return nil
			}
			fmt.Fprintf(out, "Daemon (pid %d) stopped\n", result.PID)
			return nil
		},
	}
}
