package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"subconform/internal/daemon"
	"subconform/internal/jobstore"
	"subconform/internal/logging"
	"subconform/internal/notifications"
	"subconform/internal/preflight"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const logStreamCapacity = 2048

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the job daemon and HTTP API in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			hub := logging.NewStreamHub(logStreamCapacity)
			logger, err := logging.NewFromConfig(cfg, hub)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			logging.PruneLogs(logger, cfg.Paths.LogDir,
				time.Duration(cfg.Logging.RetentionDays)*24*time.Hour,
				filepath.Join(cfg.Paths.LogDir, logging.LogFileName),
			)

			results := preflight.RunAll(runCtx, cfg)
			if failed := preflight.Failed(results); len(failed) > 0 {
				for _, r := range failed {
					logging.ErrorWithContext(logger, "preflight check failed", "preflight_failed",
						logging.String("check", r.Name),
						logging.String("detail", r.Detail),
						logging.String(logging.FieldErrorHint, "run subconform status for details"),
					)
				}
				return fmt.Errorf("preflight failed: %s: %s", failed[0].Name, failed[0].Detail)
			}

			store, err := jobstore.Open(cfg)
			if err != nil {
				return fmt.Errorf("open job store: %w", err)
			}
			p, err := buildPipeline(cfg, store, notifications.NewService(cfg), logger)
			if err != nil {
				_ = store.Close()
				return err
			}
			d, err := daemon.New(cfg, daemon.Components{
				Store:    store,
				Registry: p.registry,
				Workflow: p.manager,
				Service:  p.service,
				Hub:      hub,
				Provider: p.provider.Name(),
				Version:  version,
			}, logger)
			if err != nil {
				_ = store.Close()
				return err
			}
			defer d.Close()

			if err := d.Start(runCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "subconform %s serving on %s\n", version, d.Status(runCtx).Address)

			<-runCtx.Done()
			if err := context.Cause(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
