package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"subconform/internal/api"
	"subconform/internal/config"
	"subconform/internal/jobs"
	"subconform/internal/jobstore"
	"subconform/internal/logging"
	"subconform/internal/workflow"
)

const defaultSweepInterval = 10 * time.Minute

// Components are the collaborators a daemon coordinates.
type Components struct {
	Store    *jobstore.Store
	Registry *jobs.Registry
	Workflow *workflow.Manager
	Service  *api.JobService
	// Hub backs GET /api/logs; nil disables log streaming.
	Hub *logging.StreamHub
	// Provider names the configured translation provider for health output.
	Provider string
	Version  string
	// SweepInterval overrides how often expired jobs are removed.
	SweepInterval time.Duration
}

// Daemon coordinates the job pipeline and HTTP API and enforces
// single-instance execution per data directory.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *jobstore.Store
	registry *jobs.Registry
	workflow *workflow.Manager
	service  *api.JobService
	hub      *logging.StreamHub
	provider string
	version  string
	sweep    time.Duration

	lockPath string
	lock     *flock.Flock
	api      *apiServer
	handler  http.Handler

	running   atomic.Bool
	mu        sync.Mutex
	startedAt time.Time
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	StartedAt    time.Time
	Address      string
	Workflow     workflow.StatusSummary
	DatabasePath string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, c Components, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || c.Store == nil || c.Registry == nil || c.Workflow == nil || c.Service == nil {
		return nil, errors.New("daemon requires config, store, registry, workflow manager, and job service")
	}
	sweep := c.SweepInterval
	if sweep <= 0 {
		sweep = defaultSweepInterval
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    c.Store,
		registry: c.Registry,
		workflow: c.Workflow,
		service:  c.Service,
		hub:      c.Hub,
		provider: c.Provider,
		version:  c.Version,
		sweep:    sweep,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	srv := newAPIServer(cfg, d, logger)
	d.api = srv
	d.handler = srv.routes()
	return d, nil
}

// Handler returns the HTTP API handler. It serves requests whether or not
// the listener is running, which lets tests drive it directly.
func (d *Daemon) Handler() http.Handler {
	return d.handler
}

// Start acquires the daemon lock, restores persisted jobs, and launches the
// workflow manager, retention sweeper, and API listener.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another subconform daemon instance is already running")
	}

	snapshots, err := d.store.LoadJobs(ctx)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("restore jobs: %w", err)
	}
	if stopped := d.registry.Restore(snapshots); stopped > 0 {
		logging.WarnWithContext(d.logger, "unfinished jobs marked failed", "jobs_interrupted",
			logging.Int("count", stopped),
			logging.String(logging.FieldImpact, "jobs running at the last shutdown must be resubmitted"),
			logging.String(logging.FieldErrorHint, "resubmit the affected files"),
		)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		cancel()
		d.workflow.Stop()
		_ = d.lock.Unlock()
		return err
	}

	d.mu.Lock()
	d.cancel = cancel
	d.startedAt = time.Now().UTC()
	d.mu.Unlock()

	if d.cfg.JobRetention() > 0 {
		d.wg.Add(1)
		go d.sweepLoop(runCtx)
	}

	d.running.Store(true)
	d.logger.Info("subconform daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("address", d.api.address()),
		logging.Int("restored_jobs", len(snapshots)),
	)
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	d.api.stop()
	d.workflow.Stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("subconform daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

func (d *Daemon) sweepLoop(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(d.sweep)
	defer ticker.Stop()
	for {
		d.registry.Sweep(ctx, time.Now().UTC().Add(-d.cfg.JobRetention()))
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	d.mu.Lock()
	startedAt := d.startedAt
	d.mu.Unlock()
	return Status{
		Running:      d.running.Load(),
		StartedAt:    startedAt,
		Address:      d.api.address(),
		Workflow:     d.workflow.Status(ctx),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
	}
}
