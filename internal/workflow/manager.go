package workflow

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"subconform/internal/config"
	"subconform/internal/fixes"
	"subconform/internal/gender"
	"subconform/internal/jobs"
	"subconform/internal/logging"
	"subconform/internal/notifications"
	"subconform/internal/repair"
	"subconform/internal/translate"
)

const defaultQueueCapacity = 256

// ErrQueueFull is returned by Submit when the job channel has no room.
var ErrQueueFull = errors.New("job queue is full")

// Dependencies are the collaborators the pipeline stages call.
type Dependencies struct {
	Translator *translate.Translator
	Repair     *repair.Orchestrator
	// Glossary is the service-wide glossary. Per-job entries override it.
	Glossary translate.Glossary
	// Notifier announces job outcomes; nil disables notifications.
	Notifier notifications.Service
}

// Manager coordinates job processing across a pool of workers.
type Manager struct {
	cfg      *config.Config
	registry *jobs.Registry
	logger   *slog.Logger
	stages   []pipelineStage
	workers  int
	queue    chan *jobs.Job
	notifier notifications.Service

	active atomic.Int32

	mu        sync.RWMutex
	running   bool
	cancel    func()
	wg        sync.WaitGroup
	lastErr   error
	lastJobID string
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	queueCapacity int
}

// WithQueueCapacity bounds how many submitted jobs may wait for a worker.
func WithQueueCapacity(n int) ManagerOption {
	return func(o *managerOptions) {
		o.queueCapacity = n
	}
}

// NewManager constructs a workflow manager. A nil translator falls back to
// the mock provider; a nil orchestrator is built from cfg.
func NewManager(cfg *config.Config, registry *jobs.Registry, deps Dependencies, logger *slog.Logger, opts ...ManagerOption) *Manager {
	options := &managerOptions{queueCapacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(options)
	}
	if options.queueCapacity <= 0 {
		options.queueCapacity = defaultQueueCapacity
	}
	logger = logging.NewComponentLogger(logger, "workflow")
	if deps.Translator == nil {
		deps.Translator = translate.NewTranslator(translate.MockProvider{}, nil, logger)
	}
	if deps.Repair == nil {
		deps.Repair = repair.New(fixes.NewGenerator(cfg.FixPolicy()), gender.NewDetector(cfg.GenderOptions()), logger)
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(nil)
	}
	workers := cfg.Workflow.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Manager{
		cfg:      cfg,
		registry: registry,
		logger:   logger,
		stages:   buildStages(cfg, deps, logger),
		workers:  workers,
		queue:    make(chan *jobs.Job, options.queueCapacity),
		notifier: deps.Notifier,
	}
}
