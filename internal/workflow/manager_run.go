package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"subconform/internal/jobs"
	"subconform/internal/logging"
)

// Start launches the worker pool.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(m.stages) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(m.workers)
	m.mu.Unlock()

	for i := range m.workers {
		go m.runWorker(runCtx, m.logger.With(logging.String("worker", fmt.Sprintf("w%d", i+1))))
	}
	m.logger.Info("workflow started",
		logging.Int("workers", m.workers),
		logging.String(logging.FieldEventType, "workflow_start"),
	)
	return nil
}

// Stop terminates background processing and waits for in-flight jobs to
// observe cancellation.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("workflow stopped", logging.String(logging.FieldEventType, "workflow_stop"))
}

// Submit queues a pending job for the worker pool. Jobs may be submitted
// before Start; they wait in the channel.
func (m *Manager) Submit(job *jobs.Job) error {
	if job == nil {
		return errors.New("job is required")
	}
	select {
	case m.queue <- job:
		m.logger.Debug("job queued",
			logging.String(logging.FieldJobID, job.ID()),
			logging.Int("queued", len(m.queue)),
		)
		return nil
	default:
		return fmt.Errorf("%w (%d waiting)", ErrQueueFull, cap(m.queue))
	}
}

func (m *Manager) runWorker(ctx context.Context, logger *slog.Logger) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-m.queue:
			if err := m.Process(ctx, job); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Debug("worker interrupted by shutdown", logging.String(logging.FieldJobID, job.ID()))
					return
				}
			}
		}
	}
}
