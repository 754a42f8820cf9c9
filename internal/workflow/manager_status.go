package workflow

import (
	"context"

	"subconform/internal/jobs"
	"subconform/internal/stage"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool
	Workers     int
	Queued      int
	Active      int
	LastError   string
	LastJobID   string
	JobCounts   map[jobs.State]int
	StageHealth map[string]stage.Health
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastJobID := m.lastJobID
	m.mu.RUnlock()

	health := make(map[string]stage.Health, len(m.stages))
	for _, stg := range m.stages {
		if stg.handler == nil {
			health[stg.name] = stage.Unhealthy(stg.name, "missing handler")
			continue
		}
		health[stg.name] = stg.handler.HealthCheck(ctx)
	}

	summary := StatusSummary{
		Running:     running,
		Workers:     m.workers,
		Queued:      len(m.queue),
		Active:      int(m.active.Load()),
		LastJobID:   lastJobID,
		StageHealth: health,
	}
	if m.registry != nil {
		summary.JobCounts = m.registry.Counts()
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastJob(id string) {
	m.mu.Lock()
	m.lastJobID = id
	m.mu.Unlock()
}
