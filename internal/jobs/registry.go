package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"subconform/internal/logging"
	"subconform/internal/subtitles"
)

// Persister stores job snapshots outside the process.
type Persister interface {
	SaveJob(ctx context.Context, snapshot Snapshot) error
	DeleteJob(ctx context.Context, id string) error
}

// Registry is the in-memory job store.
type Registry struct {
	mu        sync.RWMutex
	jobs      map[string]*Job
	groups    map[string]*Group
	persister Persister
	logger    *slog.Logger
	now       func() time.Time
}

// NewRegistry returns an empty registry. persister may be nil.
func NewRegistry(persister Persister, logger *slog.Logger) *Registry {
	return &Registry{
		jobs:      make(map[string]*Job),
		groups:    make(map[string]*Group),
		persister: persister,
		logger:    logging.NewComponentLogger(logger, "jobs"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create registers a pending job for req.
func (r *Registry) Create(req Request) *Job {
	now := r.now()
	if req.Constraints == (subtitles.Constraints{}) {
		req.Constraints = subtitles.DefaultConstraints()
	}
	job := &Job{
		id:       uuid.NewString(),
		request:  req,
		registry: r,
		status: Status{
			State:          StatePending,
			Filename:       req.Filename,
			SourceLanguage: req.SourceLanguage,
			TargetLanguage: req.TargetLanguage,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
	}
	job.status.JobID = job.id

	r.mu.Lock()
	r.jobs[job.id] = job
	r.mu.Unlock()
	job.persist()
	r.logger.Info("job created",
		logging.String(logging.FieldJobID, job.id),
		logging.String("filename", req.Filename),
		logging.String("target_language", req.TargetLanguage),
	)
	return job
}

// Get looks a job up by identifier.
func (r *Registry) Get(id string) (*Job, error) {
	r.mu.RLock()
	job, ok := r.jobs[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return job, nil
}

// List returns the status of every job, newest first.
func (r *Registry) List() []Status {
	return r.list(func(Status) bool { return true })
}

// ListByReview returns the jobs whose review status is review, newest first.
func (r *Registry) ListByReview(review ReviewStatus) []Status {
	return r.list(func(s Status) bool { return s.Review == review })
}

func (r *Registry) list(keep func(Status) bool) []Status {
	r.mu.RLock()
	out := make([]Status, 0, len(r.jobs))
	for _, job := range r.jobs {
		if status := job.Status(); keep(status) {
			out = append(out, status)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].JobID < out[j].JobID
	})
	return out
}

// Counts returns the number of jobs per state.
func (r *Registry) Counts() map[State]int {
	counts := make(map[State]int, 4)
	for _, status := range r.List() {
		counts[status.State]++
	}
	return counts
}

// Restore loads persisted jobs. Jobs saved before reaching a terminal state
// cannot resume and are failed with StoppedReason. It returns how many were
// failed that way.
func (r *Registry) Restore(snapshots []Snapshot) int {
	stopped := 0
	r.mu.Lock()
	restored := make([]*Job, 0, len(snapshots))
	for _, snap := range snapshots {
		job := &Job{id: snap.ID, request: snap.Request, registry: r, status: snap.Status, doc: snap.Document}
		job.status.JobID = snap.ID
		if !job.status.State.Terminal() {
			job.status.State = StateFailed
			job.status.Error = StoppedReason
			job.status.UpdatedAt = r.now()
			stopped++
			restored = append(restored, job)
		}
		if job.status.State == StateCompleted && job.doc == nil {
			job.status.State = StateFailed
			job.status.Error = "document missing from saved job"
			restored = append(restored, job)
		}
		r.jobs[snap.ID] = job
	}
	r.mu.Unlock()
	for _, job := range restored {
		job.persist()
	}
	if len(snapshots) > 0 {
		r.logger.Info("jobs restored",
			logging.Int("restored", len(snapshots)),
			logging.Int("stopped", stopped),
		)
	}
	return stopped
}

// Delete removes a job.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	_, ok := r.jobs[id]
	delete(r.jobs, id)
	if ok {
		r.dropMemberLocked(id)
	}
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if r.persister != nil {
		if err := r.persister.DeleteJob(ctx, id); err != nil {
			return fmt.Errorf("delete job %s: %w", id, err)
		}
	}
	return nil
}

// Sweep removes terminal jobs last updated before cutoff and returns how many were removed.
func (r *Registry) Sweep(ctx context.Context, cutoff time.Time) int {
	r.mu.RLock()
	var expired []string
	for id, job := range r.jobs {
		if job.Status().State.Terminal() && job.updatedAt().Before(cutoff) {
			expired = append(expired, id)
		}
	}
	r.mu.RUnlock()

	removed := 0
	for _, id := range expired {
		if err := r.Delete(ctx, id); err != nil {
			logging.WarnWithContext(r.logger, "job retention sweep failed", "job_sweep_failed",
				logging.String(logging.FieldJobID, id),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the data directory is writable"),
				logging.String(logging.FieldImpact, "expired job stays on disk until the next sweep"),
			)
			continue
		}
		removed++
	}
	if removed > 0 {
		r.logger.Info("expired jobs removed", logging.Int("removed", removed))
	}
	return removed
}

func (r *Registry) persist(job *Job) {
	if r.persister == nil {
		return
	}
	if err := r.persister.SaveJob(context.Background(), job.Snapshot()); err != nil {
		logging.WarnWithContext(r.logger, "job snapshot not saved", "job_persist_failed",
			logging.String(logging.FieldJobID, job.ID()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the data directory and database file"),
			logging.String(logging.FieldImpact, "job changes are lost if the service restarts"),
		)
	}
}
