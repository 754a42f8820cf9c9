package jobs

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"subconform/internal/logging"
)

// ErrGroupNotFound reports an unknown multi-language parent identifier.
var ErrGroupNotFound = errors.New("job group not found")

// GroupMember is one target language of a group and the job translating it.
type GroupMember struct {
	Language string
	JobID    string
}

// Group ties together the per-language jobs created from one upload.
type Group struct {
	ID             string
	Filename       string
	SourceLanguage string
	Members        []GroupMember
	CreatedAt      time.Time
}

// GroupStatus aggregates the children of a group. Progress is the mean of
// the children; the group fails when any child fails and completes when all
// of them complete.
type GroupStatus struct {
	ParentJobID    string            `json:"parent_job_id"`
	Filename       string            `json:"filename"`
	SourceLanguage string            `json:"source_language"`
	State          State             `json:"status"`
	Progress       float64           `json:"progress"`
	Children       map[string]Status `json:"child_jobs"`
	CreatedAt      time.Time         `json:"created_at"`
}

// CreateGroup records a group over already registered jobs.
func (r *Registry) CreateGroup(filename, sourceLanguage string, members []GroupMember) Group {
	group := &Group{
		ID:             uuid.NewString(),
		Filename:       filename,
		SourceLanguage: sourceLanguage,
		Members:        append([]GroupMember(nil), members...),
		CreatedAt:      r.now(),
	}
	r.mu.Lock()
	r.groups[group.ID] = group
	r.mu.Unlock()
	r.logger.Info("job group created",
		logging.String("parent_job_id", group.ID),
		logging.Int("languages", len(members)),
	)
	return group.clone()
}

// Group looks a group up by identifier.
func (r *Registry) Group(id string) (Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	group, ok := r.groups[id]
	if !ok {
		return Group{}, fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}
	return group.clone(), nil
}

// GroupStatus aggregates the current status of every child of a group.
func (r *Registry) GroupStatus(id string) (GroupStatus, error) {
	group, err := r.Group(id)
	if err != nil {
		return GroupStatus{}, err
	}
	out := GroupStatus{
		ParentJobID:    group.ID,
		Filename:       group.Filename,
		SourceLanguage: group.SourceLanguage,
		Children:       make(map[string]Status, len(group.Members)),
		CreatedAt:      group.CreatedAt,
	}
	var total float64
	counts := make(map[State]int, 4)
	for _, m := range group.Members {
		job, err := r.Get(m.JobID)
		if err != nil {
			continue
		}
		status := job.Status()
		out.Children[m.Language] = status
		total += status.Progress
		counts[status.State]++
	}
	n := len(out.Children)
	if n > 0 {
		out.Progress = total / float64(n)
	}
	switch {
	case counts[StateFailed] > 0:
		out.State = StateFailed
	case counts[StateCompleted] == n:
		out.State = StateCompleted
	case counts[StatePending] == n:
		out.State = StatePending
	default:
		out.State = StateProcessing
	}
	return out, nil
}

// dropMemberLocked removes a deleted job from its group and drops groups left
// without children. r.mu must be held for writing.
func (r *Registry) dropMemberLocked(jobID string) {
	for id, group := range r.groups {
		kept := group.Members[:0]
		for _, m := range group.Members {
			if m.JobID != jobID {
				kept = append(kept, m)
			}
		}
		group.Members = kept
		if len(kept) == 0 {
			delete(r.groups, id)
		}
	}
}

func (g *Group) clone() Group {
	out := *g
	out.Members = append([]GroupMember(nil), g.Members...)
	return out
}
