package jobstore

import (
	"context"
	"encoding/json"
	"fmt"

	"subconform/internal/jobs"
)

// SaveJob upserts the snapshot of a job.
func (s *Store) SaveJob(ctx context.Context, snap jobs.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", snap.ID, err)
	}
	_, err = s.execWithRetry(ctx, `INSERT INTO jobs (id, state, filename, snapshot_json, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            state = excluded.state,
            filename = excluded.filename,
            snapshot_json = excluded.snapshot_json,
            updated_at = excluded.updated_at`,
		snap.ID,
		string(snap.Status.State),
		snap.Status.Filename,
		string(payload),
		formatTime(snap.Status.CreatedAt),
		formatTime(snap.Status.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save job %s: %w", snap.ID, err)
	}
	return nil
}

// DeleteJob removes a job snapshot. Deleting an unknown job is not an error.
func (s *Store) DeleteJob(ctx context.Context, id string) error {
	if _, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	return nil
}

// LoadJobs returns every stored snapshot, oldest first.
func (s *Store) LoadJobs(ctx context.Context) ([]jobs.Snapshot, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT id, snapshot_json FROM jobs ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	defer rows.Close()

	var out []jobs.Snapshot
	for rows.Next() {
		var (
			id      string
			payload string
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		var snap jobs.Snapshot
		if err := json.Unmarshal([]byte(payload), &snap); err != nil {
			return nil, fmt.Errorf("decode job %s: %w", id, err)
		}
		snap.ID = id
		out = append(out, snap)
	}
	return out, rows.Err()
}

// JobCounts returns stored jobs grouped by state.
func (s *Store) JobCounts(ctx context.Context) (map[jobs.State]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT state, COUNT(1) FROM jobs GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("job counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[jobs.State]int)
	for rows.Next() {
		var (
			state jobs.State
			count int
		)
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		counts[state] = count
	}
	return counts, rows.Err()
}
