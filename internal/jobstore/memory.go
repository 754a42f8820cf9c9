package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MemoryEntry is one remembered translation.
type MemoryEntry struct {
	SourceLanguage string
	TargetLanguage string
	SourceText     string
	TranslatedText string
	JobID          string
}

// MemoryStats summarizes the translation memory.
type MemoryStats struct {
	TotalEntries    int            `json:"total_entries"`
	ApprovedEntries int            `json:"approved_entries"`
	TotalHits       int            `json:"total_hits"`
	LanguagePairs   map[string]int `json:"language_pairs"`
}

// memoryKey collapses whitespace, including line breaks, and applies NFC so
// reflowed copies of a line share one entry.
func memoryKey(text string) string {
	return norm.NFC.String(strings.Join(strings.Fields(text), " "))
}

func langKey(lang string) string {
	return strings.ToLower(strings.TrimSpace(lang))
}

// Lookup returns the remembered translation of text, if any, and counts the hit.
func (s *Store) Lookup(ctx context.Context, sourceLang, targetLang, text string) (string, bool, error) {
	key := memoryKey(text)
	if key == "" {
		return "", false, nil
	}
	ctx = ensureContext(ctx)
	var translated string
	err := s.db.QueryRowContext(ctx, `SELECT translated_text FROM translation_memory
        WHERE source_language = ? AND target_language = ? AND source_key = ?`,
		langKey(sourceLang), langKey(targetLang), key,
	).Scan(&translated)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("translation memory lookup: %w", err)
	}
	if _, err := s.execWithRetry(ctx, `UPDATE translation_memory SET hit_count = hit_count + 1
        WHERE source_language = ? AND target_language = ? AND source_key = ?`,
		langKey(sourceLang), langKey(targetLang), key,
	); err != nil {
		return "", false, fmt.Errorf("translation memory hit: %w", err)
	}
	return translated, true, nil
}

// Remember stores a translation. Approved entries are never replaced by
// unreviewed ones.
func (s *Store) Remember(ctx context.Context, entry MemoryEntry) error {
	key := memoryKey(entry.SourceText)
	if key == "" || strings.TrimSpace(entry.TranslatedText) == "" {
		return nil
	}
	now := formatTime(s.now())
	_, err := s.execWithRetry(ctx, `INSERT INTO translation_memory
            (source_language, target_language, source_key, source_text, translated_text, job_id, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(source_language, target_language, source_key) DO UPDATE SET
            translated_text = excluded.translated_text,
            source_text = excluded.source_text,
            job_id = excluded.job_id,
            updated_at = excluded.updated_at
        WHERE translation_memory.approved = 0`,
		langKey(entry.SourceLanguage), langKey(entry.TargetLanguage), key,
		entry.SourceText, entry.TranslatedText, entry.JobID, now, now,
	)
	if err != nil {
		return fmt.Errorf("translation memory store: %w", err)
	}
	return nil
}

// ApproveJob marks every entry produced by jobID as approved and returns how many changed.
func (s *Store) ApproveJob(ctx context.Context, jobID string) (int, error) {
	res, err := s.execWithRetry(ctx, `UPDATE translation_memory SET approved = 1, updated_at = ?
        WHERE job_id = ? AND approved = 0`, formatTime(s.now()), jobID)
	if err != nil {
		return 0, fmt.Errorf("approve translations for job %s: %w", jobID, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// RejectJob drops the unapproved entries produced by jobID and returns how many were removed.
func (s *Store) RejectJob(ctx context.Context, jobID string) (int, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM translation_memory WHERE job_id = ? AND approved = 0`, jobID)
	if err != nil {
		return 0, fmt.Errorf("reject translations for job %s: %w", jobID, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// MemoryStats reports entry counts, hits and language pairs.
func (s *Store) MemoryStats(ctx context.Context) (MemoryStats, error) {
	ctx = ensureContext(ctx)
	stats := MemoryStats{LanguagePairs: make(map[string]int)}
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1), COALESCE(SUM(approved), 0), COALESCE(SUM(hit_count), 0)
        FROM translation_memory`).Scan(&stats.TotalEntries, &stats.ApprovedEntries, &stats.TotalHits)
	if err != nil {
		return MemoryStats{}, fmt.Errorf("translation memory stats: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT source_language, target_language, COUNT(1)
        FROM translation_memory GROUP BY source_language, target_language`)
	if err != nil {
		return MemoryStats{}, fmt.Errorf("translation memory pairs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			source, target string
			count          int
		)
		if err := rows.Scan(&source, &target, &count); err != nil {
			return MemoryStats{}, err
		}
		stats.LanguagePairs[source+"-"+target] = count
	}
	return stats, rows.Err()
}
