package jobstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// DatabaseHealth captures diagnostic information about the database file.
type DatabaseHealth struct {
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"exists"`
	DatabaseReadable bool     `json:"readable"`
	SchemaVersion    int      `json:"schema_version"`
	MissingTables    []string `json:"missing_tables,omitempty"`
	IntegrityCheck   bool     `json:"integrity_ok"`
	Jobs             int      `json:"jobs"`
	MemoryEntries    int      `json:"memory_entries"`
	Error            string   `json:"error,omitempty"`
}

// CheckHealth returns diagnostic information about the database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}
	if s.path == "" {
		return health, errors.New("database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping database: %w", err)
	}
	health.DatabaseReadable = true

	if err := s.db.QueryRowContext(connCtx, "SELECT version FROM schema_version LIMIT 1").Scan(&health.SchemaVersion); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("read schema version: %w", err)
	}

	for _, table := range []string{"jobs", "translation_memory"} {
		var count int
		row := s.db.QueryRowContext(connCtx, "SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = ?", table)
		if err := row.Scan(&count); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("query table info: %w", err)
		}
		if count == 0 {
			health.MissingTables = append(health.MissingTables, table)
		}
	}
	if len(health.MissingTables) == 0 {
		if err := s.db.QueryRowContext(connCtx, "SELECT COUNT(1) FROM jobs").Scan(&health.Jobs); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count jobs: %w", err)
		}
		if err := s.db.QueryRowContext(connCtx, "SELECT COUNT(1) FROM translation_memory").Scan(&health.MemoryEntries); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count translation memory: %w", err)
		}
	}

	var integrity string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrity, "ok")
	return health, nil
}
