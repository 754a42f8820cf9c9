package testsupport

import (
	"testing"

	"subconform/internal/config"
	"subconform/internal/jobstore"
)

// MustOpenStore opens a jobstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobstore.Store {
	t.Helper()

	store, err := jobstore.Open(cfg)
	if err != nil {
		t.Fatalf("jobstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
