package translate

import (
	"context"

	"subconform/internal/jobstore"
)

// Memory is the translation memory consulted before the provider.
type Memory interface {
	Lookup(ctx context.Context, sourceLang, targetLang, text string) (string, bool, error)
	Remember(ctx context.Context, entry jobstore.MemoryEntry) error
}
