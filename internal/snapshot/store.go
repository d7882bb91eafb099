package snapshot

import (
	"context"

	"github.com/indexer-snapshots/internal/models"
)

// Store persists snapshots by ID.
// Implementations must return copies so callers never alias stored state.
type Store interface {
	// Load returns the snapshot or nil when none exists
	Load(ctx context.Context, id string) (*models.IndexerSnapshot, error)
	// Save writes the whole snapshot, replacing any previous version
	Save(ctx context.Context, snapshot *models.IndexerSnapshot) error
	// GetOrCreate loads the snapshot, or persists and returns seed() when absent.
	// created reports whether seed was used.
	GetOrCreate(ctx context.Context, id string, seed func() *models.IndexerSnapshot) (snapshot *models.IndexerSnapshot, created bool, err error)
}
