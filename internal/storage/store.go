// Package storage provides database connections and snapshot store implementations.
package storage

import (
	"context"

	"github.com/indexer-snapshots/internal/models"
	"github.com/indexer-snapshots/internal/snapshot"
)

// SnapshotStore is a snapshot.Store that can also list an indexer's buckets
type SnapshotStore interface {
	snapshot.Store
	// List returns the indexer's snapshots with fromDay <= day index <= toDay in ascending order
	List(ctx context.Context, indexer string, fromDay, toDay int64) ([]*models.IndexerSnapshot, error)
}
