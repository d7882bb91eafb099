package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/indexer-snapshots/internal/models"
)

// MemorySnapshotStore keeps snapshots in process memory
type MemorySnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]*models.IndexerSnapshot
}

// NewMemorySnapshotStore creates an empty in-memory snapshot store
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{snapshots: make(map[string]*models.IndexerSnapshot)}
}

// Load returns a copy of the snapshot or nil
func (s *MemorySnapshotStore) Load(ctx context.Context, id string) (*models.IndexerSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshots[id].Clone(), nil
}

// Save stores a copy of the snapshot
func (s *MemorySnapshotStore) Save(ctx context.Context, snap *models.IndexerSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.ID] = snap.Clone()
	return nil
}

// GetOrCreate returns the stored snapshot or stores seed()
func (s *MemorySnapshotStore) GetOrCreate(ctx context.Context, id string, seed func() *models.IndexerSnapshot) (*models.IndexerSnapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.snapshots[id]; ok {
		return existing.Clone(), false, nil
	}

	created := seed()
	s.snapshots[id] = created.Clone()
	return created, true, nil
}

// List returns the indexer's snapshots within the day range
func (s *MemorySnapshotStore) List(ctx context.Context, indexer string, fromDay, toDay int64) ([]*models.IndexerSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.IndexerSnapshot
	for _, snap := range s.snapshots {
		if snap.Indexer == indexer && snap.DayIndex >= fromDay && snap.DayIndex <= toDay {
			result = append(result, snap.Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].DayIndex < result[j].DayIndex
	})

	return result, nil
}

// All returns every stored snapshot ordered by indexer and day
func (s *MemorySnapshotStore) All() []*models.IndexerSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.IndexerSnapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		result = append(result, snap.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Indexer != result[j].Indexer {
			return result[i].Indexer < result[j].Indexer
		}
		return result[i].DayIndex < result[j].DayIndex
	})

	return result
}

// MemoryIndexerRepository keeps indexers in process memory
type MemoryIndexerRepository struct {
	mu       sync.RWMutex
	indexers map[string]*models.Indexer
}

// NewMemoryIndexerRepository creates an empty in-memory indexer repository
func NewMemoryIndexerRepository() *MemoryIndexerRepository {
	return &MemoryIndexerRepository{indexers: make(map[string]*models.Indexer)}
}

// Get returns a copy of the indexer or nil
func (r *MemoryIndexerRepository) Get(ctx context.Context, id string) (*models.Indexer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	indexer, ok := r.indexers[id]
	if !ok {
		return nil, nil
	}
	c := *indexer
	return &c, nil
}

// Save stores a copy of the indexer
func (r *MemoryIndexerRepository) Save(ctx context.Context, indexer *models.Indexer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := *indexer
	r.indexers[indexer.ID] = &c
	return nil
}
