// Package service applies indexer events to the daily snapshot engine.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/indexer-snapshots/internal/errors"
	"github.com/indexer-snapshots/internal/logging"
	"github.com/indexer-snapshots/internal/models"
	"github.com/indexer-snapshots/internal/snapshot"
	"github.com/indexer-snapshots/internal/types"
	"github.com/shopspring/decimal"
)

// SnapshotStore is the snapshot persistence the service needs
type SnapshotStore interface {
	snapshot.Store
	List(ctx context.Context, indexer string, fromDay, toDay int64) ([]*models.IndexerSnapshot, error)
}

// IndexerRepository persists the indexers being snapshotted
type IndexerRepository interface {
	Get(ctx context.Context, id string) (*models.Indexer, error)
	Save(ctx context.Context, indexer *models.Indexer) error
}

// EventInput is one indexer event to apply
type EventInput struct {
	Indexer   string          `json:"indexer"`
	Type      types.EventType `json:"type"`
	Amount    string          `json:"amount,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// EventResult is the snapshot state after an event was applied
type EventResult struct {
	Snapshot *models.IndexerSnapshot `json:"snapshot"`
	Created  bool                    `json:"created"`
}

// IndexerService applies events one at a time, in arrival order.
// The snapshot manager assumes no two events for an indexer overlap.
type IndexerService struct {
	mu        sync.Mutex
	snapshots SnapshotStore
	indexers  IndexerRepository
	cfg       snapshot.Config
	now       func() time.Time
}

// NewIndexerService creates a new indexer service
func NewIndexerService(snapshots SnapshotStore, indexers IndexerRepository, cfg snapshot.Config) *IndexerService {
	return &IndexerService{
		snapshots: snapshots,
		indexers:  indexers,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Config returns the bucketing configuration
func (s *IndexerService) Config() snapshot.Config {
	return s.cfg
}

// ApplyEvent records an event in the indexer's snapshot for the event's day.
// The snapshot is initialized before the indexer's stake changes, so a bucket
// created by a stake event is seeded with the stake from before that event.
func (s *IndexerService) ApplyEvent(ctx context.Context, input *EventInput) (*EventResult, error) {
	indexerID, amount, err := s.validate(input)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	logger := logging.FromContext(ctx).ForIndexer(indexerID).WithField("event", string(input.Type))

	indexer, err := s.loadOrCreateIndexer(ctx, indexerID)
	if err != nil {
		return nil, err
	}

	manager, err := snapshot.NewManager(ctx, s.snapshots, s.cfg, indexer, input.Timestamp)
	if err != nil {
		return nil, apperrors.NewDatabaseError("initialize snapshot", err)
	}

	switch input.Type {
	case types.EventOwnStake:
		err = s.applyStakeEvent(ctx, indexer, func() { indexer.AddOwnStake(amount) }, func() error {
			return manager.UpdateOwnStake(ctx, amount)
		})
	case types.EventDelegatedStake:
		err = s.applyStakeEvent(ctx, indexer, func() { indexer.AddDelegatedStake(amount) }, func() error {
			return manager.UpdateDelegatedStake(ctx, amount)
		})
	case types.EventDelegationRewards:
		err = manager.AddDelegationPoolRewards(ctx, amount)
	case types.EventParametersUpdated:
		err = manager.IncrementParametersChangeCount(ctx)
	}
	if err != nil {
		logger.WithError(err).Error("Failed to apply indexer event")
		return nil, apperrors.NewDatabaseError("apply event", err)
	}

	logger.WithFields(map[string]interface{}{
		"snapshot": manager.ID(),
		"created":  manager.Created(),
	}).Debug("Applied indexer event")

	return &EventResult{Snapshot: manager.Snapshot(), Created: manager.Created()}, nil
}

func (s *IndexerService) validate(input *EventInput) (string, decimal.Decimal, error) {
	indexerID, err := types.NormalizeIndexerID(input.Indexer)
	if err != nil {
		return "", decimal.Zero, apperrors.NewInvalidIndexerError(input.Indexer)
	}

	if !input.Type.Valid() {
		return "", decimal.Zero, apperrors.NewInvalidParameterError("type", fmt.Sprintf("unknown event type %q", input.Type))
	}

	// Timestamps before genesis have no day bucket
	if input.Timestamp < s.cfg.GenesisTimestamp {
		return "", decimal.Zero, apperrors.NewInvalidParameterError("timestamp", "before genesis")
	}

	if !input.Type.RequiresAmount() {
		return indexerID, decimal.Zero, nil
	}

	amount, err := decimal.NewFromString(input.Amount)
	if err != nil {
		return "", decimal.Zero, apperrors.NewInvalidParameterError("amount", "not a decimal number")
	}

	return indexerID, amount, nil
}

func (s *IndexerService) loadOrCreateIndexer(ctx context.Context, id string) (*models.Indexer, error) {
	indexer, err := s.indexers.Get(ctx, id)
	if err != nil {
		return nil, apperrors.NewDatabaseError("load indexer", err)
	}
	if indexer != nil {
		return indexer, nil
	}

	now := s.now().UTC()
	indexer = &models.Indexer{ID: id, CreatedAt: now, UpdatedAt: now}
	if err := s.indexers.Save(ctx, indexer); err != nil {
		return nil, apperrors.NewDatabaseError("create indexer", err)
	}
	return indexer, nil
}

// applyStakeEvent persists the parent's new stake before the snapshot delta.
// A failed snapshot write restores the previous stake, so a retried event is
// counted once by both the parent and the snapshot.
func (s *IndexerService) applyStakeEvent(ctx context.Context, indexer *models.Indexer, update func(), mutate func() error) error {
	ownStake, delegatedStake, updatedAt := indexer.OwnStake, indexer.DelegatedStake, indexer.UpdatedAt

	update()
	if err := s.saveIndexer(ctx, indexer); err != nil {
		indexer.OwnStake, indexer.DelegatedStake, indexer.UpdatedAt = ownStake, delegatedStake, updatedAt
		return err
	}

	if err := mutate(); err != nil {
		indexer.OwnStake, indexer.DelegatedStake = ownStake, delegatedStake
		if restoreErr := s.saveIndexer(ctx, indexer); restoreErr != nil {
			logging.FromContext(ctx).ForIndexer(indexer.ID).WithError(restoreErr).Error("Failed to restore indexer stake")
		}
		return err
	}

	return nil
}

func (s *IndexerService) saveIndexer(ctx context.Context, indexer *models.Indexer) error {
	indexer.UpdatedAt = s.now().UTC()
	return s.indexers.Save(ctx, indexer)
}

// GetIndexer returns an indexer's live stake
func (s *IndexerService) GetIndexer(ctx context.Context, indexer string) (*models.Indexer, error) {
	id, err := types.NormalizeIndexerID(indexer)
	if err != nil {
		return nil, apperrors.NewInvalidIndexerError(indexer)
	}

	found, err := s.indexers.Get(ctx, id)
	if err != nil {
		return nil, apperrors.NewDatabaseError("load indexer", err)
	}
	if found == nil {
		return nil, apperrors.NewNotFoundError("indexer", id)
	}
	return found, nil
}

// GetSnapshot returns a stored snapshot by day index without touching it
func (s *IndexerService) GetSnapshot(ctx context.Context, indexer string, dayIndex int64) (*models.IndexerSnapshot, error) {
	id, err := types.NormalizeIndexerID(indexer)
	if err != nil {
		return nil, apperrors.NewInvalidIndexerError(indexer)
	}

	snapshotID := snapshot.ID(id, dayIndex)
	snap, err := s.snapshots.Load(ctx, snapshotID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("load snapshot", err)
	}
	if snap == nil {
		return nil, apperrors.NewNotFoundError("snapshot", snapshotID)
	}
	return snap, nil
}

// GetSnapshotAt returns the stored snapshot of the day containing timestamp
func (s *IndexerService) GetSnapshotAt(ctx context.Context, indexer string, timestamp int64) (*models.IndexerSnapshot, error) {
	if timestamp < s.cfg.GenesisTimestamp {
		return nil, apperrors.NewInvalidParameterError("timestamp", "before genesis")
	}
	return s.GetSnapshot(ctx, indexer, s.cfg.DayIndex(timestamp))
}

// ListSnapshots returns an indexer's snapshots between two day indexes inclusive
func (s *IndexerService) ListSnapshots(ctx context.Context, indexer string, fromDay, toDay int64) ([]*models.IndexerSnapshot, error) {
	id, err := types.NormalizeIndexerID(indexer)
	if err != nil {
		return nil, apperrors.NewInvalidIndexerError(indexer)
	}
	if fromDay > toDay {
		return nil, apperrors.NewInvalidParameterError("from", "must not be after 'to'")
	}

	snaps, err := s.snapshots.List(ctx, id, fromDay, toDay)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list snapshots", err)
	}
	return snaps, nil
}

// RollingRewards initializes the snapshot of the day containing timestamp and
// returns its trailing delegation reward sums.
func (s *IndexerService) RollingRewards(ctx context.Context, indexer string, timestamp int64) (*types.RollingRewards, error) {
	id, err := types.NormalizeIndexerID(indexer)
	if err != nil {
		return nil, apperrors.NewInvalidIndexerError(indexer)
	}
	if timestamp < s.cfg.GenesisTimestamp {
		return nil, apperrors.NewInvalidParameterError("timestamp", "before genesis")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	found, err := s.indexers.Get(ctx, id)
	if err != nil {
		return nil, apperrors.NewDatabaseError("load indexer", err)
	}
	if found == nil {
		return nil, apperrors.NewNotFoundError("indexer", id)
	}

	manager, err := snapshot.NewManager(ctx, s.snapshots, s.cfg, found, timestamp)
	if err != nil {
		return nil, apperrors.NewDatabaseError("initialize snapshot", err)
	}

	snap := manager.Snapshot()
	return &types.RollingRewards{
		SnapshotID: manager.ID(),
		Day:        snap.PreviousDelegationRewardsDay.String(),
		Week:       snap.PreviousDelegationRewardsWeek.String(),
		Month:      manager.PreviousDelegationRewardsMonth().String(),
	}, nil
}
