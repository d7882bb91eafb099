package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/indexer-snapshots/internal/circuitbreaker"
	"github.com/indexer-snapshots/internal/logging"
	"github.com/indexer-snapshots/internal/models"
)

// Archiver records persisted snapshot versions
type Archiver interface {
	Append(ctx context.Context, snap *models.IndexerSnapshot) error
}

// SnapshotArchive appends every persisted snapshot version to ClickHouse
type SnapshotArchive struct {
	db *ClickHouseDB
}

// NewSnapshotArchive creates a new ClickHouse snapshot archive
func NewSnapshotArchive(db *ClickHouseDB) *SnapshotArchive {
	return &SnapshotArchive{db: db}
}

// Append inserts one version row
func (a *SnapshotArchive) Append(ctx context.Context, snap *models.IndexerSnapshot) error {
	batch, err := a.db.conn.PrepareBatch(ctx, `
		INSERT INTO indexer_snapshot_versions (
			version_id, id, indexer, day_index, created_at_timestamp,
			own_stake_initial, delegated_stake_initial,
			own_stake_delta, delegated_stake_delta,
			delegation_rewards, parameters_change_count,
			previous_delegation_rewards_day, previous_delegation_rewards_week,
			previous_delegation_rewards_month, archived_at
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	// Decimal columns take shopspring decimals directly
	err = batch.Append(
		uuid.New(),
		snap.ID,
		snap.Indexer,
		snap.DayIndex,
		snap.CreatedAtTimestamp,
		snap.OwnStakeInitial,
		snap.DelegatedStakeInitial,
		snap.OwnStakeDelta,
		snap.DelegatedStakeDelta,
		snap.DelegationRewards,
		snap.ParametersChangeCount,
		snap.PreviousDelegationRewardsDay,
		snap.PreviousDelegationRewardsWeek,
		snap.PreviousDelegationRewardsMonth,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to append snapshot version: %w", err)
	}

	return batch.Send()
}

// VersionCount returns how many versions of a snapshot were archived
func (a *SnapshotArchive) VersionCount(ctx context.Context, id string) (uint64, error) {
	var count uint64
	row := a.db.conn.QueryRow(ctx, `SELECT count() FROM indexer_snapshot_versions WHERE id = ?`, id)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count snapshot versions: %w", err)
	}
	return count, nil
}

// GuardedArchiver skips archive appends while the breaker is open
type GuardedArchiver struct {
	next    Archiver
	breaker *circuitbreaker.CircuitBreaker
}

// NewGuardedArchiver wraps next with a circuit breaker
func NewGuardedArchiver(next Archiver, breaker *circuitbreaker.CircuitBreaker) *GuardedArchiver {
	return &GuardedArchiver{next: next, breaker: breaker}
}

// Append runs the wrapped append through the breaker
func (g *GuardedArchiver) Append(ctx context.Context, snap *models.IndexerSnapshot) error {
	return g.breaker.Execute(ctx, func() error {
		return g.next.Append(ctx, snap)
	})
}

// ArchivingStore forwards every successful write to an Archiver.
// Archive failures are logged and never fail the write.
type ArchivingStore struct {
	next     SnapshotStore
	archiver Archiver
}

// NewArchivingStore wraps next so its writes are archived
func NewArchivingStore(next SnapshotStore, archiver Archiver) *ArchivingStore {
	return &ArchivingStore{next: next, archiver: archiver}
}

// Load reads from the wrapped store
func (s *ArchivingStore) Load(ctx context.Context, id string) (*models.IndexerSnapshot, error) {
	return s.next.Load(ctx, id)
}

// Save writes through and archives the new version
func (s *ArchivingStore) Save(ctx context.Context, snap *models.IndexerSnapshot) error {
	if err := s.next.Save(ctx, snap); err != nil {
		return err
	}
	s.archive(ctx, snap)
	return nil
}

// GetOrCreate archives the seed when a snapshot is created
func (s *ArchivingStore) GetOrCreate(ctx context.Context, id string, seed func() *models.IndexerSnapshot) (*models.IndexerSnapshot, bool, error) {
	snap, created, err := s.next.GetOrCreate(ctx, id, seed)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.archive(ctx, snap)
	}
	return snap, created, nil
}

// List reads from the wrapped store
func (s *ArchivingStore) List(ctx context.Context, indexer string, fromDay, toDay int64) ([]*models.IndexerSnapshot, error) {
	return s.next.List(ctx, indexer, fromDay, toDay)
}

func (s *ArchivingStore) archive(ctx context.Context, snap *models.IndexerSnapshot) {
	if err := s.archiver.Append(ctx, snap); err != nil {
		logging.FromContext(ctx).WithError(err).WithField("snapshot", snap.ID).Warn("Failed to archive snapshot version")
	}
}
