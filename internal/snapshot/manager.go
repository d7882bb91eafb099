package snapshot

import (
	"context"
	"fmt"

	"github.com/indexer-snapshots/internal/logging"
	"github.com/indexer-snapshots/internal/models"
	"github.com/shopspring/decimal"
)

// Manager owns the current day's snapshot of one indexer.
// It is not safe for concurrent use; callers apply events sequentially.
type Manager struct {
	store     Store
	cfg       Config
	indexer   *models.Indexer
	timestamp int64
	snapshot  *models.IndexerSnapshot
	created   bool
}

// NewManager loads or creates the indexer's snapshot for the day containing
// timestamp and recomputes its trailing reward windows.
// The recomputed windows are persisted by the next mutator call.
func NewManager(ctx context.Context, store Store, cfg Config, indexer *models.Indexer, timestamp int64) (*Manager, error) {
	m := &Manager{
		store:     store,
		cfg:       cfg,
		indexer:   indexer,
		timestamp: timestamp,
	}

	if err := m.initialize(ctx); err != nil {
		return nil, err
	}
	if err := m.updatePastRewards(ctx); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Manager) initialize(ctx context.Context) error {
	id := m.ID()

	snap, created, err := m.store.GetOrCreate(ctx, id, m.seed)
	if err != nil {
		return fmt.Errorf("failed to load snapshot %s: %w", id, err)
	}

	m.snapshot = snap
	m.created = created

	if created {
		logging.FromContext(ctx).ForIndexer(m.indexer.ID).WithFields(map[string]interface{}{
			"snapshot":  id,
			"timestamp": m.timestamp,
		}).Debug("Created daily snapshot")
	}

	return nil
}

// seed builds a fresh bucket from the indexer's live stake
func (m *Manager) seed() *models.IndexerSnapshot {
	return &models.IndexerSnapshot{
		ID:                             m.ID(),
		Indexer:                        m.indexer.ID,
		DayIndex:                       m.cfg.DayIndex(m.timestamp),
		CreatedAtTimestamp:             m.timestamp,
		OwnStakeInitial:                m.indexer.OwnStakeOrZero(),
		DelegatedStakeInitial:          m.indexer.DelegatedStakeOrZero(),
		OwnStakeDelta:                  decimal.Zero,
		DelegatedStakeDelta:            decimal.Zero,
		DelegationRewards:              decimal.Zero,
		ParametersChangeCount:          0,
		PreviousDelegationRewardsDay:   decimal.Zero,
		PreviousDelegationRewardsWeek:  decimal.Zero,
		PreviousDelegationRewardsMonth: decimal.Zero,
	}
}

// updatePastRewards sums delegation rewards of the previous MonthWindow buckets.
// Missing buckets contribute nothing.
func (m *Manager) updatePastRewards(ctx context.Context) error {
	day := m.snapshot.PreviousDelegationRewardsDay
	week := m.snapshot.PreviousDelegationRewardsWeek
	month := m.snapshot.PreviousDelegationRewardsMonth

	if m.cfg.RollingMode != RollingModeAdditive {
		day, week, month = decimal.Zero, decimal.Zero, decimal.Zero
	}

	for i := int64(1); i <= MonthWindow; i++ {
		id := m.cfg.SnapshotID(m.indexer.ID, m.timestamp, i)
		past, err := m.store.Load(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load past snapshot %s: %w", id, err)
		}
		if past == nil {
			continue
		}

		rewards := past.DelegationRewards
		if i <= DayWindow {
			day = day.Add(rewards)
		}
		if i <= WeekWindow {
			week = week.Add(rewards)
		}
		month = month.Add(rewards)
	}

	m.snapshot.PreviousDelegationRewardsDay = day
	m.snapshot.PreviousDelegationRewardsWeek = week
	m.snapshot.PreviousDelegationRewardsMonth = month

	return nil
}

// RecomputeWindows runs the trailing window computation again against the store
func (m *Manager) RecomputeWindows(ctx context.Context) error {
	return m.updatePastRewards(ctx)
}

// ID returns the key of the current day's snapshot
func (m *Manager) ID() string {
	return m.cfg.SnapshotID(m.indexer.ID, m.timestamp, 0)
}

// Created reports whether this manager created the snapshot
func (m *Manager) Created() bool {
	return m.created
}

// PreviousDelegationRewardsMonth returns the 30 day trailing reward sum
func (m *Manager) PreviousDelegationRewardsMonth() decimal.Decimal {
	return m.snapshot.PreviousDelegationRewardsMonth
}

// Snapshot returns a copy of the current state
func (m *Manager) Snapshot() *models.IndexerSnapshot {
	return m.snapshot.Clone()
}

// UpdateOwnStake adds a signed delta to the own stake change of the day
func (m *Manager) UpdateOwnStake(ctx context.Context, delta decimal.Decimal) error {
	return m.apply(ctx, func(snap *models.IndexerSnapshot) {
		snap.OwnStakeDelta = snap.OwnStakeDelta.Add(delta)
	})
}

// UpdateDelegatedStake adds a signed delta to the delegated stake change of the day
func (m *Manager) UpdateDelegatedStake(ctx context.Context, delta decimal.Decimal) error {
	return m.apply(ctx, func(snap *models.IndexerSnapshot) {
		snap.DelegatedStakeDelta = snap.DelegatedStakeDelta.Add(delta)
	})
}

// AddDelegationPoolRewards adds rewards assigned to the delegation pool
func (m *Manager) AddDelegationPoolRewards(ctx context.Context, amount decimal.Decimal) error {
	return m.apply(ctx, func(snap *models.IndexerSnapshot) {
		snap.DelegationRewards = snap.DelegationRewards.Add(amount)
	})
}

// IncrementParametersChangeCount records one reward parameter change
func (m *Manager) IncrementParametersChangeCount(ctx context.Context) error {
	return m.apply(ctx, func(snap *models.IndexerSnapshot) {
		snap.ParametersChangeCount++
	})
}

// apply persists a modified copy and keeps it only once the save succeeded
func (m *Manager) apply(ctx context.Context, update func(snap *models.IndexerSnapshot)) error {
	next := m.snapshot.Clone()
	update(next)

	if err := m.store.Save(ctx, next.Clone()); err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", next.ID, err)
	}

	m.snapshot = next
	return nil
}
