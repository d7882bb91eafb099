package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/indexer-snapshots/internal/models"
	"github.com/jackc/pgx/v5"
)

// SnapshotRepository stores indexer snapshots in Postgres
type SnapshotRepository struct {
	db *PostgresDB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *PostgresDB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

const snapshotColumns = `
	id, indexer, day_index, created_at_timestamp,
	own_stake_initial, delegated_stake_initial,
	own_stake_delta, delegated_stake_delta,
	delegation_rewards, parameters_change_count,
	previous_delegation_rewards_day, previous_delegation_rewards_week,
	previous_delegation_rewards_month
`

// Load retrieves a snapshot by ID, returning nil when absent
func (r *SnapshotRepository) Load(ctx context.Context, id string) (*models.IndexerSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM indexer_snapshots WHERE id = $1`

	snap, err := scanSnapshot(r.db.Pool().QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	return snap, nil
}

// Save upserts a snapshot.
// The creation timestamp and initial stakes of an existing row are never overwritten.
func (r *SnapshotRepository) Save(ctx context.Context, snap *models.IndexerSnapshot) error {
	query := `
		INSERT INTO indexer_snapshots (` + snapshotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			own_stake_delta = EXCLUDED.own_stake_delta,
			delegated_stake_delta = EXCLUDED.delegated_stake_delta,
			delegation_rewards = EXCLUDED.delegation_rewards,
			parameters_change_count = EXCLUDED.parameters_change_count,
			previous_delegation_rewards_day = EXCLUDED.previous_delegation_rewards_day,
			previous_delegation_rewards_week = EXCLUDED.previous_delegation_rewards_week,
			previous_delegation_rewards_month = EXCLUDED.previous_delegation_rewards_month,
			updated_at = NOW()
	`

	if _, err := r.db.Pool().Exec(ctx, query, snapshotArgs(snap)...); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// GetOrCreate inserts seed() unless a row with the ID exists
func (r *SnapshotRepository) GetOrCreate(ctx context.Context, id string, seed func() *models.IndexerSnapshot) (*models.IndexerSnapshot, bool, error) {
	existing, err := r.Load(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	snap := seed()
	query := `
		INSERT INTO indexer_snapshots (` + snapshotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`

	tag, err := r.db.Pool().Exec(ctx, query, snapshotArgs(snap)...)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create snapshot: %w", err)
	}

	// Lost a race with another writer; theirs wins
	if tag.RowsAffected() == 0 {
		existing, err := r.Load(ctx, id)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	return snap, true, nil
}

// List returns an indexer's snapshots within a day range in ascending order
func (r *SnapshotRepository) List(ctx context.Context, indexer string, fromDay, toDay int64) ([]*models.IndexerSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM indexer_snapshots
		WHERE indexer = $1
			AND day_index >= $2
			AND day_index <= $3
		ORDER BY day_index ASC
	`

	rows, err := r.db.Pool().Query(ctx, query, indexer, fromDay, toDay)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.IndexerSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		snapshots = append(snapshots, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot rows: %w", err)
	}

	return snapshots, nil
}

func snapshotArgs(s *models.IndexerSnapshot) []interface{} {
	return []interface{}{
		s.ID,
		s.Indexer,
		s.DayIndex,
		s.CreatedAtTimestamp,
		s.OwnStakeInitial,
		s.DelegatedStakeInitial,
		s.OwnStakeDelta,
		s.DelegatedStakeDelta,
		s.DelegationRewards,
		s.ParametersChangeCount,
		s.PreviousDelegationRewardsDay,
		s.PreviousDelegationRewardsWeek,
		s.PreviousDelegationRewardsMonth,
	}
}

func scanSnapshot(row pgx.Row) (*models.IndexerSnapshot, error) {
	var s models.IndexerSnapshot
	err := row.Scan(
		&s.ID,
		&s.Indexer,
		&s.DayIndex,
		&s.CreatedAtTimestamp,
		&s.OwnStakeInitial,
		&s.DelegatedStakeInitial,
		&s.OwnStakeDelta,
		&s.DelegatedStakeDelta,
		&s.DelegationRewards,
		&s.ParametersChangeCount,
		&s.PreviousDelegationRewardsDay,
		&s.PreviousDelegationRewardsWeek,
		&s.PreviousDelegationRewardsMonth,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
