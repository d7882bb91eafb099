package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/indexer-snapshots/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// IndexerRepository stores indexers in Postgres
type IndexerRepository struct {
	db *PostgresDB
}

// NewIndexerRepository creates a new indexer repository
func NewIndexerRepository(db *PostgresDB) *IndexerRepository {
	return &IndexerRepository{db: db}
}

// Get retrieves an indexer by address, returning nil when absent
func (r *IndexerRepository) Get(ctx context.Context, id string) (*models.Indexer, error) {
	query := `
		SELECT id, own_stake, delegated_stake, created_at, updated_at
		FROM indexers
		WHERE id = $1
	`

	var indexer models.Indexer
	var ownStake, delegatedStake decimal.NullDecimal

	err := r.db.Pool().QueryRow(ctx, query, id).Scan(
		&indexer.ID,
		&ownStake,
		&delegatedStake,
		&indexer.CreatedAt,
		&indexer.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get indexer: %w", err)
	}

	if ownStake.Valid {
		indexer.OwnStake = &ownStake.Decimal
	}
	if delegatedStake.Valid {
		indexer.DelegatedStake = &delegatedStake.Decimal
	}

	return &indexer, nil
}

// Save upserts an indexer's stake values
func (r *IndexerRepository) Save(ctx context.Context, indexer *models.Indexer) error {
	query := `
		INSERT INTO indexers (id, own_stake, delegated_stake, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			own_stake = EXCLUDED.own_stake,
			delegated_stake = EXCLUDED.delegated_stake,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Pool().Exec(ctx, query,
		indexer.ID,
		nullDecimal(indexer.OwnStake),
		nullDecimal(indexer.DelegatedStake),
		indexer.CreatedAt,
		indexer.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save indexer: %w", err)
	}

	return nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
