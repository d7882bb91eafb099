package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Indexer is the staking participant whose state is snapshotted.
// Stake values are nil until the indexer's first stake event.
type Indexer struct {
	ID             string           `json:"id" db:"id"`
	OwnStake       *decimal.Decimal `json:"ownStake,omitempty" db:"own_stake"`
	DelegatedStake *decimal.Decimal `json:"delegatedStake,omitempty" db:"delegated_stake"`
	CreatedAt      time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time        `json:"updatedAt" db:"updated_at"`
}

// OwnStakeOrZero returns the own stake, treating a missing value as zero
func (i *Indexer) OwnStakeOrZero() decimal.Decimal {
	if i.OwnStake == nil {
		return decimal.Zero
	}
	return *i.OwnStake
}

// DelegatedStakeOrZero returns the delegated stake, treating a missing value as zero
func (i *Indexer) DelegatedStakeOrZero() decimal.Decimal {
	if i.DelegatedStake == nil {
		return decimal.Zero
	}
	return *i.DelegatedStake
}

// AddOwnStake applies a signed delta to the own stake
func (i *Indexer) AddOwnStake(delta decimal.Decimal) {
	v := i.OwnStakeOrZero().Add(delta)
	i.OwnStake = &v
}

// AddDelegatedStake applies a signed delta to the delegated stake
func (i *Indexer) AddDelegatedStake(delta decimal.Decimal) {
	v := i.DelegatedStakeOrZero().Add(delta)
	i.DelegatedStake = &v
}
