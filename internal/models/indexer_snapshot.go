package models

import (
	"github.com/shopspring/decimal"
)

// IndexerSnapshot is the daily aggregate record of one indexer.
// ID is "<indexer>-<day index>"; exactly one snapshot exists per indexer and day.
type IndexerSnapshot struct {
	ID                 string `json:"id" db:"id"`
	Indexer            string `json:"indexer" db:"indexer"`
	DayIndex           int64  `json:"dayIndex" db:"day_index"`
	CreatedAtTimestamp int64  `json:"createdAtTimestamp" db:"created_at_timestamp"`

	// Write-once seed taken from the indexer when the bucket is created
	OwnStakeInitial       decimal.Decimal `json:"ownStakeInitial" db:"own_stake_initial"`
	DelegatedStakeInitial decimal.Decimal `json:"delegatedStakeInitial" db:"delegated_stake_initial"`

	OwnStakeDelta         decimal.Decimal `json:"ownStakeDelta" db:"own_stake_delta"`
	DelegatedStakeDelta   decimal.Decimal `json:"delegatedStakeDelta" db:"delegated_stake_delta"`
	DelegationRewards     decimal.Decimal `json:"delegationRewards" db:"delegation_rewards"`
	ParametersChangeCount int64           `json:"parametersChangeCount" db:"parameters_change_count"`

	// Derived from earlier buckets when the snapshot manager is constructed
	PreviousDelegationRewardsDay   decimal.Decimal `json:"previousDelegationRewardsDay" db:"previous_delegation_rewards_day"`
	PreviousDelegationRewardsWeek  decimal.Decimal `json:"previousDelegationRewardsWeek" db:"previous_delegation_rewards_week"`
	PreviousDelegationRewardsMonth decimal.Decimal `json:"previousDelegationRewardsMonth" db:"previous_delegation_rewards_month"`
}

// Clone returns a copy that shares no mutable state with s
func (s *IndexerSnapshot) Clone() *IndexerSnapshot {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
