// Package types provides common type definitions for the indexer snapshot system.
package types

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// EventType identifies which snapshot accumulator an indexer event feeds
type EventType string

const (
	// EventOwnStake is a change to the indexer's self-staked tokens
	EventOwnStake EventType = "own_stake"
	// EventDelegatedStake is a change to the tokens delegated to the indexer
	EventDelegatedStake EventType = "delegated_stake"
	// EventDelegationRewards is a reward amount assigned to the delegation pool
	EventDelegationRewards EventType = "delegation_rewards"
	// EventParametersUpdated is a change of the indexer's reward parameters
	EventParametersUpdated EventType = "parameters_updated"
)

// Valid reports whether the event type is one the service knows how to apply
func (e EventType) Valid() bool {
	switch e {
	case EventOwnStake, EventDelegatedStake, EventDelegationRewards, EventParametersUpdated:
		return true
	}
	return false
}

// RequiresAmount reports whether events of this type carry a decimal amount
func (e EventType) RequiresAmount() bool {
	return e != EventParametersUpdated
}

// RollingRewards holds the trailing delegation reward sums of one snapshot
type RollingRewards struct {
	SnapshotID string `json:"snapshotId"`
	Day        string `json:"day"`
	Week       string `json:"week"`
	Month      string `json:"month"`
}

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// NormalizeIndexerID validates an indexer address and returns its lowercase hex form.
// Indexers are identified by their Ethereum account address.
func NormalizeIndexerID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if !common.IsHexAddress(id) {
		return "", fmt.Errorf("invalid indexer address: %q", id)
	}
	return strings.ToLower(common.HexToAddress(id).Hex()), nil
}
