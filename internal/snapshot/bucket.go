// Package snapshot maintains per-indexer daily snapshots and the trailing
// delegation reward windows derived from them.
package snapshot

import (
	"fmt"
	"strconv"

	"github.com/indexer-snapshots/internal/config"
)

// RollingMode selects how the trailing reward windows are recomputed
type RollingMode string

const (
	// RollingModeReset zeroes the window fields before summing past buckets
	RollingModeReset RollingMode = "reset"
	// RollingModeAdditive adds past buckets onto the stored window values.
	// Every construction on the same day adds the history again.
	RollingModeAdditive RollingMode = "additive"
)

// Trailing window sizes in days
const (
	DayWindow   = 1
	WeekWindow  = 7
	MonthWindow = 30
)

// Config holds the bucketing parameters shared by every snapshot
type Config struct {
	GenesisTimestamp int64
	DayLength        int64
	RollingMode      RollingMode
}

// DefaultConfig buckets by UTC-aligned 24h days from the Unix epoch
func DefaultConfig() Config {
	return Config{
		GenesisTimestamp: 0,
		DayLength:        86400,
		RollingMode:      RollingModeReset,
	}
}

// ConfigFromSnapshotConfig converts the loaded environment settings
func ConfigFromSnapshotConfig(c config.SnapshotConfig) (Config, error) {
	cfg := Config{
		GenesisTimestamp: c.GenesisTimestamp,
		DayLength:        c.DayLength,
		RollingMode:      RollingMode(c.RollingMode),
	}
	if cfg.DayLength <= 0 {
		return Config{}, fmt.Errorf("day length must be positive, got %d", cfg.DayLength)
	}
	switch cfg.RollingMode {
	case RollingModeReset, RollingModeAdditive:
	case "":
		cfg.RollingMode = RollingModeReset
	default:
		return Config{}, fmt.Errorf("unknown rolling mode %q", c.RollingMode)
	}
	return cfg, nil
}

// DayIndex returns the number of whole days between genesis and timestamp.
// Timestamps before genesis are not supported.
func (c Config) DayIndex(timestamp int64) int64 {
	return (timestamp - c.GenesisTimestamp) / c.DayLength
}

// SnapshotID returns the key of the bucket pastDays before the day containing timestamp
func (c Config) SnapshotID(indexer string, timestamp int64, pastDays int64) string {
	return ID(indexer, c.DayIndex(timestamp)-pastDays)
}

// ID formats a snapshot key from an indexer and a day index
func ID(indexer string, dayIndex int64) string {
	return indexer + "-" + strconv.FormatInt(dayIndex, 10)
}
