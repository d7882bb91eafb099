package snapshot

import (
	"testing"

	"github.com/indexer-snapshots/internal/config"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_SnapshotID(t *testing.T) {
	cfg := Config{GenesisTimestamp: 0, DayLength: 86400}

	tests := []struct {
		name      string
		timestamp int64
		pastDays  int64
		want      string
	}{
		{name: "start of day", timestamp: 86400 * 10, want: "idx1-10"},
		{name: "last second of day", timestamp: 86400*11 - 1, want: "idx1-10"},
		{name: "yesterday", timestamp: 86400 * 10, pastDays: 1, want: "idx1-9"},
		{name: "month ago", timestamp: 86400 * 40, pastDays: 30, want: "idx1-10"},
		{name: "genesis", timestamp: 0, want: "idx1-0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.SnapshotID("idx1", tt.timestamp, tt.pastDays))
		})
	}
}

func TestConfig_DayIndexWithGenesis(t *testing.T) {
	cfg := Config{GenesisTimestamp: 1607904000, DayLength: 86400}

	assert.Equal(t, int64(0), cfg.DayIndex(1607904000))
	assert.Equal(t, int64(0), cfg.DayIndex(1607904000+86399))
	assert.Equal(t, int64(1), cfg.DayIndex(1607904000+86400))
	assert.Equal(t, "0xabc-365", cfg.SnapshotID("0xabc", 1607904000+365*86400+5, 0))
}

func TestConfigFromSnapshotConfig(t *testing.T) {
	cfg, err := ConfigFromSnapshotConfig(config.SnapshotConfig{GenesisTimestamp: 5, DayLength: 3600})
	require.NoError(t, err)
	assert.Equal(t, RollingModeReset, cfg.RollingMode)
	assert.Equal(t, int64(5), cfg.GenesisTimestamp)

	cfg, err = ConfigFromSnapshotConfig(config.SnapshotConfig{DayLength: 86400, RollingMode: "additive"})
	require.NoError(t, err)
	assert.Equal(t, RollingModeAdditive, cfg.RollingMode)

	_, err = ConfigFromSnapshotConfig(config.SnapshotConfig{DayLength: 0})
	assert.Error(t, err)

	_, err = ConfigFromSnapshotConfig(config.SnapshotConfig{DayLength: 86400, RollingMode: "weird"})
	assert.Error(t, err)
}

func TestSnapshotIDProperties(t *testing.T) {
	cfg := Config{GenesisTimestamp: 1_600_000_000, DayLength: 86400}
	properties := gopter.NewProperties(nil)

	properties.Property("timestamps in the same day share a key", prop.ForAll(
		func(day int64, a, b int64) bool {
			base := cfg.GenesisTimestamp + day*cfg.DayLength
			return cfg.SnapshotID("idx", base+a, 0) == cfg.SnapshotID("idx", base+b, 0)
		},
		gen.Int64Range(0, 10_000),
		gen.Int64Range(0, 86399),
		gen.Int64Range(0, 86399),
	))

	properties.Property("day index is monotonic in time", prop.ForAll(
		func(t1, dt int64) bool {
			return cfg.DayIndex(cfg.GenesisTimestamp+t1) <= cfg.DayIndex(cfg.GenesisTimestamp+t1+dt)
		},
		gen.Int64Range(0, 1_000_000_000),
		gen.Int64Range(0, 1_000_000_000),
	))

	properties.Property("offset shifts the day index", prop.ForAll(
		func(t1 int64, offset int64) bool {
			ts := cfg.GenesisTimestamp + t1
			return cfg.SnapshotID("idx", ts, offset) == ID("idx", cfg.DayIndex(ts)-offset)
		},
		gen.Int64Range(0, 1_000_000_000),
		gen.Int64Range(0, MonthWindow),
	))

	properties.TestingRun(t)
}
