package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeIndexerID(t *testing.T) {
	t.Run("lowercases checksummed address", func(t *testing.T) {
		got, err := NormalizeIndexerID("0x5A0b54D5dc17e0AadC383d2db43B0a0D3E029c4c")
		require.NoError(t, err)
		assert.Equal(t, "0x5a0b54d5dc17e0aadc383d2db43b0a0d3e029c4c", got)
	})

	t.Run("accepts address without prefix", func(t *testing.T) {
		got, err := NormalizeIndexerID("5a0b54d5dc17e0aadc383d2db43b0a0d3e029c4c")
		require.NoError(t, err)
		assert.Equal(t, "0x5a0b54d5dc17e0aadc383d2db43b0a0d3e029c4c", got)
	})

	t.Run("trims whitespace", func(t *testing.T) {
		got, err := NormalizeIndexerID("  0x5a0b54d5dc17e0aadc383d2db43b0a0d3e029c4c\n")
		require.NoError(t, err)
		assert.Equal(t, "0x5a0b54d5dc17e0aadc383d2db43b0a0d3e029c4c", got)
	})

	for _, bad := range []string{"", "idx1", "0x1234", "0xZZ0b54d5dc17e0aadc383d2db43b0a0d3e029c4c"} {
		_, err := NormalizeIndexerID(bad)
		assert.Error(t, err, "expected %q to be rejected", bad)
	}
}

func TestEventType(t *testing.T) {
	assert.True(t, EventOwnStake.Valid())
	assert.True(t, EventDelegatedStake.Valid())
	assert.True(t, EventDelegationRewards.Valid())
	assert.True(t, EventParametersUpdated.Valid())
	assert.False(t, EventType("slashing").Valid())

	assert.True(t, EventDelegationRewards.RequiresAmount())
	assert.False(t, EventParametersUpdated.RequiresAmount())
}
