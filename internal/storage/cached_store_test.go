package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/indexer-snapshots/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore wraps the memory store and counts backing reads
type countingStore struct {
	*MemorySnapshotStore
	loads   int
	saveErr error
}

func (c *countingStore) Load(ctx context.Context, id string) (*models.IndexerSnapshot, error) {
	c.loads++
	return c.MemorySnapshotStore.Load(ctx, id)
}

func (c *countingStore) Save(ctx context.Context, snap *models.IndexerSnapshot) error {
	if c.saveErr != nil {
		return c.saveErr
	}
	return c.MemorySnapshotStore.Save(ctx, snap)
}

func TestCachedSnapshotStore_ReadThrough(t *testing.T) {
	mr, cache := newTestRedis(t)
	defer mr.Close()
	ctx := testContext(t)

	backing := &countingStore{MemorySnapshotStore: NewMemorySnapshotStore()}
	require.NoError(t, backing.MemorySnapshotStore.Save(ctx, testSnapshot("0xabc", 7, "12.5")))
	store := NewCachedSnapshotStore(backing, cache, time.Minute)

	first, err := store.Load(ctx, "0xabc-7")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, 1, backing.loads)
	assert.True(t, mr.Exists("snapshot:0xabc-7"))

	second, err := store.Load(ctx, "0xabc-7")
	require.NoError(t, err)
	assert.Equal(t, 1, backing.loads, "second read is served from Redis")
	assert.True(t, second.DelegationRewards.Equal(decimal.RequireFromString("12.5")))

	missing, err := store.Load(ctx, "0xabc-8")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.False(t, mr.Exists("snapshot:0xabc-8"))
}

func TestCachedSnapshotStore_WriteThrough(t *testing.T) {
	mr, cache := newTestRedis(t)
	defer mr.Close()
	ctx := testContext(t)

	backing := &countingStore{MemorySnapshotStore: NewMemorySnapshotStore()}
	store := NewCachedSnapshotStore(backing, cache, time.Minute)

	snap, created, err := store.GetOrCreate(ctx, "0xabc-1", func() *models.IndexerSnapshot {
		return testSnapshot("0xabc", 1, "0")
	})
	require.NoError(t, err)
	assert.True(t, created)

	snap.DelegationRewards = decimal.NewFromInt(9)
	require.NoError(t, store.Save(ctx, snap))

	cached, ok := store.get(ctx, "0xabc-1")
	require.True(t, ok)
	assert.True(t, cached.DelegationRewards.Equal(decimal.NewFromInt(9)))

	stored, err := backing.MemorySnapshotStore.Load(ctx, "0xabc-1")
	require.NoError(t, err)
	assert.True(t, stored.DelegationRewards.Equal(decimal.NewFromInt(9)))

	_, created, err = store.GetOrCreate(ctx, "0xabc-1", func() *models.IndexerSnapshot {
		t.Fatal("seed must not run for a cached snapshot")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, created)
}

func TestCachedSnapshotStore_SaveFailureInvalidates(t *testing.T) {
	mr, cache := newTestRedis(t)
	defer mr.Close()
	ctx := testContext(t)

	backing := &countingStore{MemorySnapshotStore: NewMemorySnapshotStore()}
	store := NewCachedSnapshotStore(backing, cache, time.Minute)

	snap := testSnapshot("0xabc", 2, "1")
	require.NoError(t, store.Save(ctx, snap))
	require.True(t, mr.Exists("snapshot:0xabc-2"))

	backing.saveErr = errors.New("disk full")
	err := store.Save(ctx, testSnapshot("0xabc", 2, "5"))
	assert.ErrorContains(t, err, "disk full")
	assert.False(t, mr.Exists("snapshot:0xabc-2"))
}

func TestCachedSnapshotStore_SurvivesRedisOutage(t *testing.T) {
	mr, cache := newTestRedis(t)
	ctx := testContext(t)

	backing := &countingStore{MemorySnapshotStore: NewMemorySnapshotStore()}
	require.NoError(t, backing.MemorySnapshotStore.Save(ctx, testSnapshot("0xabc", 3, "4")))
	store := NewCachedSnapshotStore(backing, cache, time.Minute)

	mr.Close()

	got, err := store.Load(ctx, "0xabc-3")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, backing.loads)

	require.NoError(t, store.Save(ctx, testSnapshot("0xabc", 4, "1")))
}

func TestCachedSnapshotStore_CorruptEntryFallsBack(t *testing.T) {
	mr, cache := newTestRedis(t)
	defer mr.Close()
	ctx := testContext(t)

	backing := &countingStore{MemorySnapshotStore: NewMemorySnapshotStore()}
	require.NoError(t, backing.MemorySnapshotStore.Save(ctx, testSnapshot("0xabc", 6, "2")))
	store := NewCachedSnapshotStore(backing, cache, time.Minute)

	require.NoError(t, mr.Set("snapshot:0xabc-6", "{not json"))

	got, err := store.Load(ctx, "0xabc-6")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, backing.loads)
	assert.True(t, got.DelegationRewards.Equal(decimal.NewFromInt(2)))
}
