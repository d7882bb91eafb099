package storage

import (
	"context"
	"testing"

	"github.com/indexer-snapshots/internal/models"
	"github.com/indexer-snapshots/internal/snapshot"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ SnapshotStore = (*MemorySnapshotStore)(nil)
	_ SnapshotStore = (*SnapshotRepository)(nil)
	_ SnapshotStore = (*CachedSnapshotStore)(nil)
	_ SnapshotStore = (*ArchivingStore)(nil)
	_ Archiver      = (*SnapshotArchive)(nil)
	_ Archiver      = (*GuardedArchiver)(nil)
)

func testSnapshot(indexer string, day int64, rewards string) *models.IndexerSnapshot {
	return &models.IndexerSnapshot{
		ID:                snapshot.ID(indexer, day),
		Indexer:           indexer,
		DayIndex:          day,
		DelegationRewards: decimal.RequireFromString(rewards),
	}
}

func TestMemorySnapshotStore_GetOrCreate(t *testing.T) {
	ctx := testContext(t)
	store := NewMemorySnapshotStore()
	seeds := 0
	seed := func() *models.IndexerSnapshot {
		seeds++
		return testSnapshot("0xabc", 5, "0")
	}

	first, created, err := store.GetOrCreate(ctx, "0xabc-5", seed)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "0xabc-5", first.ID)

	second, created, err := store.GetOrCreate(ctx, "0xabc-5", seed)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, seeds)
}

func TestMemorySnapshotStore_ReturnsCopies(t *testing.T) {
	ctx := testContext(t)
	store := NewMemorySnapshotStore()
	require.NoError(t, store.Save(ctx, testSnapshot("0xabc", 1, "3")))

	loaded, err := store.Load(ctx, "0xabc-1")
	require.NoError(t, err)
	loaded.ParametersChangeCount = 42

	again, err := store.Load(ctx, "0xabc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), again.ParametersChangeCount)

	missing, err := store.Load(ctx, "0xabc-2")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemorySnapshotStore_List(t *testing.T) {
	ctx := testContext(t)
	store := NewMemorySnapshotStore()
	for _, d := range []int64{9, 3, 5, 12} {
		require.NoError(t, store.Save(ctx, testSnapshot("0xabc", d, "1")))
	}
	require.NoError(t, store.Save(ctx, testSnapshot("0xdef", 5, "1")))

	got, err := store.List(ctx, "0xabc", 4, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(5), got[0].DayIndex)
	assert.Equal(t, int64(9), got[1].DayIndex)

	all := store.All()
	require.Len(t, all, 5)
	assert.Equal(t, "0xabc-3", all[0].ID)
	assert.Equal(t, "0xdef-5", all[4].ID)
}

func TestMemoryIndexerRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryIndexerRepository()

	missing, err := repo.Get(ctx, "0xabc")
	require.NoError(t, err)
	assert.Nil(t, missing)

	stake := decimal.NewFromInt(10)
	require.NoError(t, repo.Save(ctx, &models.Indexer{ID: "0xabc", OwnStake: &stake}))

	got, err := repo.Get(ctx, "0xabc")
	require.NoError(t, err)
	require.NotNil(t, got)
	got.AddOwnStake(decimal.NewFromInt(5))

	again, err := repo.Get(ctx, "0xabc")
	require.NoError(t, err)
	assert.True(t, again.OwnStakeOrZero().Equal(decimal.NewFromInt(10)))
	assert.Nil(t, again.DelegatedStake)
}

// The manager only relies on the Store contract, so every store must produce the same windows
func TestStores_DriveManager(t *testing.T) {
	mr, cache := newTestRedis(t)
	defer mr.Close()

	stores := map[string]SnapshotStore{
		"memory":    NewMemorySnapshotStore(),
		"cached":    NewCachedSnapshotStore(NewMemorySnapshotStore(), cache, 0),
		"archiving": NewArchivingStore(NewMemorySnapshotStore(), &recordingArchiver{}),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := testContext(t)
			cfg := snapshot.DefaultConfig()
			indexer := &models.Indexer{ID: "0x" + name}

			for d := int64(1); d <= 8; d++ {
				m, err := snapshot.NewManager(ctx, store, cfg, indexer, d*cfg.DayLength)
				require.NoError(t, err)
				require.NoError(t, m.AddDelegationPoolRewards(ctx, decimal.NewFromInt(d)))
			}

			m, err := snapshot.NewManager(ctx, store, cfg, indexer, 9*cfg.DayLength)
			require.NoError(t, err)
			snap := m.Snapshot()
			assert.Equal(t, "8", snap.PreviousDelegationRewardsDay.String())
			assert.Equal(t, "35", snap.PreviousDelegationRewardsWeek.String())
			assert.Equal(t, "36", snap.PreviousDelegationRewardsMonth.String())
		})
	}
}
