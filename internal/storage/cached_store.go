package storage

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	apperrors "github.com/indexer-snapshots/internal/errors"
	"github.com/indexer-snapshots/internal/logging"
	"github.com/indexer-snapshots/internal/models"
	"github.com/redis/go-redis/v9"
)

const snapshotCachePrefix = "snapshot"

// CachedSnapshotStore puts a Redis read-through, write-through cache in front of a store.
// Cache failures are logged and never fail the operation.
type CachedSnapshotStore struct {
	next  SnapshotStore
	redis *RedisCache
	ttl   time.Duration
}

// NewCachedSnapshotStore wraps next with a Redis cache
func NewCachedSnapshotStore(next SnapshotStore, redis *RedisCache, ttl time.Duration) *CachedSnapshotStore {
	return &CachedSnapshotStore{next: next, redis: redis, ttl: ttl}
}

// CacheKey returns the Redis key of a snapshot.
// Format: snapshot:<snapshot id>
func (c *CachedSnapshotStore) CacheKey(id string) string {
	return snapshotCachePrefix + ":" + strings.ToLower(id)
}

// Load serves from cache, falling back to the wrapped store
func (c *CachedSnapshotStore) Load(ctx context.Context, id string) (*models.IndexerSnapshot, error) {
	if snap, ok := c.get(ctx, id); ok {
		return snap, nil
	}

	snap, err := c.next.Load(ctx, id)
	if err != nil || snap == nil {
		return snap, err
	}

	c.set(ctx, snap)
	return snap, nil
}

// Save writes to the wrapped store, then refreshes the cache
func (c *CachedSnapshotStore) Save(ctx context.Context, snap *models.IndexerSnapshot) error {
	if err := c.next.Save(ctx, snap); err != nil {
		// The cached copy may now be ahead of or behind the store
		c.invalidate(ctx, snap.ID)
		return err
	}
	c.set(ctx, snap)
	return nil
}

// GetOrCreate delegates to the wrapped store and caches the result
func (c *CachedSnapshotStore) GetOrCreate(ctx context.Context, id string, seed func() *models.IndexerSnapshot) (*models.IndexerSnapshot, bool, error) {
	if snap, ok := c.get(ctx, id); ok {
		return snap, false, nil
	}

	snap, created, err := c.next.GetOrCreate(ctx, id, seed)
	if err != nil {
		return nil, false, err
	}

	c.set(ctx, snap)
	return snap, created, nil
}

// List is not cached
func (c *CachedSnapshotStore) List(ctx context.Context, indexer string, fromDay, toDay int64) ([]*models.IndexerSnapshot, error) {
	return c.next.List(ctx, indexer, fromDay, toDay)
}

func (c *CachedSnapshotStore) get(ctx context.Context, id string) (*models.IndexerSnapshot, bool) {
	raw, err := c.redis.Get(ctx, c.CacheKey(id))
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.warn(ctx, apperrors.NewCacheError("get snapshot", err), id)
		return nil, false
	}

	var snap models.IndexerSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		c.warn(ctx, apperrors.NewCacheError("decode snapshot", err), id)
		c.invalidate(ctx, id)
		return nil, false
	}

	return &snap, true
}

func (c *CachedSnapshotStore) set(ctx context.Context, snap *models.IndexerSnapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		c.warn(ctx, apperrors.NewCacheError("encode snapshot", err), snap.ID)
		return
	}

	if err := c.redis.Set(ctx, c.CacheKey(snap.ID), data, c.ttl); err != nil {
		c.warn(ctx, apperrors.NewCacheError("set snapshot", err), snap.ID)
	}
}

func (c *CachedSnapshotStore) invalidate(ctx context.Context, id string) {
	if err := c.redis.Del(ctx, c.CacheKey(id)); err != nil {
		c.warn(ctx, apperrors.NewCacheError("invalidate snapshot", err), id)
	}
}

func (c *CachedSnapshotStore) warn(ctx context.Context, err error, id string) {
	logging.FromContext(ctx).WithError(err).WithField("snapshot", id).Warn("Snapshot cache unavailable")
}
