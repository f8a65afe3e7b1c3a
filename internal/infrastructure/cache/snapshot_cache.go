// Package cache provides a Redis-backed byte cache used to absorb repeated
// reads of externally published snapshot artifacts.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/pravoguard/court-monitor/internal/domain/errors"
)

// SnapshotCache stores raw snapshot payloads under a fixed TTL so a burst of
// cycles within the freshness window hits the network at most once.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotCache wraps an existing Redis client.
func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{client: client, ttl: ttl}
}

// Get returns the cached payload for key, or a not-found error on a miss.
func (c *SnapshotCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.NewNotFoundError("cached snapshot")
	}
	if err != nil {
		return nil, apperrors.NewExternalError("CACHE_READ", "reading snapshot cache").WithCause(err)
	}
	return data, nil
}

// Set stores payload under key for the configured TTL.
func (c *SnapshotCache) Set(ctx context.Context, key string, payload []byte) error {
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return apperrors.NewExternalError("CACHE_WRITE", "writing snapshot cache").WithCause(err)
	}
	return nil
}

// Delete removes key; a missing key is not an error.
func (c *SnapshotCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return apperrors.NewExternalError("CACHE_DELETE", "deleting snapshot cache entry").WithCause(err)
	}
	return nil
}
