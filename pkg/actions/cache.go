package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/relengworks/shipit/pkg/models"
)

// ManifestCache caches fetched actions manifests per task group. Cache
// failures are soft: the resolver falls back to the queue service.
type ManifestCache interface {
	Get(ctx context.Context, taskID string) (*models.ActionsManifest, error)
	Set(ctx context.Context, taskID string, manifest *models.ActionsManifest) error
}

const defaultManifestTTL = 24 * time.Hour

// RedisManifestCache stores manifests in Redis, keyed by task group id.
type RedisManifestCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisManifestCache creates a manifest cache on the given Redis client.
func NewRedisManifestCache(client redis.UniversalClient, ttl time.Duration) *RedisManifestCache {
	if ttl <= 0 {
		ttl = defaultManifestTTL
	}

	return &RedisManifestCache{client: client, ttl: ttl}
}

func (c *RedisManifestCache) key(taskID string) string {
	return "shipit:actions-manifest:" + taskID
}

// Get returns the cached manifest for taskID, or nil on a miss.
func (c *RedisManifestCache) Get(ctx context.Context, taskID string) (*models.ActionsManifest, error) {
	data, err := c.client.Get(ctx, c.key(taskID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read manifest cache: %w", err)
	}

	var manifest models.ActionsManifest

	err = json.Unmarshal(data, &manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached manifest: %w", err)
	}

	return &manifest, nil
}

// Set stores manifest under taskID with the configured TTL.
func (c *RedisManifestCache) Set(ctx context.Context, taskID string, manifest *models.ActionsManifest) error {
	data, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	err = c.client.Set(ctx, c.key(taskID), data, c.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to write manifest cache: %w", err)
	}

	return nil
}
