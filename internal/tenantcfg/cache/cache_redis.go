package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"certtrack/internal/tenantcfg/models"
	"certtrack/internal/tenantcfg/store"
	id "certtrack/pkg/domain"
	"certtrack/pkg/platform/sentinel"
	"certtrack/pkg/requestcontext"
)

// RedisCache is a read-through tenant policy cache shared across replicas.
// Redis expiry provides the TTL bound; on any Redis failure it degrades to a
// direct store read so the jobs keep running.
type RedisCache struct {
	client *redis.Client
	store  store.Store
	ttl    time.Duration
}

// NewRedis constructs a Redis-backed tenant config cache.
func NewRedis(client *redis.Client, configs store.Store, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, store: configs, ttl: ttl}
}

func cacheKey(tenantID id.TenantID) string {
	return "certtrack:tenantcfg:" + tenantID.String()
}

func (c *RedisCache) Get(ctx context.Context, tenantID id.TenantID) (*models.TenantConfig, error) {
	raw, err := c.client.Get(ctx, cacheKey(tenantID)).Result()
	if err == nil {
		var cfg models.TenantConfig
		if jsonErr := json.Unmarshal([]byte(raw), &cfg); jsonErr == nil {
			return &cfg, nil
		}
		// Fall through on a corrupt entry; the write below repairs it.
	} else if !errors.Is(err, redis.Nil) {
		return c.loadDirect(ctx, tenantID)
	}

	cfg, err := c.loadDirect(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if payload, jsonErr := json.Marshal(cfg); jsonErr == nil {
		// Best effort: a failed cache write only costs the next read.
		_ = c.client.Set(ctx, cacheKey(tenantID), payload, c.ttl).Err()
	}
	return cfg, nil
}

func (c *RedisCache) loadDirect(ctx context.Context, tenantID id.TenantID) (*models.TenantConfig, error) {
	cfg, err := c.store.FindByTenant(ctx, tenantID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.NewDefault(tenantID, requestcontext.Now(ctx)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load tenant config: %w", err)
	}
	return cfg, nil
}
