// Package cache provides bounded-TTL read-through access to tenant policy.
// The sweeper and dispatcher consult it once per certification, so a cold
// read per tenant per TTL window replaces a store read per certification.
//
// Staleness bound: a policy change becomes visible to the jobs within one TTL
// (default 5 minutes). There is no invalidation signal on config updates.
// Callers own the cache instance and inject it per execution context; nothing
// here is process-global, so tests construct a fresh cache per run.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"certtrack/internal/tenantcfg/models"
	"certtrack/internal/tenantcfg/store"
	id "certtrack/pkg/domain"
	"certtrack/pkg/platform/sentinel"
	"certtrack/pkg/requestcontext"
)

// DefaultTTL bounds how stale a cached tenant policy may be.
const DefaultTTL = 5 * time.Minute

// Source yields the effective policy for a tenant. Tenants without a stored
// config get defaults; Get never returns sentinel.ErrNotFound.
type Source interface {
	Get(ctx context.Context, tenantID id.TenantID) (*models.TenantConfig, error)
}

// Cache is an in-process read-through cache over a config store.
type Cache struct {
	store store.Store
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[id.TenantID]entry
}

type entry struct {
	cfg      *models.TenantConfig
	cachedAt time.Time
}

// New constructs a cache over the given store. A non-positive ttl falls back
// to DefaultTTL.
func New(configs store.Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		store:   configs,
		ttl:     ttl,
		entries: make(map[id.TenantID]entry),
	}
}

// Get returns the tenant's policy, serving from cache within the TTL window.
// A tenant with no stored config resolves to defaults, which are cached like
// any other answer.
func (c *Cache) Get(ctx context.Context, tenantID id.TenantID) (*models.TenantConfig, error) {
	now := requestcontext.Now(ctx)

	c.mu.RLock()
	if e, ok := c.entries[tenantID]; ok && now.Sub(e.cachedAt) < c.ttl {
		c.mu.RUnlock()
		return e.cfg, nil
	}
	c.mu.RUnlock()

	cfg, err := c.store.FindByTenant(ctx, tenantID)
	if errors.Is(err, sentinel.ErrNotFound) {
		cfg = models.NewDefault(tenantID, now)
	} else if err != nil {
		return nil, fmt.Errorf("load tenant config: %w", err)
	}

	c.mu.Lock()
	c.entries[tenantID] = entry{cfg: cfg, cachedAt: now}
	c.mu.Unlock()
	return cfg, nil
}
