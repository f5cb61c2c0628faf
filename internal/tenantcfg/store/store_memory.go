package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"certtrack/internal/tenantcfg/models"
	id "certtrack/pkg/domain"
	"certtrack/pkg/platform/sentinel"
)

// InMemory stores tenant configs in memory for tests and single-node dev.
type InMemory struct {
	mu      sync.RWMutex
	configs map[id.TenantID]*models.TenantConfig
}

// NewInMemory constructs an empty in-memory tenant config store.
func NewInMemory() *InMemory {
	return &InMemory{configs: make(map[id.TenantID]*models.TenantConfig)}
}

func (s *InMemory) FindByTenant(_ context.Context, tenantID id.TenantID) (*models.TenantConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[tenantID]
	if !ok {
		return nil, fmt.Errorf("tenant config %s: %w", tenantID, sentinel.ErrNotFound)
	}
	return cloneConfig(cfg), nil
}

func (s *InMemory) Upsert(_ context.Context, cfg *models.TenantConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[cfg.TenantID] = cloneConfig(cfg)
	return nil
}

func cloneConfig(cfg *models.TenantConfig) *models.TenantConfig {
	c := *cfg
	c.ReminderOffsetDays = slices.Clone(cfg.ReminderOffsetDays)
	return &c
}
