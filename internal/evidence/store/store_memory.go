package store

import (
	"context"
	"fmt"
	"sync"

	"certtrack/internal/evidence/models"
	id "certtrack/pkg/domain"
	"certtrack/pkg/platform/sentinel"
)

// InMemory stores evidence records in memory for tests and single-node dev.
type InMemory struct {
	mu      sync.RWMutex
	records map[id.EvidenceID]*models.Evidence
}

// NewInMemory constructs an empty in-memory evidence store.
func NewInMemory() *InMemory {
	return &InMemory{records: make(map[id.EvidenceID]*models.Evidence)}
}

func (s *InMemory) Create(_ context.Context, evidence *models.Evidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[evidence.ID]; ok {
		return fmt.Errorf("evidence %s: %w", evidence.ID, sentinel.ErrConflict)
	}
	s.records[evidence.ID] = cloneEvidence(evidence)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, tenantID id.TenantID, evidenceID id.EvidenceID) (*models.Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	evidence, ok := s.records[evidenceID]
	if !ok || evidence.TenantID != tenantID {
		return nil, fmt.Errorf("evidence %s: %w", evidenceID, sentinel.ErrNotFound)
	}
	return cloneEvidence(evidence), nil
}

func (s *InMemory) Update(_ context.Context, evidence *models.Evidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[evidence.ID]; !ok {
		return fmt.Errorf("evidence %s: %w", evidence.ID, sentinel.ErrNotFound)
	}
	s.records[evidence.ID] = cloneEvidence(evidence)
	return nil
}

func cloneEvidence(evidence *models.Evidence) *models.Evidence {
	e := *evidence
	if evidence.Size != nil {
		v := *evidence.Size
		e.Size = &v
	}
	if evidence.Checksum != nil {
		v := *evidence.Checksum
		e.Checksum = &v
	}
	if evidence.UploadedAt != nil {
		v := *evidence.UploadedAt
		e.UploadedAt = &v
	}
	return &e
}
