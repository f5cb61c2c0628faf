package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"certtrack/internal/certification/models"
	id "certtrack/pkg/domain"
	"certtrack/pkg/platform/sentinel"
)

// InMemory stores certifications in memory for tests and single-node dev.
// Records are copied on the way in and out so callers never share mutable
// state with the store.
type InMemory struct {
	mu    sync.RWMutex
	certs map[id.CertificationID]*models.Certification
}

// NewInMemory constructs an empty in-memory certification store.
func NewInMemory() *InMemory {
	return &InMemory{certs: make(map[id.CertificationID]*models.Certification)}
}

func (s *InMemory) Create(_ context.Context, cert *models.Certification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.certs[cert.ID]; ok {
		return fmt.Errorf("certification %s: %w", cert.ID, sentinel.ErrConflict)
	}
	s.certs[cert.ID] = clone(cert)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, tenantID id.TenantID, certID id.CertificationID) (*models.Certification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cert, ok := s.certs[certID]
	if !ok || cert.TenantID != tenantID {
		return nil, fmt.Errorf("certification %s: %w", certID, sentinel.ErrNotFound)
	}
	return clone(cert), nil
}

func (s *InMemory) Update(_ context.Context, cert *models.Certification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.certs[cert.ID]; !ok {
		return fmt.Errorf("certification %s: %w", cert.ID, sentinel.ErrNotFound)
	}
	s.certs[cert.ID] = clone(cert)
	return nil
}

func (s *InMemory) ListAll(_ context.Context) ([]*models.Certification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Certification, 0, len(s.certs))
	for _, cert := range s.certs {
		out = append(out, clone(cert))
	}
	return out, nil
}

func (s *InMemory) ListByExpiryWindow(_ context.Context, from, to time.Time) ([]*models.Certification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Certification
	for _, cert := range s.certs {
		if !cert.ExpiryDate.Before(from) && cert.ExpiryDate.Before(to) {
			out = append(out, clone(cert))
		}
	}
	return out, nil
}

func clone(cert *models.Certification) *models.Certification {
	c := *cert
	if cert.IssueDate != nil {
		d := *cert.IssueDate
		c.IssueDate = &d
	}
	if cert.CurrentEvidenceID != nil {
		e := *cert.CurrentEvidenceID
		c.CurrentEvidenceID = &e
	}
	return &c
}
