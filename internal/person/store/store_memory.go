package store

import (
	"context"
	"fmt"
	"sync"

	"certtrack/internal/person/models"
	id "certtrack/pkg/domain"
	"certtrack/pkg/platform/sentinel"
)

// InMemory stores people in memory for tests and single-node dev.
type InMemory struct {
	mu     sync.RWMutex
	people map[id.PersonID]*models.Person
}

// NewInMemory constructs an empty in-memory person store.
func NewInMemory() *InMemory {
	return &InMemory{people: make(map[id.PersonID]*models.Person)}
}

// Put seeds a person record. The admin application owns person writes; this
// exists for wiring and tests.
func (s *InMemory) Put(_ context.Context, person *models.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *person
	s.people[person.ID] = &p
	return nil
}

func (s *InMemory) FindByID(_ context.Context, tenantID id.TenantID, personID id.PersonID) (*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	person, ok := s.people[personID]
	if !ok || person.TenantID != tenantID {
		return nil, fmt.Errorf("person %s: %w", personID, sentinel.ErrNotFound)
	}
	p := *person
	return &p, nil
}
