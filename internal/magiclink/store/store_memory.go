package store

import (
	"context"
	"fmt"
	"sync"

	"certtrack/internal/magiclink/models"
	id "certtrack/pkg/domain"
	"certtrack/pkg/platform/sentinel"
)

// InMemory stores magic links in memory for tests and single-node dev.
type InMemory struct {
	mu    sync.RWMutex
	links map[id.LinkToken]*models.MagicLink
}

// NewInMemory constructs an empty in-memory magic link store.
func NewInMemory() *InMemory {
	return &InMemory{links: make(map[id.LinkToken]*models.MagicLink)}
}

func (s *InMemory) Create(_ context.Context, link *models.MagicLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[link.Token]; ok {
		return fmt.Errorf("magic link %s: %w", link.Token, sentinel.ErrConflict)
	}
	s.links[link.Token] = cloneLink(link)
	return nil
}

func (s *InMemory) FindByToken(_ context.Context, token id.LinkToken) (*models.MagicLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.links[token]
	if !ok {
		return nil, fmt.Errorf("magic link: %w", sentinel.ErrNotFound)
	}
	return cloneLink(link), nil
}

func (s *InMemory) Update(_ context.Context, link *models.MagicLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[link.Token]; !ok {
		return fmt.Errorf("magic link: %w", sentinel.ErrNotFound)
	}
	s.links[link.Token] = cloneLink(link)
	return nil
}

func (s *InMemory) BindEvidence(_ context.Context, token id.LinkToken, evidenceID id.EvidenceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[token]
	if !ok {
		return fmt.Errorf("magic link: %w", sentinel.ErrNotFound)
	}
	if link.EvidenceID != nil {
		return fmt.Errorf("magic link %s: %w", token, sentinel.ErrAlreadyUsed)
	}
	link.EvidenceID = &evidenceID
	return nil
}

func cloneLink(link *models.MagicLink) *models.MagicLink {
	l := *link
	if link.EvidenceID != nil {
		e := *link.EvidenceID
		l.EvidenceID = &e
	}
	return &l
}
