package store

import (
	"context"
	"fmt"
	"sync"

	"certtrack/internal/reminder/models"
	id "certtrack/pkg/domain"
	"certtrack/pkg/platform/sentinel"
)

type reminderKey struct {
	certID  id.CertificationID
	offset  int
	channel models.Channel
}

// InMemory stores reminders in memory for tests and single-node dev. The
// byKey index enforces the same uniqueness the PostgreSQL constraint does.
type InMemory struct {
	mu    sync.RWMutex
	byKey map[reminderKey]*models.Reminder
}

// NewInMemory constructs an empty in-memory reminder store.
func NewInMemory() *InMemory {
	return &InMemory{byKey: make(map[reminderKey]*models.Reminder)}
}

func (s *InMemory) Create(_ context.Context, reminder *models.Reminder) error {
	key := reminderKey{certID: reminder.CertID, offset: reminder.WindowOffsetDays, channel: reminder.Channel}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byKey[key]; ok {
		return fmt.Errorf("reminder for cert %s at offset %d: %w",
			reminder.CertID, reminder.WindowOffsetDays, sentinel.ErrAlreadyUsed)
	}
	r := *reminder
	s.byKey[key] = &r
	return nil
}

func (s *InMemory) Exists(_ context.Context, certID id.CertificationID, offsetDays int, channel models.Channel) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byKey[reminderKey{certID: certID, offset: offsetDays, channel: channel}]
	return ok, nil
}

func (s *InMemory) ListByCert(_ context.Context, certID id.CertificationID) ([]*models.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Reminder
	for _, reminder := range s.byKey {
		if reminder.CertID == certID {
			r := *reminder
			out = append(out, &r)
		}
	}
	return out, nil
}
