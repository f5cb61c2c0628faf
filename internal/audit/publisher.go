package audit

import (
	"context"
	"sync"
)

// Publisher emits audit events to a downstream sink.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close()
}

// Memory is an in-process Publisher for tests and single-node dev.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

// NewMemory constructs an empty in-memory publisher.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Publish(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *Memory) Close() {}

// Events returns a copy of everything published so far.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}
