package email

import (
	"context"
	"fmt"
	"sync"
)

// SentMessage is one message captured by the Recorder.
type SentMessage struct {
	To       string
	Subject  string
	HTMLBody string
}

// Recorder is an in-memory Sender for tests. It captures every message and can
// be told to fail on demand.
type Recorder struct {
	mu      sync.Mutex
	sent    []SentMessage
	failErr error
}

// NewRecorder constructs an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Send(_ context.Context, to, subject, htmlBody string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return "", r.failErr
	}
	r.sent = append(r.sent, SentMessage{To: to, Subject: subject, HTMLBody: htmlBody})
	return fmt.Sprintf("recorded-%d", len(r.sent)), nil
}

// FailWith makes every subsequent Send return err. Pass nil to restore
// delivery.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failErr = err
}

// Sent returns a copy of all captured messages.
func (r *Recorder) Sent() []SentMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SentMessage, len(r.sent))
	copy(out, r.sent)
	return out
}
