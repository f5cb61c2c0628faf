package objectstore

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Fake is an in-memory Issuer for tests. It records every issued path.
type Fake struct {
	mu      sync.Mutex
	issued  []string
	failErr error
}

// NewFake constructs an empty Fake issuer.
func NewFake() *Fake {
	return &Fake{}
}

func (f *Fake) IssueUploadURL(_ context.Context, blobPath, _ string, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return "", f.failErr
	}
	f.issued = append(f.issued, blobPath)
	return fmt.Sprintf("https://uploads.test/%s?sig=fake", blobPath), nil
}

// FailWith makes every subsequent call return err. Pass nil to restore.
func (f *Fake) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failErr = err
}

// IssuedPaths returns a copy of every blob path issued so far.
func (f *Fake) IssuedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.issued))
	copy(out, f.issued)
	return out
}
