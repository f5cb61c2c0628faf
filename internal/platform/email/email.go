// Package email sends transactional mail through a provider-agnostic Sender.
package email

import "context"

// Sender delivers one HTML email and returns the provider's message id for
// audit correlation.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) (providerMessageID string, err error)
}
