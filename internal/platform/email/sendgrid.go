package email

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"certtrack/internal/platform/config"
)

// SendGrid sends mail through the SendGrid v3 API.
type SendGrid struct {
	client      *sendgrid.Client
	fromAddress string
	fromName    string
}

// NewSendGrid constructs a SendGrid sender from config.
func NewSendGrid(cfg config.Email) *SendGrid {
	return &SendGrid{
		client:      sendgrid.NewSendClient(cfg.SendGridAPIKey),
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
	}
}

func (s *SendGrid) Send(ctx context.Context, to, subject, htmlBody string) (string, error) {
	from := mail.NewEmail(s.fromName, s.fromAddress)
	message := mail.NewSingleEmail(from, subject, mail.NewEmail("", to), "", htmlBody)

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return "", fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}

	// SendGrid returns the queued message id in a response header.
	if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 {
		return ids[0], nil
	}
	return "", nil
}
