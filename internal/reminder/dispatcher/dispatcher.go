// Package dispatcher sends expiry reminder emails at fixed day offsets before
// (and on) each certification's expiry day.
//
// At-most-once delivery per (certification, offset, channel) rests on the
// reminder store's create-if-absent, not on scheduling discipline: the send
// happens first, then the record; a create that reports "already exists" means
// a concurrent run won the window and this one stands down. A failed send
// persists nothing, so the next run retries the window.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"certtrack/internal/audit"
	certmodels "certtrack/internal/certification/models"
	certstore "certtrack/internal/certification/store"
	personstore "certtrack/internal/person/store"
	"certtrack/internal/platform/email"
	"certtrack/internal/platform/metrics"
	"certtrack/internal/reminder/models"
	"certtrack/internal/reminder/store"
	"certtrack/internal/tenantcfg/cache"
	tenantmodels "certtrack/internal/tenantcfg/models"
	"certtrack/pkg/platform/sentinel"
	"certtrack/pkg/requestcontext"
)

var tracer = otel.Tracer("certtrack/internal/reminder/dispatcher")

// Dispatcher scans the default offset universe and sends what each tenant
// opted into.
type Dispatcher struct {
	certs     certstore.Store
	reminders store.Store
	people    personstore.Reader
	configs   cache.Source
	sender    email.Sender
	auditlog  audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New constructs a dispatcher. auditlog and m may be nil.
func New(
	certs certstore.Store,
	reminders store.Store,
	people personstore.Reader,
	configs cache.Source,
	sender email.Sender,
	auditlog audit.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		certs:     certs,
		reminders: reminders,
		people:    people,
		configs:   configs,
		sender:    sender,
		auditlog:  auditlog,
		metrics:   m,
		logger:    logger,
	}
}

// Dispatch runs one pass over every scan offset and returns how many
// reminders were sent. Per-certification failures are logged and skipped.
func (d *Dispatcher) Dispatch(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "dispatcher.Dispatch")
	defer span.End()

	now := requestcontext.Now(ctx)
	today := certmodels.StartOfDayUTC(now)

	sent := 0
	// The default offsets are the scan universe; tenant policy filters within
	// it, so an offset nobody scans can never fire.
	for _, offset := range tenantmodels.DefaultReminderOffsetDays() {
		from := today.AddDate(0, 0, offset)
		to := from.AddDate(0, 0, 1)

		certs, err := d.certs.ListByExpiryWindow(ctx, from, to)
		if err != nil {
			return sent, fmt.Errorf("list expiry window %+d: %w", offset, err)
		}
		for _, cert := range certs {
			if d.dispatchOne(ctx, cert, offset, now) {
				sent++
			}
		}
	}

	span.SetAttributes(attribute.Int("reminders.sent", sent))
	d.logger.InfoContext(ctx, "dispatch complete", "sent", sent)
	return sent, nil
}

// dispatchOne handles a single (certification, offset) window end to end.
// Returns true only when a new reminder was sent and recorded.
func (d *Dispatcher) dispatchOne(ctx context.Context, cert *certmodels.Certification, offset int, now time.Time) bool {
	cfg, err := d.configs.Get(ctx, cert.TenantID)
	if err != nil {
		d.logger.ErrorContext(ctx, "dispatch: resolve tenant policy failed",
			"cert_id", cert.ID, "tenant_id", cert.TenantID, "error", err)
		return false
	}
	if !cfg.WantsOffset(offset) {
		return false
	}

	// Fast path: skip the compose/send work when the window is already
	// covered. Create below remains the authority.
	exists, err := d.reminders.Exists(ctx, cert.ID, offset, models.ChannelEmail)
	if err != nil {
		d.logger.ErrorContext(ctx, "dispatch: reminder lookup failed",
			"cert_id", cert.ID, "offset", offset, "error", err)
		return false
	}
	if exists {
		return false
	}

	person, err := d.people.FindByID(ctx, cert.TenantID, cert.PersonID)
	if err != nil {
		d.logger.ErrorContext(ctx, "dispatch: resolve person failed",
			"cert_id", cert.ID, "person_id", cert.PersonID, "error", err)
		return false
	}

	status := certmodels.ClassifyStatus(cert.ExpiryDate, now, cfg.ExpiringThresholdDays)
	subject, body := composeReminderEmail(person.FullName(), cert.CertTypeKey, status, cert.ExpiryDate, offset)
	providerMessageID, err := d.sender.Send(ctx, person.Email, subject, body)
	if err != nil {
		// Nothing is persisted, so the next run retries this window.
		d.metrics.IncReminderSendFailures()
		d.logger.ErrorContext(ctx, "dispatch: send failed",
			"cert_id", cert.ID, "offset", offset, "error", err)
		return false
	}

	reminder := models.NewSent(cert.TenantID, cert.ID, offset, person.Email, providerMessageID, now)
	if err := d.reminders.Create(ctx, reminder); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			// A concurrent run covered the window between our check and send.
			// The recipient got a duplicate email; the record stays single.
			d.metrics.IncRemindersDeduplicated()
			d.logger.WarnContext(ctx, "dispatch: window already recorded",
				"cert_id", cert.ID, "offset", offset)
			return false
		}
		// The email went out but the record did not land. Surface loudly: the
		// next run will send again.
		d.logger.ErrorContext(ctx, "dispatch: record reminder failed",
			"cert_id", cert.ID, "offset", offset, "error", err)
		return false
	}

	d.metrics.IncRemindersSent()
	d.publish(ctx, reminder)
	d.logger.InfoContext(ctx, "reminder sent",
		"cert_id", cert.ID, "offset", offset, "recipient", person.Email)
	return true
}

func (d *Dispatcher) publish(ctx context.Context, reminder *models.Reminder) {
	if d.auditlog == nil {
		return
	}
	event := audit.Event{
		ID:         uuid.NewString(),
		Kind:       audit.KindReminderSent,
		TenantID:   reminder.TenantID,
		Subject:    reminder.CertID.String(),
		OccurredAt: reminder.SentAt,
		Details: map[string]string{
			"offset_days":         fmt.Sprintf("%d", reminder.WindowOffsetDays),
			"provider_message_id": reminder.ProviderMessageID,
		},
	}
	if err := d.auditlog.Publish(ctx, event); err != nil {
		d.logger.WarnContext(ctx, "audit publish failed", "kind", event.Kind, "error", err)
	}
}
