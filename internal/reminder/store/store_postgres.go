package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"certtrack/internal/reminder/models"
	id "certtrack/pkg/domain"
	"certtrack/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// Postgres persists reminders in PostgreSQL. The reminders table carries
// UNIQUE (cert_id, window_offset_days, channel); the insert surfacing that
// violation is the dispatcher's idempotency guarantee.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed reminder store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, reminder *models.Reminder) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reminders (id, tenant_id, cert_id, window_offset_days, channel,
			recipient_address, status, provider_message_id, sent_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		uuid.UUID(reminder.ID), uuid.UUID(reminder.TenantID), uuid.UUID(reminder.CertID),
		reminder.WindowOffsetDays, string(reminder.Channel), reminder.RecipientAddress,
		string(reminder.Status), reminder.ProviderMessageID, reminder.SentAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("reminder for cert %s at offset %d: %w",
			reminder.CertID, reminder.WindowOffsetDays, sentinel.ErrAlreadyUsed)
	}
	if err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}
	return nil
}

func (s *Postgres) Exists(ctx context.Context, certID id.CertificationID, offsetDays int, channel models.Channel) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM reminders
			WHERE cert_id = $1 AND window_offset_days = $2 AND channel = $3
		)
	`, uuid.UUID(certID), offsetDays, string(channel)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check reminder existence: %w", err)
	}
	return exists, nil
}

func (s *Postgres) ListByCert(ctx context.Context, certID id.CertificationID) ([]*models.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, cert_id, window_offset_days, channel,
			recipient_address, status, provider_message_id, sent_at
		FROM reminders WHERE cert_id = $1
		ORDER BY sent_at
	`, uuid.UUID(certID))
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()

	var out []*models.Reminder
	for rows.Next() {
		var (
			reminder        models.Reminder
			rid, tid, cid   uuid.UUID
			channel, status string
		)
		if err := rows.Scan(&rid, &tid, &cid, &reminder.WindowOffsetDays, &channel,
			&reminder.RecipientAddress, &status, &reminder.ProviderMessageID, &reminder.SentAt); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		reminder.ID = id.ReminderID(rid)
		reminder.TenantID = id.TenantID(tid)
		reminder.CertID = id.CertificationID(cid)
		reminder.Channel = models.Channel(channel)
		reminder.Status = models.ReminderStatus(status)
		out = append(out, &reminder)
	}
	return out, rows.Err()
}
