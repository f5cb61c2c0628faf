package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"certtrack/internal/magiclink/models"
	id "certtrack/pkg/domain"
	"certtrack/pkg/platform/sentinel"
)

// Postgres persists magic links in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed magic link store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, link *models.MagicLink) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO magic_links (token, tenant_id, cert_id, person_id, expires_at, used, evidence_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		uuid.UUID(link.Token), uuid.UUID(link.TenantID), uuid.UUID(link.CertID),
		uuid.UUID(link.PersonID), link.ExpiresAt, link.Used, evidenceIDOrNil(link.EvidenceID),
		link.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert magic link: %w", err)
	}
	return nil
}

func (s *Postgres) FindByToken(ctx context.Context, token id.LinkToken) (*models.MagicLink, error) {
	var (
		link               models.MagicLink
		tok, tid, cid, pid uuid.UUID
		evidenceID         uuid.NullUUID
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT token, tenant_id, cert_id, person_id, expires_at, used, evidence_id, created_at
		FROM magic_links WHERE token = $1
	`, uuid.UUID(token)).Scan(&tok, &tid, &cid, &pid, &link.ExpiresAt, &link.Used, &evidenceID, &link.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("magic link: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find magic link: %w", err)
	}
	link.Token = id.LinkToken(tok)
	link.TenantID = id.TenantID(tid)
	link.CertID = id.CertificationID(cid)
	link.PersonID = id.PersonID(pid)
	if evidenceID.Valid {
		e := id.EvidenceID(evidenceID.UUID)
		link.EvidenceID = &e
	}
	return &link, nil
}

func (s *Postgres) Update(ctx context.Context, link *models.MagicLink) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE magic_links SET used = $2, evidence_id = $3 WHERE token = $1
	`, uuid.UUID(link.Token), link.Used, evidenceIDOrNil(link.EvidenceID))
	if err != nil {
		return fmt.Errorf("update magic link: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update magic link: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("magic link: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *Postgres) BindEvidence(ctx context.Context, token id.LinkToken, evidenceID id.EvidenceID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE magic_links SET evidence_id = $2 WHERE token = $1 AND evidence_id IS NULL
	`, uuid.UUID(token), uuid.UUID(evidenceID))
	if err != nil {
		return fmt.Errorf("bind evidence to magic link: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("bind evidence to magic link: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM magic_links WHERE token = $1)`,
			uuid.UUID(token)).Scan(&exists); err != nil {
			return fmt.Errorf("bind evidence to magic link: %w", err)
		}
		if !exists {
			return fmt.Errorf("magic link: %w", sentinel.ErrNotFound)
		}
		return fmt.Errorf("magic link %s: %w", token, sentinel.ErrAlreadyUsed)
	}
	return nil
}

func evidenceIDOrNil(evidenceID *id.EvidenceID) any {
	if evidenceID == nil {
		return nil
	}
	return uuid.UUID(*evidenceID)
}
