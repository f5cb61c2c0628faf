package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"certtrack/internal/evidence/models"
	id "certtrack/pkg/domain"
	"certtrack/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// Postgres persists evidence records in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed evidence store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const evidenceColumns = `id, tenant_id, cert_id, person_id, blob_path, file_name, content_type,
	size, checksum, uploaded_at, status, rejection_reason, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, evidence *models.Evidence) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO evidence (`+evidenceColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		uuid.UUID(evidence.ID), uuid.UUID(evidence.TenantID), uuid.UUID(evidence.CertID),
		uuid.UUID(evidence.PersonID), evidence.BlobPath, evidence.FileName, evidence.ContentType,
		evidence.Size, evidence.Checksum, evidence.UploadedAt, string(evidence.Status),
		nullableString(evidence.RejectionReason), evidence.CreatedAt, evidence.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("evidence %s: %w", evidence.ID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert evidence: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, tenantID id.TenantID, evidenceID id.EvidenceID) (*models.Evidence, error) {
	var (
		evidence           models.Evidence
		eid, tid, cid, pid uuid.UUID
		status             string
		rejectionReason    sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT `+evidenceColumns+` FROM evidence WHERE tenant_id = $1 AND id = $2
	`, uuid.UUID(tenantID), uuid.UUID(evidenceID)).Scan(
		&eid, &tid, &cid, &pid, &evidence.BlobPath, &evidence.FileName, &evidence.ContentType,
		&evidence.Size, &evidence.Checksum, &evidence.UploadedAt, &status,
		&rejectionReason, &evidence.CreatedAt, &evidence.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("evidence %s: %w", evidenceID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find evidence: %w", err)
	}
	evidence.ID = id.EvidenceID(eid)
	evidence.TenantID = id.TenantID(tid)
	evidence.CertID = id.CertificationID(cid)
	evidence.PersonID = id.PersonID(pid)
	evidence.Status = models.EvidenceStatus(status)
	evidence.RejectionReason = rejectionReason.String
	return &evidence, nil
}

func (s *Postgres) Update(ctx context.Context, evidence *models.Evidence) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE evidence
		SET size = $3, checksum = $4, uploaded_at = $5, status = $6,
			rejection_reason = $7, updated_at = $8
		WHERE tenant_id = $1 AND id = $2
	`,
		uuid.UUID(evidence.TenantID), uuid.UUID(evidence.ID), evidence.Size, evidence.Checksum,
		evidence.UploadedAt, string(evidence.Status), nullableString(evidence.RejectionReason),
		evidence.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update evidence: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update evidence: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("evidence %s: %w", evidence.ID, sentinel.ErrNotFound)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
