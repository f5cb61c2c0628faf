package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"certtrack/internal/certification/models"
	id "certtrack/pkg/domain"
	"certtrack/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// Postgres persists certifications in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed certification store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const certColumns = `id, tenant_id, school_id, person_id, cert_type_key, issue_date,
	expiry_date, status, status_computed_at, current_evidence_id, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, cert *models.Certification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO certifications (`+certColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		uuid.UUID(cert.ID), uuid.UUID(cert.TenantID), uuid.UUID(cert.SchoolID), uuid.UUID(cert.PersonID),
		cert.CertTypeKey, cert.IssueDate, cert.ExpiryDate, string(cert.Status),
		cert.StatusComputedAt, evidenceIDOrNil(cert.CurrentEvidenceID), cert.CreatedAt, cert.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("certification %s: %w", cert.ID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert certification: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, tenantID id.TenantID, certID id.CertificationID) (*models.Certification, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+certColumns+` FROM certifications WHERE tenant_id = $1 AND id = $2
	`, uuid.UUID(tenantID), uuid.UUID(certID))
	cert, err := scanCertification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("certification %s: %w", certID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find certification: %w", err)
	}
	return cert, nil
}

func (s *Postgres) Update(ctx context.Context, cert *models.Certification) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE certifications
		SET cert_type_key = $3, issue_date = $4, expiry_date = $5, status = $6,
			status_computed_at = $7, current_evidence_id = $8, updated_at = $9
		WHERE tenant_id = $1 AND id = $2
	`,
		uuid.UUID(cert.TenantID), uuid.UUID(cert.ID), cert.CertTypeKey, cert.IssueDate,
		cert.ExpiryDate, string(cert.Status), cert.StatusComputedAt,
		evidenceIDOrNil(cert.CurrentEvidenceID), cert.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update certification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update certification: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("certification %s: %w", cert.ID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *Postgres) ListAll(ctx context.Context) ([]*models.Certification, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+certColumns+` FROM certifications`)
	if err != nil {
		return nil, fmt.Errorf("list certifications: %w", err)
	}
	defer rows.Close()
	return collectCertifications(rows)
}

func (s *Postgres) ListByExpiryWindow(ctx context.Context, from, to time.Time) ([]*models.Certification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+certColumns+` FROM certifications
		WHERE expiry_date >= $1 AND expiry_date < $2
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list certifications by expiry window: %w", err)
	}
	defer rows.Close()
	return collectCertifications(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCertification(row rowScanner) (*models.Certification, error) {
	var (
		cert                                 models.Certification
		certID, tenantID, schoolID, personID uuid.UUID
		currentEvidence                      uuid.NullUUID
		status                               string
	)
	err := row.Scan(
		&certID, &tenantID, &schoolID, &personID, &cert.CertTypeKey, &cert.IssueDate,
		&cert.ExpiryDate, &status, &cert.StatusComputedAt, &currentEvidence,
		&cert.CreatedAt, &cert.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	cert.ID = id.CertificationID(certID)
	cert.TenantID = id.TenantID(tenantID)
	cert.SchoolID = id.SchoolID(schoolID)
	cert.PersonID = id.PersonID(personID)
	cert.Status = models.CertStatus(status)
	if currentEvidence.Valid {
		e := id.EvidenceID(currentEvidence.UUID)
		cert.CurrentEvidenceID = &e
	}
	return &cert, nil
}

func collectCertifications(rows *sql.Rows) ([]*models.Certification, error) {
	var out []*models.Certification
	for rows.Next() {
		cert, err := scanCertification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan certification: %w", err)
		}
		out = append(out, cert)
	}
	return out, rows.Err()
}

func evidenceIDOrNil(evidenceID *id.EvidenceID) any {
	if evidenceID == nil {
		return nil
	}
	return uuid.UUID(*evidenceID)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
