package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"certtrack/internal/person/models"
	id "certtrack/pkg/domain"
	"certtrack/pkg/platform/sentinel"
)

// Postgres reads people from the shared PostgreSQL database.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed person reader.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) FindByID(ctx context.Context, tenantID id.TenantID, personID id.PersonID) (*models.Person, error) {
	var (
		person        models.Person
		pid, tid, sid uuid.UUID
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, school_id, first_name, last_name, email, created_at
		FROM people WHERE tenant_id = $1 AND id = $2
	`, uuid.UUID(tenantID), uuid.UUID(personID)).Scan(
		&pid, &tid, &sid, &person.FirstName, &person.LastName, &person.Email, &person.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("person %s: %w", personID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find person: %w", err)
	}
	person.ID = id.PersonID(pid)
	person.TenantID = id.TenantID(tid)
	person.SchoolID = id.SchoolID(sid)
	return &person, nil
}
