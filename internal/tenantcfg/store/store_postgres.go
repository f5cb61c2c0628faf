package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"certtrack/internal/tenantcfg/models"
	id "certtrack/pkg/domain"
	"certtrack/pkg/platform/sentinel"
)

// Postgres persists tenant configs in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed tenant config store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) FindByTenant(ctx context.Context, tenantID id.TenantID) (*models.TenantConfig, error) {
	var (
		cfg     models.TenantConfig
		tid     uuid.UUID
		offsets pq.Int64Array
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT tenant_id, reminder_offset_days, expiring_threshold_days, updated_at
		FROM tenant_configs WHERE tenant_id = $1
	`, uuid.UUID(tenantID)).Scan(&tid, &offsets, &cfg.ExpiringThresholdDays, &cfg.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tenant config %s: %w", tenantID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find tenant config: %w", err)
	}
	cfg.TenantID = id.TenantID(tid)
	cfg.ReminderOffsetDays = make([]int, len(offsets))
	for i, o := range offsets {
		cfg.ReminderOffsetDays[i] = int(o)
	}
	return &cfg, nil
}

func (s *Postgres) Upsert(ctx context.Context, cfg *models.TenantConfig) error {
	offsets := make(pq.Int64Array, len(cfg.ReminderOffsetDays))
	for i, o := range cfg.ReminderOffsetDays {
		offsets[i] = int64(o)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenant_configs (tenant_id, reminder_offset_days, expiring_threshold_days, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id) DO UPDATE SET
			reminder_offset_days = EXCLUDED.reminder_offset_days,
			expiring_threshold_days = EXCLUDED.expiring_threshold_days,
			updated_at = EXCLUDED.updated_at
	`, uuid.UUID(cfg.TenantID), offsets, cfg.ExpiringThresholdDays, cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert tenant config: %w", err)
	}
	return nil
}
