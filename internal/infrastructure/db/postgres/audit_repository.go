package postgres

import (
	"context"
	"database/sql"

	"github.com/educationerp/erp-auth/internal/core/domain"
	"github.com/educationerp/erp-auth/internal/core/ports"
)

// AuditRepository implements ports.AuditSink on the auth_events table.
type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) ports.AuditSink {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Record(ctx context.Context, event domain.AuthEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		insert into auth_events (id, type, identifier, tenant_id, actor, reason, occurred_at)
		values ($1, $2, $3, $4, $5, $6, $7)
		on conflict (id) do nothing`,
		event.ID, string(event.Type), event.Identifier,
		nullIfEmpty(event.TenantID), nullIfEmpty(event.Actor), nullIfEmpty(event.Reason),
		event.OccurredAt.UTC(),
	)
	return err
}
