package ports

import (
	"context"

	"github.com/educationerp/erp-auth/internal/core/domain"
)

// AuthEventPublisher hands audit events off without blocking the caller.
type AuthEventPublisher interface {
	Publish(event domain.AuthEvent)
}

// AuditSink stores audit events.
type AuditSink interface {
	Record(ctx context.Context, event domain.AuthEvent) error
}
