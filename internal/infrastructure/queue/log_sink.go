package queue

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/educationerp/erp-auth/internal/core/domain"
)

// LogSink records audit events as structured log lines. It is the sink used
// when no database is configured for the audit trail.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Record(_ context.Context, event domain.AuthEvent) error {
	s.log.Info().
		Str("event_id", event.ID).
		Str("event", string(event.Type)).
		Str("username", event.Identifier).
		Str("tenant_id", event.TenantID).
		Str("actor", event.Actor).
		Str("reason", event.Reason).
		Time("occurred_at", event.OccurredAt).
		Msg("audit")
	return nil
}
