package domain

import "time"

// AuthEventType names an entry in the authentication audit trail.
type AuthEventType string

const (
	EventLoginSucceeded  AuthEventType = "login_succeeded"
	EventLoginFailed     AuthEventType = "login_failed"
	EventAccountLocked   AuthEventType = "account_locked"
	EventTokenRefreshed  AuthEventType = "token_refreshed"
	EventLoggedOut       AuthEventType = "logged_out"
	EventAccountCreated  AuthEventType = "account_created"
	EventAccountUnlocked AuthEventType = "account_unlocked"
	EventAccountDisabled AuthEventType = "account_deactivated"
	EventSecretChanged   AuthEventType = "password_changed"
)

// AuthEvent is one audit record. Actor is empty when the subject acted on
// its own account.
type AuthEvent struct {
	ID         string        `json:"id"`
	Type       AuthEventType `json:"type"`
	Identifier string        `json:"username"`
	TenantID   string        `json:"tenant_id,omitempty"`
	Actor      string        `json:"actor,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}
