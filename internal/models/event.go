package models

import (
	"time"

	"github.com/google/uuid"
)

// SystemAccountID is the sentinel account id used for events observed in an
// anonymous context (e.g. failed logins for addresses with no known account).
const SystemAccountID = "system"

// EventType identifies a security-relevant occurrence.
type EventType string

// Login attempts
const (
	EventFailedLogin            EventType = "failed_login"
	EventMultipleFailedAttempts EventType = "multiple_failed_attempts"
	EventSuccessfulLogin        EventType = "successful_login"
	EventNewDeviceLogin         EventType = "new_device_login"
	EventLogout                 EventType = "logout"
)

// Account changes
const (
	EventPasswordChanged    EventType = "password_changed"
	EventEmailChanged       EventType = "email_changed"
	EventTwoFactorEnabled   EventType = "two_factor_enabled"
	EventTwoFactorDisabled  EventType = "two_factor_disabled"
	EventTwoFactorSucceeded EventType = "two_factor_succeeded"
	EventTwoFactorFailed    EventType = "two_factor_failed"
	EventChallengeChanged   EventType = "challenge_changed"
)

// Suspicious activity
const (
	EventSuspiciousActivity   EventType = "suspicious_activity"
	EventAccountLocked        EventType = "account_locked"
	EventPasswordResetRequest EventType = "password_reset_request"
)

// Administrative events
const (
	EventRoleChanged      EventType = "role_changed"
	EventAccountDeleted   EventType = "account_deleted"
	EventContentModerated EventType = "content_moderated"
)

// Severity classifies an event for notification purposes.
type Severity int

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// severityByType is the fixed classification table. Severity is never set
// independently of the event type.
var severityByType = map[EventType]Severity{
	EventMultipleFailedAttempts: SeverityCritical,
	EventAccountLocked:          SeverityCritical,

	EventPasswordChanged:   SeverityHigh,
	EventEmailChanged:      SeverityHigh,
	EventTwoFactorDisabled: SeverityHigh,
	EventAccountDeleted:    SeverityHigh,

	EventFailedLogin:          SeverityMedium,
	EventNewDeviceLogin:       SeverityMedium,
	EventChallengeChanged:     SeverityMedium,
	EventPasswordResetRequest: SeverityMedium,
	EventSuspiciousActivity:   SeverityMedium,
	EventRoleChanged:          SeverityMedium,
	EventTwoFactorFailed:      SeverityMedium,

	EventSuccessfulLogin:    SeverityLow,
	EventTwoFactorEnabled:   SeverityLow,
	EventTwoFactorSucceeded: SeverityLow,
	EventContentModerated:   SeverityLow,
	EventLogout:             SeverityLow,
}

// SeverityFor returns the severity for an event type. Unlisted types
// classify as Low.
func SeverityFor(t EventType) Severity {
	if s, ok := severityByType[t]; ok {
		return s
	}
	return SeverityLow
}

// SecurityEvent is an append-only record of a security-relevant occurrence.
// Once written it is immutable except for the Notified/NotifiedAt pair.
type SecurityEvent struct {
	ID            uuid.UUID  `db:"id"`
	AccountID     string     `db:"account_id"`
	EventType     EventType  `db:"event_type"`
	Severity      Severity   `db:"severity"`
	Description   string     `db:"description"`
	ClientAddress *string    `db:"client_address"`
	UserAgent     *string    `db:"user_agent"`
	CreatedAt     time.Time  `db:"created_at"`
	Notified      bool       `db:"notified"`
	NotifiedAt    *time.Time `db:"notified_at"`
}
