package audit

import "time"

// Event is an immutable, append-only record of an authentication outcome.
//
// Invariants:
// - Events are never updated or deleted.
// - Tokens and passwords are never stored; Email is what the user typed.
// - ip capture is best-effort; do not block auth flows on audit failures.
//
// Storage (Postgres): table auth_events, see PostgresRepo.Migrate.
type Event struct {
	ID   string    `json:"id" db:"id"`
	Type EventType `json:"type" db:"type"`

	// SessionID is the browsing session the request belonged to.
	SessionID string `json:"session_id,omitempty" db:"session_id"`
	// UserID is empty for failed attempts.
	UserID string `json:"user_id,omitempty" db:"user_id"`
	Email  string `json:"email,omitempty" db:"email"`

	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// Message is a short human-readable description, typically the remote's error message.
	Message string `json:"message,omitempty" db:"message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeLogin          EventType = "login"
	EventTypeLoginFailed    EventType = "login_failed"
	EventTypeRegister       EventType = "register"
	EventTypeRegisterFailed EventType = "register_failed"
	EventTypeRefresh        EventType = "refresh"
	EventTypeRefreshFailed  EventType = "refresh_failed"
	EventTypeLogout         EventType = "logout"
)

func (t EventType) Valid() bool {
	switch t {
	case EventTypeLogin, EventTypeLoginFailed,
		EventTypeRegister, EventTypeRegisterFailed,
		EventTypeRefresh, EventTypeRefreshFailed,
		EventTypeLogout:
		return true
	default:
		return false
	}
}
