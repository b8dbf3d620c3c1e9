package models

import "time"

// Session is the authenticated caller, derived from a verified access token.
type Session struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	SessionID   string    `json:"session_id"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	AccessToken string    `json:"-"`
}

// SessionEventType enumerates identity lifecycle notifications.
type SessionEventType string

const (
	SessionSignedIn       SessionEventType = "signed_in"
	SessionTokenRefreshed SessionEventType = "token_refreshed"
	SessionSignedOut      SessionEventType = "signed_out"
)

// SessionEvent is fanned out to every session subscriber.
type SessionEvent struct {
	Type       SessionEventType `json:"type"`
	Session    Session          `json:"session"`
	OccurredAt time.Time        `json:"occurred_at"`
}
