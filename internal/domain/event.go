package domain

import (
	"time"
)

// AuthEventType represents the type of an auth lifecycle event
type AuthEventType string

const (
	AuthEventUserRegistered      AuthEventType = "user.registered"
	AuthEventUserLoggedIn        AuthEventType = "user.logged_in"
	AuthEventUserLoginLocked     AuthEventType = "user.login_locked"
	AuthEventTokenRevoked        AuthEventType = "token.revoked"
	AuthEventSessionsInvalidated AuthEventType = "sessions.invalidated"
)

// AuthEvent is the envelope published to the auth events topic
type AuthEvent struct {
	EventID    string            `json:"event_id"`
	EventType  AuthEventType     `json:"event_type"`
	OccurredAt time.Time         `json:"occurred_at"`
	SubjectID  string            `json:"subject_id"`
	Payload    map[string]string `json:"payload,omitempty"`
}

// NewAuthEvent creates an auth event envelope
func NewAuthEvent(eventType AuthEventType, subjectID, eventID string, payload map[string]string) *AuthEvent {
	return &AuthEvent{
		EventID:    eventID,
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		SubjectID:  subjectID,
		Payload:    payload,
	}
}

// Key returns the partition key; events are keyed by subject so per-user
// ordering holds across partitions
func (e *AuthEvent) Key() string {
	return e.SubjectID
}
