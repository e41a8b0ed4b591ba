package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

type SessionID string

// NewSessionID generates a new unique SessionID
func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

// Session represents one user's ongoing conversation
type Session struct {
	ID        SessionID
	CreatedAt time.Time
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Validate checks if the role is valid
func (r Role) Validate() error {
	switch r {
	case RoleUser, RoleAssistant:
		return nil
	default:
		return goerr.New("invalid role", goerr.V("role", r))
	}
}

// Message is a single utterance in a session. Messages are immutable once
// appended and ordered by CreatedAt within a session.
type Message struct {
	Role      Role      `firestore:"role"`
	Content   string    `firestore:"content"`
	CreatedAt time.Time `firestore:"created_at"`
}

// Validate checks if the message is well-formed
func (m *Message) Validate() error {
	if err := m.Role.Validate(); err != nil {
		return err
	}
	if m.Content == "" {
		return goerr.New("message content is empty")
	}
	return nil
}
