package model

import "time"

type UserID string

// Fact is a durable key-value pair about a user, extracted from conversation.
// Facts are keyed per user and the latest write wins.
type Fact struct {
	Key       string    `firestore:"key"`
	Value     string    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updated_at"`
}
