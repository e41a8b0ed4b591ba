package repository

import (
	"context"
	"strings"
	"unicode"

	"github.com/m-mizutani/fennec/pkg/model"
)

// Repository defines persistence for conversational memory and the
// document knowledge base
type Repository interface {
	// AppendMessage appends a message to the session's history
	AppendMessage(ctx context.Context, id model.SessionID, msg *model.Message) error

	// RecentMessages returns the last n messages of the session,
	// ordered oldest to newest
	RecentMessages(ctx context.Context, id model.SessionID, n int) ([]*model.Message, error)

	// ClearSession removes all messages of the session
	ClearSession(ctx context.Context, id model.SessionID) error

	// UpsertFact writes a long-term fact for the user. Last write wins.
	UpsertFact(ctx context.Context, user model.UserID, key, value string) error

	// Facts returns all current facts of the user, ordered by key
	Facts(ctx context.Context, user model.UserID) ([]*model.Fact, error)

	// PutDocuments stores documents in the knowledge base
	PutDocuments(ctx context.Context, docs []*model.Document) error

	// HasDocuments reports whether the knowledge base contains any document
	HasDocuments(ctx context.Context) (bool, error)

	// SearchVector performs nearest neighbor search over document embeddings
	SearchVector(ctx context.Context, embedding []float32, limit int) ([]*model.SearchHit, error)

	// SearchKeyword performs keyword matching over document tokens
	SearchKeyword(ctx context.Context, query string, limit int) ([]*model.SearchHit, error)
}

// Tokenize splits text into lowercased alphanumeric tokens for keyword
// matching. Tokens shorter than 2 runes are dropped.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	seen := make(map[string]bool, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 2 || seen[f] {
			continue
		}
		seen[f] = true
		tokens = append(tokens, f)
	}
	return tokens
}
