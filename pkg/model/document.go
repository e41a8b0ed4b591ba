package model

import (
	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
)

type DocumentID string

// NewDocumentID generates a new unique DocumentID
func NewDocumentID() DocumentID {
	return DocumentID(uuid.New().String())
}

// Document is a text chunk in the knowledge base with its embedding vector.
// Documents are written by ingestion and read-only afterwards.
type Document struct {
	ID        DocumentID         `firestore:"-"`
	Text      string             `firestore:"text"`
	Source    string             `firestore:"source"`
	Chunk     int                `firestore:"chunk"`
	Embedding firestore.Vector32 `firestore:"embedding"`

	// Keywords holds lowercased tokens of Text for keyword search.
	// Firestore has no full text index, so keyword queries match against
	// this field with array-contains-any.
	Keywords []string `firestore:"keywords"`
}

type SearchMethod string

const (
	SearchMethodVector  SearchMethod = "vector"
	SearchMethodKeyword SearchMethod = "keyword"
	SearchMethodHybrid  SearchMethod = "hybrid"
)

// SearchHit is a single ranked result from a document search
type SearchHit struct {
	Document *Document
	Score    float64
	Method   SearchMethod
}
