package repository

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/fennec/pkg/model"
)

// Memory is an in-process Repository used by tests and by the CLI when no
// Firestore project is configured. Vector search scores by cosine
// similarity over the stored embeddings.
type Memory struct {
	mu       sync.Mutex
	messages map[model.SessionID][]*model.Message
	facts    map[model.UserID]map[string]*model.Fact
	docs     []*model.Document
}

// NewMemory creates an empty in-memory repository
func NewMemory() *Memory {
	return &Memory{
		messages: make(map[model.SessionID][]*model.Message),
		facts:    make(map[model.UserID]map[string]*model.Fact),
	}
}

func (r *Memory) AppendMessage(ctx context.Context, id model.SessionID, msg *model.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *msg
	r.messages[id] = append(r.messages[id], &copied)
	return nil
}

func (r *Memory) RecentMessages(ctx context.Context, id model.SessionID, n int) ([]*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	history := r.messages[id]
	if len(history) > n {
		history = history[len(history)-n:]
	}

	msgs := make([]*model.Message, len(history))
	for i, m := range history {
		copied := *m
		msgs[i] = &copied
	}
	return msgs, nil
}

func (r *Memory) ClearSession(ctx context.Context, id model.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.messages, id)
	return nil
}

func (r *Memory) UpsertFact(ctx context.Context, user model.UserID, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.facts[user] == nil {
		r.facts[user] = make(map[string]*model.Fact)
	}
	r.facts[user][key] = &model.Fact{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	return nil
}

func (r *Memory) Facts(ctx context.Context, user model.UserID) ([]*model.Fact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	facts := make([]*model.Fact, 0, len(r.facts[user]))
	for _, f := range r.facts[user] {
		copied := *f
		facts = append(facts, &copied)
	}
	sort.Slice(facts, func(i, j int) bool { return facts[i].Key < facts[j].Key })
	return facts, nil
}

func (r *Memory) PutDocuments(ctx context.Context, docs []*model.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, doc := range docs {
		copied := *doc
		if copied.ID == "" {
			copied.ID = model.NewDocumentID()
		}
		r.docs = append(r.docs, &copied)
	}
	return nil
}

func (r *Memory) HasDocuments(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.docs) > 0, nil
}

func (r *Memory) SearchVector(ctx context.Context, embedding []float32, limit int) ([]*model.SearchHit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	hits := make([]*model.SearchHit, 0, len(r.docs))
	for _, doc := range r.docs {
		copied := *doc
		hits = append(hits, &model.SearchHit{
			Document: &copied,
			Score:    cosineSimilarity(embedding, doc.Embedding),
			Method:   model.SearchMethodVector,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Document.ID < hits[j].Document.ID
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (r *Memory) SearchKeyword(ctx context.Context, query string, limit int) ([]*model.SearchHit, error) {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var hits []*model.SearchHit
	for _, doc := range r.docs {
		score := keywordScore(tokens, doc.Keywords)
		if score == 0 {
			continue
		}
		copied := *doc
		hits = append(hits, &model.SearchHit{
			Document: &copied,
			Score:    score,
			Method:   model.SearchMethodKeyword,
		})
	}

	rankKeywordHits(hits)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func cosineSimilarity(a []float32, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
