package repository

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/fennec/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	messagesCollection  = "messages"
	factItemsCollection = "items"

	// Firestore allows at most 30 values for array-contains-any
	maxKeywordTerms = 30

	defaultTimeout = 30 * time.Second
)

// Firestore implements Repository backed by Cloud Firestore. Messages live
// in sessions/{id}/messages, facts in facts/{user}/items/{key}, and the
// knowledge base in a documents collection with a vector index on the
// embedding field.
type Firestore struct {
	client    *firestore.Client
	sessions  string
	facts     string
	documents string
	timeout   time.Duration
}

type FirestoreOption func(*Firestore)

// WithCollections overrides the default collection names
func WithCollections(sessions, facts, documents string) FirestoreOption {
	return func(r *Firestore) {
		r.sessions = sessions
		r.facts = facts
		r.documents = documents
	}
}

// WithTimeout overrides the default per-call timeout
func WithTimeout(d time.Duration) FirestoreOption {
	return func(r *Firestore) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// New creates a new Firestore repository
func New(ctx context.Context, projectID, databaseID string, opts ...FirestoreOption) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID), goerr.V("database", databaseID))
	}

	r := &Firestore{
		client:    client,
		sessions:  "sessions",
		facts:     "facts",
		documents: "documents",
		timeout:   defaultTimeout,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Close releases the underlying client
func (r *Firestore) Close() error {
	return r.client.Close()
}

// opCtx bounds a single repository operation with the configured timeout
func (r *Firestore) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *Firestore) AppendMessage(ctx context.Context, id model.SessionID, msg *model.Message) error {
	if err := msg.Validate(); err != nil {
		return goerr.Wrap(err, "invalid message")
	}
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	sessionRef := r.client.Collection(r.sessions).Doc(string(id))

	// Create the session document on first append. AlreadyExists is fine.
	_, err := sessionRef.Create(ctx, map[string]any{
		"created_at": msg.CreatedAt,
	})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return goerr.Wrap(model.ErrStorage, "failed to create session",
			goerr.V("session", id), goerr.V("error", err))
	}

	if _, _, err := sessionRef.Collection(messagesCollection).Add(ctx, msg); err != nil {
		return goerr.Wrap(model.ErrStorage, "failed to append message",
			goerr.V("session", id), goerr.V("error", err))
	}

	return nil
}

func (r *Firestore) RecentMessages(ctx context.Context, id model.SessionID, n int) ([]*model.Message, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	iter := r.client.Collection(r.sessions).Doc(string(id)).
		Collection(messagesCollection).
		OrderBy("created_at", firestore.Desc).
		Limit(n).
		Documents(ctx)
	defer iter.Stop()

	var msgs []*model.Message
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(model.ErrStorage, "failed to read messages",
				goerr.V("session", id), goerr.V("error", err))
		}

		var msg model.Message
		if err := doc.DataTo(&msg); err != nil {
			return nil, goerr.Wrap(model.ErrStorage, "failed to decode message",
				goerr.V("session", id), goerr.V("error", err))
		}
		msgs = append(msgs, &msg)
	}

	// Query is newest first, callers want oldest first
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	return msgs, nil
}

func (r *Firestore) ClearSession(ctx context.Context, id model.SessionID) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	sessionRef := r.client.Collection(r.sessions).Doc(string(id))

	bw := r.client.BulkWriter(ctx)
	iter := sessionRef.Collection(messagesCollection).Documents(ctx)
	defer iter.Stop()

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return goerr.Wrap(model.ErrStorage, "failed to list messages for delete",
				goerr.V("session", id), goerr.V("error", err))
		}
		if _, err := bw.Delete(doc.Ref); err != nil {
			return goerr.Wrap(model.ErrStorage, "failed to schedule delete",
				goerr.V("session", id), goerr.V("error", err))
		}
	}

	if _, err := bw.Delete(sessionRef); err != nil {
		return goerr.Wrap(model.ErrStorage, "failed to schedule session delete",
			goerr.V("session", id), goerr.V("error", err))
	}
	bw.End()

	return nil
}

func (r *Firestore) UpsertFact(ctx context.Context, user model.UserID, key, value string) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	fact := &model.Fact{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}

	_, err := r.client.Collection(r.facts).Doc(string(user)).
		Collection(factItemsCollection).Doc(key).
		Set(ctx, fact)
	if err != nil {
		return goerr.Wrap(model.ErrStorage, "failed to upsert fact",
			goerr.V("user", user), goerr.V("key", key), goerr.V("error", err))
	}

	return nil
}

func (r *Firestore) Facts(ctx context.Context, user model.UserID) ([]*model.Fact, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	iter := r.client.Collection(r.facts).Doc(string(user)).
		Collection(factItemsCollection).
		OrderBy("key", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var facts []*model.Fact
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(model.ErrStorage, "failed to read facts",
				goerr.V("user", user), goerr.V("error", err))
		}

		var fact model.Fact
		if err := doc.DataTo(&fact); err != nil {
			return nil, goerr.Wrap(model.ErrStorage, "failed to decode fact",
				goerr.V("user", user), goerr.V("error", err))
		}
		facts = append(facts, &fact)
	}

	return facts, nil
}

func (r *Firestore) PutDocuments(ctx context.Context, docs []*model.Document) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	bw := r.client.BulkWriter(ctx)
	col := r.client.Collection(r.documents)

	for _, doc := range docs {
		id := doc.ID
		if id == "" {
			id = model.NewDocumentID()
		}
		if _, err := bw.Set(col.Doc(string(id)), doc); err != nil {
			return goerr.Wrap(model.ErrStorage, "failed to schedule document write",
				goerr.V("source", doc.Source), goerr.V("error", err))
		}
	}
	bw.End()

	return nil
}

func (r *Firestore) HasDocuments(ctx context.Context) (bool, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	iter := r.client.Collection(r.documents).Limit(1).Documents(ctx)
	defer iter.Stop()

	_, err := iter.Next()
	if err == iterator.Done {
		return false, nil
	}
	if err != nil {
		return false, goerr.Wrap(model.ErrStorage, "failed to probe documents",
			goerr.V("error", err))
	}
	return true, nil
}

func (r *Firestore) SearchVector(ctx context.Context, embedding []float32, limit int) ([]*model.SearchHit, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	q := r.client.Collection(r.documents).FindNearest(
		"embedding",
		firestore.Vector32(embedding),
		limit,
		firestore.DistanceMeasureCosine,
		&firestore.FindNearestOptions{
			DistanceResultField: "vector_distance",
		},
	)

	iter := q.Documents(ctx)
	defer iter.Stop()

	var hits []*model.SearchHit
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(model.ErrStorage, "failed to run vector search",
				goerr.V("error", err))
		}

		var d model.Document
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(model.ErrStorage, "failed to decode document",
				goerr.V("error", err))
		}
		d.ID = model.DocumentID(doc.Ref.ID)

		// Cosine distance is in [0, 2]; convert to a similarity score
		score := 1.0
		if v, err := doc.DataAt("vector_distance"); err == nil {
			if dist, ok := v.(float64); ok {
				score = 1.0 - dist
			}
		}

		hits = append(hits, &model.SearchHit{
			Document: &d,
			Score:    score,
			Method:   model.SearchMethodVector,
		})
	}

	return hits, nil
}

func (r *Firestore) SearchKeyword(ctx context.Context, query string, limit int) ([]*model.SearchHit, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}
	if len(tokens) > maxKeywordTerms {
		tokens = tokens[:maxKeywordTerms]
	}

	iter := r.client.Collection(r.documents).
		Where("keywords", "array-contains-any", tokens).
		Limit(limit * 4).
		Documents(ctx)
	defer iter.Stop()

	var hits []*model.SearchHit
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(model.ErrStorage, "failed to run keyword search",
				goerr.V("error", err))
		}

		var d model.Document
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(model.ErrStorage, "failed to decode document",
				goerr.V("error", err))
		}
		d.ID = model.DocumentID(doc.Ref.ID)

		hits = append(hits, &model.SearchHit{
			Document: &d,
			Score:    keywordScore(tokens, d.Keywords),
			Method:   model.SearchMethodKeyword,
		})
	}

	rankKeywordHits(hits)
	if len(hits) > limit {
		hits = hits[:limit]
	}

	return hits, nil
}

// keywordScore is the fraction of query tokens present in the document
func keywordScore(queryTokens, docTokens []string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}

	docSet := make(map[string]bool, len(docTokens))
	for _, t := range docTokens {
		docSet[t] = true
	}

	matched := 0
	for _, t := range queryTokens {
		if docSet[t] {
			matched++
		}
	}

	return float64(matched) / float64(len(queryTokens))
}

// rankKeywordHits orders hits by score descending, ties broken by document
// ID so that identical queries always yield identical ordering
func rankKeywordHits(hits []*model.SearchHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Document.ID < hits[j].Document.ID
	})
}
