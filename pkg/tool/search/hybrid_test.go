package search_test

import (
	"context"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/fennec/pkg/model"
	"github.com/m-mizutani/fennec/pkg/repository"
	"github.com/m-mizutani/fennec/pkg/tool"
	"github.com/m-mizutani/fennec/pkg/tool/search"
	"github.com/m-mizutani/gt"
	"google.golang.org/genai"
)

func vectorHit(id model.DocumentID, score float64) *model.SearchHit {
	return &model.SearchHit{
		Document: &model.Document{ID: id, Text: string(id)},
		Score:    score,
		Method:   model.SearchMethodVector,
	}
}

func keywordHit(id model.DocumentID, score float64) *model.SearchHit {
	return &model.SearchHit{
		Document: &model.Document{ID: id, Text: string(id)},
		Score:    score,
		Method:   model.SearchMethodKeyword,
	}
}

func ids(hits []*model.SearchHit) []model.DocumentID {
	out := make([]model.DocumentID, len(hits))
	for i, h := range hits {
		out[i] = h.Document.ID
	}
	return out
}

func TestMergePrefersAgreement(t *testing.T) {
	vector := []*model.SearchHit{
		vectorHit("doc-a", 0.9),
		vectorHit("doc-b", 0.8),
		vectorHit("doc-c", 0.3),
	}
	keyword := []*model.SearchHit{
		keywordHit("doc-b", 1.0),
		keywordHit("doc-d", 0.5),
	}

	merged := search.Merge(vector, keyword, 10)
	gt.A(t, merged).Length(4)

	// doc-b appears in both rankings: 0.7*normalized(0.8) + 0.3*1.0
	// beats doc-a's 0.7*1.0
	gt.Equal(t, merged[0].Document.ID, model.DocumentID("doc-b"))
	gt.Equal(t, merged[1].Document.ID, model.DocumentID("doc-a"))
	for _, hit := range merged {
		gt.Equal(t, hit.Method, model.SearchMethodHybrid)
	}
}

func TestMergeIsDeterministic(t *testing.T) {
	vector := []*model.SearchHit{
		vectorHit("doc-a", 0.5),
		vectorHit("doc-b", 0.5),
		vectorHit("doc-c", 0.5),
	}
	keyword := []*model.SearchHit{
		keywordHit("doc-c", 0.4),
		keywordHit("doc-e", 0.4),
		keywordHit("doc-d", 0.4),
	}

	first := search.Merge(vector, keyword, 10)
	for i := 0; i < 10; i++ {
		again := search.Merge(vector, keyword, 10)
		gt.Equal(t, ids(again), ids(first))
	}
}

func TestMergeBreaksTiesByVectorRank(t *testing.T) {
	// Flat vector scores normalize to 1.0, so all three tie on the
	// combined score and the original vector order must win
	vector := []*model.SearchHit{
		vectorHit("doc-c", 0.5),
		vectorHit("doc-a", 0.5),
		vectorHit("doc-b", 0.5),
	}

	merged := search.Merge(vector, nil, 10)
	gt.Equal(t, ids(merged), []model.DocumentID{"doc-c", "doc-a", "doc-b"})
}

func TestMergeKeywordOnly(t *testing.T) {
	keyword := []*model.SearchHit{
		keywordHit("doc-b", 0.9),
		keywordHit("doc-a", 0.4),
	}

	merged := search.Merge(nil, keyword, 10)
	gt.Equal(t, ids(merged), []model.DocumentID{"doc-b", "doc-a"})
}

func TestMergeRespectsLimit(t *testing.T) {
	vector := []*model.SearchHit{
		vectorHit("doc-a", 0.9),
		vectorHit("doc-b", 0.8),
		vectorHit("doc-c", 0.7),
	}

	merged := search.Merge(vector, nil, 2)
	gt.A(t, merged).Length(2)
}

func TestMergeEmpty(t *testing.T) {
	gt.A(t, search.Merge(nil, nil, 5)).Length(0)
}

func TestHybridExecute(t *testing.T) {
	repo := repository.NewMemory()
	docs := []*model.Document{
		{
			ID:        "agreed",
			Text:      "vector search over embeddings",
			Source:    "a.md",
			Embedding: firestore.Vector32{1, 0, 0},
			Keywords:  repository.Tokenize("vector search over embeddings"),
		},
		{
			ID:        "vector-only",
			Text:      "unrelated terms entirely",
			Source:    "b.md",
			Embedding: firestore.Vector32{0.9, 0.1, 0},
			Keywords:  repository.Tokenize("unrelated terms entirely"),
		},
	}
	gt.NoError(t, repo.PutDocuments(context.Background(), docs))

	h := search.NewHybrid(&tool.Client{Repo: repo, Gemini: &mockGemini{}})
	resp, err := h.Execute(context.Background(), genai.FunctionCall{
		Name: "hybrid_search",
		Args: map[string]any{"query": "vector search"},
	})
	gt.NoError(t, err)

	result := gt.Cast[string](t, resp.Response["result"])
	// The document matching both rankings is listed first
	gt.S(t, result).Contains("Document 1 (source: a.md")
}

func TestFormatHits(t *testing.T) {
	gt.S(t, search.FormatHits(nil)).Contains("No matching documents")

	hits := []*model.SearchHit{
		{
			Document: &model.Document{ID: "doc-a", Text: "vector databases store embeddings", Source: "report.txt"},
			Score:    0.91,
			Method:   model.SearchMethodVector,
		},
	}
	out := search.FormatHits(hits)
	gt.S(t, out).Contains("vector databases store embeddings")
	gt.S(t, out).Contains("report.txt")
}
