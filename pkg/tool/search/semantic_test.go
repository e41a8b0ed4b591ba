package search_test

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/fennec/pkg/model"
	"github.com/m-mizutani/fennec/pkg/repository"
	"github.com/m-mizutani/fennec/pkg/tool"
	"github.com/m-mizutani/fennec/pkg/tool/search"
	"github.com/m-mizutani/gt"
	"google.golang.org/genai"
)

type mockGemini struct {
	embeddingFunc func(ctx context.Context, text string) ([]float32, error)
}

func (m *mockGemini) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return nil, errors.New("not implemented")
}

func (m *mockGemini) Embedding(ctx context.Context, text string) ([]float32, error) {
	if m.embeddingFunc != nil {
		return m.embeddingFunc(ctx, text)
	}
	return []float32{1, 0, 0}, nil
}

func seededRepo(t *testing.T) repository.Repository {
	t.Helper()
	repo := repository.NewMemory()

	docs := []*model.Document{
		{ID: "close", Text: "close match", Source: "a.md", Embedding: firestore.Vector32{1, 0, 0}},
		{ID: "far", Text: "far match", Source: "b.md", Embedding: firestore.Vector32{0, 1, 0}},
	}
	gt.NoError(t, repo.PutDocuments(context.Background(), docs))
	return repo
}

func TestSemanticExecute(t *testing.T) {
	s := search.NewSemantic(&tool.Client{Repo: seededRepo(t), Gemini: &mockGemini{}})

	resp, err := s.Execute(context.Background(), genai.FunctionCall{
		Name: "semantic_search",
		Args: map[string]any{"query": "anything", "limit": float64(1)},
	})
	gt.NoError(t, err)

	result := gt.Cast[string](t, resp.Response["result"])
	gt.S(t, result).Contains("close match")
	gt.S(t, result).NotContains("far match")
}

func TestSemanticExecuteRejectsEmptyQuery(t *testing.T) {
	s := search.NewSemantic(&tool.Client{Repo: seededRepo(t), Gemini: &mockGemini{}})

	_, err := s.Execute(context.Background(), genai.FunctionCall{
		Name: "semantic_search",
		Args: map[string]any{"query": "  "},
	})
	gt.Error(t, err)
}

func TestSemanticExecutePropagatesEmbeddingFailure(t *testing.T) {
	gemini := &mockGemini{
		embeddingFunc: func(ctx context.Context, text string) ([]float32, error) {
			return nil, errors.New("quota exceeded")
		},
	}
	s := search.NewSemantic(&tool.Client{Repo: seededRepo(t), Gemini: gemini})

	_, err := s.Execute(context.Background(), genai.FunctionCall{
		Name: "semantic_search",
		Args: map[string]any{"query": "anything"},
	})
	gt.Error(t, err)
}

func TestSemanticExecuteEmptyIndex(t *testing.T) {
	s := search.NewSemantic(&tool.Client{Repo: repository.NewMemory(), Gemini: &mockGemini{}})

	resp, err := s.Execute(context.Background(), genai.FunctionCall{
		Name: "semantic_search",
		Args: map[string]any{"query": "anything"},
	})
	gt.NoError(t, err)
	gt.S(t, gt.Cast[string](t, resp.Response["result"])).Contains("No matching documents")
}
