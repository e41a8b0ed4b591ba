package web_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/fennec/pkg/tool/web"
	"github.com/m-mizutani/gt"
	"google.golang.org/genai"
)

const resultPage = `<html><body>
<div class="result">
  <a class="result__a" href="https://example.com/atlas">Vector search overview</a>
  <div class="result__snippet">Vector search finds semantically similar documents.</div>
</div>
<div class="result">
  <a class="result__a" href="https://example.com/hybrid">Hybrid search guide</a>
  <div class="result__snippet">Combining keyword and vector search.</div>
</div>
</body></html>`

func TestQueryParsesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Equal(t, r.Method, http.MethodPost)
		gt.NoError(t, r.ParseForm())
		gt.Equal(t, r.Form.Get("q"), "vector search")
		_, _ = w.Write([]byte(resultPage))
	}))
	defer srv.Close()

	s := web.New(web.WithEndpoint(srv.URL))
	results, err := s.Query(context.Background(), "vector search")
	gt.NoError(t, err)
	gt.A(t, results).Length(2)
	gt.Equal(t, results[0].Title, "Vector search overview")
	gt.Equal(t, results[0].URL, "https://example.com/atlas")
	gt.S(t, results[0].Snippet).Contains("semantically similar")
}

func TestQueryRetriesOnServerError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(resultPage))
	}))
	defer srv.Close()

	s := web.New(web.WithEndpoint(srv.URL))
	results, err := s.Query(context.Background(), "vector search")
	gt.NoError(t, err)
	gt.Equal(t, calls, 2)
	gt.A(t, results).Length(2)
}

func TestQueryFailsAfterRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := web.New(web.WithEndpoint(srv.URL))
	_, err := s.Query(context.Background(), "vector search")
	gt.Error(t, err)
}

func TestExecuteFormatsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(resultPage))
	}))
	defer srv.Close()

	s := web.New(web.WithEndpoint(srv.URL))
	resp, err := s.Execute(context.Background(), genai.FunctionCall{
		Name: "web_search",
		Args: map[string]any{"query": "vector search"},
	})
	gt.NoError(t, err)

	result := gt.Cast[string](t, resp.Response["result"])
	gt.S(t, result).Contains("Vector search overview")
	gt.S(t, result).Contains("Hybrid search guide")
}

func TestExecuteRejectsEmptyQuery(t *testing.T) {
	s := web.New()
	_, err := s.Execute(context.Background(), genai.FunctionCall{
		Name: "web_search",
		Args: map[string]any{"query": "  "},
	})
	gt.Error(t, err)
}
