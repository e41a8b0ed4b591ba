package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/m-mizutani/fennec/pkg/model"
	"github.com/m-mizutani/fennec/pkg/tool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

const (
	semanticToolName = "semantic_search"

	defaultLimit = 5
	maxLimit     = 20
)

type searchInput struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (x *searchInput) normalize() error {
	x.Query = strings.TrimSpace(x.Query)
	if x.Query == "" {
		return goerr.New("query is empty")
	}
	if x.Limit <= 0 {
		x.Limit = defaultLimit
	}
	if x.Limit > maxLimit {
		x.Limit = maxLimit
	}
	return nil
}

func parseInput(fc genai.FunctionCall) (*searchInput, error) {
	raw, err := json.Marshal(fc.Args)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal arguments")
	}

	var in searchInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, goerr.Wrap(err, "failed to parse arguments")
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	return &in, nil
}

// Semantic retrieves documents by embedding similarity
type Semantic struct {
	clients *tool.Client
}

func NewSemantic(clients *tool.Client) *Semantic {
	return &Semantic{clients: clients}
}

func (s *Semantic) Spec() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        semanticToolName,
				Description: "Search the knowledge base for semantically similar documents using vector embeddings. Use for questions that may be answered by ingested documents.",
				Parameters:  searchSchema(),
			},
		},
	}
}

func searchSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"query": {
				Type:        genai.TypeString,
				Description: "Natural language search query",
			},
			"limit": {
				Type:        genai.TypeInteger,
				Description: "Max results (default: 5, max: 20)",
			},
		},
		Required: []string{"query"},
	}
}

func (s *Semantic) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	in, err := parseInput(fc)
	if err != nil {
		return nil, err
	}

	embedding, err := s.clients.Gemini.Embedding(ctx, in.Query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query")
	}

	hits, err := s.clients.Repo.SearchVector(ctx, embedding, in.Limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search documents")
	}

	return tool.Response(semanticToolName, FormatHits(hits)), nil
}

func (s *Semantic) Prompt(ctx context.Context) string {
	return ""
}

func (s *Semantic) Flags() []cli.Flag {
	return nil
}

// FormatHits renders search hits for inclusion in a prompt
func FormatHits(hits []*model.SearchHit) string {
	if len(hits) == 0 {
		return "No matching documents found in the knowledge base."
	}

	var sb strings.Builder
	for i, hit := range hits {
		fmt.Fprintf(&sb, "Document %d (source: %s, score: %.3f):\n%s\n\n",
			i+1, hit.Document.Source, hit.Score, hit.Document.Text)
	}
	return strings.TrimRight(sb.String(), "\n")
}
