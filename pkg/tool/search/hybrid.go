package search

import (
	"context"
	"sort"

	"github.com/m-mizutani/fennec/pkg/model"
	"github.com/m-mizutani/fennec/pkg/tool"
	"github.com/m-mizutani/fennec/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

const hybridToolName = "hybrid_search"

// Score weights for merging vector and keyword results
const (
	vectorWeight  = 0.7
	keywordWeight = 0.3
)

// Hybrid combines vector similarity search with keyword matching
type Hybrid struct {
	clients *tool.Client
}

func NewHybrid(clients *tool.Client) *Hybrid {
	return &Hybrid{clients: clients}
}

func (h *Hybrid) Spec() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        hybridToolName,
				Description: "Search the knowledge base combining semantic similarity with keyword matching. Use for complex queries that need both meaning and exact terms.",
				Parameters:  searchSchema(),
			},
		},
	}
}

func (h *Hybrid) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	in, err := parseInput(fc)
	if err != nil {
		return nil, err
	}

	embedding, err := h.clients.Gemini.Embedding(ctx, in.Query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query")
	}

	vectorHits, err := h.clients.Repo.SearchVector(ctx, embedding, in.Limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to run vector search")
	}

	// Keyword search failure degrades to vector-only results
	keywordHits, err := h.clients.Repo.SearchKeyword(ctx, in.Query, in.Limit)
	if err != nil {
		logging.From(ctx).Warn("keyword search failed, using vector results only", "error", err)
		keywordHits = nil
	}

	merged := Merge(vectorHits, keywordHits, in.Limit)
	return tool.Response(hybridToolName, FormatHits(merged)), nil
}

func (h *Hybrid) Prompt(ctx context.Context) string {
	return ""
}

func (h *Hybrid) Flags() []cli.Flag {
	return nil
}

// Merge combines vector and keyword hits into a single ranking. The
// combined score is a weighted sum of the min-max normalized vector score
// and the keyword match score. Ties are broken by the original vector
// rank, then by document ID, so the result is a deterministic function of
// the two input rankings.
func Merge(vectorHits, keywordHits []*model.SearchHit, limit int) []*model.SearchHit {
	type entry struct {
		doc        *model.Document
		vectorRank int // position in vectorHits, len(vectorHits) if absent
		combined   float64
	}

	entries := make(map[model.DocumentID]*entry, len(vectorHits)+len(keywordHits))

	for rank, hit := range vectorHits {
		entries[hit.Document.ID] = &entry{
			doc:        hit.Document,
			vectorRank: rank,
			combined:   vectorWeight * normalizeVector(hit.Score, vectorHits),
		}
	}

	for _, hit := range keywordHits {
		e, ok := entries[hit.Document.ID]
		if !ok {
			e = &entry{
				doc:        hit.Document,
				vectorRank: len(vectorHits),
			}
			entries[hit.Document.ID] = e
		}
		e.combined += keywordWeight * hit.Score
	}

	ranked := make([]*entry, 0, len(entries))
	for _, e := range entries {
		ranked = append(ranked, e)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].combined != ranked[j].combined {
			return ranked[i].combined > ranked[j].combined
		}
		if ranked[i].vectorRank != ranked[j].vectorRank {
			return ranked[i].vectorRank < ranked[j].vectorRank
		}
		return ranked[i].doc.ID < ranked[j].doc.ID
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	merged := make([]*model.SearchHit, len(ranked))
	for i, e := range ranked {
		merged[i] = &model.SearchHit{
			Document: e.doc,
			Score:    e.combined,
			Method:   model.SearchMethodHybrid,
		}
	}
	return merged
}

// normalizeVector maps a vector score into [0, 1] relative to the result
// set. A single result or a flat score distribution normalizes to 1.
func normalizeVector(score float64, hits []*model.SearchHit) float64 {
	minScore, maxScore := hits[0].Score, hits[0].Score
	for _, h := range hits {
		if h.Score < minScore {
			minScore = h.Score
		}
		if h.Score > maxScore {
			maxScore = h.Score
		}
	}

	if maxScore == minScore {
		return 1.0
	}
	return (score - minScore) / (maxScore - minScore)
}
