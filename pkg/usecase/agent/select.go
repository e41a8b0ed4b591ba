package agent

import (
	"bytes"
	"context"
	_ "embed"
	"regexp"
	"strings"
	"text/template"

	"github.com/m-mizutani/fennec/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

//go:embed prompt/select.md
var selectPromptRaw string

var selectPromptTmpl = template.Must(template.New("select").Parse(selectPromptRaw))

var (
	arithmeticPattern = regexp.MustCompile(`\d\s*[+*/-]\s*\d`)

	knowledgeBaseKeywords = []string{
		"mongodb", "atlas", "database", "vector", "embedding",
		"acquisition", "revenue", "earnings", "financial",
	}

	generalKnowledgeKeywords = []string{
		"what is", "who is", "where is", "when is", "why is", "how to",
		"country", "capital", "city", "population", "weather",
		"sport", "football", "movie", "actor", "president",
	}
)

// selectTools asks the model which tools to invoke for the utterance via
// function calling. The routing policy can force additional tools or veto
// selected ones. When the selection call itself fails, keyword heuristics
// take over so the turn still proceeds.
func (a *Agent) selectTools(ctx context.Context, utterance string, history []*genai.Content) []genai.FunctionCall {
	logger := logging.From(ctx)

	selected, err := a.selectByModel(ctx, utterance, history)
	if err != nil {
		logger.Warn("tool selection call failed, falling back to heuristics", "error", err)
		selected = heuristicCalls(utterance)
	}

	decision := &RouteDecision{}
	if a.policy != nil {
		d, err := a.policy.Evaluate(ctx, utterance)
		if err != nil {
			logger.Warn("routing policy evaluation failed", "error", err)
		} else {
			decision = d
		}
	}

	return applyRouting(utterance, selected, decision)
}

func (a *Agent) selectByModel(ctx context.Context, utterance string, history []*genai.Content) ([]genai.FunctionCall, error) {
	var buf bytes.Buffer
	if err := selectPromptTmpl.Execute(&buf, map[string]any{
		"Tools":   a.registry.Names(),
		"Prompts": a.registry.Prompts(ctx),
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to render selection prompt")
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(buf.String(), ""),
		Temperature:       genai.Ptr[float32](0.1),
		Tools:             a.registry.Specs(),
	}

	contents := make([]*genai.Content, 0, len(history)+1)
	contents = append(contents, history...)
	contents = append(contents, genai.NewContentFromText(utterance, genai.RoleUser))

	resp, err := a.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "tool selection request failed")
	}

	var calls []genai.FunctionCall
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.FunctionCall != nil {
				calls = append(calls, *part.FunctionCall)
			}
		}
	}

	return calls, nil
}

// applyRouting filters denied tools and prepends forced tools that the
// model did not already select. Selection order is preserved so results
// are assembled deterministically.
func applyRouting(utterance string, selected []genai.FunctionCall, decision *RouteDecision) []genai.FunctionCall {
	have := make(map[string]bool, len(selected))
	for _, fc := range selected {
		have[fc.Name] = true
	}

	var calls []genai.FunctionCall
	for _, name := range decision.Force {
		if have[name] || decision.Deny[name] {
			continue
		}
		calls = append(calls, defaultCall(name, utterance))
	}

	for _, fc := range selected {
		if decision.Deny[fc.Name] {
			continue
		}
		calls = append(calls, fc)
	}

	return calls
}

// defaultCall builds a function call carrying the raw utterance as the
// tool argument, used for forced and heuristic selections
func defaultCall(name, utterance string) genai.FunctionCall {
	arg := "query"
	if name == "calculate" {
		arg = "expression"
		if expr := extractArithmetic(utterance); expr != "" {
			utterance = expr
		}
	}
	if name == "analyze_document" {
		arg = "text"
	}

	return genai.FunctionCall{
		Name: name,
		Args: map[string]any{arg: utterance},
	}
}

var arithmeticExprPattern = regexp.MustCompile(`[\d.]+(?:\s*[+*/-]\s*\(?\s*[\d.]+\s*\)?)+`)

// extractArithmetic pulls the arithmetic part out of a sentence like
// "Calculate 15 * 23 + 45"
func extractArithmetic(utterance string) string {
	return strings.TrimSpace(arithmeticExprPattern.FindString(utterance))
}

// heuristicCalls mirrors the routing policy keywords for the case where
// the selection model is unavailable
func heuristicCalls(utterance string) []genai.FunctionCall {
	lower := strings.ToLower(utterance)

	if arithmeticPattern.MatchString(lower) {
		return []genai.FunctionCall{defaultCall("calculate", utterance)}
	}
	for _, keyword := range knowledgeBaseKeywords {
		if strings.Contains(lower, keyword) {
			return []genai.FunctionCall{defaultCall("semantic_search", utterance)}
		}
	}
	for _, keyword := range generalKnowledgeKeywords {
		if strings.Contains(lower, keyword) {
			return []genai.FunctionCall{defaultCall("web_search", utterance)}
		}
	}

	return nil
}
