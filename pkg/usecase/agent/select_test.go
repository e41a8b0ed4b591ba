package agent

import (
	"testing"

	"github.com/m-mizutani/gt"
	"google.golang.org/genai"
)

func TestApplyRoutingForcesUnselectedTool(t *testing.T) {
	selected := []genai.FunctionCall{
		{Name: "web_search", Args: map[string]any{"query": "mongodb atlas"}},
	}
	decision := &RouteDecision{
		Force: []string{"semantic_search"},
		Deny:  map[string]bool{},
	}

	calls := applyRouting("what is mongodb atlas", selected, decision)
	gt.A(t, calls).Length(2)
	gt.Equal(t, calls[0].Name, "semantic_search")
	gt.Equal(t, calls[0].Args["query"], "what is mongodb atlas")
	gt.Equal(t, calls[1].Name, "web_search")
}

func TestApplyRoutingKeepsModelArgsWhenAlreadySelected(t *testing.T) {
	selected := []genai.FunctionCall{
		{Name: "semantic_search", Args: map[string]any{"query": "refined query"}},
	}
	decision := &RouteDecision{
		Force: []string{"semantic_search"},
		Deny:  map[string]bool{},
	}

	calls := applyRouting("original utterance", selected, decision)
	gt.A(t, calls).Length(1)
	gt.Equal(t, calls[0].Args["query"], "refined query")
}

func TestApplyRoutingDropsDeniedTool(t *testing.T) {
	selected := []genai.FunctionCall{
		{Name: "web_search", Args: map[string]any{"query": "x"}},
		{Name: "calculate", Args: map[string]any{"expression": "1+1"}},
	}
	decision := &RouteDecision{
		Force: []string{},
		Deny:  map[string]bool{"web_search": true},
	}

	calls := applyRouting("x", selected, decision)
	gt.A(t, calls).Length(1)
	gt.Equal(t, calls[0].Name, "calculate")
}

func TestDefaultCallExtractsExpression(t *testing.T) {
	call := defaultCall("calculate", "Calculate 15 * 23 + 45 for me")
	gt.Equal(t, call.Args["expression"], "15 * 23 + 45")
}

func TestExtractArithmetic(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"Calculate 15 * 23 + 45", "15 * 23 + 45"},
		{"what is 2+2?", "2+2"},
		{"roughly 1.5 * (2 + 3) please", "1.5 * (2 + 3)"},
		{"no numbers here", ""},
	}

	for _, tc := range cases {
		gt.Equal(t, extractArithmetic(tc.input), tc.want)
	}
}

func TestHeuristicCalls(t *testing.T) {
	t.Run("arithmetic picks calculator", func(t *testing.T) {
		calls := heuristicCalls("Calculate 15 * 23 + 45")
		gt.A(t, calls).Length(1)
		gt.Equal(t, calls[0].Name, "calculate")
	})

	t.Run("knowledge base keyword picks semantic search", func(t *testing.T) {
		calls := heuristicCalls("What was the latest acquisition?")
		gt.A(t, calls).Length(1)
		gt.Equal(t, calls[0].Name, "semantic_search")
	})

	t.Run("general knowledge picks web search", func(t *testing.T) {
		calls := heuristicCalls("Who is the president of France?")
		gt.A(t, calls).Length(1)
		gt.Equal(t, calls[0].Name, "web_search")
	})

	t.Run("small talk picks nothing", func(t *testing.T) {
		gt.A(t, heuristicCalls("good morning!")).Length(0)
	})
}
