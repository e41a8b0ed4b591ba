package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/m-mizutani/fennec/pkg/adapter"
	"github.com/m-mizutani/fennec/pkg/tool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

const (
	toolName = "analyze_document"

	// Keep prompts bounded; longer inputs are truncated before analysis
	maxInputRunes = 8000
)

const systemPrompt = "Analyze the following document and extract key information including: main topics, key facts, important numbers, and a short summary."

type input struct {
	Text string `json:"text"`
}

// Analyzer extracts key information and basic statistics from a document
type Analyzer struct {
	gemini adapter.Gemini
}

func New(gemini adapter.Gemini) *Analyzer {
	return &Analyzer{gemini: gemini}
}

func (a *Analyzer) Spec() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        toolName,
				Description: "Analyze a document provided by the user and extract main topics, key facts and statistics. Use when the user pastes text to analyze.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"text": {
							Type:        genai.TypeString,
							Description: "Document text to analyze",
						},
					},
					Required: []string{"text"},
				},
			},
		},
	}
}

func (a *Analyzer) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	raw, err := json.Marshal(fc.Args)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal arguments")
	}

	var in input
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, goerr.Wrap(err, "failed to parse arguments")
	}
	if strings.TrimSpace(in.Text) == "" {
		return nil, goerr.New("text is empty")
	}

	text := in.Text
	if runes := []rune(text); len(runes) > maxInputRunes {
		text = string(runes[:maxInputRunes])
	}

	contents := []*genai.Content{
		genai.NewContentFromText("Analyze this document:\n\n"+text, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, ""),
	}

	resp, err := a.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to analyze document")
	}

	result := fmt.Sprintf("%s\n\nStatistics: %d words, %d characters",
		resp.Text(), WordCount(in.Text), len([]rune(in.Text)))

	return tool.Response(toolName, result), nil
}

func (a *Analyzer) Prompt(ctx context.Context) string {
	return ""
}

func (a *Analyzer) Flags() []cli.Flag {
	return nil
}

// WordCount counts whitespace separated words
func WordCount(text string) int {
	return len(strings.Fields(text))
}
