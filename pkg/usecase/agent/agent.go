package agent

import (
	"bytes"
	"context"
	_ "embed"
	"strings"
	"text/template"
	"time"

	"github.com/m-mizutani/fennec/pkg/adapter"
	"github.com/m-mizutani/fennec/pkg/model"
	"github.com/m-mizutani/fennec/pkg/repository"
	"github.com/m-mizutani/fennec/pkg/tool"
	"github.com/m-mizutani/fennec/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

//go:embed prompt/answer.md
var answerPromptRaw string

var answerPromptTmpl = template.Must(template.New("answer").Parse(answerPromptRaw))

// FallbackAnswer is shown to the user when response generation fails
const FallbackAnswer = "Sorry, I could not generate a response. Please try again."

const defaultHistoryWindow = 10

// Agent orchestrates one conversation turn: load memory, select tools,
// execute them, compose the final prompt and persist the exchange
type Agent struct {
	repo     repository.Repository
	gemini   adapter.Gemini
	registry *tool.Registry
	policy   *RoutePolicy
	window   int
}

type Option func(*Agent)

// WithPolicy sets the tool routing policy
func WithPolicy(policy *RoutePolicy) Option {
	return func(a *Agent) {
		a.policy = policy
	}
}

// WithHistoryWindow sets how many recent messages are loaded per turn
func WithHistoryWindow(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.window = n
		}
	}
}

func New(repo repository.Repository, gemini adapter.Gemini, registry *tool.Registry, opts ...Option) *Agent {
	a := &Agent{
		repo:     repo,
		gemini:   gemini,
		registry: registry,
		window:   defaultHistoryWindow,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// TurnInput carries one user utterance
type TurnInput struct {
	SessionID model.SessionID
	UserID    model.UserID
	Message   string
}

// ToolCall records one tool invocation within a turn
type ToolCall struct {
	Name   string
	Output string
	Err    error
}

// TurnResult is the outcome of a completed turn
type TurnResult struct {
	Answer    string
	ToolCalls []ToolCall
}

// Turn runs the full orchestration loop for one user utterance. Tool and
// memory failures degrade the turn; only a completion failure aborts it,
// in which case no assistant message is recorded.
func (a *Agent) Turn(ctx context.Context, input TurnInput) (*TurnResult, error) {
	logger := logging.From(ctx)

	utterance := strings.TrimSpace(input.Message)
	if utterance == "" {
		return nil, goerr.New("message is empty")
	}
	if input.UserID == "" {
		input.UserID = model.UserID(input.SessionID)
	}

	// Record the user message first. A storage failure degrades the turn
	// to stateless instead of aborting it.
	userMsg := &model.Message{
		Role:      model.RoleUser,
		Content:   utterance,
		CreatedAt: time.Now(),
	}
	if err := a.repo.AppendMessage(ctx, input.SessionID, userMsg); err != nil {
		logger.Warn("failed to record user message", "session", input.SessionID, "error", err)
	}

	history := a.loadHistory(ctx, input.SessionID, utterance)
	facts := a.loadFacts(ctx, input.UserID)

	// Select and execute tools in selection order. Failed tools are
	// recorded and the turn continues with partial results.
	selected := a.selectTools(ctx, utterance, history)
	toolCalls := a.executeTools(ctx, selected)

	answer, err := a.compose(ctx, utterance, history, facts, toolCalls)
	if err != nil {
		return nil, goerr.Wrap(model.ErrGeneration, "failed to generate answer",
			goerr.V("session", input.SessionID), goerr.V("error", err))
	}

	assistantMsg := &model.Message{
		Role:      model.RoleAssistant,
		Content:   answer,
		CreatedAt: time.Now(),
	}
	if err := a.repo.AppendMessage(ctx, input.SessionID, assistantMsg); err != nil {
		logger.Warn("failed to record assistant message", "session", input.SessionID, "error", err)
	}

	a.rememberFacts(ctx, input.UserID, utterance)

	return &TurnResult{
		Answer:    answer,
		ToolCalls: toolCalls,
	}, nil
}

// loadHistory returns the recent message window as genai contents,
// excluding the current utterance which was already appended
func (a *Agent) loadHistory(ctx context.Context, id model.SessionID, utterance string) []*genai.Content {
	msgs, err := a.repo.RecentMessages(ctx, id, a.window+1)
	if err != nil {
		logging.From(ctx).Warn("failed to load history, continuing stateless",
			"session", id, "error", err)
		return nil
	}

	// Drop the just-appended current utterance if present
	if n := len(msgs); n > 0 && msgs[n-1].Role == model.RoleUser && msgs[n-1].Content == utterance {
		msgs = msgs[:n-1]
	}
	if len(msgs) > a.window {
		msgs = msgs[len(msgs)-a.window:]
	}

	contents := make([]*genai.Content, 0, len(msgs))
	for _, msg := range msgs {
		role := genai.Role(genai.RoleUser)
		if msg.Role == model.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	return contents
}

func (a *Agent) loadFacts(ctx context.Context, user model.UserID) []*model.Fact {
	facts, err := a.repo.Facts(ctx, user)
	if err != nil {
		logging.From(ctx).Warn("failed to load facts, continuing without them",
			"user", user, "error", err)
		return nil
	}
	return facts
}

func (a *Agent) executeTools(ctx context.Context, calls []genai.FunctionCall) []ToolCall {
	logger := logging.From(ctx)

	results := make([]ToolCall, 0, len(calls))
	for _, fc := range calls {
		if !a.registry.Has(fc.Name) {
			logger.Warn("skipping unrecognized tool", "name", fc.Name)
			continue
		}

		resp, err := a.registry.Execute(ctx, fc)
		if err != nil {
			logger.Warn("tool failed, continuing with remaining tools",
				"name", fc.Name, "error", err)
			results = append(results, ToolCall{Name: fc.Name, Err: err})
			continue
		}

		output, _ := resp.Response["result"].(string)
		logger.Debug("tool executed", "name", fc.Name, "output_len", len(output))
		results = append(results, ToolCall{Name: fc.Name, Output: output})
	}

	return results
}

// compose builds the final answer prompt from memory and tool results and
// requests one completion
func (a *Agent) compose(ctx context.Context, utterance string, history []*genai.Content, facts []*model.Fact, toolCalls []ToolCall) (string, error) {
	type renderedResult struct {
		Name   string
		Output string
	}

	var results []renderedResult
	var failures []string
	for _, call := range toolCalls {
		if call.Err != nil {
			failures = append(failures, call.Name)
			continue
		}
		results = append(results, renderedResult{Name: call.Name, Output: call.Output})
	}

	var buf bytes.Buffer
	if err := answerPromptTmpl.Execute(&buf, map[string]any{
		"Facts":    facts,
		"Results":  results,
		"Failures": failures,
	}); err != nil {
		return "", goerr.Wrap(err, "failed to render answer prompt")
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(buf.String(), ""),
	}

	contents := make([]*genai.Content, 0, len(history)+1)
	contents = append(contents, history...)
	contents = append(contents, genai.NewContentFromText(utterance, genai.RoleUser))

	resp, err := a.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return "", goerr.Wrap(err, "completion request failed")
	}

	answer := strings.TrimSpace(resp.Text())
	if answer == "" {
		return "", goerr.New("completion returned no text")
	}

	return answer, nil
}

// rememberFacts extracts long-term facts from the utterance and upserts
// them. Best effort: failures are logged, never fatal.
func (a *Agent) rememberFacts(ctx context.Context, user model.UserID, utterance string) {
	for _, fact := range ExtractFacts(utterance) {
		if err := a.repo.UpsertFact(ctx, user, fact.Key, fact.Value); err != nil {
			logging.From(ctx).Warn("failed to store fact",
				"user", user, "key", fact.Key, "error", err)
		}
	}
}
