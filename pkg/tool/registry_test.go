package tool_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/fennec/pkg/model"
	"github.com/m-mizutani/fennec/pkg/tool"
	"github.com/m-mizutani/fennec/pkg/tool/calc"
	"github.com/m-mizutani/gt"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

type failingTool struct{}

func (f *failingTool) Spec() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{Name: "always_fails", Description: "test tool"},
		},
	}
}

func (f *failingTool) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	return nil, errors.New("boom")
}

func (f *failingTool) Prompt(ctx context.Context) string { return "use with care" }
func (f *failingTool) Flags() []cli.Flag                 { return nil }

func TestRegistryLookup(t *testing.T) {
	r := tool.New(calc.New(), &failingTool{})

	gt.True(t, r.Has("calculate"))
	gt.True(t, r.Has("always_fails"))
	gt.False(t, r.Has("no_such_tool"))
	gt.Equal(t, r.Names(), []string{"always_fails", "calculate"})
	gt.A(t, r.Specs()).Length(2)
}

func TestRegistryExecute(t *testing.T) {
	r := tool.New(calc.New())

	resp, err := r.Execute(context.Background(), genai.FunctionCall{
		Name: "calculate",
		Args: map[string]any{"expression": "123 + 456"},
	})
	gt.NoError(t, err)
	gt.Equal(t, resp.Response["result"], "579")
}

func TestRegistryExecuteUnknownTool(t *testing.T) {
	r := tool.New(calc.New())

	_, err := r.Execute(context.Background(), genai.FunctionCall{Name: "no_such_tool"})
	gt.Error(t, err)
	gt.True(t, errors.Is(err, tool.ErrToolNotFound))
}

func TestRegistryExecuteWrapsToolError(t *testing.T) {
	r := tool.New(&failingTool{})

	_, err := r.Execute(context.Background(), genai.FunctionCall{Name: "always_fails"})
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrTool))
}

func TestRegistryPrompts(t *testing.T) {
	r := tool.New(calc.New(), &failingTool{})
	gt.Equal(t, r.Prompts(context.Background()), "use with care")
}
