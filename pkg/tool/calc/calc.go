package calc

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/m-mizutani/fennec/pkg/tool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

const toolName = "calculate"

// safeChars is the allowlist of characters in an arithmetic expression.
// Anything else is rejected before evaluation.
const safeChars = "0123456789+-*/.() "

type input struct {
	Expression string `json:"expression"`
}

// Calculator evaluates arithmetic expressions
type Calculator struct{}

func New() *Calculator {
	return &Calculator{}
}

func (c *Calculator) Spec() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        toolName,
				Description: "Evaluate an arithmetic expression and return the numeric result. Use for any query containing numbers and mathematical operations.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"expression": {
							Type:        genai.TypeString,
							Description: `Arithmetic expression using digits, + - * /, parentheses and decimal points. Example: "15 * 23 + 45"`,
						},
					},
					Required: []string{"expression"},
				},
			},
		},
	}
}

func (c *Calculator) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	raw, err := json.Marshal(fc.Args)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal arguments")
	}

	var in input
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, goerr.Wrap(err, "failed to parse arguments")
	}

	result, err := Evaluate(in.Expression)
	if err != nil {
		return nil, err
	}

	return tool.Response(toolName, result), nil
}

func (c *Calculator) Prompt(ctx context.Context) string {
	return ""
}

func (c *Calculator) Flags() []cli.Flag {
	return nil
}

// Evaluate checks the expression against the character allowlist and
// computes its value
func Evaluate(expression string) (string, error) {
	trimmed := strings.TrimSpace(expression)
	if trimmed == "" {
		return "", goerr.New("empty expression")
	}

	for _, r := range trimmed {
		if !strings.ContainsRune(safeChars, r) {
			return "", goerr.New("invalid character in expression",
				goerr.V("char", string(r)), goerr.V("expression", trimmed))
		}
	}

	program, err := expr.Compile(trimmed)
	if err != nil {
		return "", goerr.Wrap(err, "failed to compile expression", goerr.V("expression", trimmed))
	}

	out, err := expr.Run(program, nil)
	if err != nil {
		return "", goerr.Wrap(err, "failed to evaluate expression", goerr.V("expression", trimmed))
	}

	switch v := out.(type) {
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", goerr.New("expression did not evaluate to a number",
			goerr.V("expression", trimmed), goerr.V("result", out))
	}
}
