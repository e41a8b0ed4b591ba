package agent

import (
	"context"
	_ "embed"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/open-policy-agent/opa/v1/rego"
)

//go:embed policy/route.rego
var defaultPolicyRaw string

// RoutePolicy decides tool routing overrides with a Rego policy. The
// policy sees {"query": <lowercased utterance>} and yields two sets:
// force (tools that must run this turn) and deny (tools that must not).
type RoutePolicy struct {
	query *rego.PreparedEvalQuery
}

// RouteDecision is the evaluated policy result for one utterance
type RouteDecision struct {
	Force []string
	Deny  map[string]bool
}

// NewRoutePolicy compiles the embedded default routing policy
func NewRoutePolicy(ctx context.Context) (*RoutePolicy, error) {
	return newPolicy(ctx, []func(*rego.Rego){
		rego.Module("route.rego", defaultPolicyRaw),
	})
}

// LoadRoutePolicy compiles all Rego files in dir instead of the default
func LoadRoutePolicy(ctx context.Context, dir string) (*RoutePolicy, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.rego"))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to glob policy files")
	}
	if len(files) == 0 {
		return nil, goerr.New("no policy files found", goerr.V("dir", dir))
	}

	modules := make([]func(*rego.Rego), 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read policy file", goerr.V("path", file))
		}
		modules = append(modules, rego.Module(file, string(data)))
	}

	return newPolicy(ctx, modules)
}

func newPolicy(ctx context.Context, modules []func(*rego.Rego)) (*RoutePolicy, error) {
	options := make([]func(*rego.Rego), 0, len(modules)+1)
	options = append(options, rego.Query("data.route"))
	options = append(options, modules...)

	prepared, err := rego.New(options...).PrepareForEval(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to prepare routing policy")
	}

	return &RoutePolicy{query: &prepared}, nil
}

// Evaluate runs the policy against the utterance
func (p *RoutePolicy) Evaluate(ctx context.Context, utterance string) (*RouteDecision, error) {
	input := map[string]any{
		"query": strings.ToLower(utterance),
	}

	rs, err := p.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to evaluate routing policy")
	}

	decision := &RouteDecision{Deny: make(map[string]bool)}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return decision, nil
	}

	result, ok := rs[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return decision, nil
	}

	decision.Force = stringSet(result["force"])
	for _, name := range stringSet(result["deny"]) {
		decision.Deny[name] = true
	}

	return decision, nil
}

// stringSet converts a Rego set result to a sorted string slice so that
// policy output ordering is stable
func stringSet(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
