package agent

import (
	"regexp"
	"strings"

	"github.com/m-mizutani/fennec/pkg/model"
)

// factPatterns map self-descriptive phrases to fact keys. Extraction is
// best effort: it has no correctness guarantee beyond being deterministic
// and safe on arbitrary input.
var factPatterns = []struct {
	key     string
	pattern *regexp.Regexp
}{
	{"name", regexp.MustCompile(`(?i)\bmy name is ([a-z][a-z .'-]{0,60})`)},
	{"name", regexp.MustCompile(`(?i)\bcall me ([a-z][a-z .'-]{0,60})`)},
	{"preference", regexp.MustCompile(`(?i)\bi prefer ([^.!?\n]{1,120})`)},
	{"likes", regexp.MustCompile(`(?i)\bi like ([^.!?\n]{1,120})`)},
	{"interest", regexp.MustCompile(`(?i)\bi(?:'m| am) interested in ([^.!?\n]{1,120})`)},
	{"occupation", regexp.MustCompile(`(?i)\bi work as an? ([^.!?\n]{1,80})`)},
}

// ExtractFacts finds long-term facts in an utterance. The same utterance
// always yields the same facts, so repeated extraction plus upsert is
// idempotent. At most one value per key is returned, first match wins.
func ExtractFacts(utterance string) []*model.Fact {
	var facts []*model.Fact
	seen := make(map[string]bool)

	for _, p := range factPatterns {
		if seen[p.key] {
			continue
		}
		m := p.pattern.FindStringSubmatch(utterance)
		if m == nil {
			continue
		}

		value := strings.TrimSpace(m[1])
		if value == "" {
			continue
		}

		seen[p.key] = true
		facts = append(facts, &model.Fact{Key: p.key, Value: value})
	}

	return facts
}
