package agent_test

import (
	"strings"
	"testing"

	"github.com/m-mizutani/fennec/pkg/usecase/agent"
	"github.com/m-mizutani/gt"
)

func TestExtractFacts(t *testing.T) {
	cases := []struct {
		title     string
		utterance string
		key       string
		value     string
	}{
		{
			title:     "name",
			utterance: "Hi, my name is Alice Smith and I have a question",
			key:       "name",
			value:     "Alice Smith and I have a question",
		},
		{
			title:     "call me",
			utterance: "You can call me Bob",
			key:       "name",
			value:     "Bob",
		},
		{
			title:     "preference",
			utterance: "I prefer concise answers. What is 2+2?",
			key:       "preference",
			value:     "concise answers",
		},
		{
			title:     "likes",
			utterance: "I like distributed systems",
			key:       "likes",
			value:     "distributed systems",
		},
		{
			title:     "interest",
			utterance: "I'm interested in vector databases",
			key:       "interest",
			value:     "vector databases",
		},
		{
			title:     "occupation",
			utterance: "I work as a data engineer",
			key:       "occupation",
			value:     "data engineer",
		},
	}

	for _, tc := range cases {
		t.Run(tc.title, func(t *testing.T) {
			facts := agent.ExtractFacts(tc.utterance)
			gt.A(t, facts).Length(1)
			gt.Equal(t, facts[0].Key, tc.key)
			gt.Equal(t, facts[0].Value, tc.value)
		})
	}
}

func TestExtractFactsMultiple(t *testing.T) {
	facts := agent.ExtractFacts("My name is Carol. I like hiking")
	gt.A(t, facts).Length(2)
	gt.Equal(t, facts[0].Key, "name")
	gt.Equal(t, facts[1].Key, "likes")
}

func TestExtractFactsFirstMatchPerKeyWins(t *testing.T) {
	// The name pattern stops at the comma, and the later "call me"
	// pattern must not produce a second name fact
	facts := agent.ExtractFacts("My name is Dave, but call me D")
	gt.A(t, facts).Length(1)
	gt.Equal(t, facts[0].Key, "name")
	gt.Equal(t, facts[0].Value, "Dave")
}

func TestExtractFactsIsDeterministic(t *testing.T) {
	utterance := "my name is Eve and I prefer bullet points"

	first := agent.ExtractFacts(utterance)
	for i := 0; i < 5; i++ {
		gt.Equal(t, agent.ExtractFacts(utterance), first)
	}
}

func TestExtractFactsHandlesArbitraryInput(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"no facts here at all",
		"my name is ",
		"i prefer ",
		strings.Repeat("i like ", 1000),
		"I like " + strings.Repeat("x", 500),
		"\x00\xff my name is \n weird",
		"MY NAME IS SHOUTY PERSON",
	}

	for _, input := range inputs {
		facts := agent.ExtractFacts(input)
		for _, fact := range facts {
			gt.True(t, fact.Key != "")
			gt.True(t, strings.TrimSpace(fact.Value) != "")
		}
	}
}
