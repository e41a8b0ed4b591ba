package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/fennec/pkg/model"
	"github.com/m-mizutani/fennec/pkg/usecase/agent"
	"github.com/urfave/cli/v3"
)

// demoQueries exercises each tool against the sample knowledge base
var demoQueries = []string{
	"What was MongoDB's latest acquisition?",
	"Calculate 15 * 23 + 45",
	"What are the key features of MongoDB Atlas?",
	"Search for information about vector databases",
	"What is the revenue growth mentioned in the report?",
}

func demoCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, agentFlags(&cfg)...)

	return &cli.Command{
		Name:  "demo",
		Usage: "Run a scripted set of queries against the agent",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			a, err := cfg.newAgent(ctx)
			if err != nil {
				return err
			}

			session := model.NewSessionID()
			w := c.Root().Writer
			fmt.Fprintf(w, "Demo session %s\n\n", session)

			for i, query := range demoQueries {
				fmt.Fprintf(w, "[%d/%d] > %s\n", i+1, len(demoQueries), query)
				answer := runTurn(ctx, a, agent.TurnInput{
					SessionID: session,
					Message:   query,
				})
				fmt.Fprintf(w, "%s\n\n", answer)
			}

			return nil
		},
	}
}
