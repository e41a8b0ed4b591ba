package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/m-mizutani/fennec/pkg/model"
	"github.com/m-mizutani/fennec/pkg/usecase/agent"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func askCommand() *cli.Command {
	var (
		cfg    config
		userID string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "user",
			Aliases:     []string{"u"},
			Usage:       "User ID for long-term memory",
			Sources:     cli.EnvVars("FENNEC_USER_ID"),
			Destination: &userID,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, agentFlags(&cfg)...)

	return &cli.Command{
		Name:      "ask",
		Usage:     "Ask a single question in a fresh session",
		ArgsUsage: "<question>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if question == "" {
				return goerr.New("question is required")
			}

			a, err := cfg.newAgent(ctx)
			if err != nil {
				return err
			}

			result, err := a.Turn(ctx, agent.TurnInput{
				SessionID: model.NewSessionID(),
				UserID:    model.UserID(userID),
				Message:   question,
			})
			if err != nil {
				if errors.Is(err, model.ErrGeneration) {
					fmt.Fprintf(c.Root().Writer, "%s\n", agent.FallbackAnswer)
					return nil
				}
				return err
			}

			fmt.Fprintf(c.Root().Writer, "%s\n", result.Answer)
			return nil
		},
	}
}
