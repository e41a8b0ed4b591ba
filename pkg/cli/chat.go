package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/fennec/pkg/model"
	"github.com/m-mizutani/fennec/pkg/usecase/agent"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func chatCommand() *cli.Command {
	var (
		cfg       config
		sessionID string
		userID    string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "session",
			Aliases:     []string{"s"},
			Usage:       "Session ID to resume (a new session starts when omitted)",
			Sources:     cli.EnvVars("FENNEC_SESSION_ID"),
			Destination: &sessionID,
		},
		&cli.StringFlag{
			Name:        "user",
			Aliases:     []string{"u"},
			Usage:       "User ID for long-term memory (defaults to the session ID)",
			Sources:     cli.EnvVars("FENNEC_USER_ID"),
			Destination: &userID,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, agentFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive conversation with the agent",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			a, err := cfg.newAgent(ctx)
			if err != nil {
				return err
			}

			session := model.SessionID(sessionID)
			if session == "" {
				session = model.NewSessionID()
			}

			rl, err := readline.New("> ")
			if err != nil {
				return goerr.Wrap(err, "failed to open terminal")
			}
			defer rl.Close()

			w := c.Root().Writer
			fmt.Fprintf(w, "Session %s started. Type 'exit' to quit, 'history' to review, 'clear' to wipe the session.\n", session)

			for {
				line, err := rl.Readline()
				if err != nil {
					if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
						break
					}
					return goerr.Wrap(err, "failed to read input")
				}

				message := strings.TrimSpace(line)
				switch message {
				case "":
					continue
				case "exit", "quit":
					fmt.Fprintf(w, "\nSession %s ended\n", session)
					return nil
				case "history":
					if err := printTranscript(ctx, w, &cfg, session); err != nil {
						fmt.Fprintf(w, "failed to load history: %s\n", err)
					}
					continue
				case "clear":
					if err := clearSession(ctx, &cfg, session); err != nil {
						fmt.Fprintf(w, "failed to clear session: %s\n", err)
					} else {
						fmt.Fprintf(w, "Session %s cleared\n", session)
					}
					continue
				}

				answer := runTurn(ctx, a, agent.TurnInput{
					SessionID: session,
					UserID:    model.UserID(userID),
					Message:   message,
				})
				fmt.Fprintf(w, "%s\n\n", answer)
			}

			fmt.Fprintf(w, "\nSession %s ended\n", session)
			return nil
		},
	}
}

func clearSession(ctx context.Context, cfg *config, session model.SessionID) error {
	repo, err := cfg.newRepository(ctx)
	if err != nil {
		return err
	}
	return repo.ClearSession(ctx, session)
}

// runTurn executes one turn with a progress spinner. A generation failure
// degrades to the fallback answer instead of ending the session.
func runTurn(ctx context.Context, a *agent.Agent, input agent.TurnInput) string {
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	sp.Suffix = " thinking..."
	sp.Start()
	result, err := a.Turn(ctx, input)
	sp.Stop()

	if err != nil {
		if errors.Is(err, model.ErrGeneration) {
			return agent.FallbackAnswer
		}
		return fmt.Sprintf("error: %s", err)
	}

	return result.Answer
}
