package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/m-mizutani/fennec/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const historyLimit = 100

func historyCommand() *cli.Command {
	var (
		cfg       config
		sessionID string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "session",
			Aliases:     []string{"s"},
			Usage:       "Session ID to show",
			Sources:     cli.EnvVars("FENNEC_SESSION_ID"),
			Destination: &sessionID,
			Required:    true,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "history",
		Usage: "Show the transcript of a session",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			return printTranscript(ctx, c.Root().Writer, &cfg, model.SessionID(sessionID))
		},
	}
}

func printTranscript(ctx context.Context, w io.Writer, cfg *config, session model.SessionID) error {
	repo, err := cfg.newRepository(ctx)
	if err != nil {
		return err
	}

	msgs, err := repo.RecentMessages(ctx, session, historyLimit)
	if err != nil {
		return goerr.Wrap(err, "failed to load transcript", goerr.V("session", session))
	}

	if len(msgs) == 0 {
		fmt.Fprintf(w, "No messages in session %s\n", session)
		return nil
	}

	for _, msg := range msgs {
		fmt.Fprintf(w, "[%s] %s: %s\n", msg.CreatedAt.Format("2006-01-02 15:04:05"), msg.Role, msg.Content)
	}
	return nil
}
