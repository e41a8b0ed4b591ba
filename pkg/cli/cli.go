package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/fennec/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	var logLevel string

	cmd := &cli.Command{
		Name:  "fennec",
		Usage: "Conversational agent over an ingested document knowledge base",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "Log level (debug, info, warn, error)",
				Value:       "info",
				Sources:     cli.EnvVars("FENNEC_LOG_LEVEL"),
				Destination: &logLevel,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logging.Configure(logLevel, os.Stderr)
			return ctx, nil
		},
		Commands: []*cli.Command{
			chatCommand(),
			askCommand(),
			ingestCommand(),
			historyCommand(),
			demoCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
