package cli

import (
	"context"
	"strings"

	"github.com/m-mizutani/chatmem/pkg/model"
	"github.com/m-mizutani/chatmem/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := newRootCommand()

	if err := cmd.Run(ctx, argv); err != nil {
		logging.Default().Error("command failed", "error", err)
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "chatmem",
		Usage: "Chat with an LLM while keeping long-term memory in a vector index",
		Commands: []*cli.Command{
			initCommand(),
			embedCommand(),
			addCommand(),
			updateCommand(),
			queryCommand(),
			getCommand(),
			deleteCommand(),
			rateCommand(),
			chatCommand(),
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() == 0 {
				return goerr.Wrap(model.ErrInvalidArgument, "command is required",
					goerr.V("commands", commandNames(c)))
			}
			return goerr.Wrap(model.ErrInvalidArgument, "unknown command",
				goerr.V("command", c.Args().First()),
				goerr.V("commands", commandNames(c)))
		},
	}
}

func commandNames(c *cli.Command) string {
	names := make([]string, 0, len(c.Commands))
	for _, sub := range c.Commands {
		names = append(names, sub.Name)
	}
	return strings.Join(names, ", ")
}

// requireArgs returns the first n positional arguments or an error naming what is missing
func requireArgs(c *cli.Command, names ...string) ([]string, error) {
	if c.Args().Len() < len(names) {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "missing argument",
			goerr.V("command", c.Name),
			goerr.V("argument", names[c.Args().Len()]),
			goerr.V("usage", c.Name+" "+c.ArgsUsage))
	}
	return c.Args().Slice()[:len(names)], nil
}
