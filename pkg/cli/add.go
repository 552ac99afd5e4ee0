package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/chatmem/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func addCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "add",
		Usage:     "Store a text as a memory stamped with the current time",
		ArgsUsage: "<text>",
		Flags:     commonFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, _ = cfg.newLogger(ctx, errWriter(c))
			defer cfg.close(ctx)

			args, err := requireArgs(c, "text")
			if err != nil {
				return err
			}

			uc, err := cfg.newMemory(ctx)
			if err != nil {
				return err
			}

			id, err := uc.Add(ctx, args[0])
			if err != nil {
				return goerr.Wrap(err, "failed to add memory")
			}

			fmt.Fprintf(errWriter(c), "Added memory '%s' with id %s.\n", args[0], id)
			fmt.Fprintln(c.Root().Writer, id)
			return nil
		},
	}
}

func updateCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "update",
		Usage:     "Replace the text of a memory, recomputing its embedding and importance",
		ArgsUsage: "<id> <text>",
		Flags:     commonFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, _ = cfg.newLogger(ctx, errWriter(c))
			defer cfg.close(ctx)

			args, err := requireArgs(c, "id", "text")
			if err != nil {
				return err
			}

			uc, err := cfg.newMemory(ctx)
			if err != nil {
				return err
			}

			id := model.MemoryID(args[0])
			if err := uc.Update(ctx, id, args[1]); err != nil {
				return goerr.Wrap(err, "failed to update memory")
			}

			fmt.Fprintf(errWriter(c), "Updated memory %s with new content '%s'.\n", id, args[1])
			return nil
		},
	}
}
