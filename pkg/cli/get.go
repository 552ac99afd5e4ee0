package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/chatmem/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func getCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "get",
		Usage:     "Print a memory",
		ArgsUsage: "<id>",
		Flags:     commonFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, _ = cfg.newLogger(ctx, errWriter(c))
			defer cfg.close(ctx)

			args, err := requireArgs(c, "id")
			if err != nil {
				return err
			}

			uc, err := cfg.newMemory(ctx)
			if err != nil {
				return err
			}

			memories, err := uc.Get(ctx, []model.MemoryID{model.MemoryID(args[0])})
			if err != nil {
				return goerr.Wrap(err, "failed to get memory")
			}

			for _, m := range memories {
				fmt.Fprintf(c.Root().Writer, "Memory %s (importance=%d): %s\n", m.ID, m.Importance, m.Text)
			}
			return nil
		},
	}
}

func deleteCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a memory",
		ArgsUsage: "<id>",
		Flags:     commonFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, _ = cfg.newLogger(ctx, errWriter(c))
			defer cfg.close(ctx)

			args, err := requireArgs(c, "id")
			if err != nil {
				return err
			}

			uc, err := cfg.newMemory(ctx)
			if err != nil {
				return err
			}

			id := model.MemoryID(args[0])
			if err := uc.Delete(ctx, []model.MemoryID{id}); err != nil {
				return goerr.Wrap(err, "failed to delete memory")
			}

			fmt.Fprintf(errWriter(c), "Deleted memory %s.\n", id)
			return nil
		},
	}
}

func rateCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "rate",
		Usage:     "Rate the importance of a stored memory without saving the rating",
		ArgsUsage: "<id>",
		Flags:     commonFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, _ = cfg.newLogger(ctx, errWriter(c))
			defer cfg.close(ctx)

			args, err := requireArgs(c, "id")
			if err != nil {
				return err
			}

			uc, err := cfg.newMemory(ctx)
			if err != nil {
				return err
			}

			id := model.MemoryID(args[0])
			score, err := uc.RateByID(ctx, id)
			if err != nil {
				return goerr.Wrap(err, "failed to rate memory")
			}

			fmt.Fprintf(errWriter(c), "Rated memory %s with %d.\n", id, score)
			fmt.Fprintln(c.Root().Writer, score)
			return nil
		},
	}
}
