package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/chatmem/pkg/adapter"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func embedCommand() *cli.Command {
	var cfg config

	var flags []cli.Flag
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, logFlags(&cfg)...)

	return &cli.Command{
		Name:      "embed",
		Usage:     "Print the embedding of a text",
		ArgsUsage: "<text>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, _ = cfg.newLogger(ctx, errWriter(c))

			args, err := requireArgs(c, "text")
			if err != nil {
				return err
			}

			embedder, err := cfg.newEmbedder(ctx)
			if err != nil {
				return err
			}

			values, err := adapter.Embed(ctx, embedder, args[0])
			if err != nil {
				return goerr.Wrap(err, "failed to embed text")
			}

			fmt.Fprintf(c.Root().Writer, "Text: %s\n", args[0])
			fmt.Fprintf(c.Root().Writer, "Embedding: %v\n", values)
			return nil
		},
	}
}
