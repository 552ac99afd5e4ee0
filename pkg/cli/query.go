package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/chatmem/pkg/usecase/memory"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func queryCommand() *cli.Command {
	var (
		cfg  config
		topK int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "top-k",
			Aliases:     []string{"k"},
			Usage:       "Maximum number of memories to return",
			Value:       memory.DefaultTopK,
			Sources:     cli.EnvVars("CHATMEM_QUERY_TOP_K"),
			Destination: &topK,
		},
	}
	flags = append(flags, commonFlags(&cfg)...)

	return &cli.Command{
		Name:      "query",
		Usage:     "Find the memories most relevant to a text, optionally within [start, end)",
		ArgsUsage: "<query> [<start-time> [<end-time>]]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, _ = cfg.newLogger(ctx, errWriter(c))
			defer cfg.close(ctx)

			args, err := requireArgs(c, "query")
			if err != nil {
				return err
			}

			input := &memory.QueryInput{
				Text:  args[0],
				Start: c.Args().Get(1),
				End:   c.Args().Get(2),
				TopK:  int(topK),
			}

			uc, err := cfg.newMemory(ctx)
			if err != nil {
				return err
			}

			results, err := uc.Query(ctx, input)
			if err != nil {
				return goerr.Wrap(err, "failed to query memories")
			}

			timeRange := ""
			if input.Start != "" || input.End != "" {
				timeRange = fmt.Sprintf(" in time range [%s..%s)", input.Start, input.End)
			}
			fmt.Fprintf(errWriter(c), "Found %d memories matching '%s'%s.\n", len(results), input.Text, timeRange)

			for _, r := range results {
				fmt.Fprintf(c.Root().Writer, "%s (score=%v, importance=%d) %s\n",
					r.Memory.ID, r.Score, r.Memory.Importance, r.Memory.Text)
			}
			return nil
		},
	}
}
