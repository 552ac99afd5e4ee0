package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func initCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "init",
		Usage: "Provision the vector index if it does not exist",
		Flags: commonFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, logger := cfg.newLogger(ctx, errWriter(c))
			defer cfg.close(ctx)

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			logger.Info("provisioning index",
				"index", cfg.index,
				"namespace", cfg.namespace,
				"dimension", cfg.dimension())

			if err := repo.Setup(ctx); err != nil {
				return goerr.Wrap(err, "failed to provision index")
			}

			logger.Info("index is ready", "index", cfg.index, "namespace", cfg.namespace)
			return nil
		},
	}
}
