package cli

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/m-mizutani/ctxlog"
	"github.com/urfave/cli/v3"
	"github.com/vigilancia-bie/malarisk/pkg/cli/config"
	"github.com/vigilancia-bie/malarisk/pkg/ingest"
	"github.com/vigilancia-bie/malarisk/pkg/usecase"
)

func cmdSeed() *cli.Command {
	var (
		dbCfg       config.Database
		catalogPath string
		weeks       int
		seed        int64
	)

	flags := joinFlags(dbCfg.Flags(), []cli.Flag{
		&cli.StringFlag{
			Name:        "catalog",
			Usage:       "Municipality catalog YAML file",
			Value:       "./config/municipios.yml",
			Sources:     cli.EnvVars("MALARISK_CATALOG"),
			Destination: &catalogPath,
		},
		&cli.IntFlag{
			Name:        "weeks",
			Usage:       "Number of synthetic weeks per municipality",
			Value:       ingest.DefaultSampleParams().Weeks,
			Destination: &weeks,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "Random seed for synthetic data",
			Value:       ingest.DefaultSampleParams().Seed,
			Destination: &seed,
		},
	})

	return &cli.Command{
		Name:  "seed",
		Usage: "Register the municipality catalog and generate synthetic series",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			catalog, err := ingest.LoadCatalog(catalogPath)
			if err != nil {
				return err
			}

			repo, err := dbCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			params := ingest.DefaultSampleParams()
			params.Weeks = weeks
			params.Seed = seed

			seriesUC := usecase.NewSeries(repo, clockwork.NewRealClock())
			if err := seriesUC.Seed(ctx, catalog, params); err != nil {
				return err
			}

			logger.Info("Seed complete",
				slog.Int("municipalities", len(catalog.Municipalities)),
				slog.Int("weeks", weeks),
			)
			return nil
		},
	}
}
