package cli

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/m-mizutani/ctxlog"
	"github.com/urfave/cli/v3"
	"github.com/vigilancia-bie/malarisk/pkg/cli/config"
	"github.com/vigilancia-bie/malarisk/pkg/observability"
	"github.com/vigilancia-bie/malarisk/pkg/usecase"
)

func cmdTrain() *cli.Command {
	var (
		dbCfg    config.Database
		modelCfg config.Model
	)

	return &cli.Command{
		Name:  "train",
		Usage: "Train the risk classifier on all stored series",
		Flags: joinFlags(dbCfg.Flags(), modelCfg.Flags()),
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			repo, err := dbCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			holder := usecase.NewModelHolder()
			trainUC := usecase.NewTrain(repo, holder, modelCfg.Path, modelCfg.ForestParams(), clockwork.NewRealClock(), observability.NewMetrics())

			metrics, err := trainUC.Train(ctx)
			if err != nil {
				return err
			}

			logger.Info("Training complete",
				slog.String("version", string(metrics.ModelVersion)),
				slog.Float64("accuracy", metrics.Accuracy),
				slog.String("artifact", modelCfg.Path),
			)
			return nil
		},
	}
}
