package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"github.com/vigilancia-bie/malarisk/pkg/cli/config"
	"github.com/vigilancia-bie/malarisk/pkg/usecase"
)

func cmdIngest() *cli.Command {
	var dbCfg config.Database

	return &cli.Command{
		Name:      "ingest",
		Usage:     "Load daily case report CSV files into weekly series",
		ArgsUsage: "<file.csv> [file.csv ...]",
		Flags:     dbCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			paths := c.Args().Slice()
			if len(paths) == 0 {
				return goerr.New("at least one CSV file is required")
			}

			repo, err := dbCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			seriesUC := usecase.NewSeries(repo, clockwork.NewRealClock())

			for _, path := range paths {
				f, err := os.Open(path)
				if err != nil {
					return goerr.Wrap(err, "failed to open CSV file", goerr.V("path", path))
				}

				report, err := seriesUC.IngestCSV(ctx, f)
				_ = f.Close()
				if err != nil {
					return goerr.Wrap(err, "failed to ingest CSV file", goerr.V("path", path))
				}

				logger.Info("Ingested case reports",
					slog.String("path", path),
					slog.Int("total_rows", report.TotalRows),
					slog.Int("accepted_rows", report.AcceptedRows),
					slog.Int("dropped_rows", report.DroppedRows),
					slog.Int("duplicate_rows", report.DuplicateRows),
					slog.Int("suspect_temps", report.SuspectTemps),
					slog.Int("case_outliers", report.CaseOutliers),
				)
			}
			return nil
		},
	}
}
