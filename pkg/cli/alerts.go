package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"github.com/vigilancia-bie/malarisk/pkg/cli/config"
	"github.com/vigilancia-bie/malarisk/pkg/observability"
	"github.com/vigilancia-bie/malarisk/pkg/usecase"
	"github.com/vigilancia-bie/malarisk/pkg/worker"
)

func cmdAlerts() *cli.Command {
	var (
		dbCfg     config.Database
		modelCfg  config.Model
		alertsCfg config.Alerts
		smtpCfg   config.SMTP
		slackCfg  config.Slack
		once      bool
	)

	flags := joinFlags(
		dbCfg.Flags(),
		modelCfg.Flags(),
		alertsCfg.Flags(),
		smtpCfg.Flags(),
		slackCfg.Flags(),
		[]cli.Flag{
			&cli.BoolFlag{
				Name:        "once",
				Usage:       "Run a single alert check and exit instead of scheduling",
				Destination: &once,
			},
		},
	)

	return &cli.Command{
		Name:  "alerts",
		Usage: "Run alert checks and dispatch notifications",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			if err := alertsCfg.Validate(); err != nil {
				return err
			}

			repo, err := dbCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			holder, err := loadModelHolder(ctx, &modelCfg)
			if err != nil {
				return err
			}

			clock := clockwork.NewRealClock()
			metrics := observability.NewMetrics()

			predictUC := usecase.NewPredict(repo, holder, metrics)
			notifiers, err := buildNotifiers(&smtpCfg, &slackCfg, alertsCfg.Recipients)
			if err != nil {
				return err
			}
			alertUC := usecase.NewAlert(repo, predictUC, notifiers, alertsCfg.Recipients, alertsCfg.Threshold, clock, metrics)

			if once {
				report, err := alertUC.RunCheck(ctx)
				if err != nil {
					return err
				}
				logger.Info("Alert check complete",
					slog.String("week", report.Week.String()),
					slog.String("level", string(report.Level)),
					slog.Int("high_risk", len(report.HighRisk)),
					slog.Int("medium_risk", len(report.MediumRisk)),
					slog.Int("low_risk", len(report.LowRisk)),
				)
				return nil
			}

			// Standalone scheduler mode: run until interrupted
			sched := worker.NewScheduler(alertUC, alertsCfg.Schedules)
			if err := sched.Start(ctx); err != nil {
				return goerr.Wrap(err, "failed to start alert scheduler")
			}

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, stopping alert scheduler...")
			case sig := <-sigChan:
				logger.Info("Signal received, stopping alert scheduler...", slog.Any("signal", sig))
			}

			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return sched.Stop(stopCtx)
		},
	}
}
