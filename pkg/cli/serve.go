package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"github.com/vigilancia-bie/malarisk/pkg/cli/config"
	controller "github.com/vigilancia-bie/malarisk/pkg/controller/http"
	"github.com/vigilancia-bie/malarisk/pkg/domain/interfaces"
	"github.com/vigilancia-bie/malarisk/pkg/observability"
	"github.com/vigilancia-bie/malarisk/pkg/usecase"
	"github.com/vigilancia-bie/malarisk/pkg/worker"
)

func cmdServe() *cli.Command {
	var (
		serverCfg config.Server
		dbCfg     config.Database
		modelCfg  config.Model
		alertsCfg config.Alerts
		smtpCfg   config.SMTP
		slackCfg  config.Slack
	)

	flags := joinFlags(
		serverCfg.Flags(),
		dbCfg.Flags(),
		modelCfg.Flags(),
		alertsCfg.Flags(),
		smtpCfg.Flags(),
		slackCfg.Flags(),
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Start HTTP server",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			if err := alertsCfg.Validate(); err != nil {
				return err
			}

			logger.Info("Starting malarisk server",
				slog.String("addr", serverCfg.Addr),
				slog.Any("database", dbCfg),
				slog.Any("model", modelCfg),
				slog.Any("alerts", alertsCfg),
				slog.Any("smtp", smtpCfg),
				slog.Any("slack", slackCfg),
			)

			// Create repository using config
			repo, err := dbCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			// Load the persisted model if one exists
			holder, err := loadModelHolder(ctx, &modelCfg)
			if err != nil {
				return err
			}

			clock := clockwork.NewRealClock()
			metrics := observability.NewMetrics()

			// Create use cases
			trainUC := usecase.NewTrain(repo, holder, modelCfg.Path, modelCfg.ForestParams(), clock, metrics)
			predictUC := usecase.NewPredict(repo, holder, metrics)
			seriesUC := usecase.NewSeries(repo, clock)

			notifiers, err := buildNotifiers(&smtpCfg, &slackCfg, alertsCfg.Recipients)
			if err != nil {
				return err
			}
			alertUC := usecase.NewAlert(repo, predictUC, notifiers, alertsCfg.Recipients, alertsCfg.Threshold, clock, metrics)

			// Start the scheduled alert worker
			if alertsCfg.Enabled {
				sched := worker.NewScheduler(alertUC, alertsCfg.Schedules)
				if err := sched.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start alert scheduler")
				}
				defer func() {
					stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := sched.Stop(stopCtx); err != nil {
						logger.Warn("Alert scheduler stop timed out", slog.Any("error", err))
					}
				}()
			}

			// Create HTTP server
			server := controller.NewServer(
				ctx,
				serverCfg.Addr,
				repo,
				holder,
				trainUC,
				predictUC,
				seriesUC,
				alertUC,
				metrics,
			)

			// Start server in goroutine
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}

// buildNotifiers assembles the configured delivery channels. Both channels
// are optional, the alert use case logs a warning when none are set.
func buildNotifiers(smtpCfg *config.SMTP, slackCfg *config.Slack, recipients []string) ([]interfaces.Notifier, error) {
	var notifiers []interfaces.Notifier

	mailClient, err := smtpCfg.ConfigureOptional(recipients)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to configure email delivery")
	}
	if mailClient != nil {
		notifiers = append(notifiers, mailClient)
	}

	slackClient, err := slackCfg.ConfigureOptional()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to configure Slack delivery")
	}
	if slackClient != nil {
		notifiers = append(notifiers, slackClient)
	}

	return notifiers, nil
}
