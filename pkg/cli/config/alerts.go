package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"github.com/vigilancia-bie/malarisk/pkg/usecase"
	"github.com/vigilancia-bie/malarisk/pkg/worker"
)

// Alerts holds alert evaluation and scheduling configuration
type Alerts struct {
	Enabled    bool
	Threshold  float64
	Recipients []string
	Schedules  []string
}

// Flags returns CLI flags for Alerts configuration
func (a *Alerts) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "alerts-enabled",
			Usage:       "Enable the scheduled alert worker",
			Category:    "Alerts",
			Value:       true,
			Sources:     cli.EnvVars("MALARISK_ALERTS_ENABLED"),
			Destination: &a.Enabled,
		},
		&cli.FloatFlag{
			Name:        "alert-threshold",
			Usage:       "Risk score above which an alert is raised",
			Category:    "Alerts",
			Value:       usecase.DefaultAlertThreshold,
			Sources:     cli.EnvVars("MALARISK_ALERT_THRESHOLD", "ALERT_THRESHOLD"),
			Destination: &a.Threshold,
		},
		&cli.StringSliceFlag{
			Name:        "alert-recipients",
			Usage:       "Email addresses that receive alert reports",
			Category:    "Alerts",
			Sources:     cli.EnvVars("MALARISK_ALERT_RECIPIENTS", "ALERT_EMAIL_RECIPIENTS"),
			Destination: &a.Recipients,
		},
		&cli.StringSliceFlag{
			Name:        "alert-schedules",
			Usage:       "Cron expressions for the alert worker",
			Category:    "Alerts",
			Value:       worker.DefaultSchedules,
			Sources:     cli.EnvVars("MALARISK_ALERT_SCHEDULES"),
			Destination: &a.Schedules,
		},
	}
}

// Validate checks threshold bounds
func (a *Alerts) Validate() error {
	if a.Threshold < 0 || a.Threshold > 1 {
		return goerr.New("alert threshold must be between 0 and 1",
			goerr.V("threshold", a.Threshold))
	}
	return nil
}

// LogValue returns structured log value
func (a Alerts) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("enabled", a.Enabled),
		slog.Float64("threshold", a.Threshold),
		slog.Int("recipients", len(a.Recipients)),
		slog.Any("schedules", a.Schedules),
	)
}
