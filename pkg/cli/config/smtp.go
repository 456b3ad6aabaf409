package config

import (
	"log/slog"

	"github.com/urfave/cli/v3"
	"github.com/vigilancia-bie/malarisk/pkg/service/mailer"
)

// SMTP holds email delivery configuration
type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
}

// Flags returns CLI flags for SMTP configuration
func (s *SMTP) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "smtp-host",
			Usage:       "SMTP server host (empty disables email alerts)",
			Category:    "Email",
			Sources:     cli.EnvVars("MALARISK_SMTP_HOST", "SMTP_HOST"),
			Destination: &s.Host,
		},
		&cli.IntFlag{
			Name:        "smtp-port",
			Usage:       "SMTP server port",
			Category:    "Email",
			Value:       587,
			Sources:     cli.EnvVars("MALARISK_SMTP_PORT", "SMTP_PORT"),
			Destination: &s.Port,
		},
		&cli.StringFlag{
			Name:        "smtp-username",
			Usage:       "SMTP username",
			Category:    "Email",
			Sources:     cli.EnvVars("MALARISK_SMTP_USERNAME", "SMTP_USERNAME"),
			Destination: &s.Username,
		},
		&cli.StringFlag{
			Name:        "smtp-password",
			Usage:       "SMTP password",
			Category:    "Email",
			Sources:     cli.EnvVars("MALARISK_SMTP_PASSWORD", "SMTP_PASSWORD"),
			Destination: &s.Password,
		},
		&cli.StringFlag{
			Name:        "smtp-from",
			Usage:       "Sender address for alert emails",
			Category:    "Email",
			Sources:     cli.EnvVars("MALARISK_SMTP_FROM", "SMTP_FROM"),
			Destination: &s.From,
		},
		&cli.BoolFlag{
			Name:        "smtp-tls",
			Usage:       "Require TLS for the SMTP connection",
			Category:    "Email",
			Sources:     cli.EnvVars("MALARISK_SMTP_TLS"),
			Destination: &s.UseTLS,
		},
	}
}

// ConfigureOptional creates a Mailer when SMTP is configured, or nil when
// the host is unset.
func (s *SMTP) ConfigureOptional(recipients []string) (*mailer.Mailer, error) {
	if s.Host == "" {
		return nil, nil
	}
	return mailer.New(mailer.Config{
		Host:       s.Host,
		Port:       s.Port,
		Username:   s.Username,
		Password:   s.Password,
		From:       s.From,
		Recipients: recipients,
		UseTLS:     s.UseTLS,
	})
}

// LogValue returns structured log value with credentials masked
func (s SMTP) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("host", s.Host),
		slog.Int("port", s.Port),
		slog.String("username", s.Username),
		slog.Bool("has_password", s.Password != ""),
		slog.String("from", s.From),
		slog.Bool("tls", s.UseTLS),
	)
}
