package config

import (
	"log/slog"

	"github.com/urfave/cli/v3"
	"github.com/vigilancia-bie/malarisk/pkg/service/slackalert"
)

// Slack holds Slack notification configuration
type Slack struct {
	OAuthToken string
	Channel    string
}

// Flags returns CLI flags for Slack configuration
func (s *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-oauth-token",
			Usage:       "Slack bot token (empty disables Slack alerts)",
			Category:    "Slack",
			Sources:     cli.EnvVars("MALARISK_SLACK_OAUTH_TOKEN"),
			Destination: &s.OAuthToken,
		},
		&cli.StringFlag{
			Name:        "slack-channel",
			Usage:       "Slack channel that receives alert reports",
			Category:    "Slack",
			Sources:     cli.EnvVars("MALARISK_SLACK_CHANNEL"),
			Destination: &s.Channel,
		},
	}
}

// ConfigureOptional creates a Slack client when a token is configured,
// or nil when Slack delivery is disabled.
func (s *Slack) ConfigureOptional() (*slackalert.Client, error) {
	if s.OAuthToken == "" {
		return nil, nil
	}
	return slackalert.New(s.OAuthToken, s.Channel)
}

// LogValue returns structured log value with the token masked
func (s Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("has_oauth_token", s.OAuthToken != ""),
		slog.String("channel", s.Channel),
	)
}
