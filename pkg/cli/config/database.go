package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/ctxlog"
	"github.com/urfave/cli/v3"
	"github.com/vigilancia-bie/malarisk/pkg/domain/interfaces"
	"github.com/vigilancia-bie/malarisk/pkg/repository"
)

// Database holds storage configuration
type Database struct {
	DatabaseURL string
}

// Flags returns CLI flags for Database configuration
func (d *Database) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "database-url",
			Usage:       "PostgreSQL connection URL (empty uses in-memory storage)",
			Category:    "Database",
			Sources:     cli.EnvVars("MALARISK_DATABASE_URL", "DATABASE_URL"),
			Destination: &d.DatabaseURL,
		},
	}
}

// Configure creates the repository. Without a database URL an in-memory
// repository is used, which only suits development.
func (d *Database) Configure(ctx context.Context) (interfaces.Repository, error) {
	if d.DatabaseURL == "" {
		ctxlog.From(ctx).Warn("No database URL configured, using in-memory storage")
		return repository.NewMemory(), nil
	}
	return repository.NewPostgres(ctx, d.DatabaseURL)
}

// LogValue returns structured log value without credentials
func (d Database) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("has_database_url", d.DatabaseURL != ""),
	)
}
