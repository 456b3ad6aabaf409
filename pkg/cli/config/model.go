package config

import (
	"log/slog"

	"github.com/urfave/cli/v3"
	"github.com/vigilancia-bie/malarisk/pkg/ml"
)

// Model holds classifier configuration
type Model struct {
	Path     string
	Seed     int64
	NumTrees int
	MaxDepth int
}

// Flags returns CLI flags for Model configuration
func (m *Model) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "model-path",
			Usage:       "Path of the persisted model artifact",
			Category:    "Model",
			Value:       "./model/malarisk_model.json",
			Sources:     cli.EnvVars("MALARISK_MODEL_PATH", "MODEL_PATH"),
			Destination: &m.Path,
		},
		&cli.Int64Flag{
			Name:        "random-state",
			Usage:       "Random seed for reproducible training",
			Category:    "Model",
			Value:       42,
			Sources:     cli.EnvVars("MALARISK_RANDOM_STATE", "RANDOM_STATE"),
			Destination: &m.Seed,
		},
		&cli.IntFlag{
			Name:        "num-trees",
			Usage:       "Number of trees in the forest",
			Category:    "Model",
			Value:       100,
			Sources:     cli.EnvVars("MALARISK_NUM_TREES"),
			Destination: &m.NumTrees,
		},
		&cli.IntFlag{
			Name:        "max-depth",
			Usage:       "Maximum tree depth",
			Category:    "Model",
			Value:       10,
			Sources:     cli.EnvVars("MALARISK_MAX_DEPTH"),
			Destination: &m.MaxDepth,
		},
	}
}

// ForestParams maps the configuration to training parameters
func (m *Model) ForestParams() ml.ForestParams {
	return ml.ForestParams{
		NumTrees:        m.NumTrees,
		MaxDepth:        m.MaxDepth,
		MinSamplesSplit: 2,
		Seed:            m.Seed,
	}
}

// LogValue returns structured log value
func (m Model) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("path", m.Path),
		slog.Int64("seed", m.Seed),
		slog.Int("num_trees", m.NumTrees),
		slog.Int("max_depth", m.MaxDepth),
	)
}
