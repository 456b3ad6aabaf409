package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m-mizutani/ctxlog"
	"github.com/urfave/cli/v3"
	"github.com/vigilancia-bie/malarisk/pkg/cli/config"
	"github.com/vigilancia-bie/malarisk/pkg/domain/model"
	"github.com/vigilancia-bie/malarisk/pkg/ml"
	"github.com/vigilancia-bie/malarisk/pkg/usecase"
)

// joinFlags combines multiple flag slices into one
func joinFlags(flags ...[]cli.Flag) []cli.Flag {
	var result []cli.Flag
	for _, f := range flags {
		result = append(result, f...)
	}
	return result
}

// loadModelHolder loads the persisted model artifact into a holder.
// A missing artifact is not an error, predictions fail until trained.
func loadModelHolder(ctx context.Context, modelCfg *config.Model) (*usecase.ModelHolder, error) {
	logger := ctxlog.From(ctx)

	holder := usecase.NewModelHolder()
	m, err := ml.LoadModel(modelCfg.Path)
	if err == nil {
		holder.Set(m)
		logger.Info("Loaded model artifact",
			slog.String("path", modelCfg.Path),
			slog.String("version", string(m.Version)),
		)
		return holder, nil
	}
	if errors.Is(err, model.ErrModelNotTrained) {
		logger.Warn("No model artifact found, train before predicting",
			slog.String("path", modelCfg.Path))
		return holder, nil
	}
	return nil, err
}
