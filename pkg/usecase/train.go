package usecase

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/vigilancia-bie/malarisk/pkg/domain/interfaces"
	"github.com/vigilancia-bie/malarisk/pkg/domain/model"
	"github.com/vigilancia-bie/malarisk/pkg/ml"
	"github.com/vigilancia-bie/malarisk/pkg/observability"
)

// ModelHolder shares the live model between the train and predict paths.
// Train swaps it atomically after a successful run.
type ModelHolder struct {
	mu sync.RWMutex
	m  *ml.Model
}

// NewModelHolder creates an empty holder
func NewModelHolder() *ModelHolder {
	return &ModelHolder{}
}

// Get returns the live model, or ErrModelNotTrained when none is loaded
func (h *ModelHolder) Get() (*ml.Model, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.m == nil {
		return nil, goerr.Wrap(model.ErrModelNotTrained, "no live model")
	}
	return h.m, nil
}

// Set swaps the live model
func (h *ModelHolder) Set(m *ml.Model) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.m = m
}

// Train implements TrainUseCase
type Train struct {
	repo      interfaces.Repository
	holder    *ModelHolder
	modelPath string
	params    ml.ForestParams
	clock     clockwork.Clock
	metrics   *observability.Metrics
}

// NewTrain creates a new Train use case. When modelPath is non-empty the
// trained artifact is persisted there.
func NewTrain(repo interfaces.Repository, holder *ModelHolder, modelPath string, params ml.ForestParams, clock clockwork.Clock, metrics *observability.Metrics) *Train {
	return &Train{
		repo:      repo,
		holder:    holder,
		modelPath: modelPath,
		params:    params,
		clock:     clock,
		metrics:   metrics,
	}
}

// Train fits a new forest on all stored series, persists the artifact and
// the evaluation record, and swaps the live model.
func (t *Train) Train(ctx context.Context) (*model.ModelMetrics, error) {
	logger := ctxlog.From(ctx)
	start := t.clock.Now()

	series, err := t.repo.ListAllWeeklySeries(ctx)
	if err != nil {
		t.metrics.TrainingsTotal.WithLabelValues("error").Inc()
		return nil, goerr.Wrap(err, "failed to load training series")
	}
	if len(series) == 0 {
		t.metrics.TrainingsTotal.WithLabelValues("error").Inc()
		return nil, goerr.Wrap(model.ErrNoTrainingData, "no weekly series stored")
	}

	ds, err := ml.BuildDataset(series)
	if err != nil {
		t.metrics.TrainingsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	m, metrics, err := ml.NewTrainer(t.params, t.clock).Train(ds)
	if err != nil {
		t.metrics.TrainingsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if t.modelPath != "" {
		if err := ml.SaveModel(m, t.modelPath); err != nil {
			t.metrics.TrainingsTotal.WithLabelValues("error").Inc()
			return nil, err
		}
	}

	if err := t.repo.InsertModelMetrics(ctx, metrics); err != nil {
		t.metrics.TrainingsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	t.holder.Set(m)
	t.metrics.TrainingsTotal.WithLabelValues("success").Inc()
	t.metrics.TrainingDuration.Observe(t.clock.Now().Sub(start).Seconds())

	logger.Info("Trained new model",
		"version", m.Version,
		"accuracy", metrics.Accuracy,
		"f1Macro", metrics.F1Macro,
		"trainingSamples", metrics.TrainingSamples,
		"testSamples", metrics.TestSamples,
	)
	return metrics, nil
}

// LatestMetrics returns the most recent training evaluation
func (t *Train) LatestMetrics(ctx context.Context) (*model.ModelMetrics, error) {
	return t.repo.GetLatestModelMetrics(ctx)
}

var _ TrainUseCase = (*Train)(nil)
