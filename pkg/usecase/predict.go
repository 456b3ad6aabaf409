package usecase

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/vigilancia-bie/malarisk/pkg/domain/interfaces"
	"github.com/vigilancia-bie/malarisk/pkg/domain/model"
	"github.com/vigilancia-bie/malarisk/pkg/domain/types"
	"github.com/vigilancia-bie/malarisk/pkg/ml"
	"github.com/vigilancia-bie/malarisk/pkg/observability"
)

// Predict implements PredictUseCase
type Predict struct {
	repo    interfaces.Repository
	holder  *ModelHolder
	metrics *observability.Metrics
}

// NewPredict creates a new Predict use case
func NewPredict(repo interfaces.Repository, holder *ModelHolder, metrics *observability.Metrics) *Predict {
	return &Predict{repo: repo, holder: holder, metrics: metrics}
}

// PredictMunicipality forecasts the week following the municipality's
// latest observation. Feature engineering runs over the full dataset so
// imputation means match training. The forecast is persisted before
// returning.
func (p *Predict) PredictMunicipality(ctx context.Context, municipality string) (*ml.Forecast, error) {
	mun, err := p.repo.GetMunicipalityByName(ctx, municipality)
	if err != nil {
		return nil, err
	}

	m, err := p.holder.Get()
	if err != nil {
		return nil, err
	}

	series, err := p.repo.ListAllWeeklySeries(ctx)
	if err != nil {
		return nil, err
	}

	ds, err := ml.BuildDataset(series)
	if err != nil {
		return nil, goerr.Wrap(model.ErrSeriesNotFound, "no series for municipality",
			goerr.V("municipality", mun.Name))
	}
	row, ok := ds.LatestPerMunicipality()[mun.ID]
	if !ok {
		return nil, goerr.Wrap(model.ErrSeriesNotFound, "no feature row for municipality",
			goerr.V("municipality", mun.Name))
	}

	fc, err := m.PredictRow(row)
	if err != nil {
		return nil, err
	}
	fc.Prediction.MunicipalityName = mun.Name

	if err := p.repo.SavePrediction(ctx, fc.Prediction); err != nil {
		return nil, err
	}
	p.metrics.PredictionsTotal.WithLabelValues(fc.Prediction.RiskClass.String()).Inc()

	ctxlog.From(ctx).Info("Forecast produced",
		"municipality", mun.Name,
		"week", fc.Prediction.Week,
		"riskClass", fc.Prediction.RiskClass,
		"riskScore", fc.Prediction.RiskScore,
	)
	return fc, nil
}

// PredictAll forecasts every municipality with stored series. Feature
// engineering runs once over the full dataset so rolling statistics stay
// consistent with training.
func (p *Predict) PredictAll(ctx context.Context) ([]*model.Prediction, error) {
	m, err := p.holder.Get()
	if err != nil {
		return nil, err
	}

	series, err := p.repo.ListAllWeeklySeries(ctx)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, goerr.Wrap(model.ErrSeriesNotFound, "no series stored")
	}

	ds, err := ml.BuildDataset(series)
	if err != nil {
		return nil, err
	}

	municipalities, err := p.repo.ListMunicipalities(ctx)
	if err != nil {
		return nil, err
	}

	latest := ds.LatestPerMunicipality()
	var out []*model.Prediction
	for _, mun := range municipalities {
		row, ok := latest[mun.ID]
		if !ok {
			continue
		}
		fc, err := m.PredictRow(row)
		if err != nil {
			return nil, goerr.Wrap(err, "forecast failed", goerr.V("municipality", mun.Name))
		}
		fc.Prediction.MunicipalityName = mun.Name

		if err := p.repo.SavePrediction(ctx, fc.Prediction); err != nil {
			return nil, err
		}
		p.metrics.PredictionsTotal.WithLabelValues(fc.Prediction.RiskClass.String()).Inc()
		out = append(out, fc.Prediction)
	}

	ctxlog.From(ctx).Info("Batch forecast completed", "municipalities", len(out))
	return out, nil
}

// GetPrediction returns a stored forecast for a municipality-week
func (p *Predict) GetPrediction(ctx context.Context, municipality string, week types.EpiWeek) (*model.Prediction, error) {
	mun, err := p.repo.GetMunicipalityByName(ctx, municipality)
	if err != nil {
		return nil, err
	}

	preds, err := p.repo.ListPredictionsByMunicipality(ctx, mun.ID, 0)
	if err != nil {
		return nil, err
	}
	for _, pred := range preds {
		if pred.Week == week {
			return pred, nil
		}
	}
	return nil, goerr.Wrap(model.ErrPredictionNotFound, "no stored forecast",
		goerr.V("municipality", mun.Name), goerr.V("week", week))
}

// PredictionsByWeek lists stored forecasts for one week
func (p *Predict) PredictionsByWeek(ctx context.Context, week types.EpiWeek) ([]*model.Prediction, error) {
	return p.repo.ListPredictionsByWeek(ctx, week)
}

var _ PredictUseCase = (*Predict)(nil)
