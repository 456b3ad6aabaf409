package ml

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/vigilancia-bie/malarisk/pkg/domain/model"
	"github.com/vigilancia-bie/malarisk/pkg/domain/types"
)

// Confidence buckets derived from the winning class probability
const (
	ConfidenceHigh   = "alta"
	ConfidenceMedium = "media"
	ConfidenceLow    = "baixa"
)

// Forecast is the outcome of running the model on one feature row
type Forecast struct {
	Prediction *model.Prediction
	Confidence string
}

// PredictRow forecasts the risk class for the week following the given
// feature row.
func (m *Model) PredictRow(row *Row) (*Forecast, error) {
	if row == nil {
		return nil, goerr.New("feature row is nil")
	}

	classIdx, probs, err := m.Forest.Predict(row.Features)
	if err != nil {
		return nil, err
	}
	classes := types.RiskClasses()
	if classIdx < 0 || classIdx >= len(classes) || len(probs) != len(classes) {
		return nil, goerr.New("forest output does not match risk classes",
			goerr.V("class_index", classIdx), goerr.V("probs", len(probs)))
	}

	pred, err := model.NewPrediction(
		row.MunicipalityID,
		row.TargetWeek,
		classes[classIdx],
		probs[types.RiskLow.Rank()],
		probs[types.RiskMedium.Rank()],
		probs[types.RiskHigh.Rank()],
		m.Version,
	)
	if err != nil {
		return nil, err
	}

	return &Forecast{Prediction: pred, Confidence: confidence(probs[classIdx])}, nil
}

func confidence(winning float64) string {
	switch {
	case winning >= 0.75:
		return ConfidenceHigh
	case winning >= 0.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
