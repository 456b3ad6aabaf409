package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/vigilancia-bie/malarisk/pkg/domain/types"
)

// ClassMetrics holds per-class evaluation scores
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// ModelMetrics represents one training run evaluation record
type ModelMetrics struct {
	ModelVersion    types.ModelVersion
	ModelType       types.ModelType
	TrainedAt       time.Time
	Accuracy        float64
	PrecisionMacro  float64
	RecallMacro     float64
	F1Macro         float64
	PerClass        map[types.RiskClass]ClassMetrics
	ConfusionMatrix [][]int
	TrainingSamples int
	TestSamples     int
	FeatureCount    int
	Params          map[string]any
}

// Validate validates the metrics record
func (m *ModelMetrics) Validate() error {
	if m.ModelVersion == "" {
		return goerr.New("model version is required")
	}
	for name, v := range map[string]float64{
		"accuracy":        m.Accuracy,
		"precision_macro": m.PrecisionMacro,
		"recall_macro":    m.RecallMacro,
		"f1_macro":        m.F1Macro,
	} {
		if v < 0 || v > 1 {
			return goerr.New("metric out of range", goerr.V("metric", name), goerr.V("value", v))
		}
	}
	if m.TrainingSamples <= 0 {
		return goerr.New("training sample count must be positive",
			goerr.V("training_samples", m.TrainingSamples))
	}
	return nil
}
