package model

import (
	"math"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/vigilancia-bie/malarisk/pkg/domain/types"
)

// Prediction represents a forecast risk class for a municipality-week
type Prediction struct {
	MunicipalityID   types.MunicipalityID
	MunicipalityName string
	Week             types.EpiWeek
	RiskClass        types.RiskClass
	RiskScore        float64
	ProbLow          float64
	ProbMedium       float64
	ProbHigh         float64
	ModelVersion     types.ModelVersion
	ModelType        types.ModelType
	CreatedAt        time.Time
}

// NewPrediction creates a validated Prediction. The risk score is defined as
// the probability of the "alto" class.
func NewPrediction(municipalityID types.MunicipalityID, week types.EpiWeek, class types.RiskClass, probLow, probMedium, probHigh float64, version types.ModelVersion) (*Prediction, error) {
	p := &Prediction{
		MunicipalityID: municipalityID,
		Week:           week,
		RiskClass:      class,
		RiskScore:      probHigh,
		ProbLow:        probLow,
		ProbMedium:     probMedium,
		ProbHigh:       probHigh,
		ModelVersion:   version,
		ModelType:      types.ModelTypeRandomForest,
		CreatedAt:      time.Now(),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks class membership and that the probability vector is a
// distribution.
func (p *Prediction) Validate() error {
	if p.MunicipalityID <= 0 {
		return goerr.New("municipality ID must be positive", goerr.V("id", p.MunicipalityID))
	}
	if err := p.Week.Validate(); err != nil {
		return goerr.Wrap(err, "invalid week")
	}
	if !p.RiskClass.IsValid() {
		return goerr.New("invalid risk class", goerr.V("class", p.RiskClass))
	}
	for _, prob := range []float64{p.ProbLow, p.ProbMedium, p.ProbHigh} {
		if prob < 0 || prob > 1 {
			return goerr.New("probability out of range", goerr.V("probability", prob))
		}
	}
	if sum := p.ProbLow + p.ProbMedium + p.ProbHigh; math.Abs(sum-1) > 1e-6 {
		return goerr.New("probabilities must sum to 1", goerr.V("sum", sum))
	}
	if p.ModelVersion == "" {
		return goerr.New("model version is required")
	}
	return nil
}
