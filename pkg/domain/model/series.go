package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/vigilancia-bie/malarisk/pkg/domain/types"
)

// WeeklySeries represents one municipality-week observation: reported case
// counts plus the climate covariates used by the forecaster.
type WeeklySeries struct {
	MunicipalityID   types.MunicipalityID
	MunicipalityName string
	Week             types.EpiWeek
	Cases            int
	RainfallMM       float64
	TempMeanC        float64
	TempMinC         float64
	TempMaxC         float64
	HumidityPct      float64
	CreatedAt        time.Time
}

// NewWeeklySeries creates a validated WeeklySeries
func NewWeeklySeries(municipalityID types.MunicipalityID, week types.EpiWeek, cases int, rainfallMM, tempMeanC float64) (*WeeklySeries, error) {
	s := &WeeklySeries{
		MunicipalityID: municipalityID,
		Week:           week,
		Cases:          cases,
		RainfallMM:     rainfallMM,
		TempMeanC:      tempMeanC,
		CreatedAt:      time.Now(),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate validates the observation
func (s *WeeklySeries) Validate() error {
	if s.MunicipalityID <= 0 {
		return goerr.New("municipality ID must be positive", goerr.V("id", s.MunicipalityID))
	}
	if err := s.Week.Validate(); err != nil {
		return goerr.Wrap(err, "invalid week")
	}
	if s.Cases < 0 {
		return goerr.New("case count must not be negative", goerr.V("cases", s.Cases))
	}
	if s.RainfallMM < 0 {
		return goerr.New("rainfall must not be negative", goerr.V("rainfall_mm", s.RainfallMM))
	}
	// Plausibility band for weekly mean temperature in the region
	if s.TempMeanC != 0 && (s.TempMeanC < -10 || s.TempMeanC > 50) {
		return goerr.New("mean temperature out of plausible range", goerr.V("temp_media_c", s.TempMeanC))
	}
	return nil
}
