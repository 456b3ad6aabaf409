package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/vigilancia-bie/malarisk/pkg/domain/model"
	"github.com/vigilancia-bie/malarisk/pkg/domain/types"
)

func mustPrediction(t *testing.T, id int, class types.RiskClass, probLow, probMedium, probHigh float64) *model.Prediction {
	t.Helper()
	p, err := model.NewPrediction(
		types.MunicipalityID(id),
		types.EpiWeek{Year: 2024, Week: 10},
		class,
		probLow, probMedium, probHigh,
		types.ModelVersion("v20240301_120000"),
	)
	gt.NoError(t, err)
	return p
}

func TestComposeAlertReportCritical(t *testing.T) {
	preds := []*model.Prediction{
		mustPrediction(t, 1, types.RiskHigh, 0.1, 0.1, 0.8),
		mustPrediction(t, 2, types.RiskHigh, 0.05, 0.15, 0.8),
		mustPrediction(t, 3, types.RiskLow, 0.7, 0.2, 0.1),
	}

	r := model.ComposeAlertReport(types.EpiWeek{Year: 2024, Week: 10}, preds, time.Now())
	gt.Equal(t, r.Level, types.RiskHigh)
	gt.Equal(t, len(r.HighRisk), 2)
	gt.Equal(t, len(r.LowRisk), 1)
}

func TestComposeAlertReportControlled(t *testing.T) {
	preds := []*model.Prediction{
		mustPrediction(t, 1, types.RiskLow, 0.8, 0.1, 0.1),
		mustPrediction(t, 2, types.RiskMedium, 0.2, 0.6, 0.2),
	}

	r := model.ComposeAlertReport(types.EpiWeek{Year: 2024, Week: 10}, preds, time.Now())
	gt.Equal(t, r.Level, types.RiskLow)
	gt.Equal(t, len(r.HighRisk), 0)
	gt.Equal(t, r.Message, "Situação controlada - nenhum município em alto risco")
}

func TestNewAlertRequiresRecipients(t *testing.T) {
	p := mustPrediction(t, 1, types.RiskHigh, 0.1, 0.1, 0.8)

	_, err := model.NewAlert(p, nil, types.AlertStatusSent)
	gt.Error(t, err)

	a, err := model.NewAlert(p, []string{"saude@bie.gov.ao"}, types.AlertStatusSent)
	gt.NoError(t, err)
	gt.Equal(t, a.MunicipalityID, p.MunicipalityID)
	gt.Equal(t, a.Status, types.AlertStatusSent)
	gt.True(t, a.ID != "")
}

func TestPredictionValidation(t *testing.T) {
	// Probabilities must sum to 1
	_, err := model.NewPrediction(1, types.EpiWeek{Year: 2024, Week: 1}, types.RiskLow, 0.5, 0.1, 0.1, "v1")
	gt.Error(t, err)

	// Risk score equals P(alto)
	p := mustPrediction(t, 1, types.RiskMedium, 0.2, 0.5, 0.3)
	gt.Equal(t, p.RiskScore, 0.3)
}

func TestWeeklySeriesValidation(t *testing.T) {
	_, err := model.NewWeeklySeries(1, types.EpiWeek{Year: 2024, Week: 5}, -1, 10, 22)
	gt.Error(t, err)

	_, err = model.NewWeeklySeries(1, types.EpiWeek{Year: 2024, Week: 5}, 3, -0.5, 22)
	gt.Error(t, err)

	s, err := model.NewWeeklySeries(1, types.EpiWeek{Year: 2024, Week: 5}, 3, 12.5, 22)
	gt.NoError(t, err)
	gt.Equal(t, s.Cases, 3)
}
