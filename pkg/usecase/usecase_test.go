package usecase_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/m-mizutani/gt"
	"github.com/vigilancia-bie/malarisk/pkg/domain/interfaces"
	"github.com/vigilancia-bie/malarisk/pkg/domain/model"
	"github.com/vigilancia-bie/malarisk/pkg/domain/types"
	"github.com/vigilancia-bie/malarisk/pkg/ingest"
	"github.com/vigilancia-bie/malarisk/pkg/ml"
	"github.com/vigilancia-bie/malarisk/pkg/observability"
	"github.com/vigilancia-bie/malarisk/pkg/repository"
	"github.com/vigilancia-bie/malarisk/pkg/usecase"
)

func testCatalog() *model.Catalog {
	return &model.Catalog{Municipalities: []model.Municipality{
		{Name: "Kuito", Latitude: -12.38, Longitude: 16.94, Population: 400000},
		{Name: "Camacupa", Latitude: -12.02, Longitude: 17.48, Population: 120000},
	}}
}

func seededEnv(t *testing.T) (*repository.Memory, *usecase.ModelHolder, *usecase.Train, *usecase.Predict, clockwork.Clock) {
	t.Helper()
	repo := repository.NewMemory()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 7, 20, 9, 0, 0, 0, time.UTC))
	metrics := observability.NewMetricsForTesting()

	series := usecase.NewSeries(repo, clock)
	params := ingest.SampleParams{Weeks: 104, Seed: 42, Start: types.EpiWeek{Year: 2022, Week: 1}}
	gt.NoError(t, series.Seed(context.Background(), testCatalog(), params))

	holder := usecase.NewModelHolder()
	train := usecase.NewTrain(repo, holder, "", ml.ForestParams{NumTrees: 15, Seed: 42}, clock, metrics)
	predict := usecase.NewPredict(repo, holder, metrics)
	return repo, holder, train, predict, clock
}

func TestTrainAndPredictFlow(t *testing.T) {
	_, _, train, predict, _ := seededEnv(t)
	ctx := context.Background()

	metrics := gt.R1(train.Train(ctx)).NoError(t)
	gt.Equal(t, metrics.ModelVersion, types.ModelVersion("v20240720_090000"))
	gt.True(t, metrics.TrainingSamples > 0)

	latest := gt.R1(train.LatestMetrics(ctx)).NoError(t)
	gt.Equal(t, latest.ModelVersion, metrics.ModelVersion)

	fc := gt.R1(predict.PredictMunicipality(ctx, "kuito")).NoError(t)
	gt.Equal(t, fc.Prediction.MunicipalityName, "Kuito")
	gt.True(t, fc.Prediction.RiskClass.IsValid())

	// The forecast was persisted and targets the week after the last
	// observation (104 weeks from 2022-01).
	stored := gt.R1(predict.GetPrediction(ctx, "Kuito", fc.Prediction.Week)).NoError(t)
	gt.Equal(t, stored.RiskClass, fc.Prediction.RiskClass)
	gt.Equal(t, fc.Prediction.Week, types.EpiWeek{Year: 2024, Week: 1})
}

func TestTrainNoData(t *testing.T) {
	repo := repository.NewMemory()
	train := usecase.NewTrain(repo, usecase.NewModelHolder(), "",
		ml.DefaultForestParams(), clockwork.NewRealClock(), observability.NewMetricsForTesting())

	_, err := train.Train(context.Background())
	gt.Error(t, err)
}

func TestPredictRequiresModel(t *testing.T) {
	repo, _, _, _, _ := seededEnv(t)
	predict := usecase.NewPredict(repo, usecase.NewModelHolder(), observability.NewMetricsForTesting())

	_, err := predict.PredictMunicipality(context.Background(), "Kuito")
	gt.Error(t, err)
}

func TestPredictUnknownMunicipality(t *testing.T) {
	_, _, train, predict, _ := seededEnv(t)
	ctx := context.Background()
	gt.R1(train.Train(ctx)).NoError(t)

	_, err := predict.PredictMunicipality(ctx, "Huambo")
	gt.Error(t, err)
}

func TestPredictAll(t *testing.T) {
	_, _, train, predict, _ := seededEnv(t)
	ctx := context.Background()
	gt.R1(train.Train(ctx)).NoError(t)

	preds := gt.R1(predict.PredictAll(ctx)).NoError(t)
	gt.Equal(t, len(preds), 2)

	byWeek := gt.R1(predict.PredictionsByWeek(ctx, preds[0].Week)).NoError(t)
	gt.Equal(t, len(byWeek), 2)
}

func TestPredictMunicipalityMatchesBatch(t *testing.T) {
	_, _, train, predict, _ := seededEnv(t)
	ctx := context.Background()
	gt.R1(train.Train(ctx)).NoError(t)

	// Single and batch forecasts share the same feature engineering,
	// including imputation means computed over all municipalities
	preds := gt.R1(predict.PredictAll(ctx)).NoError(t)
	var batch *model.Prediction
	for _, p := range preds {
		if p.MunicipalityName == "Kuito" {
			batch = p
		}
	}
	gt.True(t, batch != nil)

	fc := gt.R1(predict.PredictMunicipality(ctx, "Kuito")).NoError(t)
	gt.Equal(t, fc.Prediction.Week, batch.Week)
	gt.Equal(t, fc.Prediction.RiskClass, batch.RiskClass)
	gt.Equal(t, fc.Prediction.RiskScore, batch.RiskScore)
}

func TestSeriesStats(t *testing.T) {
	repo, _, _, _, clock := seededEnv(t)
	series := usecase.NewSeries(repo, clock)
	ctx := context.Background()

	stats := gt.R1(series.Stats(ctx, "Kuito")).NoError(t)
	gt.Equal(t, stats.WeeksObserved, 104)
	gt.Equal(t, stats.FirstWeek, types.EpiWeek{Year: 2022, Week: 1})
	gt.Equal(t, stats.LastWeek, types.EpiWeek{Year: 2023, Week: 52})
	gt.True(t, stats.TotalCases > 0)
	gt.True(t, stats.MaxWeeklyCases >= int(stats.MeanWeeklyCases))

	_, err := series.Stats(ctx, "Huambo")
	gt.Error(t, err)
}

func TestIngestCSV(t *testing.T) {
	repo, _, _, _, clock := seededEnv(t)
	series := usecase.NewSeries(repo, clock)
	ctx := context.Background()

	csv := `municipio,data_caso,casos,chuva_mm,temp_media_c
Kuito,2024-02-05,4,12.0,22.5
Kuito,2024-02-06,6,8.0,23.0
`
	report := gt.R1(series.IngestCSV(ctx, strings.NewReader(csv))).NoError(t)
	gt.Equal(t, report.AcceptedRows, 2)

	stored := gt.R1(series.Series(ctx, "Kuito", 0)).NoError(t)
	last := stored[len(stored)-1]
	gt.Equal(t, last.Week, types.EpiWeek{Year: 2024, Week: 6})
	gt.Equal(t, last.Cases, 10)
}

func TestIngestCSVUnknownMunicipality(t *testing.T) {
	repo, _, _, _, clock := seededEnv(t)
	series := usecase.NewSeries(repo, clock)

	csv := "municipio,data_caso,casos,chuva_mm,temp_media_c\nHuambo,2024-02-05,4,12.0,22.5\n"
	_, err := series.IngestCSV(context.Background(), strings.NewReader(csv))
	gt.Error(t, err)
}

// stubPredict feeds fixed forecasts into the alert path
type stubPredict struct {
	preds []*model.Prediction
}

func (s *stubPredict) PredictMunicipality(ctx context.Context, municipality string) (*ml.Forecast, error) {
	return nil, model.ErrModelNotTrained
}
func (s *stubPredict) PredictAll(ctx context.Context) ([]*model.Prediction, error) {
	return s.preds, nil
}
func (s *stubPredict) GetPrediction(ctx context.Context, municipality string, week types.EpiWeek) (*model.Prediction, error) {
	return nil, model.ErrPredictionNotFound
}
func (s *stubPredict) PredictionsByWeek(ctx context.Context, week types.EpiWeek) ([]*model.Prediction, error) {
	return nil, nil
}

type fakeNotifier struct {
	name  string
	calls int
	fail  bool
}

func (f *fakeNotifier) Name() string { return f.name }
func (f *fakeNotifier) SendAlertReport(ctx context.Context, report *model.AlertReport) error {
	f.calls++
	if f.fail {
		return model.ErrPredictionNotFound
	}
	return nil
}

func alertPrediction(t *testing.T, id int, class types.RiskClass, probHigh float64) *model.Prediction {
	t.Helper()
	rest := (1 - probHigh) / 2
	p, err := model.NewPrediction(types.MunicipalityID(id), types.EpiWeek{Year: 2024, Week: 31},
		class, rest, rest, probHigh, "v20240720_090000")
	gt.NoError(t, err)
	return p
}

func TestAlertBelowThresholdNotSent(t *testing.T) {
	repo := repository.NewMemory()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 7, 22, 18, 0, 0, 0, time.UTC))
	notifier := &fakeNotifier{name: "email"}

	stub := &stubPredict{preds: []*model.Prediction{
		alertPrediction(t, 1, types.RiskLow, 0.1),
		alertPrediction(t, 2, types.RiskLow, 0.2),
	}}
	alert := usecase.NewAlert(repo, stub,
		[]interfaces.Notifier{notifier}, []string{"saude@bie.gov.ao"}, 0.7, clock,
		observability.NewMetricsForTesting())

	report := gt.R1(alert.RunCheck(context.Background())).NoError(t)
	gt.Equal(t, report.Level, types.RiskLow)
	gt.Equal(t, notifier.calls, 0)

	audits := gt.R1(alert.ListAlerts(context.Background(), 10)).NoError(t)
	gt.Equal(t, len(audits), 0)
}

func TestAlertDispatchAboveThreshold(t *testing.T) {
	repo := repository.NewMemory()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 7, 22, 18, 0, 0, 0, time.UTC))
	notifier := &fakeNotifier{name: "email"}

	stub := &stubPredict{preds: []*model.Prediction{
		alertPrediction(t, 1, types.RiskHigh, 0.8),
		alertPrediction(t, 2, types.RiskLow, 0.1),
	}}
	alert := usecase.NewAlert(repo, stub,
		[]interfaces.Notifier{notifier}, []string{"saude@bie.gov.ao"}, 0.7, clock,
		observability.NewMetricsForTesting())

	report := gt.R1(alert.RunCheck(context.Background())).NoError(t)
	gt.Equal(t, notifier.calls, 1)
	gt.Equal(t, len(report.HighRisk), 1)

	audits := gt.R1(alert.ListAlerts(context.Background(), 10)).NoError(t)
	gt.Equal(t, len(audits), 1)
	gt.Equal(t, audits[0].Status, types.AlertStatusSent)
}

func TestAlertFailedDelivery(t *testing.T) {
	repo := repository.NewMemory()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 7, 22, 18, 0, 0, 0, time.UTC))
	notifier := &fakeNotifier{name: "email", fail: true}

	stub := &stubPredict{preds: []*model.Prediction{
		alertPrediction(t, 1, types.RiskHigh, 0.9),
	}}
	alert := usecase.NewAlert(repo, stub,
		[]interfaces.Notifier{notifier}, []string{"saude@bie.gov.ao"}, 0.7, clock,
		observability.NewMetricsForTesting())

	gt.R1(alert.RunCheck(context.Background())).NoError(t)

	audits := gt.R1(alert.ListAlerts(context.Background(), 10)).NoError(t)
	gt.Equal(t, len(audits), 1)
	gt.Equal(t, audits[0].Status, types.AlertStatusFailed)
}
