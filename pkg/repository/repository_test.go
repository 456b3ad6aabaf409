package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/vigilancia-bie/malarisk/pkg/domain/interfaces"
	"github.com/vigilancia-bie/malarisk/pkg/domain/model"
	"github.com/vigilancia-bie/malarisk/pkg/domain/types"
	"github.com/vigilancia-bie/malarisk/pkg/repository"
)

func newRepo(t *testing.T) interfaces.Repository {
	t.Helper()
	return repository.NewMemory()
}

func seedMunicipality(t *testing.T, repo interfaces.Repository, name string) *model.Municipality {
	t.Helper()
	mun := &model.Municipality{Name: name, Latitude: -12.38, Longitude: 16.94, Population: 400000}
	gt.NoError(t, repo.PutMunicipality(context.Background(), mun))
	gt.True(t, mun.ID > 0)
	return mun
}

func TestMunicipalityLookup(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	mun := seedMunicipality(t, repo, "Kuito")

	got := gt.R1(repo.GetMunicipality(ctx, mun.ID)).NoError(t)
	gt.Equal(t, got.Name, "Kuito")

	byName := gt.R1(repo.GetMunicipalityByName(ctx, "kuito")).NoError(t)
	gt.Equal(t, byName.ID, mun.ID)

	_, err := repo.GetMunicipality(ctx, 999)
	gt.Error(t, err)
}

func TestListMunicipalitiesOrdered(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	seedMunicipality(t, repo, "Nharea")
	seedMunicipality(t, repo, "Andulo")
	seedMunicipality(t, repo, "Camacupa")

	list := gt.R1(repo.ListMunicipalities(ctx)).NoError(t)
	gt.Equal(t, len(list), 3)
	gt.Equal(t, list[0].Name, "Andulo")
	gt.Equal(t, list[2].Name, "Nharea")
}

func TestWeeklySeriesUpsert(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	mun := seedMunicipality(t, repo, "Catabola")
	week := types.EpiWeek{Year: 2024, Week: 10}

	s1 := gt.R1(model.NewWeeklySeries(mun.ID, week, 12, 80.5, 23.1)).NoError(t)
	gt.NoError(t, repo.UpsertWeeklySeries(ctx, []*model.WeeklySeries{s1}))

	// Same key overwrites rather than duplicates
	s2 := gt.R1(model.NewWeeklySeries(mun.ID, week, 20, 95.0, 24.0)).NoError(t)
	gt.NoError(t, repo.UpsertWeeklySeries(ctx, []*model.WeeklySeries{s2}))

	got := gt.R1(repo.ListWeeklySeries(ctx, mun.ID, 0)).NoError(t)
	gt.Equal(t, len(got), 1)
	gt.Equal(t, got[0].Cases, 20)
	gt.Equal(t, got[0].MunicipalityName, "Catabola")
}

func TestWeeklySeriesLimitKeepsRecent(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	mun := seedMunicipality(t, repo, "Chinguar")

	week := types.EpiWeek{Year: 2024, Week: 1}
	for i := 0; i < 10; i++ {
		s := gt.R1(model.NewWeeklySeries(mun.ID, week, i, 10, 22)).NoError(t)
		gt.NoError(t, repo.UpsertWeeklySeries(ctx, []*model.WeeklySeries{s}))
		week = week.Next()
	}

	got := gt.R1(repo.ListWeeklySeries(ctx, mun.ID, 3)).NoError(t)
	gt.Equal(t, len(got), 3)
	gt.Equal(t, got[0].Week, types.EpiWeek{Year: 2024, Week: 8})
	gt.Equal(t, got[2].Week, types.EpiWeek{Year: 2024, Week: 10})
}

func TestSeriesRejectsUnknownMunicipality(t *testing.T) {
	repo := newRepo(t)

	s := gt.R1(model.NewWeeklySeries(42, types.EpiWeek{Year: 2024, Week: 1}, 3, 10, 22)).NoError(t)
	gt.Error(t, repo.UpsertWeeklySeries(context.Background(), []*model.WeeklySeries{s}))
}

func TestPredictionUpsertAndQueries(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	a := seedMunicipality(t, repo, "Cuemba")
	b := seedMunicipality(t, repo, "Chitembo")
	week := types.EpiWeek{Year: 2024, Week: 30}
	version := types.ModelVersion("v20240720_090000")

	pa := gt.R1(model.NewPrediction(a.ID, week, types.RiskHigh, 0.1, 0.2, 0.7, version)).NoError(t)
	pb := gt.R1(model.NewPrediction(b.ID, week, types.RiskLow, 0.8, 0.1, 0.1, version)).NoError(t)
	gt.NoError(t, repo.SavePrediction(ctx, pa))
	gt.NoError(t, repo.SavePrediction(ctx, pb))

	// Re-save for the same (municipality, week, version) replaces
	pa2 := gt.R1(model.NewPrediction(a.ID, week, types.RiskMedium, 0.2, 0.6, 0.2, version)).NoError(t)
	gt.NoError(t, repo.SavePrediction(ctx, pa2))

	byWeek := gt.R1(repo.ListPredictionsByWeek(ctx, week)).NoError(t)
	gt.Equal(t, len(byWeek), 2)
	gt.Equal(t, byWeek[0].RiskClass, types.RiskMedium)

	byMun := gt.R1(repo.ListPredictionsByMunicipality(ctx, a.ID, 0)).NoError(t)
	gt.Equal(t, len(byMun), 1)
	gt.Equal(t, byMun[0].MunicipalityName, "Cuemba")
}

func TestPredictionsNewestFirst(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	mun := seedMunicipality(t, repo, "Cunhinga")
	version := types.ModelVersion("v20240720_090000")

	week := types.EpiWeek{Year: 2024, Week: 1}
	for i := 0; i < 5; i++ {
		p := gt.R1(model.NewPrediction(mun.ID, week, types.RiskLow, 0.8, 0.1, 0.1, version)).NoError(t)
		gt.NoError(t, repo.SavePrediction(ctx, p))
		week = week.Next()
	}

	got := gt.R1(repo.ListPredictionsByMunicipality(ctx, mun.ID, 2)).NoError(t)
	gt.Equal(t, len(got), 2)
	gt.Equal(t, got[0].Week, types.EpiWeek{Year: 2024, Week: 5})
	gt.Equal(t, got[1].Week, types.EpiWeek{Year: 2024, Week: 4})
}

func TestModelMetricsLatest(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	_, err := repo.GetLatestModelMetrics(ctx)
	gt.Error(t, err)

	older := &model.ModelMetrics{
		ModelVersion:    "v20240101_000000",
		ModelType:       types.ModelTypeRandomForest,
		TrainedAt:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Accuracy:        0.7,
		TrainingSamples: 100,
		TestSamples:     25,
	}
	newer := &model.ModelMetrics{
		ModelVersion:    "v20240601_000000",
		ModelType:       types.ModelTypeRandomForest,
		TrainedAt:       time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Accuracy:        0.82,
		TrainingSamples: 200,
		TestSamples:     50,
	}
	gt.NoError(t, repo.InsertModelMetrics(ctx, newer))
	gt.NoError(t, repo.InsertModelMetrics(ctx, older))

	got := gt.R1(repo.GetLatestModelMetrics(ctx)).NoError(t)
	gt.Equal(t, got.ModelVersion, types.ModelVersion("v20240601_000000"))
}

func TestAlertAudit(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	mun := seedMunicipality(t, repo, "Camacupa")
	p := gt.R1(model.NewPrediction(mun.ID, types.EpiWeek{Year: 2024, Week: 31},
		types.RiskHigh, 0.1, 0.1, 0.8, "v20240720_090000")).NoError(t)

	a := gt.R1(model.NewAlert(p, []string{"saude@bie.gov.ao"}, types.AlertStatusSent)).NoError(t)
	gt.NoError(t, repo.InsertAlert(ctx, a))

	got := gt.R1(repo.ListAlerts(ctx, 10)).NoError(t)
	gt.Equal(t, len(got), 1)
	gt.Equal(t, got[0].Status, types.AlertStatusSent)
}
