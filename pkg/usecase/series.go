package usecase

import (
	"context"
	"io"

	"github.com/jonboulle/clockwork"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/vigilancia-bie/malarisk/pkg/domain/interfaces"
	"github.com/vigilancia-bie/malarisk/pkg/domain/model"
	"github.com/vigilancia-bie/malarisk/pkg/domain/types"
	"github.com/vigilancia-bie/malarisk/pkg/ingest"
)

// Series implements SeriesUseCase
type Series struct {
	repo  interfaces.Repository
	clock clockwork.Clock
}

// NewSeries creates a new Series use case
func NewSeries(repo interfaces.Repository, clock clockwork.Clock) *Series {
	return &Series{repo: repo, clock: clock}
}

// ListMunicipalities lists registered municipalities
func (s *Series) ListMunicipalities(ctx context.Context) ([]*model.Municipality, error) {
	return s.repo.ListMunicipalities(ctx)
}

// Series returns the stored weekly series of one municipality, oldest
// first, keeping the most recent entries when limited.
func (s *Series) Series(ctx context.Context, municipality string, limit int) ([]*model.WeeklySeries, error) {
	mun, err := s.repo.GetMunicipalityByName(ctx, municipality)
	if err != nil {
		return nil, err
	}
	return s.repo.ListWeeklySeries(ctx, mun.ID, limit)
}

// Stats summarizes a municipality's stored series
func (s *Series) Stats(ctx context.Context, municipality string) (*MunicipalityStats, error) {
	mun, err := s.repo.GetMunicipalityByName(ctx, municipality)
	if err != nil {
		return nil, err
	}

	series, err := s.repo.ListWeeklySeries(ctx, mun.ID, 0)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, goerr.Wrap(model.ErrSeriesNotFound, "no series for municipality",
			goerr.V("municipality", mun.Name))
	}

	stats := &MunicipalityStats{
		Municipality:  mun,
		WeeksObserved: len(series),
		FirstWeek:     series[0].Week,
		LastWeek:      series[len(series)-1].Week,
		PeakWeek:      series[0].Week,
	}
	var rainSum, tempSum float64
	for _, w := range series {
		stats.TotalCases += w.Cases
		if w.Cases > stats.MaxWeeklyCases {
			stats.MaxWeeklyCases = w.Cases
			stats.PeakWeek = w.Week
		}
		rainSum += w.RainfallMM
		tempSum += w.TempMeanC
	}
	n := float64(len(series))
	stats.MeanWeeklyCases = float64(stats.TotalCases) / n
	stats.MeanRainfallMM = rainSum / n
	stats.MeanTempC = tempSum / n
	return stats, nil
}

// WeeklyReport summarizes stored forecasts for one week, graded by the
// share of high-risk municipalities.
func (s *Series) WeeklyReport(ctx context.Context, week types.EpiWeek) (*model.AlertReport, error) {
	preds, err := s.repo.ListPredictionsByWeek(ctx, week)
	if err != nil {
		return nil, err
	}
	if len(preds) == 0 {
		return nil, goerr.Wrap(model.ErrPredictionNotFound, "no forecasts stored for week",
			goerr.V("week", week))
	}
	return model.ComposeAlertReport(week, preds, s.clock.Now()), nil
}

// IngestCSV loads a daily case report, aggregates it to epidemiological
// weeks and upserts the result. Unknown municipalities are rejected.
func (s *Series) IngestCSV(ctx context.Context, r io.Reader) (*ingest.Report, error) {
	records, report, err := ingest.LoadCSV(r)
	if err != nil {
		return nil, err
	}

	weekly := ingest.AggregateWeekly(records)
	for _, w := range weekly {
		mun, err := s.repo.GetMunicipalityByName(ctx, w.MunicipalityName)
		if err != nil {
			return nil, goerr.Wrap(err, "CSV references unregistered municipality",
				goerr.V("municipality", w.MunicipalityName))
		}
		w.MunicipalityID = mun.ID
		w.MunicipalityName = mun.Name
	}

	if err := s.repo.UpsertWeeklySeries(ctx, weekly); err != nil {
		return nil, err
	}

	ctxlog.From(ctx).Info("Ingested case report",
		"rows", report.TotalRows,
		"accepted", report.AcceptedRows,
		"dropped", report.DroppedRows,
		"weeklyRecords", len(weekly),
	)
	return report, nil
}

// Seed registers the catalog municipalities and generates synthetic series
// for each. Used by development and demo environments.
func (s *Series) Seed(ctx context.Context, catalog *model.Catalog, params ingest.SampleParams) error {
	if err := catalog.Validate(); err != nil {
		return err
	}

	for i := range catalog.Municipalities {
		mun := catalog.Municipalities[i]
		if err := s.repo.PutMunicipality(ctx, &mun); err != nil {
			return err
		}
		if err := s.repo.UpsertWeeklySeries(ctx, ingest.GenerateSample(&mun, params)); err != nil {
			return err
		}
	}

	ctxlog.From(ctx).Info("Seeded synthetic dataset",
		"municipalities", len(catalog.Municipalities),
		"weeks", params.Weeks,
	)
	return nil
}

var _ SeriesUseCase = (*Series)(nil)
