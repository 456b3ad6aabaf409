package usecase

import (
	"context"
	"io"

	"github.com/vigilancia-bie/malarisk/pkg/domain/model"
	"github.com/vigilancia-bie/malarisk/pkg/domain/types"
	"github.com/vigilancia-bie/malarisk/pkg/ingest"
	"github.com/vigilancia-bie/malarisk/pkg/ml"
)

// TrainUseCase defines the interface for model training operations
type TrainUseCase interface {
	// Train fits a new model on all stored series and makes it live
	Train(ctx context.Context) (*model.ModelMetrics, error)

	// LatestMetrics returns the most recent training evaluation
	LatestMetrics(ctx context.Context) (*model.ModelMetrics, error)
}

// PredictUseCase defines the interface for forecast operations
type PredictUseCase interface {
	// PredictMunicipality forecasts the week following the municipality's
	// latest observation and persists the result
	PredictMunicipality(ctx context.Context, municipality string) (*ml.Forecast, error)

	// PredictAll forecasts every municipality with stored series
	PredictAll(ctx context.Context) ([]*model.Prediction, error)

	// GetPrediction returns a stored forecast for a municipality-week
	GetPrediction(ctx context.Context, municipality string, week types.EpiWeek) (*model.Prediction, error)

	// PredictionsByWeek lists stored forecasts for one week
	PredictionsByWeek(ctx context.Context, week types.EpiWeek) ([]*model.Prediction, error)
}

// SeriesUseCase defines the interface for data access and ingestion
type SeriesUseCase interface {
	ListMunicipalities(ctx context.Context) ([]*model.Municipality, error)
	Series(ctx context.Context, municipality string, limit int) ([]*model.WeeklySeries, error)
	Stats(ctx context.Context, municipality string) (*MunicipalityStats, error)
	WeeklyReport(ctx context.Context, week types.EpiWeek) (*model.AlertReport, error)

	// IngestCSV loads, cleans and stores a daily case report file
	IngestCSV(ctx context.Context, r io.Reader) (*ingest.Report, error)

	// Seed registers the municipality catalog and generates synthetic
	// series for development environments
	Seed(ctx context.Context, catalog *model.Catalog, params ingest.SampleParams) error
}

// AlertUseCase defines the interface for alert evaluation and dispatch
type AlertUseCase interface {
	// RunCheck evaluates next week's forecasts and dispatches alerts for
	// municipalities above the risk threshold
	RunCheck(ctx context.Context) (*model.AlertReport, error)

	// ListAlerts returns the alert audit log, newest first
	ListAlerts(ctx context.Context, limit int) ([]*model.Alert, error)
}

// MunicipalityStats summarizes one municipality's stored series
type MunicipalityStats struct {
	Municipality    *model.Municipality
	WeeksObserved   int
	TotalCases      int
	MeanWeeklyCases float64
	MaxWeeklyCases  int
	PeakWeek        types.EpiWeek
	MeanRainfallMM  float64
	MeanTempC       float64
	FirstWeek       types.EpiWeek
	LastWeek        types.EpiWeek
}
