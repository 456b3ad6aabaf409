package interfaces

import (
	"context"

	"github.com/vigilancia-bie/malarisk/pkg/domain/model"
	"github.com/vigilancia-bie/malarisk/pkg/domain/types"
)

// Repository defines the interface for data persistence
type Repository interface {
	// Municipality operations
	PutMunicipality(ctx context.Context, m *model.Municipality) error
	GetMunicipality(ctx context.Context, id types.MunicipalityID) (*model.Municipality, error)
	GetMunicipalityByName(ctx context.Context, name string) (*model.Municipality, error)
	ListMunicipalities(ctx context.Context) ([]*model.Municipality, error)

	// Weekly series operations. Upsert keyed on (municipality, week).
	UpsertWeeklySeries(ctx context.Context, series []*model.WeeklySeries) error
	ListWeeklySeries(ctx context.Context, municipalityID types.MunicipalityID, limit int) ([]*model.WeeklySeries, error)
	ListAllWeeklySeries(ctx context.Context) ([]*model.WeeklySeries, error)

	// Prediction operations. Save is an upsert keyed on
	// (municipality, week, model version).
	SavePrediction(ctx context.Context, p *model.Prediction) error
	ListPredictionsByWeek(ctx context.Context, week types.EpiWeek) ([]*model.Prediction, error)
	ListPredictionsByMunicipality(ctx context.Context, municipalityID types.MunicipalityID, limit int) ([]*model.Prediction, error)

	// Model metrics operations
	InsertModelMetrics(ctx context.Context, m *model.ModelMetrics) error
	GetLatestModelMetrics(ctx context.Context) (*model.ModelMetrics, error)

	// Alert audit operations
	InsertAlert(ctx context.Context, a *model.Alert) error
	ListAlerts(ctx context.Context, limit int) ([]*model.Alert, error)

	// Ping verifies connectivity for health checks
	Ping(ctx context.Context) error

	// Close closes the repository connection
	Close() error
}
