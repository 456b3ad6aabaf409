package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/vigilancia-bie/malarisk/pkg/domain/interfaces"
	"github.com/vigilancia-bie/malarisk/pkg/domain/model"
	"github.com/vigilancia-bie/malarisk/pkg/domain/types"
)

type seriesKey struct {
	municipalityID types.MunicipalityID
	week           types.EpiWeek
}

type predictionKey struct {
	municipalityID types.MunicipalityID
	week           types.EpiWeek
	version        types.ModelVersion
}

// Memory implements Repository with in-memory storage. It backs tests and
// the no-database development mode.
type Memory struct {
	mu             sync.RWMutex
	municipalities map[types.MunicipalityID]*model.Municipality
	series         map[seriesKey]*model.WeeklySeries
	predictions    map[predictionKey]*model.Prediction
	metrics        []*model.ModelMetrics
	alerts         []*model.Alert
	nextID         types.MunicipalityID
}

// NewMemory creates a new memory repository
func NewMemory() *Memory {
	return &Memory{
		municipalities: make(map[types.MunicipalityID]*model.Municipality),
		series:         make(map[seriesKey]*model.WeeklySeries),
		predictions:    make(map[predictionKey]*model.Prediction),
		nextID:         1,
	}
}

// PutMunicipality stores a municipality, assigning an ID when absent
func (m *Memory) PutMunicipality(ctx context.Context, mun *model.Municipality) error {
	if mun == nil {
		return goerr.New("municipality is nil")
	}
	if err := mun.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if mun.ID == 0 {
		mun.ID = m.nextID
	}
	if mun.ID >= m.nextID {
		m.nextID = mun.ID + 1
	}

	cp := *mun
	m.municipalities[mun.ID] = &cp
	return nil
}

// GetMunicipality retrieves a municipality by ID
func (m *Memory) GetMunicipality(ctx context.Context, id types.MunicipalityID) (*model.Municipality, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mun, ok := m.municipalities[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrMunicipalityNotFound, "unknown municipality ID", goerr.V("id", id))
	}

	cp := *mun
	return &cp, nil
}

// GetMunicipalityByName retrieves a municipality by name, case-insensitive
func (m *Memory) GetMunicipalityByName(ctx context.Context, name string) (*model.Municipality, error) {
	if name == "" {
		return nil, goerr.New("municipality name is empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, mun := range m.municipalities {
		if strings.EqualFold(mun.Name, name) {
			cp := *mun
			return &cp, nil
		}
	}
	return nil, goerr.Wrap(model.ErrMunicipalityNotFound, "unknown municipality name", goerr.V("name", name))
}

// ListMunicipalities lists municipalities ordered by name
func (m *Memory) ListMunicipalities(ctx context.Context) ([]*model.Municipality, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*model.Municipality, 0, len(m.municipalities))
	for _, mun := range m.municipalities {
		cp := *mun
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// UpsertWeeklySeries stores observations keyed by (municipality, week)
func (m *Memory) UpsertWeeklySeries(ctx context.Context, series []*model.WeeklySeries) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range series {
		if s == nil {
			return goerr.New("weekly series entry is nil")
		}
		if err := s.Validate(); err != nil {
			return err
		}
		if _, ok := m.municipalities[s.MunicipalityID]; !ok {
			return goerr.Wrap(model.ErrMunicipalityNotFound, "series references unknown municipality",
				goerr.V("municipality_id", s.MunicipalityID))
		}
		cp := *s
		if mun := m.municipalities[s.MunicipalityID]; cp.MunicipalityName == "" {
			cp.MunicipalityName = mun.Name
		}
		m.series[seriesKey{s.MunicipalityID, s.Week}] = &cp
	}
	return nil
}

// ListWeeklySeries lists observations for one municipality, oldest first
func (m *Memory) ListWeeklySeries(ctx context.Context, municipalityID types.MunicipalityID, limit int) ([]*model.WeeklySeries, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.WeeklySeries
	for _, s := range m.series {
		if s.MunicipalityID == municipalityID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sortSeries(out)

	// Keep the most recent entries when limited
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// ListAllWeeklySeries lists every observation, grouped by municipality and
// ordered by week.
func (m *Memory) ListAllWeeklySeries(ctx context.Context) ([]*model.WeeklySeries, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*model.WeeklySeries, 0, len(m.series))
	for _, s := range m.series {
		cp := *s
		out = append(out, &cp)
	}
	sortSeries(out)
	return out, nil
}

func sortSeries(series []*model.WeeklySeries) {
	sort.Slice(series, func(i, j int) bool {
		if series[i].MunicipalityID != series[j].MunicipalityID {
			return series[i].MunicipalityID < series[j].MunicipalityID
		}
		return series[i].Week.Before(series[j].Week)
	})
}

// SavePrediction stores a prediction keyed by (municipality, week, version)
func (m *Memory) SavePrediction(ctx context.Context, p *model.Prediction) error {
	if p == nil {
		return goerr.New("prediction is nil")
	}
	if err := p.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *p
	if mun, ok := m.municipalities[p.MunicipalityID]; ok && cp.MunicipalityName == "" {
		cp.MunicipalityName = mun.Name
	}
	m.predictions[predictionKey{p.MunicipalityID, p.Week, p.ModelVersion}] = &cp
	return nil
}

// ListPredictionsByWeek lists predictions for one week ordered by municipality
func (m *Memory) ListPredictionsByWeek(ctx context.Context, week types.EpiWeek) ([]*model.Prediction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.Prediction
	for _, p := range m.predictions {
		if p.Week == week {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MunicipalityID < out[j].MunicipalityID })
	return out, nil
}

// ListPredictionsByMunicipality lists predictions for one municipality,
// newest week first.
func (m *Memory) ListPredictionsByMunicipality(ctx context.Context, municipalityID types.MunicipalityID, limit int) ([]*model.Prediction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.Prediction
	for _, p := range m.predictions {
		if p.MunicipalityID == municipalityID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[j].Week.Before(out[i].Week) })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// InsertModelMetrics appends a training run record
func (m *Memory) InsertModelMetrics(ctx context.Context, metrics *model.ModelMetrics) error {
	if metrics == nil {
		return goerr.New("model metrics is nil")
	}
	if err := metrics.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *metrics
	m.metrics = append(m.metrics, &cp)
	return nil
}

// GetLatestModelMetrics returns the most recent training run record
func (m *Memory) GetLatestModelMetrics(ctx context.Context) (*model.ModelMetrics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.metrics) == 0 {
		return nil, goerr.Wrap(model.ErrMetricsNotFound, "no training runs recorded")
	}

	latest := m.metrics[0]
	for _, rec := range m.metrics[1:] {
		if rec.TrainedAt.After(latest.TrainedAt) {
			latest = rec
		}
	}
	cp := *latest
	return &cp, nil
}

// InsertAlert appends an alert audit record
func (m *Memory) InsertAlert(ctx context.Context, a *model.Alert) error {
	if a == nil {
		return goerr.New("alert is nil")
	}
	if a.ID == "" {
		return goerr.New("alert ID is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *a
	m.alerts = append(m.alerts, &cp)
	return nil
}

// ListAlerts lists alert audit records, newest first
func (m *Memory) ListAlerts(ctx context.Context, limit int) ([]*model.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*model.Alert, 0, len(m.alerts))
	for _, a := range m.alerts {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SentAt.After(out[j].SentAt) })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Ping always succeeds for the memory repository
func (m *Memory) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for the memory repository
func (m *Memory) Close() error {
	return nil
}

var _ interfaces.Repository = (*Memory)(nil)
