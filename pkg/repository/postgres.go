package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/vigilancia-bie/malarisk/pkg/domain/interfaces"
	"github.com/vigilancia-bie/malarisk/pkg/domain/model"
	"github.com/vigilancia-bie/malarisk/pkg/domain/types"
)

// Postgres implements Repository backed by PostgreSQL via pgx
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres repository and verifies connectivity
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, goerr.Wrap(err, "failed to connect to postgres")
	}

	ctxlog.From(ctx).Info("Postgres repository initialized")
	return &Postgres{pool: pool}, nil
}

// PutMunicipality inserts or updates a municipality by name
func (p *Postgres) PutMunicipality(ctx context.Context, mun *model.Municipality) error {
	if mun == nil {
		return goerr.New("municipality is nil")
	}
	if err := mun.Validate(); err != nil {
		return err
	}

	row := p.pool.QueryRow(ctx, `
		INSERT INTO municipios (nome, codigo, latitude, longitude, populacao, area_km2)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (nome) DO UPDATE SET
			codigo = EXCLUDED.codigo,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			populacao = EXCLUDED.populacao,
			area_km2 = EXCLUDED.area_km2
		RETURNING id`,
		mun.Name, mun.Code, mun.Latitude, mun.Longitude, mun.Population, mun.AreaKm2)

	var id int
	if err := row.Scan(&id); err != nil {
		return goerr.Wrap(err, "failed to upsert municipality", goerr.V("name", mun.Name))
	}
	mun.ID = types.MunicipalityID(id)
	return nil
}

func scanMunicipality(row pgx.Row) (*model.Municipality, error) {
	var m model.Municipality
	if err := row.Scan(&m.ID, &m.Name, &m.Code, &m.Latitude, &m.Longitude, &m.Population, &m.AreaKm2); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrMunicipalityNotFound
		}
		return nil, goerr.Wrap(err, "failed to scan municipality")
	}
	return &m, nil
}

const municipalityColumns = "id, nome, codigo, latitude, longitude, populacao, area_km2"

// GetMunicipality retrieves a municipality by ID
func (p *Postgres) GetMunicipality(ctx context.Context, id types.MunicipalityID) (*model.Municipality, error) {
	return scanMunicipality(p.pool.QueryRow(ctx,
		"SELECT "+municipalityColumns+" FROM municipios WHERE id = $1", id.Int()))
}

// GetMunicipalityByName retrieves a municipality by name, case-insensitive
func (p *Postgres) GetMunicipalityByName(ctx context.Context, name string) (*model.Municipality, error) {
	return scanMunicipality(p.pool.QueryRow(ctx,
		"SELECT "+municipalityColumns+" FROM municipios WHERE LOWER(nome) = LOWER($1)", name))
}

// ListMunicipalities lists municipalities ordered by name
func (p *Postgres) ListMunicipalities(ctx context.Context) ([]*model.Municipality, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT "+municipalityColumns+" FROM municipios ORDER BY nome")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list municipalities")
	}
	defer rows.Close()

	var out []*model.Municipality
	for rows.Next() {
		m, err := scanMunicipality(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpsertWeeklySeries stores observations keyed by (municipality, week)
func (p *Postgres) UpsertWeeklySeries(ctx context.Context, series []*model.WeeklySeries) error {
	batch := &pgx.Batch{}
	for _, s := range series {
		if s == nil {
			return goerr.New("weekly series entry is nil")
		}
		if err := s.Validate(); err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO series_semanais
				(municipio_id, ano_semana, casos, chuva_mm, temp_media_c, temp_min_c, temp_max_c, umidade_relativa)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (municipio_id, ano_semana) DO UPDATE SET
				casos = EXCLUDED.casos,
				chuva_mm = EXCLUDED.chuva_mm,
				temp_media_c = EXCLUDED.temp_media_c,
				temp_min_c = EXCLUDED.temp_min_c,
				temp_max_c = EXCLUDED.temp_max_c,
				umidade_relativa = EXCLUDED.umidade_relativa`,
			s.MunicipalityID.Int(), s.Week.String(), s.Cases,
			s.RainfallMM, s.TempMeanC, s.TempMinC, s.TempMaxC, s.HumidityPct)
	}

	results := p.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range series {
		if _, err := results.Exec(); err != nil {
			return goerr.Wrap(err, "failed to upsert weekly series")
		}
	}
	return nil
}

func scanSeriesRows(rows pgx.Rows) ([]*model.WeeklySeries, error) {
	defer rows.Close()

	var out []*model.WeeklySeries
	for rows.Next() {
		var (
			s    model.WeeklySeries
			week string
		)
		if err := rows.Scan(&s.MunicipalityID, &s.MunicipalityName, &week, &s.Cases,
			&s.RainfallMM, &s.TempMeanC, &s.TempMinC, &s.TempMaxC, &s.HumidityPct, &s.CreatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan weekly series")
		}
		w, err := types.ParseEpiWeek(week)
		if err != nil {
			return nil, goerr.Wrap(err, "stored week is malformed", goerr.V("ano_semana", week))
		}
		s.Week = w
		out = append(out, &s)
	}
	return out, rows.Err()
}

const seriesSelect = `
	SELECT s.municipio_id, m.nome, s.ano_semana, s.casos,
	       s.chuva_mm, s.temp_media_c, s.temp_min_c, s.temp_max_c, s.umidade_relativa, s.created_at
	FROM series_semanais s
	JOIN municipios m ON s.municipio_id = m.id`

// ListWeeklySeries lists observations for one municipality, oldest first.
// When limited it keeps the most recent entries.
func (p *Postgres) ListWeeklySeries(ctx context.Context, municipalityID types.MunicipalityID, limit int) ([]*model.WeeklySeries, error) {
	query := seriesSelect + " WHERE s.municipio_id = $1 ORDER BY s.ano_semana"
	args := []any{municipalityID.Int()}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list weekly series")
	}
	out, err := scanSeriesRows(rows)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// ListAllWeeklySeries lists every observation ordered by municipality and week
func (p *Postgres) ListAllWeeklySeries(ctx context.Context) ([]*model.WeeklySeries, error) {
	rows, err := p.pool.Query(ctx, seriesSelect+" ORDER BY s.municipio_id, s.ano_semana")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list weekly series")
	}
	return scanSeriesRows(rows)
}

// SavePrediction stores a prediction keyed by (municipality, week, version)
func (p *Postgres) SavePrediction(ctx context.Context, pred *model.Prediction) error {
	if pred == nil {
		return goerr.New("prediction is nil")
	}
	if err := pred.Validate(); err != nil {
		return err
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO previsoes
			(municipio_id, ano_semana_prevista, classe_risco, score_risco,
			 probabilidade_baixo, probabilidade_medio, probabilidade_alto,
			 modelo_versao, modelo_tipo)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (municipio_id, ano_semana_prevista, modelo_versao) DO UPDATE SET
			classe_risco = EXCLUDED.classe_risco,
			score_risco = EXCLUDED.score_risco,
			probabilidade_baixo = EXCLUDED.probabilidade_baixo,
			probabilidade_medio = EXCLUDED.probabilidade_medio,
			probabilidade_alto = EXCLUDED.probabilidade_alto`,
		pred.MunicipalityID.Int(), pred.Week.String(), pred.RiskClass.String(), pred.RiskScore,
		pred.ProbLow, pred.ProbMedium, pred.ProbHigh,
		pred.ModelVersion.String(), pred.ModelType.String())
	if err != nil {
		return goerr.Wrap(err, "failed to save prediction",
			goerr.V("municipality_id", pred.MunicipalityID),
			goerr.V("week", pred.Week))
	}
	return nil
}

func scanPredictionRows(rows pgx.Rows) ([]*model.Prediction, error) {
	defer rows.Close()

	var out []*model.Prediction
	for rows.Next() {
		var (
			pr   model.Prediction
			week string
		)
		if err := rows.Scan(&pr.MunicipalityID, &pr.MunicipalityName, &week,
			&pr.RiskClass, &pr.RiskScore, &pr.ProbLow, &pr.ProbMedium, &pr.ProbHigh,
			&pr.ModelVersion, &pr.ModelType, &pr.CreatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan prediction")
		}
		w, err := types.ParseEpiWeek(week)
		if err != nil {
			return nil, goerr.Wrap(err, "stored week is malformed", goerr.V("ano_semana", week))
		}
		pr.Week = w
		out = append(out, &pr)
	}
	return out, rows.Err()
}

const predictionSelect = `
	SELECT p.municipio_id, m.nome, p.ano_semana_prevista,
	       p.classe_risco, p.score_risco,
	       p.probabilidade_baixo, p.probabilidade_medio, p.probabilidade_alto,
	       p.modelo_versao, p.modelo_tipo, p.created_at
	FROM previsoes p
	JOIN municipios m ON p.municipio_id = m.id`

// ListPredictionsByWeek lists predictions for one week ordered by municipality
func (p *Postgres) ListPredictionsByWeek(ctx context.Context, week types.EpiWeek) ([]*model.Prediction, error) {
	rows, err := p.pool.Query(ctx,
		predictionSelect+" WHERE p.ano_semana_prevista = $1 ORDER BY p.municipio_id",
		week.String())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list predictions", goerr.V("week", week))
	}
	return scanPredictionRows(rows)
}

// ListPredictionsByMunicipality lists predictions for one municipality,
// newest week first.
func (p *Postgres) ListPredictionsByMunicipality(ctx context.Context, municipalityID types.MunicipalityID, limit int) ([]*model.Prediction, error) {
	query := predictionSelect + " WHERE p.municipio_id = $1 ORDER BY p.ano_semana_prevista DESC"
	if limit > 0 {
		rows, err := p.pool.Query(ctx, query+" LIMIT $2", municipalityID.Int(), limit)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list predictions")
		}
		return scanPredictionRows(rows)
	}

	rows, err := p.pool.Query(ctx, query, municipalityID.Int())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list predictions")
	}
	return scanPredictionRows(rows)
}

// InsertModelMetrics appends a training run record
func (p *Postgres) InsertModelMetrics(ctx context.Context, m *model.ModelMetrics) error {
	if m == nil {
		return goerr.New("model metrics is nil")
	}
	if err := m.Validate(); err != nil {
		return err
	}

	params, err := json.Marshal(m.Params)
	if err != nil {
		return goerr.Wrap(err, "failed to encode training params")
	}

	perClass := func(c types.RiskClass) model.ClassMetrics { return m.PerClass[c] }
	low, med, high := perClass(types.RiskLow), perClass(types.RiskMedium), perClass(types.RiskHigh)

	_, err = p.pool.Exec(ctx, `
		INSERT INTO metricas_modelo
			(modelo_versao, modelo_tipo, data_treinamento,
			 accuracy, precision_macro, recall_macro, f1_macro,
			 precision_baixo, recall_baixo, f1_baixo,
			 precision_medio, recall_medio, f1_medio,
			 precision_alto, recall_alto, f1_alto,
			 amostras_treino, amostras_teste, num_features, parametros)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		m.ModelVersion.String(), m.ModelType.String(), m.TrainedAt,
		m.Accuracy, m.PrecisionMacro, m.RecallMacro, m.F1Macro,
		low.Precision, low.Recall, low.F1,
		med.Precision, med.Recall, med.F1,
		high.Precision, high.Recall, high.F1,
		m.TrainingSamples, m.TestSamples, m.FeatureCount, params)
	if err != nil {
		return goerr.Wrap(err, "failed to insert model metrics", goerr.V("version", m.ModelVersion))
	}
	return nil
}

// GetLatestModelMetrics returns the most recent training run record
func (p *Postgres) GetLatestModelMetrics(ctx context.Context) (*model.ModelMetrics, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT modelo_versao, modelo_tipo, data_treinamento,
		       accuracy, precision_macro, recall_macro, f1_macro,
		       precision_baixo, recall_baixo, f1_baixo,
		       precision_medio, recall_medio, f1_medio,
		       precision_alto, recall_alto, f1_alto,
		       amostras_treino, amostras_teste, num_features, parametros
		FROM metricas_modelo
		ORDER BY data_treinamento DESC
		LIMIT 1`)

	var (
		m         model.ModelMetrics
		low, med  model.ClassMetrics
		high      model.ClassMetrics
		rawParams []byte
	)
	err := row.Scan(&m.ModelVersion, &m.ModelType, &m.TrainedAt,
		&m.Accuracy, &m.PrecisionMacro, &m.RecallMacro, &m.F1Macro,
		&low.Precision, &low.Recall, &low.F1,
		&med.Precision, &med.Recall, &med.F1,
		&high.Precision, &high.Recall, &high.F1,
		&m.TrainingSamples, &m.TestSamples, &m.FeatureCount, &rawParams)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrMetricsNotFound
		}
		return nil, goerr.Wrap(err, "failed to get latest model metrics")
	}

	m.PerClass = map[types.RiskClass]model.ClassMetrics{
		types.RiskLow:    low,
		types.RiskMedium: med,
		types.RiskHigh:   high,
	}
	if len(rawParams) > 0 {
		if err := json.Unmarshal(rawParams, &m.Params); err != nil {
			return nil, goerr.Wrap(err, "failed to decode training params")
		}
	}
	return &m, nil
}

// InsertAlert appends an alert audit record
func (p *Postgres) InsertAlert(ctx context.Context, a *model.Alert) error {
	if a == nil {
		return goerr.New("alert is nil")
	}
	if a.ID == "" {
		return goerr.New("alert ID is empty")
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO alertas_enviados
			(id, municipio_id, ano_semana, classe_risco, score_risco,
			 email_destinatarios, assunto, status_envio, enviado_em)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID.String(), a.MunicipalityID.Int(), a.Week.String(),
		a.RiskClass.String(), a.RiskScore,
		strings.Join(a.Recipients, ", "), a.Subject, a.Status.String(), a.SentAt)
	if err != nil {
		return goerr.Wrap(err, "failed to insert alert record", goerr.V("id", a.ID))
	}
	return nil
}

// ListAlerts lists alert audit records, newest first
func (p *Postgres) ListAlerts(ctx context.Context, limit int) ([]*model.Alert, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.pool.Query(ctx, `
		SELECT a.id, a.municipio_id, m.nome, a.ano_semana, a.classe_risco, a.score_risco,
		       a.email_destinatarios, a.assunto, a.status_envio, a.enviado_em
		FROM alertas_enviados a
		JOIN municipios m ON a.municipio_id = m.id
		ORDER BY a.enviado_em DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list alerts")
	}
	defer rows.Close()

	var out []*model.Alert
	for rows.Next() {
		var (
			a          model.Alert
			week       string
			recipients string
		)
		if err := rows.Scan(&a.ID, &a.MunicipalityID, &a.MunicipalityName, &week,
			&a.RiskClass, &a.RiskScore, &recipients, &a.Subject, &a.Status, &a.SentAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan alert record")
		}
		w, err := types.ParseEpiWeek(week)
		if err != nil {
			return nil, goerr.Wrap(err, "stored week is malformed", goerr.V("ano_semana", week))
		}
		a.Week = w
		a.Recipients = strings.Split(recipients, ", ")
		out = append(out, &a)
	}
	return out, rows.Err()
}

// Ping verifies connectivity
func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return goerr.Wrap(err, "postgres ping failed")
	}
	return nil
}

// Close closes the connection pool
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

var _ interfaces.Repository = (*Postgres)(nil)
