package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/vigilancia-bie/malarisk/pkg/domain/model"
	"github.com/vigilancia-bie/malarisk/pkg/domain/types"
	"github.com/vigilancia-bie/malarisk/pkg/utils/async"
)

type predictionDTO struct {
	Municipio      string             `json:"municipio"`
	AnoSemana      string             `json:"ano_semana"`
	ClasseRisco    string             `json:"classe_risco"`
	ScoreRisco     float64            `json:"score_risco"`
	Probabilidades map[string]float64 `json:"probabilidades"`
	ModeloVersao   string             `json:"modelo_versao"`
	ModeloTipo     string             `json:"modelo_tipo"`
	Confianca      string             `json:"confianca,omitempty"`
}

func toPredictionDTO(p *model.Prediction) predictionDTO {
	return predictionDTO{
		Municipio:   p.MunicipalityName,
		AnoSemana:   p.Week.String(),
		ClasseRisco: p.RiskClass.String(),
		ScoreRisco:  p.RiskScore,
		Probabilidades: map[string]float64{
			types.RiskLow.String():    p.ProbLow,
			types.RiskMedium.String(): p.ProbMedium,
			types.RiskHigh.String():   p.ProbHigh,
		},
		ModeloVersao: p.ModelVersion.String(),
		ModeloTipo:   p.ModelType.String(),
	}
}

type metricsDTO struct {
	ModeloVersao    string                        `json:"modelo_versao"`
	ModeloTipo      string                        `json:"modelo_tipo"`
	DataTreinamento time.Time                     `json:"data_treinamento"`
	Accuracy        float64                       `json:"accuracy"`
	PrecisionMacro  float64                       `json:"precision_macro"`
	RecallMacro     float64                       `json:"recall_macro"`
	F1Macro         float64                       `json:"f1_macro"`
	PorClasse       map[string]model.ClassMetrics `json:"por_classe"`
	MatrizConfusao  [][]int                       `json:"matriz_confusao,omitempty"`
	AmostrasTreino  int                           `json:"amostras_treino"`
	AmostrasTeste   int                           `json:"amostras_teste"`
	NumFeatures     int                           `json:"num_features"`
	Parametros      map[string]any                `json:"parametros,omitempty"`
}

func toMetricsDTO(m *model.ModelMetrics) metricsDTO {
	perClass := map[string]model.ClassMetrics{}
	for class, cm := range m.PerClass {
		perClass[class.String()] = cm
	}
	return metricsDTO{
		ModeloVersao:    m.ModelVersion.String(),
		ModeloTipo:      m.ModelType.String(),
		DataTreinamento: m.TrainedAt,
		Accuracy:        m.Accuracy,
		PrecisionMacro:  m.PrecisionMacro,
		RecallMacro:     m.RecallMacro,
		F1Macro:         m.F1Macro,
		PorClasse:       perClass,
		MatrizConfusao:  m.ConfusionMatrix,
		AmostrasTreino:  m.TrainingSamples,
		AmostrasTeste:   m.TestSamples,
		NumFeatures:     m.FeatureCount,
		Parametros:      m.Params,
	}
}

type seriesDTO struct {
	Municipio       string  `json:"municipio"`
	AnoSemana       string  `json:"ano_semana"`
	Casos           int     `json:"casos"`
	ChuvaMM         float64 `json:"chuva_mm"`
	TempMediaC      float64 `json:"temp_media_c"`
	TempMinC        float64 `json:"temp_min_c,omitempty"`
	TempMaxC        float64 `json:"temp_max_c,omitempty"`
	UmidadeRelativa float64 `json:"umidade_relativa,omitempty"`
}

type reportDTO struct {
	AnoSemana     string          `json:"ano_semana"`
	Nivel         string          `json:"nivel"`
	Mensagem      string          `json:"mensagem"`
	GeradoEm      time.Time       `json:"gerado_em"`
	Total         int             `json:"total_municipios"`
	AltoRisco     []predictionDTO `json:"alto_risco"`
	MedioRisco    []predictionDTO `json:"medio_risco"`
	BaixoRisco    []predictionDTO `json:"baixo_risco"`
	Recomendacoes []string        `json:"recomendacoes"`
}

func toReportDTO(r *model.AlertReport) reportDTO {
	mapPreds := func(preds []*model.Prediction) []predictionDTO {
		out := make([]predictionDTO, 0, len(preds))
		for _, p := range preds {
			out = append(out, toPredictionDTO(p))
		}
		return out
	}
	return reportDTO{
		AnoSemana:     r.Week.String(),
		Nivel:         r.Level.String(),
		Mensagem:      r.Message,
		GeradoEm:      r.GeneratedAt,
		Total:         len(r.Predictions),
		AltoRisco:     mapPreds(r.HighRisk),
		MedioRisco:    mapPreds(r.MediumRisk),
		BaixoRisco:    mapPreds(r.LowRisk),
		Recomendacoes: r.Recommendations(),
	}
}

// parseWeek validates the ano_semana path or query value. Malformed values
// map to 422 like the rest of the input validation.
func parseWeek(raw string) (types.EpiWeek, error) {
	week, err := types.ParseEpiWeek(raw)
	if err != nil {
		return types.EpiWeek{}, err
	}
	return week, nil
}

// handleTrain runs a training cycle. With ?background=true the request
// returns immediately and training continues in a detached goroutine.
func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("background") == "true" {
		async.Dispatch(r.Context(), func(ctx context.Context) error {
			_, err := s.trainUC.Train(ctx)
			return err
		})
		writeJSON(w, http.StatusAccepted, map[string]string{
			"status": "treinamento iniciado",
		})
		return
	}

	metrics, err := s.trainUC.Train(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMetricsDTO(metrics))
}

// handlePredict forecasts one municipality. Without ano_semana it produces
// a fresh forecast for the week after the latest observation; with it, a
// stored forecast is looked up.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	municipality := r.URL.Query().Get("municipio")
	if municipality == "" {
		writeError(w, goerr.New("query parameter 'municipio' is required"), http.StatusBadRequest)
		return
	}

	if raw := r.URL.Query().Get("ano_semana"); raw != "" {
		week, err := parseWeek(raw)
		if err != nil {
			writeError(w, err, http.StatusUnprocessableEntity)
			return
		}
		pred, err := s.predictUC.GetPrediction(r.Context(), municipality, week)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toPredictionDTO(pred))
		return
	}

	fc, err := s.predictUC.PredictMunicipality(r.Context(), municipality)
	if err != nil {
		handleError(w, r, err)
		return
	}
	dto := toPredictionDTO(fc.Prediction)
	dto.Confianca = fc.Confidence
	writeJSON(w, http.StatusOK, dto)
}

func (s *Server) handlePredictionsByWeek(w http.ResponseWriter, r *http.Request) {
	week, err := parseWeek(chi.URLParam(r, "ano_semana"))
	if err != nil {
		writeError(w, err, http.StatusUnprocessableEntity)
		return
	}

	preds, err := s.predictUC.PredictionsByWeek(r.Context(), week)
	if err != nil {
		handleError(w, r, err)
		return
	}

	out := make([]predictionDTO, 0, len(preds))
	for _, p := range preds {
		out = append(out, toPredictionDTO(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ano_semana": week.String(),
		"previsoes":  out,
	})
}

func (s *Server) handleLatestMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := s.trainUC.LatestMetrics(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMetricsDTO(metrics))
}

func (s *Server) handleMunicipalities(w http.ResponseWriter, r *http.Request) {
	municipalities, err := s.seriesUC.ListMunicipalities(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"municipios": municipalities})
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	limit := 52
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, goerr.New("query parameter 'limit' must be a non-negative integer"),
				http.StatusUnprocessableEntity)
			return
		}
		limit = v
	}

	series, err := s.seriesUC.Series(r.Context(), chi.URLParam(r, "municipio"), limit)
	if err != nil {
		handleError(w, r, err)
		return
	}

	out := make([]seriesDTO, 0, len(series))
	for _, ws := range series {
		out = append(out, seriesDTO{
			Municipio:       ws.MunicipalityName,
			AnoSemana:       ws.Week.String(),
			Casos:           ws.Cases,
			ChuvaMM:         ws.RainfallMM,
			TempMediaC:      ws.TempMeanC,
			TempMinC:        ws.TempMinC,
			TempMaxC:        ws.TempMaxC,
			UmidadeRelativa: ws.HumidityPct,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"series": out})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.seriesUC.Stats(r.Context(), chi.URLParam(r, "municipio"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"municipio":          stats.Municipality.Name,
		"semanas_observadas": stats.WeeksObserved,
		"total_casos":        stats.TotalCases,
		"media_casos_semana": stats.MeanWeeklyCases,
		"max_casos_semana":   stats.MaxWeeklyCases,
		"semana_pico":        stats.PeakWeek.String(),
		"media_chuva_mm":     stats.MeanRainfallMM,
		"media_temp_c":       stats.MeanTempC,
		"primeira_semana":    stats.FirstWeek.String(),
		"ultima_semana":      stats.LastWeek.String(),
	})
}

func (s *Server) handleWeeklyReport(w http.ResponseWriter, r *http.Request) {
	week, err := parseWeek(chi.URLParam(r, "ano_semana"))
	if err != nil {
		writeError(w, err, http.StatusUnprocessableEntity)
		return
	}

	report, err := s.seriesUC.WeeklyReport(r.Context(), week)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(report))
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	alerts, err := s.alertUC.ListAlerts(r.Context(), limit)
	if err != nil {
		handleError(w, r, err)
		return
	}

	type alertDTO struct {
		ID            string    `json:"id"`
		Municipio     string    `json:"municipio"`
		AnoSemana     string    `json:"ano_semana"`
		ClasseRisco   string    `json:"classe_risco"`
		ScoreRisco    float64   `json:"score_risco"`
		Destinatarios []string  `json:"destinatarios"`
		Assunto       string    `json:"assunto"`
		Status        string    `json:"status_envio"`
		EnviadoEm     time.Time `json:"enviado_em"`
	}
	out := make([]alertDTO, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, alertDTO{
			ID:            a.ID.String(),
			Municipio:     a.MunicipalityName,
			AnoSemana:     a.Week.String(),
			ClasseRisco:   a.RiskClass.String(),
			ScoreRisco:    a.RiskScore,
			Destinatarios: a.Recipients,
			Assunto:       a.Subject,
			Status:        a.Status.String(),
			EnviadoEm:     a.SentAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"alertas": out})
}

// handleSendAlerts triggers an alert evaluation outside the schedule
func (s *Server) handleSendAlerts(w http.ResponseWriter, r *http.Request) {
	report, err := s.alertUC.RunCheck(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(report))
}
