package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/m-mizutani/gt"
	controller "github.com/vigilancia-bie/malarisk/pkg/controller/http"
	"github.com/vigilancia-bie/malarisk/pkg/domain/interfaces"
	"github.com/vigilancia-bie/malarisk/pkg/domain/model"
	"github.com/vigilancia-bie/malarisk/pkg/domain/types"
	"github.com/vigilancia-bie/malarisk/pkg/ingest"
	"github.com/vigilancia-bie/malarisk/pkg/ml"
	"github.com/vigilancia-bie/malarisk/pkg/observability"
	"github.com/vigilancia-bie/malarisk/pkg/repository"
	"github.com/vigilancia-bie/malarisk/pkg/usecase"
)

type recordingNotifier struct {
	calls int
}

func (n *recordingNotifier) Name() string { return "test" }
func (n *recordingNotifier) SendAlertReport(ctx context.Context, report *model.AlertReport) error {
	n.calls++
	return nil
}

func newTestServer(t *testing.T, seeded bool) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	repo := repository.NewMemory()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 7, 20, 9, 0, 0, 0, time.UTC))
	metrics := observability.NewMetricsForTesting()
	holder := usecase.NewModelHolder()

	seriesUC := usecase.NewSeries(repo, clock)
	if seeded {
		catalog := &model.Catalog{Municipalities: []model.Municipality{
			{Name: "Kuito", Latitude: -12.38, Longitude: 16.94, Population: 400000},
			{Name: "Camacupa", Latitude: -12.02, Longitude: 17.48, Population: 120000},
		}}
		params := ingest.SampleParams{Weeks: 104, Seed: 42, Start: types.EpiWeek{Year: 2022, Week: 1}}
		gt.NoError(t, seriesUC.Seed(ctx, catalog, params))
	}

	trainUC := usecase.NewTrain(repo, holder, "", ml.ForestParams{NumTrees: 10, Seed: 42}, clock, metrics)
	predictUC := usecase.NewPredict(repo, holder, metrics)
	alertUC := usecase.NewAlert(repo, predictUC,
		[]interfaces.Notifier{&recordingNotifier{}}, []string{"saude@bie.gov.ao"},
		0.7, clock, metrics)

	srv := controller.NewServer(ctx, "localhost:0", repo, holder,
		trainUC, predictUC, seriesUC, alertUC, metrics)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, wantStatus int) map[string]any {
	t.Helper()
	resp := gt.R1(http.Get(url)).NoError(t)
	defer resp.Body.Close()
	gt.Equal(t, resp.StatusCode, wantStatus)

	var body map[string]any
	gt.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func postJSON(t *testing.T, url string, wantStatus int) map[string]any {
	t.Helper()
	resp := gt.R1(http.Post(url, "application/json", nil)).NoError(t)
	defer resp.Body.Close()
	gt.Equal(t, resp.StatusCode, wantStatus)

	var body map[string]any
	gt.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, false)

	// Untrained model degrades the overall status
	body := getJSON(t, ts.URL+"/health", http.StatusOK)
	gt.Equal(t, body["status"], "unhealthy")
	gt.Equal(t, body["service"], "malarisk")
	gt.Equal(t, body["database"], "ok")
	gt.Equal(t, body["model"], "not_trained")
}

func TestHealthAfterTraining(t *testing.T) {
	ts := newTestServer(t, true)

	postJSON(t, ts.URL+"/api/train", http.StatusOK)

	body := getJSON(t, ts.URL+"/health", http.StatusOK)
	gt.Equal(t, body["status"], "healthy")
	gt.Equal(t, body["database"], "ok")
	gt.Equal(t, body["model"], "ok")
	gt.Equal(t, body["modelo_versao"], "v20240720_090000")
}

func TestTrainEndpoint(t *testing.T) {
	ts := newTestServer(t, true)

	body := postJSON(t, ts.URL+"/api/train", http.StatusOK)
	gt.Equal(t, body["modelo_versao"], "v20240720_090000")
	gt.True(t, body["amostras_treino"].(float64) > 0)

	// Compatibility alias
	body = postJSON(t, ts.URL+"/train", http.StatusOK)
	gt.Equal(t, body["modelo_tipo"], "RandomForest")
}

func TestTrainNoDataReturns400(t *testing.T) {
	ts := newTestServer(t, false)

	body := postJSON(t, ts.URL+"/api/train", http.StatusBadRequest)
	gt.True(t, body["detail"] != "")
}

func TestPredictEndpoint(t *testing.T) {
	ts := newTestServer(t, true)
	postJSON(t, ts.URL+"/api/train", http.StatusOK)

	body := getJSON(t, ts.URL+"/api/predict?municipio=Kuito", http.StatusOK)
	gt.Equal(t, body["municipio"], "Kuito")
	gt.Equal(t, body["ano_semana"], "2024-01")
	gt.True(t, body["score_risco"].(float64) >= 0)
	gt.True(t, body["confianca"] != "")

	// Stored forecast lookup by week
	stored := getJSON(t, ts.URL+"/api/predict?municipio=Kuito&ano_semana=2024-01", http.StatusOK)
	gt.Equal(t, stored["classe_risco"], body["classe_risco"])
}

func TestPredictValidation(t *testing.T) {
	ts := newTestServer(t, true)
	postJSON(t, ts.URL+"/api/train", http.StatusOK)

	// Missing municipio
	getJSON(t, ts.URL+"/api/predict", http.StatusBadRequest)

	// Unknown municipality
	getJSON(t, ts.URL+"/api/predict?municipio=Huambo", http.StatusNotFound)

	// Malformed week
	getJSON(t, ts.URL+"/api/predict?municipio=Kuito&ano_semana=banana", http.StatusUnprocessableEntity)

	// Valid week, nothing stored
	getJSON(t, ts.URL+"/api/predict?municipio=Kuito&ano_semana=2030-01", http.StatusNotFound)
}

func TestPredictModelNotTrained(t *testing.T) {
	ts := newTestServer(t, true)

	body := getJSON(t, ts.URL+"/api/predict?municipio=Kuito", http.StatusBadRequest)
	gt.True(t, body["detail"] != "")
}

func TestPredictionsByWeekEndpoint(t *testing.T) {
	ts := newTestServer(t, true)
	postJSON(t, ts.URL+"/api/train", http.StatusOK)
	getJSON(t, ts.URL+"/api/predict?municipio=Kuito", http.StatusOK)
	getJSON(t, ts.URL+"/api/predict?municipio=Camacupa", http.StatusOK)

	body := getJSON(t, ts.URL+"/api/previsoes/semana/2024-01", http.StatusOK)
	preds := body["previsoes"].([]any)
	gt.Equal(t, len(preds), 2)

	getJSON(t, ts.URL+"/api/previsoes/semana/2024-99", http.StatusUnprocessableEntity)
}

func TestMetricsLatestEndpoint(t *testing.T) {
	ts := newTestServer(t, true)

	getJSON(t, ts.URL+"/api/metrics/latest", http.StatusNotFound)

	postJSON(t, ts.URL+"/api/train", http.StatusOK)
	body := getJSON(t, ts.URL+"/api/metrics/latest", http.StatusOK)
	gt.Equal(t, body["modelo_versao"], "v20240720_090000")
}

func TestMunicipalitiesEndpoint(t *testing.T) {
	ts := newTestServer(t, true)

	body := getJSON(t, ts.URL+"/api/municipios", http.StatusOK)
	municipios := body["municipios"].([]any)
	gt.Equal(t, len(municipios), 2)
	first := municipios[0].(map[string]any)
	gt.Equal(t, first["nome"], "Camacupa") // ordered by name
}

func TestSeriesEndpoint(t *testing.T) {
	ts := newTestServer(t, true)

	body := getJSON(t, ts.URL+"/api/series/Kuito?limit=10", http.StatusOK)
	series := body["series"].([]any)
	gt.Equal(t, len(series), 10)

	getJSON(t, ts.URL+"/api/series/Huambo", http.StatusNotFound)
	getJSON(t, ts.URL+"/api/series/Kuito?limit=abc", http.StatusUnprocessableEntity)
}

func TestStatsEndpoint(t *testing.T) {
	ts := newTestServer(t, true)

	body := getJSON(t, ts.URL+"/api/estatisticas/municipio/Kuito", http.StatusOK)
	gt.Equal(t, body["municipio"], "Kuito")
	gt.Equal(t, body["semanas_observadas"].(float64), 104.0)
}

func TestWeeklyReportEndpoint(t *testing.T) {
	ts := newTestServer(t, true)
	postJSON(t, ts.URL+"/api/train", http.StatusOK)
	getJSON(t, ts.URL+"/api/predict?municipio=Kuito", http.StatusOK)

	body := getJSON(t, ts.URL+"/api/relatorio/semanal/2024-01", http.StatusOK)
	gt.Equal(t, body["ano_semana"], "2024-01")
	gt.True(t, body["nivel"] != "")

	getJSON(t, ts.URL+"/api/relatorio/semanal/2030-01", http.StatusNotFound)
}

func TestAlertsEndpoints(t *testing.T) {
	ts := newTestServer(t, true)
	postJSON(t, ts.URL+"/api/train", http.StatusOK)

	body := postJSON(t, ts.URL+"/api/alertas/enviar", http.StatusOK)
	gt.True(t, body["nivel"] != "")

	list := getJSON(t, ts.URL+"/api/alertas", http.StatusOK)
	_, ok := list["alertas"].([]any)
	gt.True(t, ok)
}

func TestPrometheusEndpoint(t *testing.T) {
	ts := newTestServer(t, false)

	resp := gt.R1(http.Get(ts.URL + "/metrics")).NoError(t)
	defer resp.Body.Close()
	gt.Equal(t, resp.StatusCode, http.StatusOK)
}
