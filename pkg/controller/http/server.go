package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vigilancia-bie/malarisk/pkg/domain/interfaces"
	"github.com/vigilancia-bie/malarisk/pkg/domain/model"
	"github.com/vigilancia-bie/malarisk/pkg/observability"
	"github.com/vigilancia-bie/malarisk/pkg/usecase"
)

// Server represents the HTTP server
type Server struct {
	*http.Server
	router    chi.Router
	repo      interfaces.Repository
	holder    *usecase.ModelHolder
	trainUC   usecase.TrainUseCase
	predictUC usecase.PredictUseCase
	seriesUC  usecase.SeriesUseCase
	alertUC   usecase.AlertUseCase
}

// NewServer creates a new HTTP server
func NewServer(
	ctx context.Context,
	addr string,
	repo interfaces.Repository,
	holder *usecase.ModelHolder,
	trainUC usecase.TrainUseCase,
	predictUC usecase.PredictUseCase,
	seriesUC usecase.SeriesUseCase,
	alertUC usecase.AlertUseCase,
	metrics *observability.Metrics,
) *Server {
	router := chi.NewRouter()

	// Apply global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(MetricsMiddleware(metrics))
	router.Use(middleware.Recoverer)

	s := &Server{
		Server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
		router:    router,
		repo:      repo,
		holder:    holder,
		trainUC:   trainUC,
		predictUC: predictUC,
		seriesUC:  seriesUC,
		alertUC:   alertUC,
	}

	router.Get("/health", s.handleHealth)
	router.Handle("/metrics", promhttp.Handler())

	// Compatibility alias for the pre-v1 API shape
	router.Post("/train", s.handleTrain)

	router.Route("/api", func(r chi.Router) {
		r.Post("/train", s.handleTrain)
		r.Get("/predict", s.handlePredict)
		r.Get("/previsoes/semana/{ano_semana}", s.handlePredictionsByWeek)
		r.Get("/metrics/latest", s.handleLatestMetrics)
		r.Get("/municipios", s.handleMunicipalities)
		r.Get("/series/{municipio}", s.handleSeries)
		r.Get("/estatisticas/municipio/{municipio}", s.handleStats)
		r.Get("/relatorio/semanal/{ano_semana}", s.handleWeeklyReport)
		r.Get("/alertas", s.handleListAlerts)
		r.Post("/alertas/enviar", s.handleSendAlerts)
	})

	return s
}

// Router exposes the handler for httptest
func (s *Server) Router() http.Handler {
	return s.router
}

// handleHealth reports service, database and model status. The endpoint
// stays 200 so orchestrators keep routing; degraded parts are flagged in
// the body.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "ok"
	if err := s.repo.Ping(r.Context()); err != nil {
		dbStatus = "unavailable"
	}

	modelStatus := "ok"
	modelVersion := ""
	if m, err := s.holder.Get(); err != nil {
		modelStatus = "not_trained"
	} else {
		modelVersion = m.Version.String()
	}

	status := "healthy"
	if dbStatus != "ok" || modelStatus != "ok" {
		status = "unhealthy"
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":        status,
		"service":       "malarisk",
		"database":      dbStatus,
		"model":         modelStatus,
		"modelo_versao": modelVersion,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		ctxlog.From(context.Background()).Error("Failed to encode response", "error", err)
	}
}

// writeError writes an error response as {"detail": "..."}
func writeError(w http.ResponseWriter, err error, status int) {
	var message string
	if goErr := goerr.Unwrap(err); goErr != nil {
		message = goErr.Error()
	} else {
		message = err.Error()
	}
	writeJSON(w, status, map[string]string{"detail": message})
}

// handleError maps domain sentinel errors to HTTP status codes
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrMunicipalityNotFound),
		errors.Is(err, model.ErrSeriesNotFound),
		errors.Is(err, model.ErrPredictionNotFound),
		errors.Is(err, model.ErrMetricsNotFound):
		writeError(w, err, http.StatusNotFound)
	case errors.Is(err, model.ErrModelNotTrained),
		errors.Is(err, model.ErrNoTrainingData):
		writeError(w, err, http.StatusBadRequest)
	default:
		ctxlog.From(r.Context()).Error("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, err, http.StatusInternalServerError)
	}
}
