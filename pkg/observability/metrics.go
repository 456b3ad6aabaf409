package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the forecasting
// service.
type Metrics struct {
	TrainingsTotal   *prometheus.CounterVec // labels: outcome={success,error}
	TrainingDuration prometheus.Histogram

	PredictionsTotal *prometheus.CounterVec // labels: risk_class

	AlertChecksTotal     prometheus.Counter
	AlertsSentTotal      *prometheus.CounterVec // labels: channel, outcome={success,error}
	MunicipalitiesAtRisk prometheus.Gauge

	HTTPRequestsTotal *prometheus.CounterVec   // labels: method, path, status
	HTTPDuration      *prometheus.HistogramVec // labels: method, path
}

func newMetrics() *Metrics {
	return &Metrics{
		TrainingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "malarisk",
			Name:      "trainings_total",
			Help:      "Model training runs by outcome.",
		}, []string{"outcome"}),
		TrainingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "malarisk",
			Name:      "training_duration_seconds",
			Help:      "Duration of a complete training run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		PredictionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "malarisk",
			Name:      "predictions_total",
			Help:      "Forecasts produced by predicted risk class.",
		}, []string{"risk_class"}),
		AlertChecksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "malarisk",
			Name:      "alert_checks_total",
			Help:      "Scheduled and manual alert evaluation runs.",
		}),
		AlertsSentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "malarisk",
			Name:      "alerts_sent_total",
			Help:      "Alert deliveries by channel and outcome.",
		}, []string{"channel", "outcome"}),
		MunicipalitiesAtRisk: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "malarisk",
			Name:      "municipalities_at_risk",
			Help:      "Municipalities classified alto in the latest alert check.",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "malarisk",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "path", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "malarisk",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by method and route.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "path"}),
	}
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.TrainingsTotal,
		m.TrainingDuration,
		m.PredictionsTotal,
		m.AlertChecksTotal,
		m.AlertsSentTotal,
		m.MunicipalitiesAtRisk,
		m.HTTPRequestsTotal,
		m.HTTPDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics across tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
