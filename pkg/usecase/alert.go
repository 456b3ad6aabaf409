package usecase

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/vigilancia-bie/malarisk/pkg/domain/interfaces"
	"github.com/vigilancia-bie/malarisk/pkg/domain/model"
	"github.com/vigilancia-bie/malarisk/pkg/domain/types"
	"github.com/vigilancia-bie/malarisk/pkg/observability"
	"github.com/vigilancia-bie/malarisk/pkg/utils/apperr"
)

// DefaultAlertThreshold is the risk score above which an alert always
// fires, regardless of the predicted class.
const DefaultAlertThreshold = 0.7

// Alert implements AlertUseCase
type Alert struct {
	repo       interfaces.Repository
	predict    PredictUseCase
	notifiers  []interfaces.Notifier
	recipients []string
	threshold  float64
	clock      clockwork.Clock
	metrics    *observability.Metrics
}

// NewAlert creates a new Alert use case. The threshold falls back to
// DefaultAlertThreshold when non-positive.
func NewAlert(repo interfaces.Repository, predict PredictUseCase, notifiers []interfaces.Notifier, recipients []string, threshold float64, clock clockwork.Clock, metrics *observability.Metrics) *Alert {
	if threshold <= 0 {
		threshold = DefaultAlertThreshold
	}
	return &Alert{
		repo:       repo,
		predict:    predict,
		notifiers:  notifiers,
		recipients: recipients,
		threshold:  threshold,
		clock:      clock,
		metrics:    metrics,
	}
}

// alertable reports whether a forecast warrants notification: a risk score
// at or above the threshold, or a predicted class of medio or alto.
func (a *Alert) alertable(p *model.Prediction) bool {
	if p.RiskScore >= a.threshold {
		return true
	}
	return p.RiskClass == types.RiskHigh || p.RiskClass == types.RiskMedium
}

// RunCheck evaluates next week's forecasts and dispatches alerts when any
// municipality crosses the threshold. Every dispatched alert leaves an
// audit record.
func (a *Alert) RunCheck(ctx context.Context) (*model.AlertReport, error) {
	logger := ctxlog.From(ctx)
	a.metrics.AlertChecksTotal.Inc()

	week := types.EpiWeekOf(a.clock.Now()).Next()
	preds, err := a.repo.ListPredictionsByWeek(ctx, week)
	if err != nil {
		return nil, err
	}
	if len(preds) == 0 {
		// Cold path: no stored forecasts yet, produce them now
		preds, err = a.predict.PredictAll(ctx)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to produce forecasts for alert check")
		}
	}
	if len(preds) == 0 {
		return nil, goerr.Wrap(model.ErrPredictionNotFound, "no forecasts available",
			goerr.V("week", week))
	}

	report := model.ComposeAlertReport(week, preds, a.clock.Now())
	a.metrics.MunicipalitiesAtRisk.Set(float64(len(report.HighRisk)))

	var alertable []*model.Prediction
	for _, p := range preds {
		if a.alertable(p) {
			alertable = append(alertable, p)
		}
	}
	if len(alertable) == 0 {
		logger.Info("Alert check completed, nothing above threshold",
			"week", week,
			"forecasts", len(preds),
			"threshold", a.threshold,
		)
		return report, nil
	}

	if len(a.notifiers) == 0 {
		logger.Warn("Municipalities above threshold but no alert channel configured",
			"week", week, "alertable", len(alertable))
		return report, nil
	}

	status := a.dispatch(ctx, report)

	// Audit recipients: configured addresses, or channel names when the
	// alert went out over non-email channels only.
	recipients := a.recipients
	if len(recipients) == 0 {
		for _, n := range a.notifiers {
			recipients = append(recipients, n.Name())
		}
	}

	for _, p := range alertable {
		rec, err := model.NewAlert(p, recipients, status)
		if err != nil {
			return nil, err
		}
		if err := a.repo.InsertAlert(ctx, rec); err != nil {
			return nil, err
		}
	}

	logger.Info("Alert check completed",
		"week", week,
		"forecasts", len(preds),
		"alerted", len(alertable),
		"level", report.Level,
		"status", status,
	)
	return report, nil
}

// dispatch fans the report out to every notifier. The audit status is
// "enviado" when at least one channel succeeds.
func (a *Alert) dispatch(ctx context.Context, report *model.AlertReport) types.AlertStatus {
	delivered := false
	for _, n := range a.notifiers {
		if err := n.SendAlertReport(ctx, report); err != nil {
			a.metrics.AlertsSentTotal.WithLabelValues(n.Name(), "error").Inc()
			apperr.Handle(ctx, goerr.Wrap(err, "failed to send alert", goerr.V("channel", n.Name())))
			continue
		}
		a.metrics.AlertsSentTotal.WithLabelValues(n.Name(), "success").Inc()
		delivered = true
	}

	if !delivered {
		return types.AlertStatusFailed
	}
	return types.AlertStatusSent
}

// ListAlerts returns the alert audit log, newest first
func (a *Alert) ListAlerts(ctx context.Context, limit int) ([]*model.Alert, error) {
	return a.repo.ListAlerts(ctx, limit)
}

var _ AlertUseCase = (*Alert)(nil)
