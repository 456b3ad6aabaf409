package model

import (
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/vigilancia-bie/malarisk/pkg/domain/types"
)

// Alert is the audit record of one dispatched risk alert for a
// municipality-week.
type Alert struct {
	ID               types.AlertID
	MunicipalityID   types.MunicipalityID
	MunicipalityName string
	Week             types.EpiWeek
	RiskClass        types.RiskClass
	RiskScore        float64
	Recipients       []string
	Subject          string
	Status           types.AlertStatus
	SentAt           time.Time
}

// NewAlert creates an alert audit record from a prediction
func NewAlert(p *Prediction, recipients []string, status types.AlertStatus) (*Alert, error) {
	if p == nil {
		return nil, goerr.New("prediction is nil")
	}
	if len(recipients) == 0 {
		return nil, goerr.New("at least one recipient is required")
	}

	return &Alert{
		ID:               types.NewAlertID(),
		MunicipalityID:   p.MunicipalityID,
		MunicipalityName: p.MunicipalityName,
		Week:             p.Week,
		RiskClass:        p.RiskClass,
		RiskScore:        p.RiskScore,
		Recipients:       recipients,
		Subject:          fmt.Sprintf("Alerta de risco de malária - %s - %s", p.MunicipalityName, p.Week),
		Status:           status,
		SentAt:           time.Now(),
	}, nil
}

// AlertReport is the composed weekly report handed to notifiers
type AlertReport struct {
	Week        types.EpiWeek
	Level       types.RiskClass
	Message     string
	Predictions []*Prediction
	HighRisk    []*Prediction
	MediumRisk  []*Prediction
	LowRisk     []*Prediction
	GeneratedAt time.Time
}

// Subject returns the severity-prefixed email subject for the report
func (r *AlertReport) Subject() string {
	switch r.Level {
	case types.RiskHigh:
		return fmt.Sprintf("ALERTA ALTO: %d município(s) com risco alto de malária - semana %s", len(r.HighRisk), r.Week)
	case types.RiskMedium:
		return fmt.Sprintf("ALERTA MÉDIO: %d município(s) com risco médio de malária - semana %s", len(r.MediumRisk), r.Week)
	default:
		return fmt.Sprintf("Relatório de risco de malária - semana %s", r.Week)
	}
}

// Recommendations derives the action list included in alert messages
func (r *AlertReport) Recommendations() []string {
	var recs []string

	if n := len(r.HighRisk); n > 0 {
		recs = append(recs,
			fmt.Sprintf("Intensificar ações de prevenção em %d município(s) com alto risco", n),
			"Distribuir mosquiteiros e repelentes nas áreas de maior risco",
			"Aumentar a vigilância epidemiológica",
		)
	}
	if n := len(r.MediumRisk); n > 0 {
		recs = append(recs,
			fmt.Sprintf("Monitorar de perto %d município(s) com risco médio", n),
			"Preparar recursos para possível escalada do risco",
		)
	}
	if n := len(r.LowRisk); n > 0 {
		recs = append(recs,
			fmt.Sprintf("Manter ações preventivas básicas em %d município(s) com baixo risco", n))
	}

	recs = append(recs,
		"Verificar estoque de medicamentos antimaláricos",
		"Capacitar equipes de saúde para diagnóstico precoce",
	)
	return recs
}

// ComposeAlertReport groups predictions by risk class and grades the overall
// alert level: alto when at least half the municipalities are high risk,
// medio when at least a quarter are, baixo otherwise.
func ComposeAlertReport(week types.EpiWeek, predictions []*Prediction, now time.Time) *AlertReport {
	r := &AlertReport{
		Week:        week,
		Predictions: predictions,
		GeneratedAt: now,
	}

	for _, p := range predictions {
		switch p.RiskClass {
		case types.RiskHigh:
			r.HighRisk = append(r.HighRisk, p)
		case types.RiskMedium:
			r.MediumRisk = append(r.MediumRisk, p)
		default:
			r.LowRisk = append(r.LowRisk, p)
		}
	}

	total := len(predictions)
	highPct := 0.0
	if total > 0 {
		highPct = float64(len(r.HighRisk)) / float64(total) * 100
	}

	switch {
	case highPct >= 50:
		r.Level = types.RiskHigh
		r.Message = fmt.Sprintf("ALERTA CRÍTICO: %.1f%% dos municípios em alto risco", highPct)
	case highPct >= 25:
		r.Level = types.RiskMedium
		r.Message = fmt.Sprintf("ALERTA MODERADO: %.1f%% dos municípios em alto risco", highPct)
	case len(r.HighRisk) > 0:
		r.Level = types.RiskLow
		r.Message = fmt.Sprintf("ALERTA BAIXO: %d município(s) em alto risco", len(r.HighRisk))
	default:
		r.Level = types.RiskLow
		r.Message = "Situação controlada - nenhum município em alto risco"
	}

	return r
}
