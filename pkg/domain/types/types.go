package types

import (
	"fmt"

	"github.com/google/uuid"
)

// MunicipalityID represents a municipality identifier
type MunicipalityID int

// Int returns the int representation
func (id MunicipalityID) Int() int {
	return int(id)
}

// String returns the string representation
func (id MunicipalityID) String() string {
	return fmt.Sprintf("%d", id)
}

// ModelVersion represents a trained model version tag
type ModelVersion string

// String returns the string representation
func (v ModelVersion) String() string {
	return string(v)
}

// ModelType represents the classifier family of a trained model
type ModelType string

const (
	ModelTypeRandomForest ModelType = "RandomForest"
)

// String returns the string representation
func (t ModelType) String() string {
	return string(t)
}

// AlertID represents an alert audit record identifier
type AlertID string

// String returns the string representation
func (id AlertID) String() string {
	return string(id)
}

// NewAlertID creates a new AlertID
func NewAlertID() AlertID {
	return AlertID(uuid.New().String())
}

// AlertStatus represents the delivery state of an alert
type AlertStatus string

const (
	AlertStatusSent   AlertStatus = "enviado"
	AlertStatusFailed AlertStatus = "falhou"
)

// String returns the string representation
func (s AlertStatus) String() string {
	return string(s)
}

// RiskClass represents the predicted malaria risk level for a
// municipality-week
type RiskClass string

const (
	RiskLow    RiskClass = "baixo"
	RiskMedium RiskClass = "medio"
	RiskHigh   RiskClass = "alto"
)

// String returns the string representation
func (c RiskClass) String() string {
	return string(c)
}

// IsValid checks if the risk class is one of the known labels
func (c RiskClass) IsValid() bool {
	switch c {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	default:
		return false
	}
}

// Rank returns the ordinal of the class (baixo=0, medio=1, alto=2).
// Unknown classes rank below baixo.
func (c RiskClass) Rank() int {
	switch c {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	default:
		return -1
	}
}

// RiskClasses returns all labels in rank order. The classifier relies on
// this ordering when mapping probability vectors to classes.
func RiskClasses() []RiskClass {
	return []RiskClass{RiskLow, RiskMedium, RiskHigh}
}
