package model

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for domain operations
var (
	ErrMunicipalityNotFound = goerr.New("municipality not found")
	ErrSeriesNotFound       = goerr.New("weekly series not found")
	ErrPredictionNotFound   = goerr.New("prediction not found")
	ErrMetricsNotFound      = goerr.New("model metrics not found")
	ErrModelNotTrained      = goerr.New("model not trained")
	ErrNoTrainingData       = goerr.New("no training data available")
)
