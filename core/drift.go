package core

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidNominalInterval is returned for a non-positive nominal interval.
	ErrInvalidNominalInterval = errors.New("nominal interval must be positive")
	// ErrInvalidLearningRate is returned for a learning rate outside (0,1).
	ErrInvalidLearningRate = errors.New("learning rate must be in (0,1)")
)

// DefaultLearningRate is the fraction of each observed error folded into the bias.
const DefaultLearningRate = 0.1

// DriftEstimator tracks the systematic difference between the nominal
// polling interval and the wall-clock interval actually observed between
// ticks, as a first-order exponential smoothing of the error.
//
// It is not safe for concurrent use; the poll loop is its only writer.
type DriftEstimator struct {
	nominal      float64
	learningRate float64
	bias         float64
}

// NewDriftEstimator builds an estimator with zero accumulated bias.
// nominalSeconds must be positive and learningRate in (0,1).
func NewDriftEstimator(nominalSeconds, learningRate float64) (*DriftEstimator, error) {
	if !(nominalSeconds > 0) || math.IsInf(nominalSeconds, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNominalInterval, nominalSeconds)
	}
	if !(learningRate > 0 && learningRate < 1) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLearningRate, learningRate)
	}
	return &DriftEstimator{nominal: nominalSeconds, learningRate: learningRate}, nil
}

// Update folds one measured interval into the bias and returns the
// corrected interval estimate (nominal + bias).
//
// The bias moves a learningRate fraction of the way toward the observed
// error, so a constant offset is approached geometrically with factor
// (1 - learningRate) per call. From a zero bias the first call adds
// learningRate * observed.
func (e *DriftEstimator) Update(measuredSeconds float64) float64 {
	observed := measuredSeconds - e.nominal
	e.bias += e.learningRate * (observed - e.bias)
	return e.nominal + e.bias
}

// Bias returns the accumulated timing bias in seconds.
func (e *DriftEstimator) Bias() float64 { return e.bias }

// Nominal returns the configured nominal interval in seconds.
func (e *DriftEstimator) Nominal() float64 { return e.nominal }

// LearningRate returns the smoothing factor.
func (e *DriftEstimator) LearningRate() float64 { return e.learningRate }
