package core

import (
	"errors"
	"math"
	"testing"
)

func TestDriftEstimator_FirstUpdate(t *testing.T) {
	est, err := NewDriftEstimator(5, 0.1)
	if err != nil {
		t.Fatalf("NewDriftEstimator: %v", err)
	}
	if est.Bias() != 0 {
		t.Fatalf("initial bias = %v, want 0", est.Bias())
	}

	corrected := est.Update(5.2)
	if math.Abs(est.Bias()-0.02) > 1e-12 {
		t.Fatalf("bias = %v, want 0.02", est.Bias())
	}
	if math.Abs(corrected-5.02) > 1e-12 {
		t.Fatalf("corrected = %v, want 5.02", corrected)
	}
}

func TestDriftEstimator_SecondUpdateSmoothsTowardError(t *testing.T) {
	est, err := NewDriftEstimator(5, 0.1)
	if err != nil {
		t.Fatalf("NewDriftEstimator: %v", err)
	}

	est.Update(5.2)
	corrected := est.Update(5.2)
	// 0.02 + 0.1*(0.2-0.02)
	if math.Abs(est.Bias()-0.038) > 1e-12 {
		t.Fatalf("bias = %v, want 0.038", est.Bias())
	}
	if math.Abs(corrected-5.038) > 1e-12 {
		t.Fatalf("corrected = %v, want 5.038", corrected)
	}
}

func TestDriftEstimator_ZeroErrorKeepsZeroBias(t *testing.T) {
	est, err := NewDriftEstimator(5, 0.1)
	if err != nil {
		t.Fatalf("NewDriftEstimator: %v", err)
	}
	for i := 0; i < 100; i++ {
		if got := est.Update(5); got != 5 {
			t.Fatalf("tick %d: corrected = %v, want 5", i, got)
		}
	}
	if est.Bias() != 0 {
		t.Fatalf("bias = %v, want 0", est.Bias())
	}
}

func TestDriftEstimator_ConvergesTowardConstantOffset(t *testing.T) {
	const (
		nominal = 5.0
		offset  = 0.3
		rate    = 0.1
	)
	est, err := NewDriftEstimator(nominal, rate)
	if err != nil {
		t.Fatalf("NewDriftEstimator: %v", err)
	}

	prevGap := offset
	for i := 0; i < 200; i++ {
		corrected := est.Update(nominal + offset)
		gap := math.Abs(offset - est.Bias())
		if want := prevGap * (1 - rate); math.Abs(gap-want) > 1e-9 {
			t.Fatalf("tick %d: gap = %v, want geometric shrink to %v", i, gap, want)
		}
		if math.Abs(corrected-(nominal+est.Bias())) > 1e-12 {
			t.Fatalf("tick %d: corrected = %v, want nominal+bias = %v", i, corrected, nominal+est.Bias())
		}
		prevGap = gap
	}
	if prevGap > 1e-6 {
		t.Fatalf("bias did not converge: |offset-bias| = %v", prevGap)
	}
}

func TestDriftEstimator_TracksNegativeOffset(t *testing.T) {
	est, err := NewDriftEstimator(5, 0.5)
	if err != nil {
		t.Fatalf("NewDriftEstimator: %v", err)
	}
	for i := 0; i < 60; i++ {
		est.Update(4.5)
	}
	if math.Abs(est.Bias()+0.5) > 1e-9 {
		t.Fatalf("bias = %v, want ≈ -0.5", est.Bias())
	}
}

func TestDriftEstimator_RejectsInvalidParameters(t *testing.T) {
	tests := []struct {
		name    string
		nominal float64
		rate    float64
		want    error
	}{
		{"zero nominal", 0, 0.1, ErrInvalidNominalInterval},
		{"negative nominal", -5, 0.1, ErrInvalidNominalInterval},
		{"nan nominal", math.NaN(), 0.1, ErrInvalidNominalInterval},
		{"zero rate", 5, 0, ErrInvalidLearningRate},
		{"unit rate", 5, 1, ErrInvalidLearningRate},
		{"negative rate", 5, -0.1, ErrInvalidLearningRate},
		{"nan rate", 5, math.NaN(), ErrInvalidLearningRate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewDriftEstimator(tt.nominal, tt.rate); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}
