package core

import (
	"errors"
	"math"
	"testing"
)

func TestSpeedOver(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		delta    float64
		want     float64
		wantErr  bool
	}{
		{name: "regular", distance: 111.19, delta: 5, want: 22.238},
		{name: "zero delta", distance: 111.19, delta: 0, wantErr: true},
		{name: "negative delta", distance: 111.19, delta: -1, wantErr: true},
		{name: "nan delta", distance: 1, delta: math.NaN(), wantErr: true},
		{name: "infinite delta", distance: 1, delta: math.Inf(1), wantErr: true},
		{name: "stationary", distance: 0, delta: 5, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SpeedOver(tt.distance, tt.delta)
			if tt.wantErr {
				if !errors.Is(err, ErrDegenerateInterval) {
					t.Fatalf("err = %v, want ErrDegenerateInterval", err)
				}
				if got.Valid {
					t.Fatalf("expected indeterminate speed, got %v", got)
				}
				if got.String() != "indeterminate" {
					t.Fatalf("String() = %q, want indeterminate", got.String())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Valid || math.Abs(got.KmPerSecond-tt.want) > 1e-3 {
				t.Fatalf("SpeedOver = %+v, want %v", got, tt.want)
			}
		})
	}
}
