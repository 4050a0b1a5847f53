package core

import (
	"errors"
	"testing"
	"time"
)

// ISS sample TLE (epoch 2021-10-02).
const (
	issTLE1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	issTLE2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"
)

// We don't assert exact orbital values (those belong to go-satellite);
// we check ranges and that the sub-point moves at orbital ground speed.
func TestOrbitalModel_PositionWithinInclination(t *testing.T) {
	m, err := NewOrbitalModelFromTLE(issTLE1, issTLE2)
	if err != nil {
		t.Fatalf("NewOrbitalModelFromTLE: %v", err)
	}

	start := time.Date(2021, 10, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 90; i++ {
		pos, err := m.Position(start.Add(time.Duration(i) * time.Minute))
		if err != nil {
			t.Fatalf("Position minute %d: %v", i, err)
		}
		if err := pos.Validate(); err != nil {
			t.Fatalf("Position minute %d invalid: %v", i, err)
		}
		if pos.Latitude > 52 || pos.Latitude < -52 {
			t.Fatalf("minute %d latitude %v exceeds ISS inclination", i, pos.Latitude)
		}
	}
}

func TestOrbitalModel_GroundSpeed(t *testing.T) {
	m, err := NewOrbitalModelFromTLE(issTLE1, issTLE2)
	if err != nil {
		t.Fatalf("NewOrbitalModelFromTLE: %v", err)
	}
	calc := mustCalculator(t, EarthRadiusKm)

	t1 := time.Date(2021, 10, 2, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(10 * time.Second)
	a, err := m.Position(t1)
	if err != nil {
		t.Fatalf("Position t1: %v", err)
	}
	b, err := m.Position(t2)
	if err != nil {
		t.Fatalf("Position t2: %v", err)
	}

	speed := calc.DistanceKm(a, b) / 10
	if speed < 6 || speed > 8.5 {
		t.Fatalf("ground speed = %.2f km/s, want roughly 7 km/s", speed)
	}
}

func TestNewOrbitalModelFromTLE_RejectsEmpty(t *testing.T) {
	if _, err := NewOrbitalModelFromTLE("", issTLE2); !errors.Is(err, ErrPropagation) {
		t.Fatalf("err = %v, want ErrPropagation", err)
	}
}

func TestNormalizeLongitude(t *testing.T) {
	tests := map[float64]float64{
		0:    0,
		190:  -170,
		-190: 170,
		540:  180 - 360,
		359:  -1,
		-720: 0,
	}
	for in, want := range tests {
		if got := normalizeLongitude(in); got != want {
			t.Fatalf("normalizeLongitude(%v) = %v, want %v", in, got, want)
		}
	}
}
