package core

import (
	"errors"
	"fmt"
	"math"

	"github.com/signalsfoundry/orbit-tracker/model"
)

// EarthRadiusKm is the default mean Earth radius (kilometres).
const EarthRadiusKm = 6371.0

// ErrInvalidRadius is returned for a non-positive or non-finite sphere radius.
var ErrInvalidRadius = errors.New("invalid earth radius")

// DistanceCalculator computes great-circle distances on a sphere of a
// fixed radius. The zero value is not usable; see NewDistanceCalculator.
type DistanceCalculator struct {
	radiusKm float64
}

// NewDistanceCalculator returns a calculator for a sphere of radiusKm.
func NewDistanceCalculator(radiusKm float64) (DistanceCalculator, error) {
	if radiusKm <= 0 || math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) {
		return DistanceCalculator{}, fmt.Errorf("%w: %v", ErrInvalidRadius, radiusKm)
	}
	return DistanceCalculator{radiusKm: radiusKm}, nil
}

// RadiusKm returns the sphere radius used by the calculator.
func (c DistanceCalculator) RadiusKm() float64 { return c.radiusKm }

// DistanceKm returns the haversine distance between a and b in kilometres.
// Inputs outside the geodetic ranges give undefined results; validate them
// with model.Coordinates.Validate first.
func (c DistanceCalculator) DistanceKm(a, b model.Coordinates) float64 {
	lat1 := degreesToRadians(a.Latitude)
	lat2 := degreesToRadians(b.Latitude)
	dLat := lat2 - lat1
	dLon := degreesToRadians(b.Longitude) - degreesToRadians(a.Longitude)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	// Rounding can push h just past 1 for antipodal points.
	if h > 1 {
		h = 1
	} else if h < 0 {
		h = 0
	}

	return 2 * c.radiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// MaxDistanceKm is half the great circle, the largest value DistanceKm returns.
func (c DistanceCalculator) MaxDistanceKm() float64 {
	return math.Pi * c.radiusKm
}

func degreesToRadians(d float64) float64 {
	return d * math.Pi / 180
}

func radiansToDegrees(r float64) float64 {
	return r * 180 / math.Pi
}
