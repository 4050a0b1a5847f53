package core

import (
	"errors"
	"math"

	"github.com/signalsfoundry/orbit-tracker/model"
)

// ErrDegenerateInterval is returned when a speed is requested over an
// interval that is zero, negative or not finite.
var ErrDegenerateInterval = errors.New("degenerate interval")

// SpeedOver divides distanceKm by deltaSeconds, refusing intervals that
// would yield an infinite, NaN or negative speed.
func SpeedOver(distanceKm, deltaSeconds float64) (model.Speed, error) {
	if !(deltaSeconds > 0) || math.IsInf(deltaSeconds, 0) {
		return model.Speed{}, ErrDegenerateInterval
	}
	v := distanceKm / deltaSeconds
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return model.Speed{}, ErrDegenerateInterval
	}
	return model.SpeedOf(v), nil
}
