package core

import (
	"errors"
	"fmt"
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/orbit-tracker/model"
)

// ErrPropagation is returned when SGP4 cannot produce a usable position.
var ErrPropagation = errors.New("orbit propagation failed")

// OrbitalModel uses a TLE and SGP4 to compute a satellite's sub-point.
type OrbitalModel struct {
	sat satellite.Satellite
}

// NewOrbitalModelFromTLE constructs an orbital model from TLE lines.
func NewOrbitalModelFromTLE(line1, line2 string) (*OrbitalModel, error) {
	if line1 == "" || line2 == "" {
		return nil, fmt.Errorf("%w: empty TLE line", ErrPropagation)
	}
	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)
	return &OrbitalModel{sat: sat}, nil
}

// Position propagates the satellite to t and returns the geodetic latitude
// and longitude beneath it. go-satellite works in kilometres and radians.
func (m *OrbitalModel) Position(t time.Time) (model.Coordinates, error) {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	posECI, _ := satellite.Propagate(m.sat, year, int(month), day, hour, min, sec)
	if posECI.X == 0 && posECI.Y == 0 && posECI.Z == 0 {
		return model.Coordinates{}, fmt.Errorf("%w: zero position vector", ErrPropagation)
	}

	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(jd)
	_, _, lla := satellite.ECIToLLA(posECI, gmst)

	c := model.Coordinates{
		Latitude:  radiansToDegrees(lla.Latitude),
		Longitude: normalizeLongitude(radiansToDegrees(lla.Longitude)),
	}
	if err := c.Validate(); err != nil {
		return model.Coordinates{}, fmt.Errorf("%w: %v", ErrPropagation, err)
	}
	return c, nil
}

// normalizeLongitude wraps any angle in degrees into [-180, 180].
func normalizeLongitude(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}
