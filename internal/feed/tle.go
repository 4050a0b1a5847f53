package feed

import (
	"context"

	"github.com/signalsfoundry/orbit-tracker/core"
	"github.com/signalsfoundry/orbit-tracker/model"
	"github.com/signalsfoundry/orbit-tracker/timectrl"
)

// TLE is an offline position source that propagates a two-line element
// set to the clock's current time. The feed timestamp is the whole
// second of that time, matching what network feeds report.
type TLE struct {
	orbit *core.OrbitalModel
	clock timectrl.Clock
}

// NewTLE builds a propagated source. A nil clock means the wall clock.
func NewTLE(line1, line2 string, clock timectrl.Clock) (*TLE, error) {
	m, err := core.NewOrbitalModelFromTLE(line1, line2)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = timectrl.System()
	}
	return &TLE{orbit: m, clock: clock}, nil
}

// Fetch implements tracker.PositionProvider.
func (t *TLE) Fetch(ctx context.Context) (model.Sample, error) {
	if err := ctx.Err(); err != nil {
		return model.Sample{}, err
	}
	now := t.clock.Now()
	c, err := t.orbit.Position(now)
	if err != nil {
		return model.Sample{}, err
	}
	return model.Sample{Coordinates: c, FeedTime: now.Unix()}, nil
}
