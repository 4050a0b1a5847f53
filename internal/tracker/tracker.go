// Package tracker runs the position poll loop: it fetches samples,
// derives distance and speed estimates against the previous sample,
// optionally enriches the result with place and weather, and hands every
// result to its sinks.
package tracker

import (
	"context"
	"errors"
	"time"

	"github.com/signalsfoundry/orbit-tracker/internal/logging"
	"github.com/signalsfoundry/orbit-tracker/model"
	"github.com/signalsfoundry/orbit-tracker/timectrl"
)

var (
	// ErrFetch wraps position provider failures. The tick is aborted and
	// history is left untouched.
	ErrFetch = errors.New("fetch position")
	// ErrLookup wraps place or weather failures. Enrichment is skipped for
	// the tick but the result is still emitted.
	ErrLookup = errors.New("enrichment lookup")
)

// PositionProvider returns the current position. Implementations fill
// Coordinates and FeedTime; the loop stamps LocalTime.
type PositionProvider interface {
	Fetch(ctx context.Context) (model.Sample, error)
}

// PlaceResolver maps coordinates to a place name. ok is false when the
// position is not over a named place, which is not an error.
type PlaceResolver interface {
	Resolve(ctx context.Context, c model.Coordinates) (place string, ok bool, err error)
}

// WeatherProvider returns current conditions for a place.
type WeatherProvider interface {
	Lookup(ctx context.Context, place string) (model.WeatherSummary, error)
}

// Sink receives every successful tick result.
type Sink interface {
	Emit(ctx context.Context, r model.Result)
}

// FailureSink is implemented by sinks that also want to hear about ticks
// aborted by a fetch failure.
type FailureSink interface {
	TickFailed(ctx context.Context, err error)
}

// MetricsRecorder receives per-tick measurements.
type MetricsRecorder interface {
	ObserveTick(outcome string, d time.Duration)
	IncLookupError(collaborator string)
	SetMotion(m model.Motion)
}

// Params are the estimator settings of a Loop.
type Params struct {
	EarthRadiusKm   float64
	NominalInterval time.Duration
	LearningRate    float64
	SpeedReport     model.SpeedReport
}

// Option customises Loop construction.
type Option func(*Loop)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c timectrl.Clock) Option {
	return func(l *Loop) {
		if c != nil {
			l.clock = c
		}
	}
}

// WithLogger sets the base logger; each tick derives a child carrying tick_id.
func WithLogger(log logging.Logger) Option {
	return func(l *Loop) {
		if log != nil {
			l.log = log
		}
	}
}

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(l *Loop) {
		l.metrics = m
	}
}

// WithSinks appends result sinks. Sinks are called in order.
func WithSinks(sinks ...Sink) Option {
	return func(l *Loop) {
		for _, s := range sinks {
			if s != nil {
				l.sinks = append(l.sinks, s)
			}
		}
	}
}

// WithEnrichment enables place resolution and, when weather is non-nil,
// weather lookup for resolved places.
func WithEnrichment(places PlaceResolver, weather WeatherProvider) Option {
	return func(l *Loop) {
		l.places = places
		l.weather = weather
	}
}

// WithTimeouts bounds each collaborator call. Non-positive values keep the
// defaults.
func WithTimeouts(fetch, lookup time.Duration) Option {
	return func(l *Loop) {
		if fetch > 0 {
			l.fetchTimeout = fetch
		}
		if lookup > 0 {
			l.lookupTimeout = lookup
		}
	}
}
