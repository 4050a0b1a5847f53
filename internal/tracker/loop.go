package tracker

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/orbit-tracker/core"
	"github.com/signalsfoundry/orbit-tracker/internal/logging"
	"github.com/signalsfoundry/orbit-tracker/internal/observability"
	"github.com/signalsfoundry/orbit-tracker/model"
	"github.com/signalsfoundry/orbit-tracker/timectrl"
)

const (
	defaultFetchTimeout  = 4 * time.Second
	defaultLookupTimeout = 5 * time.Second
)

// Loop owns the sample history and drift estimator. Only the goroutine
// calling Tick or Run may touch them.
type Loop struct {
	provider PositionProvider
	places   PlaceResolver
	weather  WeatherProvider
	sinks    []Sink
	metrics  MetricsRecorder
	clock    timectrl.Clock
	log      logging.Logger

	distance  core.DistanceCalculator
	estimator *core.DriftEstimator
	history   core.SampleHistory
	interval  time.Duration
	report    model.SpeedReport

	fetchTimeout  time.Duration
	lookupTimeout time.Duration

	ticks uint64
}

// NewLoop validates p and builds a Loop polling provider.
func NewLoop(provider PositionProvider, p Params, opts ...Option) (*Loop, error) {
	if provider == nil {
		return nil, fmt.Errorf("tracker: position provider is required")
	}
	distance, err := core.NewDistanceCalculator(p.EarthRadiusKm)
	if err != nil {
		return nil, err
	}
	estimator, err := core.NewDriftEstimator(p.NominalInterval.Seconds(), p.LearningRate)
	if err != nil {
		return nil, err
	}
	report := p.SpeedReport
	switch report {
	case "":
		report = model.SpeedReportFull
	case model.SpeedReportFull, model.SpeedReportLocal:
	default:
		return nil, fmt.Errorf("tracker: unknown speed report %q", report)
	}

	l := &Loop{
		provider:      provider,
		clock:         timectrl.System(),
		log:           logging.Noop(),
		distance:      distance,
		estimator:     estimator,
		interval:      p.NominalInterval,
		report:        report,
		fetchTimeout:  defaultFetchTimeout,
		lookupTimeout: defaultLookupTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l, nil
}

// History reports whether a previous sample is held.
func (l *Loop) History() core.HistoryState { return l.history.State() }

// Bias returns the drift estimator's current bias in seconds.
func (l *Loop) Bias() float64 { return l.estimator.Bias() }

// Run ticks until ctx is cancelled. Ticks start on the boundaries
// start + k*interval; a tick that overruns skips to the next boundary still
// in the future. Cancellation is observed between ticks, so an in-flight
// tick always completes. Run returns nil on cancellation.
func (l *Loop) Run(ctx context.Context) error {
	start := l.clock.Now()
	l.log.Info(ctx, "poll loop started",
		logging.Duration("interval", l.interval),
		logging.String("speed_report", string(l.report)),
		logging.Float64("earth_radius_km", l.distance.RadiusKm()),
		logging.Float64("learning_rate", l.estimator.LearningRate()),
	)
	for ctx.Err() == nil {
		// Failures are logged and counted inside Tick.
		_, _ = l.Tick(ctx)

		now := l.clock.Now()
		select {
		case <-ctx.Done():
		case <-l.clock.After(nextBoundary(start, now, l.interval).Sub(now)):
		}
	}
	l.log.Info(context.WithoutCancel(ctx), "poll loop stopped", logging.Uint64("ticks", l.ticks))
	return nil
}

// nextBoundary returns the first start + k*interval strictly after now.
func nextBoundary(start, now time.Time, interval time.Duration) time.Time {
	elapsed := now.Sub(start)
	if elapsed < 0 {
		return start
	}
	k := elapsed/interval + 1
	return start.Add(k * interval)
}

// Tick runs one iteration: fetch, derive motion when warm, advance history,
// enrich and emit. The returned error wraps ErrFetch when the tick was
// aborted; enrichment failures never surface here.
func (l *Loop) Tick(ctx context.Context) (model.Result, error) {
	ctx, log := logging.WithTickLogger(ctx, l.log)
	l.ticks++
	tick := l.ticks

	ctx, span := observability.StartSpan(ctx, "tracker.tick", attribute.Int64("tick", int64(tick)))
	defer span.End()
	started := time.Now()

	sample, err := l.fetch(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrFetch, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		log.Warn(ctx, "position fetch failed; tick skipped",
			logging.Uint64("tick", tick),
			logging.String("history", l.history.State().String()),
			logging.Err(err),
		)
		l.observeTick(observability.OutcomeFetchError, time.Since(started))
		for _, s := range l.sinks {
			if fs, ok := s.(FailureSink); ok {
				fs.TickFailed(ctx, err)
			}
		}
		return model.Result{}, err
	}

	result := model.Result{Tick: tick, Sample: sample}
	if prev, ok := l.history.Previous(); ok {
		m := l.motion(ctx, log, prev, sample)
		result.Motion = &m
		if l.metrics != nil {
			l.metrics.SetMotion(m)
		}
		span.SetAttributes(
			attribute.Float64("distance_km", m.DistanceKm),
			attribute.Float64("local_delta_seconds", m.LocalDeltaSeconds),
		)
	}
	l.history.Advance(sample)

	if l.places != nil {
		l.enrich(ctx, log, &result)
	}

	log.Debug(ctx, "tick complete",
		logging.Uint64("tick", tick),
		logging.String("position", sample.Coordinates.String()),
		logging.Bool("motion", result.Motion != nil),
	)
	l.observeTick(observability.OutcomeOK, time.Since(started))
	for _, s := range l.sinks {
		s.Emit(ctx, result)
	}
	return result, nil
}

func (l *Loop) fetch(ctx context.Context) (model.Sample, error) {
	ctx, span := observability.StartSpan(ctx, "tracker.fetch")
	defer span.End()

	callCtx, cancel := l.callContext(ctx, l.fetchTimeout)
	defer cancel()
	sample, err := l.provider.Fetch(callCtx)
	if err != nil {
		return model.Sample{}, err
	}
	sample.LocalTime = l.clock.Now()
	if err := sample.Coordinates.Validate(); err != nil {
		return model.Sample{}, err
	}
	span.SetAttributes(
		attribute.Float64("latitude", sample.Coordinates.Latitude),
		attribute.Float64("longitude", sample.Coordinates.Longitude),
		attribute.Int64("feed_time", sample.FeedTime),
	)
	return sample, nil
}

func (l *Loop) motion(ctx context.Context, log logging.Logger, prev, cur model.Sample) model.Motion {
	d := l.distance.DistanceKm(prev.Coordinates, cur.Coordinates)
	feedDelta := cur.FeedTime - prev.FeedTime
	localDelta := cur.LocalTime.Sub(prev.LocalTime).Seconds()

	m := model.Motion{
		DistanceKm:        d,
		FeedDeltaSeconds:  feedDelta,
		LocalDeltaSeconds: localDelta,
		Report:            l.report,
	}
	m.LocalSpeed = l.speed(ctx, log, observability.BasisLocal, d, localDelta)
	if l.report == model.SpeedReportLocal {
		return m
	}

	m.CorrectedDeltaSeconds = l.estimator.Update(localDelta)
	m.BiasSeconds = l.estimator.Bias()
	m.FeedSpeed = l.speed(ctx, log, observability.BasisFeed, d, float64(feedDelta))
	m.CorrectedSpeed = l.speed(ctx, log, observability.BasisCorrected, d, m.CorrectedDeltaSeconds)
	return m
}

func (l *Loop) speed(ctx context.Context, log logging.Logger, basis string, distanceKm, deltaSeconds float64) model.Speed {
	s, err := core.SpeedOver(distanceKm, deltaSeconds)
	if err != nil {
		log.Info(ctx, "speed indeterminate",
			logging.String("basis", basis),
			logging.Float64("delta_seconds", deltaSeconds),
			logging.Err(err),
		)
	}
	return s
}

// enrich resolves the place and, if found, its weather. A failure skips
// the rest of enrichment for this tick only.
func (l *Loop) enrich(ctx context.Context, log logging.Logger, r *model.Result) {
	place, ok, err := l.resolve(ctx, r.Sample.Coordinates)
	if err != nil {
		l.lookupFailed(ctx, log, observability.CollaboratorGeocoder, err)
		return
	}
	if !ok {
		log.Debug(ctx, "no place below", logging.String("position", r.Sample.Coordinates.String()))
		return
	}
	r.Place = &place
	if l.weather == nil {
		return
	}

	w, err := l.lookupWeather(ctx, place)
	if err != nil {
		l.lookupFailed(ctx, log, observability.CollaboratorWeather, err)
		return
	}
	r.Weather = &w
}

func (l *Loop) resolve(ctx context.Context, c model.Coordinates) (string, bool, error) {
	ctx, span := observability.StartSpan(ctx, "tracker.geocode")
	defer span.End()
	callCtx, cancel := l.callContext(ctx, l.lookupTimeout)
	defer cancel()

	place, ok, err := l.places.Resolve(callCtx, c)
	if err != nil {
		recordSpanError(span, err)
		return "", false, err
	}
	span.SetAttributes(attribute.Bool("resolved", ok))
	return place, ok, nil
}

func (l *Loop) lookupWeather(ctx context.Context, place string) (model.WeatherSummary, error) {
	ctx, span := observability.StartSpan(ctx, "tracker.weather", attribute.String("place", place))
	defer span.End()
	callCtx, cancel := l.callContext(ctx, l.lookupTimeout)
	defer cancel()

	w, err := l.weather.Lookup(callCtx, place)
	if err != nil {
		recordSpanError(span, err)
		return model.WeatherSummary{}, err
	}
	return w, nil
}

func (l *Loop) lookupFailed(ctx context.Context, log logging.Logger, collaborator string, err error) {
	err = fmt.Errorf("%w: %s: %w", ErrLookup, collaborator, err)
	log.Warn(ctx, "enrichment skipped", logging.String("collaborator", collaborator), logging.Err(err))
	if l.metrics != nil {
		l.metrics.IncLookupError(collaborator)
	}
}

func (l *Loop) observeTick(outcome string, d time.Duration) {
	if l.metrics != nil {
		l.metrics.ObserveTick(outcome, d)
	}
}

// callContext detaches a collaborator call from loop cancellation while
// keeping ctx values, and bounds it by timeout.
func (l *Loop) callContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
