package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/orbit-tracker/model"
)

// Tick outcomes and speed bases used as label values.
const (
	OutcomeOK         = "ok"
	OutcomeFetchError = "fetch_error"

	BasisFeed      = "feed"
	BasisLocal     = "local"
	BasisCorrected = "corrected"

	CollaboratorGeocoder = "geocoder"
	CollaboratorWeather  = "weather"
)

// TrackerCollector bundles Prometheus metrics for the poll loop.
type TrackerCollector struct {
	gatherer prometheus.Gatherer

	Ticks         *prometheus.CounterVec
	TickDurations prometheus.Histogram
	LookupErrors  *prometheus.CounterVec
	Indeterminate *prometheus.CounterVec

	DistanceKm   prometheus.Gauge
	Speeds       *prometheus.GaugeVec
	DriftBias    prometheus.Gauge
	IntervalsSec *prometheus.GaugeVec
}

// NewTrackerCollector registers tracker metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewTrackerCollector(reg prometheus.Registerer) (*TrackerCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	ticks, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_ticks_total",
		Help: "Poll loop ticks, labeled by outcome.",
	}, []string{"outcome"}), "tracker_ticks_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tracker_tick_duration_seconds",
		Help:    "Wall-clock time spent executing one tick, including collaborator calls.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}), "tracker_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	lookups, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_lookup_errors_total",
		Help: "Failed enrichment lookups, labeled by collaborator.",
	}, []string{"collaborator"}), "tracker_lookup_errors_total")
	if err != nil {
		return nil, err
	}

	indeterminate, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_indeterminate_speeds_total",
		Help: "Speed estimates that could not be computed because their interval was degenerate.",
	}, []string{"basis"}), "tracker_indeterminate_speeds_total")
	if err != nil {
		return nil, err
	}

	distance, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_distance_km",
		Help: "Great-circle distance between the last two accepted samples.",
	}), "tracker_distance_km")
	if err != nil {
		return nil, err
	}

	speeds, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tracker_speed_km_per_second",
		Help: "Latest speed estimate, labeled by the interval it was computed over.",
	}, []string{"basis"}), "tracker_speed_km_per_second")
	if err != nil {
		return nil, err
	}

	bias, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_drift_bias_seconds",
		Help: "Accumulated timing bias of the drift estimator.",
	}), "tracker_drift_bias_seconds")
	if err != nil {
		return nil, err
	}

	intervals, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tracker_interval_seconds",
		Help: "Latest sampling interval, labeled by how it was measured.",
	}, []string{"kind"}), "tracker_interval_seconds")
	if err != nil {
		return nil, err
	}

	return &TrackerCollector{
		gatherer:      gatherer,
		Ticks:         ticks,
		TickDurations: durations,
		LookupErrors:  lookups,
		Indeterminate: indeterminate,
		DistanceKm:    distance,
		Speeds:        speeds,
		DriftBias:     bias,
		IntervalsSec:  intervals,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *TrackerCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveTick counts a tick with its outcome and records its duration.
func (c *TrackerCollector) ObserveTick(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.Ticks.WithLabelValues(outcome).Inc()
	c.TickDurations.Observe(d.Seconds())
}

// IncLookupError counts a failed enrichment call.
func (c *TrackerCollector) IncLookupError(collaborator string) {
	if c == nil {
		return
	}
	c.LookupErrors.WithLabelValues(collaborator).Inc()
}

// SetMotion publishes the derived values of one warm tick. Indeterminate
// speeds are counted and leave their gauge untouched.
func (c *TrackerCollector) SetMotion(m model.Motion) {
	if c == nil {
		return
	}
	c.DistanceKm.Set(m.DistanceKm)
	c.IntervalsSec.WithLabelValues(BasisFeed).Set(float64(m.FeedDeltaSeconds))
	c.IntervalsSec.WithLabelValues(BasisLocal).Set(m.LocalDeltaSeconds)

	c.setSpeed(BasisLocal, m.LocalSpeed)
	if m.Report == model.SpeedReportLocal {
		return
	}
	c.IntervalsSec.WithLabelValues(BasisCorrected).Set(m.CorrectedDeltaSeconds)
	c.DriftBias.Set(m.BiasSeconds)
	c.setSpeed(BasisFeed, m.FeedSpeed)
	c.setSpeed(BasisCorrected, m.CorrectedSpeed)
}

func (c *TrackerCollector) setSpeed(basis string, s model.Speed) {
	if !s.Valid {
		c.Indeterminate.WithLabelValues(basis).Inc()
		return
	}
	c.Speeds.WithLabelValues(basis).Set(s.KmPerSecond)
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
