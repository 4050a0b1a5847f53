// Package config loads and validates tracker configuration.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/orbit-tracker/model"
)

// ErrInvalidConfig wraps every validation failure. It is fatal at startup.
var ErrInvalidConfig = errors.New("invalid configuration")

// Feed sources.
const (
	SourceOpenNotify = "opennotify"
	SourceTLE        = "tle"
)

const (
	DefaultEarthRadiusKm          = 6371.0
	DefaultNominalIntervalSeconds = 5.0
	DefaultLearningRate           = 0.1
	DefaultFeedURL                = "http://api.open-notify.org/iss-now.json"
	DefaultGeocoderURL            = "https://nominatim.openstreetmap.org"
	DefaultUserAgent              = "purplemapping"
	DefaultWeatherURL             = "https://wttr.in"
	DefaultMetricsAddr            = ":9090"
	DefaultHealthAddr             = ":50051"
	DefaultFailureThreshold       = 3
	DefaultTracingExporter        = "stdout"
	DefaultTracingServiceName     = "orbit-tracker"
	DefaultTracingSampleRatio     = 1.0
	defaultFeedTimeout            = 4 * time.Second
	defaultLookupTimeout          = 5 * time.Second
)

// Config is the top-level tracker configuration.
type Config struct {
	Tracker       TrackerConfig       `yaml:"tracker"`
	Feed          FeedConfig          `yaml:"feed"`
	Enrichment    EnrichmentConfig    `yaml:"enrichment"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// TrackerConfig holds the estimator parameters.
type TrackerConfig struct {
	EarthRadiusKm          float64           `yaml:"earthRadiusKm"`
	NominalIntervalSeconds float64           `yaml:"nominalIntervalSeconds"`
	LearningRate           float64           `yaml:"learningRate"`
	SpeedReport            model.SpeedReport `yaml:"speedReport"`
}

// NominalInterval returns the nominal interval as a duration.
func (t TrackerConfig) NominalInterval() time.Duration {
	return time.Duration(t.NominalIntervalSeconds * float64(time.Second))
}

// FeedConfig selects and configures the position source.
type FeedConfig struct {
	Source  string        `yaml:"source"`
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	TLE     TLEConfig     `yaml:"tle"`
}

// TLEConfig holds the two-line element set for the offline source.
type TLEConfig struct {
	Line1 string `yaml:"line1"`
	Line2 string `yaml:"line2"`
}

// EnrichmentConfig configures the optional place and weather lookups.
type EnrichmentConfig struct {
	Enabled     *bool         `yaml:"enabled"`
	GeocoderURL string        `yaml:"geocoderURL"`
	UserAgent   string        `yaml:"userAgent"`
	WeatherURL  string        `yaml:"weatherURL"`
	Units       model.Units   `yaml:"units"`
	Timeout     time.Duration `yaml:"timeout"`
}

// IsEnabled reports whether enrichment runs; unset means enabled.
func (e EnrichmentConfig) IsEnabled() bool {
	return e.Enabled == nil || *e.Enabled
}

// ObservabilityConfig configures the operational surfaces.
type ObservabilityConfig struct {
	MetricsAddr            string        `yaml:"metricsAddr"`
	HealthAddr             string        `yaml:"healthAddr"`
	HealthFailureThreshold int           `yaml:"healthFailureThreshold"`
	Tracing                TracingConfig `yaml:"tracing"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Exporter    string  `yaml:"exporter"` // stdout | otlp
	ServiceName string  `yaml:"serviceName"`
	Endpoint    string  `yaml:"endpoint"` // OTLP/gRPC collector, used when Exporter is otlp
	SampleRatio float64 `yaml:"sampleRatio"`
}

// Default returns a Config with every option at its default.
func Default() Config {
	return Config{}.ApplyDefaults()
}

// Load starts from Default, overlays the YAML file at path (an empty path
// skips the file) and then TRACKER_* environment variables, and validates
// the result. A value present in the file or environment is kept as
// written, so an explicit zero is validated rather than defaulted.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse %q: %v", ErrInvalidConfig, path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills zero-valued fields. It backs Default and suits
// configs assembled in code; Load never applies it after reading input.
func (c Config) ApplyDefaults() Config {
	if c.Tracker.EarthRadiusKm == 0 {
		c.Tracker.EarthRadiusKm = DefaultEarthRadiusKm
	}
	if c.Tracker.NominalIntervalSeconds == 0 {
		c.Tracker.NominalIntervalSeconds = DefaultNominalIntervalSeconds
	}
	if c.Tracker.LearningRate == 0 {
		c.Tracker.LearningRate = DefaultLearningRate
	}
	if c.Tracker.SpeedReport == "" {
		c.Tracker.SpeedReport = model.SpeedReportFull
	}

	if c.Feed.Source == "" {
		c.Feed.Source = SourceOpenNotify
	}
	if c.Feed.URL == "" {
		c.Feed.URL = DefaultFeedURL
	}
	if c.Feed.Timeout == 0 {
		c.Feed.Timeout = defaultFeedTimeout
	}

	if c.Enrichment.GeocoderURL == "" {
		c.Enrichment.GeocoderURL = DefaultGeocoderURL
	}
	if c.Enrichment.UserAgent == "" {
		c.Enrichment.UserAgent = DefaultUserAgent
	}
	if c.Enrichment.WeatherURL == "" {
		c.Enrichment.WeatherURL = DefaultWeatherURL
	}
	if c.Enrichment.Units == "" {
		c.Enrichment.Units = model.Metric
	}
	if c.Enrichment.Timeout == 0 {
		c.Enrichment.Timeout = defaultLookupTimeout
	}

	if c.Observability.MetricsAddr == "" {
		c.Observability.MetricsAddr = DefaultMetricsAddr
	}
	if c.Observability.HealthAddr == "" {
		c.Observability.HealthAddr = DefaultHealthAddr
	}
	if c.Observability.HealthFailureThreshold == 0 {
		c.Observability.HealthFailureThreshold = DefaultFailureThreshold
	}
	if c.Observability.Tracing.Exporter == "" {
		c.Observability.Tracing.Exporter = DefaultTracingExporter
	}
	if c.Observability.Tracing.ServiceName == "" {
		c.Observability.Tracing.ServiceName = DefaultTracingServiceName
	}
	if c.Observability.Tracing.SampleRatio == 0 {
		c.Observability.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	return c
}

// Validate checks every option and returns an ErrInvalidConfig-wrapped
// error describing all problems found.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if r := c.Tracker.EarthRadiusKm; !(r > 0) || math.IsInf(r, 0) {
		add("tracker.earthRadiusKm must be a positive finite number, got %v", r)
	}
	if n := c.Tracker.NominalIntervalSeconds; !(n > 0) || math.IsInf(n, 0) {
		add("tracker.nominalIntervalSeconds must be positive, got %v", n)
	}
	if lr := c.Tracker.LearningRate; !(lr > 0 && lr < 1) {
		add("tracker.learningRate must be in (0,1), got %v", lr)
	}
	switch c.Tracker.SpeedReport {
	case model.SpeedReportFull, model.SpeedReportLocal:
	default:
		add("tracker.speedReport must be %q or %q, got %q", model.SpeedReportFull, model.SpeedReportLocal, c.Tracker.SpeedReport)
	}

	switch c.Feed.Source {
	case SourceOpenNotify:
		if c.Feed.URL == "" {
			add("feed.url is required for source %q", SourceOpenNotify)
		}
	case SourceTLE:
		if strings.TrimSpace(c.Feed.TLE.Line1) == "" || strings.TrimSpace(c.Feed.TLE.Line2) == "" {
			add("feed.tle.line1 and feed.tle.line2 are required for source %q", SourceTLE)
		}
	default:
		add("feed.source must be %q or %q, got %q", SourceOpenNotify, SourceTLE, c.Feed.Source)
	}
	if c.Feed.Timeout <= 0 {
		add("feed.timeout must be positive, got %v", c.Feed.Timeout)
	}

	if c.Enrichment.Timeout <= 0 {
		add("enrichment.timeout must be positive, got %v", c.Enrichment.Timeout)
	}
	switch c.Enrichment.Units {
	case model.Metric, model.Imperial:
	default:
		add("enrichment.units must be %q or %q, got %q", model.Metric, model.Imperial, c.Enrichment.Units)
	}

	if c.Observability.HealthFailureThreshold < 0 {
		add("observability.healthFailureThreshold must not be negative, got %d", c.Observability.HealthFailureThreshold)
	}
	switch strings.ToLower(c.Observability.Tracing.Exporter) {
	case "stdout", "otlp", "otlpgrpc":
	default:
		add("observability.tracing.exporter must be \"stdout\" or \"otlp\", got %q", c.Observability.Tracing.Exporter)
	}
	if r := c.Observability.Tracing.SampleRatio; !(r >= 0 && r <= 1) {
		add("observability.tracing.sampleRatio must be in [0,1], got %v", r)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	floats := []struct {
		key string
		dst *float64
	}{
		{"TRACKER_EARTH_RADIUS_KM", &c.Tracker.EarthRadiusKm},
		{"TRACKER_NOMINAL_INTERVAL_SECONDS", &c.Tracker.NominalIntervalSeconds},
		{"TRACKER_LEARNING_RATE", &c.Tracker.LearningRate},
	}
	for _, f := range floats {
		raw, ok := lookup(f.key)
		if !ok || raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, f.key, raw, err)
		}
		*f.dst = v
	}

	strs := []struct {
		key string
		dst *string
	}{
		{"TRACKER_FEED_SOURCE", &c.Feed.Source},
		{"TRACKER_FEED_URL", &c.Feed.URL},
		{"TRACKER_METRICS_ADDR", &c.Observability.MetricsAddr},
		{"TRACKER_HEALTH_ADDR", &c.Observability.HealthAddr},
	}
	for _, s := range strs {
		if raw, ok := lookup(s.key); ok && raw != "" {
			*s.dst = raw
		}
	}

	if raw, ok := lookup("TRACKER_SPEED_REPORT"); ok && raw != "" {
		c.Tracker.SpeedReport = model.SpeedReport(strings.ToLower(raw))
	}
	if raw, ok := lookup("TRACKER_ENRICHMENT_ENABLED"); ok && raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%w: TRACKER_ENRICHMENT_ENABLED=%q: %v", ErrInvalidConfig, raw, err)
		}
		c.Enrichment.Enabled = &v
	}
	return nil
}
