package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/orbit-tracker/internal/config"
	"github.com/signalsfoundry/orbit-tracker/internal/feed"
	"github.com/signalsfoundry/orbit-tracker/internal/geocode"
	"github.com/signalsfoundry/orbit-tracker/internal/health"
	"github.com/signalsfoundry/orbit-tracker/internal/logging"
	"github.com/signalsfoundry/orbit-tracker/internal/observability"
	"github.com/signalsfoundry/orbit-tracker/internal/tracker"
	"github.com/signalsfoundry/orbit-tracker/internal/weather"
	"github.com/signalsfoundry/orbit-tracker/kb"
	"github.com/signalsfoundry/orbit-tracker/timectrl"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file; TRACKER_* environment variables override it")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error(ctx, "failed to load configuration", logging.Err(err))
		os.Exit(1)
	}

	tc := cfg.Observability.Tracing
	tracingCfg := observability.TracingConfigFromEnv(observability.TracingConfig{
		Enabled:     tc.Enabled,
		ServiceName: tc.ServiceName,
		Exporter:    tc.Exporter,
		Endpoint:    tc.Endpoint,
		SampleRatio: tc.SampleRatio,
	})
	shutdownTracing, err := observability.InitTracing(ctx, tracingCfg, log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	metricsLis, err := net.Listen("tcp", cfg.Observability.MetricsAddr)
	if err != nil {
		log.Error(ctx, "failed to listen for HTTP", logging.String("addr", cfg.Observability.MetricsAddr), logging.Err(err))
		os.Exit(1)
	}
	healthLis, err := net.Listen("tcp", cfg.Observability.HealthAddr)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC health", logging.String("addr", cfg.Observability.HealthAddr), logging.Err(err))
		os.Exit(1)
	}

	if err := run(ctx, cfg, log, prometheus.DefaultRegisterer, metricsLis, healthLis); err != nil {
		log.Error(ctx, "tracker exited", logging.Err(err))
		os.Exit(1)
	}
}

// run wires the poll loop to its collaborators and operational surfaces
// and blocks until ctx is cancelled or a component fails. A nil listener
// disables that surface.
func run(ctx context.Context, cfg config.Config, log logging.Logger, reg prometheus.Registerer, metricsLis, healthLis net.Listener) error {
	collector, err := observability.NewTrackerCollector(reg)
	if err != nil {
		return fmt.Errorf("metrics collector: %w", err)
	}

	provider, err := newProvider(cfg.Feed)
	if err != nil {
		return fmt.Errorf("position provider: %w", err)
	}

	board := kb.NewKnowledgeBase()
	opts := []tracker.Option{
		tracker.WithLogger(log),
		tracker.WithMetricsRecorder(collector),
		tracker.WithSinks(board, tracker.NewLogSink(log)),
		tracker.WithTimeouts(cfg.Feed.Timeout, cfg.Enrichment.Timeout),
	}
	if cfg.Enrichment.IsEnabled() {
		opts = append(opts, tracker.WithEnrichment(
			geocode.NewNominatim(cfg.Enrichment.GeocoderURL, cfg.Enrichment.UserAgent, nil),
			weather.NewWttr(cfg.Enrichment.WeatherURL, cfg.Enrichment.Units, nil),
		))
	}
	loop, err := tracker.NewLoop(provider, tracker.Params{
		EarthRadiusKm:   cfg.Tracker.EarthRadiusKm,
		NominalInterval: cfg.Tracker.NominalInterval(),
		LearningRate:    cfg.Tracker.LearningRate,
		SpeedReport:     cfg.Tracker.SpeedReport,
	}, opts...)
	if err != nil {
		return fmt.Errorf("poll loop: %w", err)
	}

	// Surfaces subscribe to the board before the first tick can publish.
	var hs *health.Server
	if healthLis != nil {
		hs = health.NewServer(board, cfg.Observability.HealthFailureThreshold, log)
	}

	g, gctx := errgroup.WithContext(ctx)

	if metricsLis != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		mux.Handle("/latest", board.LatestHandler())
		srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		log.Info(ctx, "serving metrics and latest result", logging.String("addr", metricsLis.Addr().String()))
		g.Go(func() error {
			if err := srv.Serve(metricsLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if hs != nil {
		log.Info(ctx, "serving gRPC health", logging.String("addr", healthLis.Addr().String()), logging.String("service", health.ServiceName))
		g.Go(func() error {
			if err := hs.Serve(healthLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("health server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			hs.Stop()
			return nil
		})
	}

	g.Go(func() error { return loop.Run(gctx) })
	return g.Wait()
}

func newProvider(cfg config.FeedConfig) (tracker.PositionProvider, error) {
	switch cfg.Source {
	case config.SourceTLE:
		return feed.NewTLE(cfg.TLE.Line1, cfg.TLE.Line2, timectrl.System())
	case config.SourceOpenNotify, "":
		return feed.NewOpenNotify(cfg.URL), nil
	default:
		return nil, fmt.Errorf("unknown feed source %q", cfg.Source)
	}
}
