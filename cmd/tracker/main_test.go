package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/signalsfoundry/orbit-tracker/internal/config"
	"github.com/signalsfoundry/orbit-tracker/internal/health"
	"github.com/signalsfoundry/orbit-tracker/internal/logging"
)

const (
	issTLE1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	issTLE2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"
)

func listen(t *testing.T) net.Listener {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	return lis
}

func TestTrackerStartupSmoke(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	disabled := false
	cfg := config.Default()
	cfg.Tracker.NominalIntervalSeconds = 0.05
	cfg.Feed.Source = config.SourceTLE
	cfg.Feed.TLE = config.TLEConfig{Line1: issTLE1, Line2: issTLE2}
	cfg.Enrichment.Enabled = &disabled
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	metricsLis, healthLis := listen(t), listen(t)
	log := logging.New(logging.Config{Level: "warn", Output: io.Discard})

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, cfg, log, prometheus.NewRegistry(), metricsLis, healthLis)
	}()

	base := "http://" + metricsLis.Addr().String()
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(base + "/latest")
		if err == nil {
			code := resp.StatusCode
			resp.Body.Close()
			if code == http.StatusOK {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("no result published on /latest")
		}
		time.Sleep(20 * time.Millisecond)
	}

	resp, err := http.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "tracker_ticks_total") {
		t.Fatalf("/metrics missing tracker_ticks_total")
	}

	conn, err := grpc.NewClient(healthLis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	defer conn.Close()
	hc, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: health.ServiceName})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if hc.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("health = %v, want SERVING", hc.GetStatus())
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not return after cancellation")
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.FeedConfig
		wantErr bool
	}{
		{name: "open notify", cfg: config.FeedConfig{Source: config.SourceOpenNotify, URL: config.DefaultFeedURL}},
		{name: "tle", cfg: config.FeedConfig{Source: config.SourceTLE, TLE: config.TLEConfig{Line1: issTLE1, Line2: issTLE2}}},
		{name: "tle without lines", cfg: config.FeedConfig{Source: config.SourceTLE}, wantErr: true},
		{name: "unknown", cfg: config.FeedConfig{Source: "carrier-pigeon"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := newProvider(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && p == nil {
				t.Fatalf("nil provider")
			}
		})
	}
}
