package observability

import (
	"context"
	"testing"

	"github.com/signalsfoundry/orbit-tracker/internal/logging"
)

func TestTracingConfigEnvOverlay(t *testing.T) {
	base := TracingConfig{Exporter: "stdout", ServiceName: "from-file", SampleRatio: 0.5}
	tests := []struct {
		name string
		env  map[string]string
		want TracingConfig
	}{
		{
			name: "no env keeps base",
			want: base,
		},
		{
			name: "env overrides",
			env: map[string]string{
				"TRACKER_TRACING_ENABLED":      "true",
				"TRACKER_TRACING_EXPORTER":     "OTLP",
				"TRACKER_TRACING_SERVICE_NAME": "iss",
				"TRACKER_OTLP_ENDPOINT":        "collector:4317",
				"TRACKER_TRACING_SAMPLE_RATIO": "0.25",
			},
			want: TracingConfig{Enabled: true, Exporter: "otlp", ServiceName: "iss", Endpoint: "collector:4317", SampleRatio: 0.25},
		},
		{
			name: "out-of-range ratio and bad bool ignored",
			env:  map[string]string{"TRACKER_TRACING_SAMPLE_RATIO": "2", "TRACKER_TRACING_ENABLED": "maybe"},
			want: base,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := func(k string) (string, bool) {
				v, ok := tt.env[k]
				return v, ok
			}
			if got := tracingConfigFromLookup(base, lookup); got != tt.want {
				t.Fatalf("config = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTracingConfigFillsEmptyBase(t *testing.T) {
	got := tracingConfigFromLookup(TracingConfig{}, func(string) (string, bool) { return "", false })
	if got.Exporter != "stdout" || got.ServiceName != "orbit-tracker" {
		t.Fatalf("config = %+v", got)
	}
}

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{}, logging.Noop())
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	ctx, span := StartSpan(logging.ContextWithTickID(context.Background(), "abc"), "tracker.tick")
	defer span.End()
	if ctx == nil {
		t.Fatalf("StartSpan returned nil context")
	}
}

func TestInitTracingRejectsUnknownExporter(t *testing.T) {
	_, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "zipkin"}, nil)
	if err == nil {
		t.Fatalf("expected error for unsupported exporter")
	}
}
