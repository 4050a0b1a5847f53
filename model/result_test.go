package model

import (
	"encoding/json"
	"testing"
)

func TestSpeedString(t *testing.T) {
	if got := SpeedOf(7.66).String(); got != "7.66 km/s" {
		t.Fatalf("String() = %q", got)
	}
	if got := (Speed{}).String(); got != "indeterminate" {
		t.Fatalf("String() = %q", got)
	}
}

func TestMotionJSONByReport(t *testing.T) {
	tests := []struct {
		name    string
		motion  Motion
		present []string
		absent  []string
		null    []string
	}{
		{
			name: "full report keeps indeterminate speeds as null",
			motion: Motion{
				DistanceKm:            111.19,
				FeedDeltaSeconds:      0,
				LocalDeltaSeconds:     5.2,
				CorrectedDeltaSeconds: 5.02,
				BiasSeconds:           0.02,
				LocalSpeed:            SpeedOf(21.38),
				CorrectedSpeed:        SpeedOf(22.15),
				Report:                SpeedReportFull,
			},
			present: []string{"distance_km", "speed_local_km_s", "speed_corrected_km_s", "bias_seconds", "corrected_delta_seconds"},
			null:    []string{"speed_feed_km_s"},
		},
		{
			name: "local report omits speeds it never computes",
			motion: Motion{
				DistanceKm:        111.19,
				FeedDeltaSeconds:  5,
				LocalDeltaSeconds: 5.2,
				LocalSpeed:        SpeedOf(21.38),
				Report:            SpeedReportLocal,
			},
			present: []string{"distance_km", "feed_delta_seconds", "local_delta_seconds", "speed_local_km_s", "report"},
			absent:  []string{"speed_feed_km_s", "speed_corrected_km_s", "bias_seconds", "corrected_delta_seconds"},
		},
		{
			name: "local report with degenerate local delta",
			motion: Motion{
				DistanceKm: 0,
				Report:     SpeedReportLocal,
			},
			absent: []string{"speed_feed_km_s", "speed_corrected_km_s"},
			null:   []string{"speed_local_km_s"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.motion)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			var fields map[string]json.RawMessage
			if err := json.Unmarshal(data, &fields); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			for _, key := range tt.present {
				if v, ok := fields[key]; !ok || string(v) == "null" {
					t.Fatalf("%s = %s, want a value in %s", key, v, data)
				}
			}
			for _, key := range tt.absent {
				if _, ok := fields[key]; ok {
					t.Fatalf("%s should be omitted: %s", key, data)
				}
			}
			for _, key := range tt.null {
				if v, ok := fields[key]; !ok || string(v) != "null" {
					t.Fatalf("%s = %s, want null in %s", key, v, data)
				}
			}
		})
	}
}

func TestResultMotionPointerUsesReportEncoding(t *testing.T) {
	r := Result{Tick: 2, Motion: &Motion{LocalSpeed: SpeedOf(7.66), Report: SpeedReportLocal}}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var body struct {
		Motion map[string]json.RawMessage `json:"motion"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := body.Motion["speed_feed_km_s"]; ok {
		t.Fatalf("local motion leaked feed speed: %s", data)
	}
	if string(body.Motion["speed_local_km_s"]) != "7.66" {
		t.Fatalf("speed_local_km_s = %s", body.Motion["speed_local_km_s"])
	}
}
