package model

import (
	"encoding/json"
	"fmt"
)

// SpeedReport selects how many speed estimates a tick produces.
type SpeedReport string

const (
	// SpeedReportFull reports feed, local and drift-corrected speeds.
	SpeedReportFull SpeedReport = "full"
	// SpeedReportLocal reports only the speed over the locally measured interval.
	SpeedReportLocal SpeedReport = "local"
)

// Speed is a km/s estimate that may be indeterminate when its interval
// was degenerate.
type Speed struct {
	KmPerSecond float64
	Valid       bool
}

// SpeedOf wraps a determinate value.
func SpeedOf(kmPerSecond float64) Speed {
	return Speed{KmPerSecond: kmPerSecond, Valid: true}
}

func (s Speed) String() string {
	if !s.Valid {
		return "indeterminate"
	}
	return fmt.Sprintf("%.2f km/s", s.KmPerSecond)
}

// MarshalJSON renders indeterminate speeds as null.
func (s Speed) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.KmPerSecond)
}

// Motion holds what can only be derived once a previous sample exists.
type Motion struct {
	DistanceKm            float64     `json:"distance_km"`
	FeedDeltaSeconds      int64       `json:"feed_delta_seconds"`
	LocalDeltaSeconds     float64     `json:"local_delta_seconds"`
	CorrectedDeltaSeconds float64     `json:"corrected_delta_seconds,omitempty"`
	BiasSeconds           float64     `json:"bias_seconds,omitempty"`
	FeedSpeed             Speed       `json:"speed_feed_km_s"`
	LocalSpeed            Speed       `json:"speed_local_km_s"`
	CorrectedSpeed        Speed       `json:"speed_corrected_km_s"`
	Report                SpeedReport `json:"report"`
}

// MarshalJSON leaves the feed and corrected speeds out of local reports,
// which never compute them; null stays reserved for indeterminate speeds.
func (m Motion) MarshalJSON() ([]byte, error) {
	if m.Report != SpeedReportLocal {
		type motion Motion
		return json.Marshal(motion(m))
	}
	return json.Marshal(struct {
		DistanceKm        float64     `json:"distance_km"`
		FeedDeltaSeconds  int64       `json:"feed_delta_seconds"`
		LocalDeltaSeconds float64     `json:"local_delta_seconds"`
		LocalSpeed        Speed       `json:"speed_local_km_s"`
		Report            SpeedReport `json:"report"`
	}{
		DistanceKm:        m.DistanceKm,
		FeedDeltaSeconds:  m.FeedDeltaSeconds,
		LocalDeltaSeconds: m.LocalDeltaSeconds,
		LocalSpeed:        m.LocalSpeed,
		Report:            m.Report,
	})
}

// Result is the record emitted for every successful tick.
type Result struct {
	Tick    uint64          `json:"tick"`
	Sample  Sample          `json:"sample"`
	Motion  *Motion         `json:"motion,omitempty"`
	Place   *string         `json:"place,omitempty"`
	Weather *WeatherSummary `json:"weather,omitempty"`
}
