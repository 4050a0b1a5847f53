package feed

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/signalsfoundry/orbit-tracker/core"
	"github.com/signalsfoundry/orbit-tracker/timectrl"
)

const (
	issTLE1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	issTLE2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"
)

func TestTLEFetchFollowsClock(t *testing.T) {
	clock := timectrl.NewController(time.Date(2021, 10, 2, 14, 0, 0, 0, time.UTC))
	src, err := NewTLE(issTLE1, issTLE2, clock)
	if err != nil {
		t.Fatalf("NewTLE: %v", err)
	}

	first, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	clock.Advance(10 * time.Second)
	second, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if second.FeedTime-first.FeedTime != 10 {
		t.Fatalf("feed delta = %d, want 10", second.FeedTime-first.FeedTime)
	}
	for _, s := range []float64{first.Coordinates.Latitude, second.Coordinates.Latitude} {
		if math.Abs(s) > 52 {
			t.Fatalf("latitude %v exceeds the orbit inclination", s)
		}
	}
	if first.Coordinates == second.Coordinates {
		t.Fatalf("position did not move in 10s")
	}
}

func TestTLEFetchCancelled(t *testing.T) {
	src, err := NewTLE(issTLE1, issTLE2, nil)
	if err != nil {
		t.Fatalf("NewTLE: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Fetch(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestNewTLERejectsEmptyLines(t *testing.T) {
	if _, err := NewTLE("", issTLE2, nil); !errors.Is(err, core.ErrPropagation) {
		t.Fatalf("error = %v, want ErrPropagation", err)
	}
}
