package timectrl

import (
	"testing"
	"time"
)

func TestControllerSetTime(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewController(start)

	newNow := start.Add(42 * time.Second)
	tc.SetTime(newNow)

	if got := tc.Now(); !got.Equal(newNow) {
		t.Fatalf("Now() = %v, want %v", got, newNow)
	}
}

func TestControllerAfterFiresOnAdvance(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewController(start)

	early := tc.After(time.Second)
	late := tc.After(5 * time.Second)
	if tc.Pending() != 2 {
		t.Fatalf("Pending() = %d, want 2", tc.Pending())
	}

	tc.Advance(2 * time.Second)
	select {
	case got := <-early:
		if !got.Equal(start.Add(2 * time.Second)) {
			t.Fatalf("early fired at %v", got)
		}
	default:
		t.Fatalf("expected early timer to fire")
	}
	select {
	case <-late:
		t.Fatalf("late timer fired too soon")
	default:
	}

	tc.Advance(3 * time.Second)
	select {
	case <-late:
	default:
		t.Fatalf("expected late timer to fire")
	}
	if tc.Pending() != 0 {
		t.Fatalf("Pending() = %d, want 0", tc.Pending())
	}
}

func TestControllerAfterNonPositiveFiresImmediately(t *testing.T) {
	tc := NewController(time.Unix(0, 0))
	select {
	case <-tc.After(0):
	default:
		t.Fatalf("After(0) should fire immediately")
	}
}

func TestSystemClockAfter(t *testing.T) {
	c := System()
	before := c.Now()
	<-c.After(5 * time.Millisecond)
	if c.Now().Sub(before) < 5*time.Millisecond {
		t.Fatalf("system After returned early")
	}
}
