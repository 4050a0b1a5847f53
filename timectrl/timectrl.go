package timectrl

import (
	"sort"
	"sync"
	"time"
)

// Clock is the time source used by the poll loop. It lets tests replace
// wall-clock time with a Controller.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// After returns a channel that receives the current time once d has
	// elapsed on this clock.
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

// System returns the wall clock.
func System() Clock { return systemClock{} }

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Controller is a manually driven Clock. Time only moves when SetTime or
// Advance is called; pending After channels fire when their deadline is
// reached. It is safe for concurrent use.
type Controller struct {
	mu          sync.Mutex
	currentTime time.Time
	timers      []timer
}

type timer struct {
	deadline time.Time
	ch       chan time.Time
}

// NewController constructs a controller starting at start.
func NewController(start time.Time) *Controller {
	return &Controller{currentTime: start}
}

// Now returns the controller's current time. Implements Clock.
func (c *Controller) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTime
}

// After implements Clock. A non-positive d fires immediately.
func (c *Controller) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	deadline := c.currentTime.Add(d)
	if d <= 0 {
		ch <- c.currentTime
		return ch
	}
	c.timers = append(c.timers, timer{deadline: deadline, ch: ch})
	sort.Slice(c.timers, func(i, j int) bool { return c.timers[i].deadline.Before(c.timers[j].deadline) })
	return ch
}

// Pending returns the number of After channels that have not fired yet.
func (c *Controller) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// Advance moves time forward by d.
func (c *Controller) Advance(d time.Duration) {
	c.mu.Lock()
	next := c.currentTime.Add(d)
	c.mu.Unlock()
	c.SetTime(next)
}

// SetTime jumps to t, firing every timer whose deadline is not after t.
func (c *Controller) SetTime(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentTime = t

	fired := 0
	for _, tm := range c.timers {
		if tm.deadline.After(t) {
			break
		}
		tm.ch <- t
		fired++
	}
	c.timers = c.timers[fired:]
}
