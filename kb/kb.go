package kb

import (
	"context"
	"sync"

	"github.com/signalsfoundry/orbit-tracker/model"
)

// EventType indicates what kind of change happened in the KB.
type EventType int

const (
	// EventResultPublished fires after a tick produced a result.
	EventResultPublished EventType = iota
	// EventTickFailed fires after a tick was aborted by a fetch failure.
	EventTickFailed
)

// Event is emitted to subscribers when something interesting happens.
type Event struct {
	Type                EventType
	Result              model.Result // set for EventResultPublished
	Err                 error        // set for EventTickFailed
	ConsecutiveFailures int
}

// Stats summarises what the KB has seen since start.
type Stats struct {
	Results             uint64 `json:"results"`
	Failures            uint64 `json:"failures"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	LastError           string `json:"last_error,omitempty"`
}

// KnowledgeBase is an in-memory, thread-safe view of the tracker's latest
// output. The poll loop writes to it; health and HTTP handlers read it.
type KnowledgeBase struct {
	mu sync.RWMutex

	latest    model.Result
	hasLatest bool
	stats     Stats

	nextSubID int
	subs      []subscriber
}

type subscriber struct {
	id int
	fn func(Event)
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{}
}

// Emit stores r as the latest result, clears the failure streak and
// notifies subscribers.
func (kb *KnowledgeBase) Emit(_ context.Context, r model.Result) {
	kb.mu.Lock()
	kb.latest = r
	kb.hasLatest = true
	kb.stats.Results++
	kb.stats.ConsecutiveFailures = 0
	event := Event{Type: EventResultPublished, Result: r}
	subs := kb.snapshotSubsLocked()
	kb.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	for _, sub := range subs {
		sub(event)
	}
}

// TickFailed records a failed tick and notifies subscribers.
func (kb *KnowledgeBase) TickFailed(_ context.Context, err error) {
	kb.mu.Lock()
	kb.stats.Failures++
	kb.stats.ConsecutiveFailures++
	if err != nil {
		kb.stats.LastError = err.Error()
	}
	event := Event{Type: EventTickFailed, Err: err, ConsecutiveFailures: kb.stats.ConsecutiveFailures}
	subs := kb.snapshotSubsLocked()
	kb.mu.Unlock()

	for _, sub := range subs {
		sub(event)
	}
}

// Latest returns the most recent result, if any.
func (kb *KnowledgeBase) Latest() (model.Result, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.latest, kb.hasLatest
}

// Stats returns a copy of the counters.
func (kb *KnowledgeBase) Stats() Stats {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.stats
}

// Subscribe registers a callback for KB events. It returns an unsubscribe function.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	id := kb.nextSubID
	kb.nextSubID++
	kb.subs = append(kb.subs, subscriber{id: id, fn: fn})

	return func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		for i, s := range kb.subs {
			if s.id == id {
				kb.subs = append(kb.subs[:i], kb.subs[i+1:]...)
				return
			}
		}
	}
}

func (kb *KnowledgeBase) snapshotSubsLocked() []func(Event) {
	subs := make([]func(Event), 0, len(kb.subs))
	for _, s := range kb.subs {
		subs = append(subs, s.fn)
	}
	return subs
}
