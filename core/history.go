package core

import "github.com/signalsfoundry/orbit-tracker/model"

// HistoryState is the warm-up state of a SampleHistory.
type HistoryState int

const (
	// Empty means no sample has been accepted yet.
	Empty HistoryState = iota
	// Warm means a previous sample is available.
	Warm
)

func (s HistoryState) String() string {
	switch s {
	case Empty:
		return "empty"
	case Warm:
		return "warm"
	default:
		return "unknown"
	}
}

// SampleHistory keeps the most recently accepted sample. Once Warm it never
// returns to Empty.
type SampleHistory struct {
	prev    model.Sample
	hasPrev bool
}

// Previous returns the last accepted sample, if any.
func (h *SampleHistory) Previous() (model.Sample, bool) {
	return h.prev, h.hasPrev
}

// Advance replaces the previous sample with s.
func (h *SampleHistory) Advance(s model.Sample) {
	h.prev = s
	h.hasPrev = true
}

// State reports Empty until the first Advance.
func (h *SampleHistory) State() HistoryState {
	if h.hasPrev {
		return Warm
	}
	return Empty
}
