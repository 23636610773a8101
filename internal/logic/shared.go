package logic

import (
	"math"
	"sync/atomic"
)

// SharedState is the sync state visible to both the pulse context (the only
// writer) and the polling consumer. Every field is an atomic so no lock is
// needed on the pulse path.
type SharedState struct {
	measureStarted atomic.Bool
	synced         atomic.Bool
	phase          atomic.Int32
	bpmBits        atomic.Uint64
	lastPulseMs    atomic.Int64

	measures       atomic.Int64
	playbackStarts atomic.Int64
	disconnects    atomic.Int64
	debounced      atomic.Int64
	dropped        atomic.Int64
}

// SyncSnapshot is a point-in-time copy of SharedState.
type SyncSnapshot struct {
	Synced      bool
	Phase       int
	BPM         float64
	LastPulseMs int64
	Counts      EventCounts
}

// TakeMeasureStarted reports whether a measure started since the last call
// and clears the flag in the same atomic step, so a flag raised between the
// read and the reset is never lost.
func (s *SharedState) TakeMeasureStarted() bool {
	return s.measureStarted.Swap(false)
}

// AddDropped counts an event the consumer never received.
func (s *SharedState) AddDropped() {
	s.dropped.Add(1)
}

// Snapshot returns the current values.
func (s *SharedState) Snapshot() SyncSnapshot {
	return SyncSnapshot{
		Synced:      s.synced.Load(),
		Phase:       int(s.phase.Load()),
		BPM:         math.Float64frombits(s.bpmBits.Load()),
		LastPulseMs: s.lastPulseMs.Load(),
		Counts: EventCounts{
			Measures:       s.measures.Load(),
			PlaybackStarts: s.playbackStarts.Load(),
			Disconnects:    s.disconnects.Load(),
			Debounced:      s.debounced.Load(),
			Dropped:        s.dropped.Load(),
		},
	}
}

func (s *SharedState) publish(synced bool, phase int, bpm float64, pulseMs int64) {
	s.synced.Store(synced)
	s.phase.Store(int32(phase))
	s.bpmBits.Store(math.Float64bits(bpm))
	s.lastPulseMs.Store(pulseMs)
}
