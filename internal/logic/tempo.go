package logic

import "github.com/sweeney/measure-sync/internal/ring"

// TempoEstimator averages instantaneous pulse frequencies into a BPM value.
type TempoEstimator struct {
	freqs *ring.Smoothed[float64]
}

// NewTempoEstimator creates an estimator over the last five samples.
// Frequency varies continuously, so no sample is ever suppressed.
func NewTempoEstimator() *TempoEstimator {
	return &TempoEstimator{freqs: ring.New[float64](tempoWindow, 0)}
}

// Feed records an instantaneous frequency in pulses per second.
func (e *TempoEstimator) Feed(hz float64) {
	e.freqs.Put(hz)
}

// BPM returns the averaged tempo. Pulses per second times 60 seconds,
// divided by the pulses per quarter note.
func (e *TempoEstimator) BPM() float64 {
	return e.freqs.Average() * 60 / PulsesPerQuarter
}
