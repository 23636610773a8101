package logic

import (
	"io"

	"github.com/sweeney/measure-sync/internal/ring"
)

// SignatureDetector recognizes the irregular gap a sequencer leaves in its
// sync output when play is pressed: three deltas [A, B, C] where A ≈ C and
// B stands out.
type SignatureDetector struct {
	deltas    *ring.Smoothed[int64]
	threshold int64
}

// NewSignatureDetector creates a detector with the given threshold in ms.
// The same threshold suppresses near-duplicate deltas in the history.
func NewSignatureDetector(thresholdMs int64, debug io.Writer) *SignatureDetector {
	return &SignatureDetector{
		deltas:    ring.NewDebug(signatureWindow, thresholdMs, debug),
		threshold: thresholdMs,
	}
}

// Feed records a pulse delta and reports whether the latest three deltas
// form a playback-start signature. On a match the history is re-seeded
// with the newest delta so the same gap cannot match again.
func (d *SignatureDetector) Feed(deltaMs int64) bool {
	d.deltas.Put(deltaMs)

	newest := d.deltas.Get(2)
	middle := d.deltas.Get(1)
	oldest := d.deltas.Get(0)

	if absInt(newest-oldest) < d.threshold && absInt(middle-newest) > d.threshold {
		d.deltas.Fill(newest)
		return true
	}
	return false
}

// Deltas returns the retained deltas, oldest first.
func (d *SignatureDetector) Deltas() []int64 {
	return d.deltas.Values()
}

func absInt(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
