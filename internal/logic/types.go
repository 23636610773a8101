// Package logic contains the pure pulse-timing analysis for measure sync.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injected as a millisecond counter.
package logic

import (
	"io"
	"time"
)

// Subdivision of the sync pulse train.
const (
	PulsesPerMeasure = 8 // sync pulses per measure
	PulsesPerQuarter = 2 // sync pulses per quarter note
)

// Defaults for ClockConfig.
const (
	DefaultDebounceMs   = 5
	DefaultDisconnectMs = 2000
	DefaultSignatureMs  = 4
)

// Buffer sizes for the two pulse histories.
const (
	signatureWindow = 3
	tempoWindow     = 5
)

// EventType identifies an emitted notice.
type EventType string

const (
	EventDisconnect    EventType = "DISCONNECT"
	EventPlaybackStart EventType = "PLAYBACK_START"
	EventMeasureStart  EventType = "MEASURE_START"
)

// Event is a notice emitted by MeasureClock.OnPulse.
type Event struct {
	Type EventType
	// PulseMs is the clock reading of the pulse that produced the event.
	PulseMs int64
	// Phase after the pulse was processed.
	Phase int
	// BPM is only set for EventMeasureStart.
	BPM float64
	// Measure counts measure starts since the latest playback start, from 1.
	// Only set for EventMeasureStart.
	Measure int
}

// ClockConfig holds the tunable thresholds of a MeasureClock.
// Zero values are replaced with the defaults.
type ClockConfig struct {
	DebounceMs   int64
	DisconnectMs int64
	SignatureMs  int64

	// Debug, if set, receives a dump of every accepted write to the
	// signature buffer.
	Debug io.Writer
}

func (c ClockConfig) withDefaults() ClockConfig {
	if c.DebounceMs <= 0 {
		c.DebounceMs = DefaultDebounceMs
	}
	if c.DisconnectMs <= 0 {
		c.DisconnectMs = DefaultDisconnectMs
	}
	if c.SignatureMs <= 0 {
		c.SignatureMs = DefaultSignatureMs
	}
	return c
}

// EventCounts tracks the number of each notice since startup.
type EventCounts struct {
	Measures       int64
	PlaybackStarts int64
	Disconnects    int64
	Debounced      int64
	Dropped        int64
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
