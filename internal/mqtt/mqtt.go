// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/sweeney/measure-sync/internal/logic"
)

// Topic is the MQTT topic for measure events.
const Topic = "music/measure-sync/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "music/measure-sync/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a measure event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event MeasureEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// MeasureEvent is a clock event stamped with wall time and the playback
// session it belongs to.
type MeasureEvent struct {
	Timestamp time.Time
	Event     logic.Event
	Session   string // empty outside a session
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Measure MeasurePayload `json:"measure"`
}

// MeasurePayload contains the measure event details.
type MeasurePayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	BPM       BPM    `json:"bpm,omitempty"`
	Phase     int    `json:"phase"`
	Measure   int    `json:"measure,omitempty"`
	Session   string `json:"session,omitempty"`
}

// BPM is a tempo rendered with two decimals.
type BPM float64

// MarshalJSON implements json.Marshaler.
func (b BPM) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(b), 'f', 2, 64)), nil
}

// NewMeasurePayload builds the payload body for an event. The tempo and
// measure number are only carried by MEASURE_START.
func NewMeasurePayload(event MeasureEvent) MeasurePayload {
	p := MeasurePayload{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Event:     string(event.Event.Type),
		Phase:     event.Event.Phase,
		Session:   event.Session,
	}
	if event.Event.Type == logic.EventMeasureStart {
		p.BPM = BPM(event.Event.BPM)
		p.Measure = event.Event.Measure
	}
	return p
}

// FormatPayload creates the JSON payload for a measure event.
func FormatPayload(event MeasureEvent) ([]byte, error) {
	return json.Marshal(Payload{Measure: NewMeasurePayload(event)})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}

// WillPayload is the retained last-will message set on the broker connection.
func WillPayload() []byte {
	data, _ := FormatSystemPayload(SystemEvent{Event: "OFFLINE"})
	return data
}
