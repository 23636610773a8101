package status

import (
	"encoding/json"
	"math"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	State         string       `json:"state"`
	Phase         int          `json:"phase"`
	BPM           float64      `json:"bpm"`
	Session       string       `json:"session,omitempty"`
	LastMeasureAt string       `json:"last_measure_at,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Measures       int64 `json:"measures"`
	PlaybackStarts int64 `json:"playback_starts"`
	Disconnects    int64 `json:"disconnects"`
	Debounced      int64 `json:"debounced"`
	Dropped        int64 `json:"dropped"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs       int64  `json:"poll_ms"`
	DebounceMs   int64  `json:"debounce_ms"`
	DisconnectMs int64  `json:"disconnect_ms"`
	SignatureMs  int64  `json:"signature_ms"`
	HeartbeatMs  int64  `json:"heartbeat_ms"`
	PinSync      int    `json:"pin_sync"`
	PinLED       int    `json:"pin_led"`
	Broker       string `json:"broker"`
	HTTPAddr     string `json:"http_addr"`
	Serial       string `json:"serial,omitempty"`
	MIDIOut      string `json:"midi_out,omitempty"`
}

// State returns the display name of the sync state.
func (s Snapshot) State() string {
	if s.Synced {
		return "SYNCED"
	}
	return "WAITING"
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		State:         snap.State(),
		Phase:         snap.Phase,
		BPM:           math.Round(snap.BPM*100) / 100,
		Session:       snap.Session,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Measures:       snap.Counts.Measures,
			PlaybackStarts: snap.Counts.PlaybackStarts,
			Disconnects:    snap.Counts.Disconnects,
			Debounced:      snap.Counts.Debounced,
			Dropped:        snap.Counts.Dropped,
		},
		Config: ConfigJSON{
			PollMs:       snap.Config.PollMs,
			DebounceMs:   snap.Config.DebounceMs,
			DisconnectMs: snap.Config.DisconnectMs,
			SignatureMs:  snap.Config.SignatureMs,
			HeartbeatMs:  snap.Config.HeartbeatMs,
			PinSync:      snap.Config.PinSync,
			PinLED:       snap.Config.PinLED,
			Broker:       snap.Config.Broker,
			HTTPAddr:     snap.Config.HTTPAddr,
			Serial:       snap.Config.Serial,
			MIDIOut:      snap.Config.MIDIOut,
		},
	}
	if !snap.LastMeasureAt.IsZero() {
		inner.LastMeasureAt = snap.LastMeasureAt.UTC().Format(time.RFC3339)
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
