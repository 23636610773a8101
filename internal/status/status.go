// Package status provides a thread-safe status tracker for the measure-sync daemon.
// It is read by the HTTP handlers and the MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/measure-sync/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs       int64
	DebounceMs   int64
	DisconnectMs int64
	SignatureMs  int64
	HeartbeatMs  int64
	PinSync      int
	PinLED       int
	Broker       string
	HTTPAddr     string
	Serial       string // empty = stdout only
	MIDIOut      string // empty = disabled
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Synced        bool
	Phase         int
	BPM           float64
	Counts        logic.EventCounts
	Session       string
	LastMeasureAt time.Time
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update copies the clock's published state.
// Called from runLoop on every tick.
func (t *Tracker) Update(s logic.SyncSnapshot) {
	t.mu.Lock()
	t.snap.Synced = s.Synced
	t.snap.Phase = s.Phase
	t.snap.BPM = s.BPM
	t.snap.Counts = s.Counts
	t.mu.Unlock()
}

// SetSession sets the current playback session id (empty when stopped).
func (t *Tracker) SetSession(id string) {
	t.mu.Lock()
	t.snap.Session = id
	t.mu.Unlock()
}

// SetLastMeasure records the wall time of the latest measure start.
func (t *Tracker) SetLastMeasure(at time.Time) {
	t.mu.Lock()
	t.snap.LastMeasureAt = at
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
