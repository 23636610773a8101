package logic

// MeasureClock turns sync pulse timestamps into measure starts and tempo.
// OnPulse must be called from a single goroutine; other goroutines read the
// state through Shared.
type MeasureClock struct {
	cfg       ClockConfig
	signature *SignatureDetector
	tempo     *TempoEstimator
	shared    *SharedState

	lastTick int64
	phase    int
	synced   bool
	measure  int
}

// NewMeasureClock creates a clock waiting for sync. startMs is the clock
// reading at construction and serves as the previous tick for the first pulse.
func NewMeasureClock(cfg ClockConfig, startMs int64) *MeasureClock {
	cfg = cfg.withDefaults()
	return &MeasureClock{
		cfg:       cfg,
		signature: NewSignatureDetector(cfg.SignatureMs, cfg.Debug),
		tempo:     NewTempoEstimator(),
		shared:    &SharedState{},
		lastTick:  startMs,
	}
}

// OnPulse processes one rising edge observed at nowMs and returns any events,
// in the order DISCONNECT, MEASURE_START, PLAYBACK_START.
func (c *MeasureClock) OnPulse(nowMs int64) []Event {
	delta := nowMs - c.lastTick

	// Contact bounce or electrical noise.
	if delta < c.cfg.DebounceMs {
		c.shared.debounced.Add(1)
		return nil
	}

	var events []Event

	// The long gap describes the interval that just elapsed, so it is handled
	// before this pulse advances the phase.
	if delta > c.cfg.DisconnectMs {
		c.synced = false
		c.phase = 0
		c.shared.disconnects.Add(1)
		events = append(events, Event{Type: EventDisconnect, PulseMs: nowMs})
	}

	if c.synced {
		c.phase++
		if c.phase == PulsesPerMeasure {
			c.phase = 0
			c.measure++
			c.shared.measures.Add(1)
			c.shared.measureStarted.Store(true)
			events = append(events, Event{
				Type:    EventMeasureStart,
				PulseMs: nowMs,
				BPM:     c.tempo.BPM(),
				Measure: c.measure,
			})
		}
	}

	matched := c.signature.Feed(delta)
	c.tempo.Feed(1000 / float64(delta))
	c.lastTick = nowMs

	if matched {
		// The gap is only visible one pulse after it happened, so the
		// current measure began one pulse ago.
		c.synced = true
		c.phase = 1
		c.measure = 0
		c.shared.playbackStarts.Add(1)
		events = append(events, Event{Type: EventPlaybackStart, PulseMs: nowMs})
	}

	for i := range events {
		events[i].Phase = c.phase
	}
	c.shared.publish(c.synced, c.phase, c.tempo.BPM(), nowMs)
	return events
}

// Synced reports whether the measure boundaries are known.
func (c *MeasureClock) Synced() bool {
	return c.synced
}

// Phase returns the pulse index within the current measure, in [0, 8).
func (c *MeasureClock) Phase() int {
	return c.phase
}

// BPM returns the current tempo estimate.
func (c *MeasureClock) BPM() float64 {
	return c.tempo.BPM()
}

// LastTick returns the clock reading of the last accepted pulse.
func (c *MeasureClock) LastTick() int64 {
	return c.lastTick
}

// Shared returns the state published for other goroutines.
func (c *MeasureClock) Shared() *SharedState {
	return c.shared
}
