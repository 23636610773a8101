package gpio

import "sync"

// FakePulseSource is a test double that delivers scripted edges.
type FakePulseSource struct {
	mu      sync.Mutex
	handler PulseHandler

	// Closed tracks if Close was called
	Closed bool
}

// NewFakePulseSource creates a FakePulseSource delivering to handler.
func NewFakePulseSource(handler PulseHandler) *FakePulseSource {
	return &FakePulseSource{handler: handler}
}

// Fire delivers one edge per timestamp, in order.
// Edges after Close are ignored.
func (f *FakePulseSource) Fire(ms ...int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range ms {
		if f.Closed {
			return
		}
		f.handler(m)
	}
}

// Close stops edge delivery.
func (f *FakePulseSource) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// FakeIndicator records every LED level it is set to.
type FakeIndicator struct {
	// Levels contains every value passed to Set, in order.
	Levels []bool

	// SetError, if set, will be returned by Set()
	SetError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeIndicator creates a FakeIndicator.
func NewFakeIndicator() *FakeIndicator {
	return &FakeIndicator{}
}

// Set records the level.
func (f *FakeIndicator) Set(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Levels = append(f.Levels, on)
	return nil
}

// On reports the last level set, false if never set.
func (f *FakeIndicator) On() bool {
	if len(f.Levels) == 0 {
		return false
	}
	return f.Levels[len(f.Levels)-1]
}

// Close marks the indicator as closed and turns it off.
func (f *FakeIndicator) Close() error {
	f.Closed = true
	f.Levels = append(f.Levels, false)
	return nil
}

// Reset clears recorded levels.
func (f *FakeIndicator) Reset() {
	f.Levels = nil
	f.Closed = false
}
