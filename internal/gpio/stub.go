//go:build !linux

package gpio

import (
	"errors"
	"time"
)

var processStart = time.Now()

// NowMs returns milliseconds since process start.
func NowMs() int64 {
	return time.Since(processStart).Milliseconds()
}

// RealPulseSource is not available on non-Linux platforms.
type RealPulseSource struct{}

// NewRealPulseSource returns an error on non-Linux platforms.
func NewRealPulseSource(pin int, handler PulseHandler) (*RealPulseSource, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Close is not implemented on non-Linux platforms.
func (s *RealPulseSource) Close() error {
	return nil
}

// RealIndicator is not available on non-Linux platforms.
type RealIndicator struct{}

// NewRealIndicator returns an error on non-Linux platforms.
func NewRealIndicator(pin int) (*RealIndicator, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Set is not implemented on non-Linux platforms.
func (i *RealIndicator) Set(on bool) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (i *RealIndicator) Close() error {
	return nil
}
