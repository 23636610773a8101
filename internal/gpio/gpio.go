// Package gpio provides the pulse input and LED output with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// PulseHandler receives the timestamp of a rising edge in milliseconds from
// a monotonic clock. Calls are serialized.
type PulseHandler func(ms int64)

// PulseSource delivers rising edges on the sync input to a PulseHandler
// until closed.
type PulseSource interface {
	// Close stops edge delivery and releases GPIO resources.
	Close() error
}

// Indicator drives the measure-start LED.
type Indicator interface {
	// Set turns the LED on or off.
	Set(on bool) error

	// Close turns the LED off and releases GPIO resources.
	Close() error
}

// Chip is the GPIO character device used on Raspberry Pi.
const Chip = "gpiochip0"

// Pin definitions (BCM numbering)
const (
	DefaultPinSync = 17 // sync in from the sequencer
	DefaultPinLED  = 27 // measure-start LED
)
