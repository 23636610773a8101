// Package serial writes notice lines to a serial device.
package serial

import (
	"fmt"
	"io"
	"log"

	"go.bug.st/serial"
)

// DefaultBaud is used when no baud rate is configured.
const DefaultBaud = 115200

// Sink is a line-oriented text sink on a serial port. Write errors are
// logged and swallowed so a flaky cable never stops the caller.
type Sink struct {
	port   io.WriteCloser
	device string
}

// Open opens device at baud (DefaultBaud if <= 0), 8N1.
func Open(device string, baud int) (*Sink, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}
	log.Printf("serial: opened %s at %d baud", device, baud)
	return newSink(device, p), nil
}

func newSink(device string, port io.WriteCloser) *Sink {
	return &Sink{port: port, device: device}
}

// Write sends p to the port. It always reports len(p), nil.
func (s *Sink) Write(p []byte) (int, error) {
	if _, err := s.port.Write(p); err != nil {
		log.Printf("serial: write to %s failed: %v", s.device, err)
	}
	return len(p), nil
}

// Close closes the port.
func (s *Sink) Close() error {
	if err := s.port.Close(); err != nil {
		return fmt.Errorf("close serial %s: %w", s.device, err)
	}
	return nil
}
