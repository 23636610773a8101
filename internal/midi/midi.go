// Package midi drives an external MIDI device from measure events: transport
// start on playback start, a click note on every measure start and transport
// stop on disconnect.
package midi

import (
	"fmt"
	"log"
	"strings"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/sweeney/measure-sync/internal/logic"
)

// Defaults for the click.
const (
	DefaultChannel  = 10 // General MIDI percussion
	DefaultNote     = 37 // side stick
	DefaultVelocity = 100
)

// Sender delivers one MIDI message to the device.
type Sender func(msg gomidi.Message) error

// Sink translates events into MIDI messages.
type Sink struct {
	send    Sender
	channel uint8
	note    uint8
	closer  func() error
}

// New creates a sink writing to send. channel is 1-16; out-of-range values
// and notes select the defaults.
func New(send Sender, channel, note int) *Sink {
	if channel < 1 || channel > 16 {
		channel = DefaultChannel
	}
	if note < 0 || note > 127 {
		note = DefaultNote
	}
	return &Sink{
		send:    send,
		channel: uint8(channel - 1),
		note:    uint8(note),
	}
}

// Open finds the first output port whose name contains portName
// (case-insensitive) and returns a sink writing to it.
func Open(portName string, channel, note int) (*Sink, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}

	outs, err := drv.Outs()
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("list midi outputs: %w", err)
	}

	var found drivers.Out
	for _, out := range outs {
		if containsCI(out.String(), portName) {
			found = out
			break
		}
	}
	if found == nil {
		drv.Close()
		return nil, fmt.Errorf("midi output %q not found", portName)
	}
	if err := found.Open(); err != nil {
		drv.Close()
		return nil, fmt.Errorf("open midi output %q: %w", found.String(), err)
	}

	send, err := gomidi.SendTo(found)
	if err != nil {
		found.Close()
		drv.Close()
		return nil, fmt.Errorf("midi send to %q: %w", found.String(), err)
	}
	log.Printf("midi: connected to %s", found.String())

	s := New(send, channel, note)
	s.closer = func() error {
		if err := found.Close(); err != nil {
			drv.Close()
			return fmt.Errorf("close midi output: %w", err)
		}
		return drv.Close()
	}
	return s, nil
}

// Handle sends the messages for e. Send failures are logged.
func (s *Sink) Handle(e logic.Event) {
	switch e.Type {
	case logic.EventPlaybackStart:
		s.emit(gomidi.Start())
		s.click()
	case logic.EventMeasureStart:
		s.click()
	case logic.EventDisconnect:
		s.emit(gomidi.Stop())
	}
}

func (s *Sink) click() {
	s.emit(gomidi.NoteOn(s.channel, s.note, DefaultVelocity))
	s.emit(gomidi.NoteOff(s.channel, s.note))
}

func (s *Sink) emit(msg gomidi.Message) {
	if err := s.send(msg); err != nil {
		log.Printf("midi: send %s failed: %v", msg, err)
	}
}

// Close stops the transport and releases the port.
func (s *Sink) Close() error {
	s.emit(gomidi.Stop())
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
