package midi

import (
	"bytes"
	"errors"
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/sweeney/measure-sync/internal/logic"
)

func assertMessages(t *testing.T, got []gomidi.Message, want ...gomidi.Message) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d messages, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Errorf("message %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestPlaybackStartSendsStartAndClick(t *testing.T) {
	f := &FakeSender{}
	s := New(f.Send, 10, 37)

	s.Handle(logic.Event{Type: logic.EventPlaybackStart, Phase: 1})

	assertMessages(t, f.Messages,
		gomidi.Start(),
		gomidi.NoteOn(9, 37, DefaultVelocity),
		gomidi.NoteOff(9, 37))
}

func TestMeasureStartSendsClick(t *testing.T) {
	f := &FakeSender{}
	s := New(f.Send, 1, 60)

	s.Handle(logic.Event{Type: logic.EventMeasureStart, BPM: 120, Measure: 2})

	assertMessages(t, f.Messages,
		gomidi.NoteOn(0, 60, DefaultVelocity),
		gomidi.NoteOff(0, 60))
}

func TestDisconnectSendsStop(t *testing.T) {
	f := &FakeSender{}
	s := New(f.Send, 10, 37)

	s.Handle(logic.Event{Type: logic.EventDisconnect})

	assertMessages(t, f.Messages, gomidi.Stop())
}

func TestNewDefaults(t *testing.T) {
	tests := []struct {
		name        string
		channel     int
		note        int
		wantChannel uint8
		wantNote    uint8
	}{
		{"valid", 3, 42, 2, 42},
		{"channel zero", 0, 42, DefaultChannel - 1, 42},
		{"channel too high", 17, 42, DefaultChannel - 1, 42},
		{"note negative", 3, -1, 2, DefaultNote},
		{"note too high", 3, 128, 2, DefaultNote},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New((&FakeSender{}).Send, tt.channel, tt.note)
			if s.channel != tt.wantChannel {
				t.Errorf("expected channel %d, got %d", tt.wantChannel, s.channel)
			}
			if s.note != tt.wantNote {
				t.Errorf("expected note %d, got %d", tt.wantNote, s.note)
			}
		})
	}
}

func TestSendErrorDoesNotStop(t *testing.T) {
	f := &FakeSender{Err: errors.New("device gone")}
	s := New(f.Send, 10, 37)

	// Must not panic; errors are logged.
	s.Handle(logic.Event{Type: logic.EventPlaybackStart})
	s.Handle(logic.Event{Type: logic.EventMeasureStart})

	f.Err = nil
	s.Handle(logic.Event{Type: logic.EventDisconnect})
	assertMessages(t, f.Messages, gomidi.Stop())
}

func TestCloseSendsStop(t *testing.T) {
	f := &FakeSender{}
	s := New(f.Send, 10, 37)

	closed := false
	s.closer = func() error {
		closed = true
		return nil
	}

	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertMessages(t, f.Messages, gomidi.Stop())
	if !closed {
		t.Error("expected port to be closed")
	}
}

func TestContainsCI(t *testing.T) {
	if !containsCI("Elektron Digitakt MIDI 1", "digitakt") {
		t.Error("expected case-insensitive match")
	}
	if containsCI("Midi Through Port-0", "digitakt") {
		t.Error("unexpected match")
	}
}
