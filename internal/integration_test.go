package internal

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/sweeney/measure-sync/internal/gpio"
	"github.com/sweeney/measure-sync/internal/logic"
	"github.com/sweeney/measure-sync/internal/midi"
	"github.com/sweeney/measure-sync/internal/mqtt"
	"github.com/sweeney/measure-sync/internal/status"
)

var wallStart = time.Date(2026, 1, 1, 20, 0, 0, 0, time.UTC)

// train returns count stamps spaced step ms apart, the first at first.
func train(first, step int64, count int) []int64 {
	out := make([]int64, count)
	for i := range out {
		out[i] = first + step*int64(i)
	}
	return out
}

// session returns a pulse sequence at 120 BPM: playback detected at 1350,
// measures at 3100 and 5100, the sequencer stops, restarts at 8000 and plays
// one more measure ending at 10000.
func session() []int64 {
	var s []int64
	s = append(s, 250, 500, 750, 1100)   // 350 ms gap before the measure's second pulse
	s = append(s, train(1350, 250, 16)...) // 1350 .. 5100
	s = append(s, train(8000, 250, 9)...)  // restart after a 2.9 s gap
	return s
}

// pipeline wires a fake pulse source through the clock to the sinks, the
// way the daemon does, minus the queue between them.
type pipeline struct {
	clock     *logic.MeasureClock
	source    *gpio.FakePulseSource
	publisher *mqtt.FakePublisher
	sender    *midi.FakeSender
	notices   bytes.Buffer
	tracker   *status.Tracker
}

func newPipeline(cfg logic.ClockConfig) *pipeline {
	p := &pipeline{
		clock:     logic.NewMeasureClock(cfg, 0),
		publisher: mqtt.NewFakePublisher(),
		sender:    &midi.FakeSender{},
		tracker:   status.NewTracker(wallStart, status.Config{}),
	}
	clicks := midi.New(p.sender.Send, midi.DefaultChannel, midi.DefaultNote)
	p.source = gpio.NewFakePulseSource(func(ms int64) {
		for _, e := range p.clock.OnPulse(ms) {
			p.notices.WriteString(logic.FormatNotice(e))
			p.publisher.Publish(mqtt.MeasureEvent{
				Timestamp: wallStart.Add(time.Duration(ms) * time.Millisecond),
				Event:     e,
			})
			clicks.Handle(e)
		}
		p.tracker.Update(p.clock.Shared().Snapshot())
	})
	return p
}

// TestIntegrationFullFlow tests the complete flow from pulses to MQTT using fakes.
func TestIntegrationFullFlow(t *testing.T) {
	p := newPipeline(logic.ClockConfig{})
	p.source.Fire(session()...)

	want := []struct {
		typ     logic.EventType
		pulseMs int64
		measure int
	}{
		{logic.EventPlaybackStart, 1350, 0},
		{logic.EventMeasureStart, 3100, 1},
		{logic.EventMeasureStart, 5100, 2},
		{logic.EventDisconnect, 8000, 0},
		{logic.EventPlaybackStart, 8250, 0},
		{logic.EventMeasureStart, 10000, 1},
	}

	got := p.publisher.Events
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d: %v", len(want), len(got), p.publisher.Types())
	}
	for i, w := range want {
		e := got[i].Event
		if e.Type != w.typ || e.PulseMs != w.pulseMs || e.Measure != w.measure {
			t.Errorf("event %d: expected %s@%d measure %d, got %s@%d measure %d",
				i, w.typ, w.pulseMs, w.measure, e.Type, e.PulseMs, e.Measure)
		}
		if e.Type == logic.EventMeasureStart && e.BPM != 120 {
			t.Errorf("event %d: expected 120 BPM, got %v", i, e.BPM)
		}
	}

	counts := p.clock.Shared().Snapshot().Counts
	if counts.Measures != 3 || counts.PlaybackStarts != 2 || counts.Disconnects != 1 {
		t.Errorf("unexpected counts: %+v", counts)
	}
}

func TestIntegrationNotices(t *testing.T) {
	p := newPipeline(logic.ClockConfig{})
	p.source.Fire(session()...)

	want := "PLAYBACK START DETECTED\n" +
		"Measure start, BPM = 120.00\n" +
		"Measure start, BPM = 120.00\n" +
		"Sequencer disconnected, waiting for new measure start\n" +
		"PLAYBACK START DETECTED\n" +
		"Measure start, BPM = 120.00\n"
	if p.notices.String() != want {
		t.Errorf("unexpected notices:\ngot:  %q\nwant: %q", p.notices.String(), want)
	}
}

func TestIntegrationNoEventsWithoutSignature(t *testing.T) {
	p := newPipeline(logic.ClockConfig{})
	p.source.Fire(train(250, 250, 40)...)

	if len(p.publisher.Events) != 0 {
		t.Errorf("expected no events from a steady train, got %v", p.publisher.Types())
	}
	if p.tracker.Snapshot().Synced {
		t.Error("should still be waiting for sync")
	}
}

func TestIntegrationBounceRejection(t *testing.T) {
	clean := newPipeline(logic.ClockConfig{})
	clean.source.Fire(session()...)

	// Every edge rings once 2 ms later.
	var noisy []int64
	for _, ms := range session() {
		noisy = append(noisy, ms, ms+2)
	}
	bouncy := newPipeline(logic.ClockConfig{})
	bouncy.source.Fire(noisy...)

	if len(bouncy.publisher.Events) != len(clean.publisher.Events) {
		t.Fatalf("bounces changed the events: clean %v, noisy %v",
			clean.publisher.Types(), bouncy.publisher.Types())
	}
	for i := range clean.publisher.Events {
		if bouncy.publisher.Events[i].Event != clean.publisher.Events[i].Event {
			t.Errorf("event %d differs: clean %+v, noisy %+v", i,
				clean.publisher.Events[i].Event, bouncy.publisher.Events[i].Event)
		}
	}
	if n := bouncy.clock.Shared().Snapshot().Counts.Debounced; n != int64(len(session())) {
		t.Errorf("expected %d debounced, got %d", len(session()), n)
	}
}

func TestIntegrationMIDI(t *testing.T) {
	p := newPipeline(logic.ClockConfig{})
	p.source.Fire(session()...)

	ch := uint8(midi.DefaultChannel - 1)
	note := uint8(midi.DefaultNote)
	click := []gomidi.Message{gomidi.NoteOn(ch, note, midi.DefaultVelocity), gomidi.NoteOff(ch, note)}

	var want []gomidi.Message
	want = append(want, gomidi.Start())
	want = append(want, click...) // playback start
	want = append(want, click...) // measure 1
	want = append(want, click...) // measure 2
	want = append(want, gomidi.Stop())
	want = append(want, gomidi.Start())
	want = append(want, click...) // playback start
	want = append(want, click...) // measure 1

	got := p.sender.Messages
	if len(got) != len(want) {
		t.Fatalf("expected %d MIDI messages, got %d", len(want), len(got))
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Errorf("message %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestIntegrationPublishFailureDoesNotCrash(t *testing.T) {
	p := newPipeline(logic.ClockConfig{})
	p.publisher.PublishError = errors.New("broker down")

	p.source.Fire(session()...)

	if len(p.publisher.Events) != 0 {
		t.Errorf("expected nothing recorded, got %d", len(p.publisher.Events))
	}
	if p.clock.Shared().Snapshot().Counts.Measures != 3 {
		t.Error("clock should keep running when publishing fails")
	}
}

func TestIntegrationPayloadFormat(t *testing.T) {
	p := newPipeline(logic.ClockConfig{})
	p.source.Fire(session()...)

	if len(p.publisher.Payloads) < 2 {
		t.Fatalf("expected at least 2 payloads, got %d", len(p.publisher.Payloads))
	}
	expected := `{"measure":{"timestamp":"2026-01-01T20:00:03Z","event":"MEASURE_START","bpm":120.00,"phase":0,"measure":1}}`
	if string(p.publisher.Payloads[1]) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", p.publisher.Payloads[1], expected)
	}

	var parsed mqtt.Payload
	if err := json.Unmarshal(p.publisher.Payloads[0], &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Measure.Event != "PLAYBACK_START" || parsed.Measure.Phase != 1 {
		t.Errorf("unexpected playback payload: %+v", parsed.Measure)
	}
}

func TestIntegrationTrackerFollowsClock(t *testing.T) {
	p := newPipeline(logic.ClockConfig{})
	p.source.Fire(train(250, 250, 3)...)
	p.source.Fire(1100, 1350, 1600, 1850)

	snap := p.tracker.Snapshot()
	if !snap.Synced {
		t.Fatal("expected synced after the signature")
	}
	if snap.Phase != 3 {
		t.Errorf("Phase: got %d, want 3", snap.Phase)
	}

	var sj status.StatusJSON
	if err := json.Unmarshal(status.FormatJSON(snap), &sj); err != nil {
		t.Fatalf("invalid status JSON: %v", err)
	}
	if sj.Status.State != "SYNCED" || sj.Status.Counts.PlaybackStarts != 1 {
		t.Errorf("unexpected status: %+v", sj.Status)
	}
}

func TestIntegrationSignatureDebugOutput(t *testing.T) {
	var debug bytes.Buffer
	p := newPipeline(logic.ClockConfig{Debug: &debug})
	p.source.Fire(250, 500, 750, 1100, 1350)

	want := "Put: 350 Content: 250, 250, 350, \n" +
		"Put: 250 Content: 250, 350, 250, \n"
	if debug.String() != want {
		t.Errorf("unexpected debug output:\ngot:  %q\nwant: %q", debug.String(), want)
	}
}
