package gpio

import (
	"errors"
	"testing"
)

func TestFakePulseSourceFire(t *testing.T) {
	var got []int64
	f := NewFakePulseSource(func(ms int64) { got = append(got, ms) })

	f.Fire(100, 350, 600)
	f.Fire(850)

	want := []int64{100, 350, 600, 850}
	if len(got) != len(want) {
		t.Fatalf("expected %d edges, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("edge %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestFakePulseSourceClose(t *testing.T) {
	calls := 0
	f := NewFakePulseSource(func(ms int64) { calls++ })

	if f.Closed {
		t.Error("should not be closed initially")
	}
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}

	f.Fire(100)
	if calls != 0 {
		t.Errorf("expected no edges after Close, got %d", calls)
	}
}

func TestFakeIndicatorSet(t *testing.T) {
	f := NewFakeIndicator()
	if f.On() {
		t.Error("should be off initially")
	}

	f.Set(true)
	if !f.On() {
		t.Error("should be on after Set(true)")
	}
	f.Set(false)
	if f.On() {
		t.Error("should be off after Set(false)")
	}
	if len(f.Levels) != 2 {
		t.Errorf("expected 2 recorded levels, got %d", len(f.Levels))
	}
}

func TestFakeIndicatorError(t *testing.T) {
	f := NewFakeIndicator()
	f.SetError = errors.New("simulated error")

	err := f.Set(true)
	if err == nil {
		t.Fatal("expected error to be returned")
	}
	if err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
	if len(f.Levels) != 0 {
		t.Errorf("expected no levels recorded on error, got %d", len(f.Levels))
	}
}

func TestFakeIndicatorClose(t *testing.T) {
	f := NewFakeIndicator()
	f.Set(true)

	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}
	if f.On() {
		t.Error("Close should turn the indicator off")
	}

	f.Reset()
	if f.Closed || len(f.Levels) != 0 {
		t.Error("Reset should clear state")
	}
}
