package serial

import (
	"bytes"
	"errors"
	"io"
	"log"
	"os"
	"strings"
	"testing"
)

type fakePort struct {
	buf      bytes.Buffer
	writeErr error
	closeErr error
	closed   bool
}

func (f *fakePort) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return f.buf.Write(p)
}

func (f *fakePort) Close() error {
	f.closed = true
	return f.closeErr
}

func TestSinkWrite(t *testing.T) {
	port := &fakePort{}
	s := newSink("/dev/ttyTEST", port)

	n, err := io.WriteString(s, "PLAYBACK START DETECTED\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 24 {
		t.Errorf("expected 24 bytes, got %d", n)
	}
	if port.buf.String() != "PLAYBACK START DETECTED\n" {
		t.Errorf("unexpected port contents %q", port.buf.String())
	}
}

func TestSinkWriteErrorIsLogged(t *testing.T) {
	var logBuf bytes.Buffer
	log.SetOutput(&logBuf)
	defer log.SetOutput(os.Stderr)

	port := &fakePort{writeErr: errors.New("cable unplugged")}
	s := newSink("/dev/ttyTEST", port)

	n, err := s.Write([]byte("Measure start, BPM = 120.00\n"))
	if err != nil {
		t.Errorf("write error should be swallowed, got %v", err)
	}
	if n != 28 {
		t.Errorf("expected 28 bytes reported, got %d", n)
	}
	if !strings.Contains(logBuf.String(), "cable unplugged") {
		t.Errorf("expected error in log, got %q", logBuf.String())
	}
}

func TestSinkClose(t *testing.T) {
	port := &fakePort{}
	s := newSink("/dev/ttyTEST", port)
	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !port.closed {
		t.Error("port should be closed")
	}

	port = &fakePort{closeErr: errors.New("busy")}
	s = newSink("/dev/ttyTEST", port)
	err := s.Close()
	if err == nil || !strings.Contains(err.Error(), "/dev/ttyTEST") {
		t.Errorf("expected wrapped close error, got %v", err)
	}
}

func TestOpenMissingDevice(t *testing.T) {
	_, err := Open("/dev/does-not-exist-measure-sync", 0)
	if err == nil {
		t.Fatal("expected error opening missing device")
	}
	if !strings.Contains(err.Error(), "open serial") {
		t.Errorf("expected wrapped error, got %v", err)
	}
}
