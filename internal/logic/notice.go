package logic

import "fmt"

// FormatNotice renders the status line written to the text sink for an event.
func FormatNotice(e Event) string {
	switch e.Type {
	case EventDisconnect:
		return "Sequencer disconnected, waiting for new measure start\n"
	case EventPlaybackStart:
		return "PLAYBACK START DETECTED\n"
	case EventMeasureStart:
		return fmt.Sprintf("Measure start, BPM = %4.2f\n", e.BPM)
	default:
		return fmt.Sprintf("%s\n", e.Type)
	}
}
