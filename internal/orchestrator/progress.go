package orchestrator

import (
	"fmt"
	"io"
)

// ProgressReporter emits progress events through a buffered channel.
type ProgressReporter struct {
	ch chan ProgressEvent
}

// NewProgressReporter creates a ProgressReporter with a buffered channel of size 64.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan ProgressEvent, 64),
	}
}

// Emit sends a progress event without blocking. When nobody drains the
// channel fast enough the event is dropped.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	select {
	case pr.ch <- event:
	default:
	}
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the progress event channel. Emit must not be called after.
func (pr *ProgressReporter) Close() {
	close(pr.ch)
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	switch event.Status {
	case ProgressPending:
		return fmt.Sprintf("  ○ %s (pending)", event.Path)
	case ProgressWorking:
		return fmt.Sprintf("  ● %s...", event.Path)
	case ProgressComplete:
		if event.Message != "" {
			return fmt.Sprintf("  ✓ %s (%s)", event.Path, event.Message)
		}
		return fmt.Sprintf("  ✓ %s", event.Path)
	case ProgressFailed:
		return fmt.Sprintf("  ✗ %s failed: %s", event.Path, event.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown status)", event.Path)
	}
}

// FormatPassHeader formats a pass header for display.
// Returns: "[{runID}] Pass {N}: {pass.String()}"
func FormatPassHeader(runID string, pass Pass) string {
	return fmt.Sprintf("[%s] Pass %d: %s", runID, int(pass), pass.String())
}

// PrintProgress writes one FormatProgress line per event to w, preceded by
// a pass header whenever the pass changes. It returns when events is closed.
func PrintProgress(w io.Writer, events <-chan ProgressEvent) {
	var pass Pass
	for ev := range events {
		if ev.Pass != pass {
			pass = ev.Pass
			fmt.Fprintln(w, FormatPassHeader(ev.RunID, pass))
		}
		fmt.Fprintln(w, FormatProgress(ev))
	}
}
