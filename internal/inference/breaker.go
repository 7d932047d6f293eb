package inference

import "time"

// exceptionWindow tracks inference exceptions within a rolling window and
// reports when the Ready→Fallback escalation threshold (§4.7: "≥3 in
// 10s") is reached. It is a one-way trip, not a three-state circuit
// breaker: once escalated, the engine stays in Fallback until an operator
// reloads the model, so there is no half-open probe phase, just a trip.
type exceptionWindow struct {
	threshold int
	window    time.Duration
	events    []time.Time
}

func newExceptionWindow(threshold int, window time.Duration) *exceptionWindow {
	return &exceptionWindow{threshold: threshold, window: window}
}

// record appends an exception timestamp, evicts entries outside the
// window, and reports whether the threshold has now been reached.
func (w *exceptionWindow) record(now time.Time) (tripped bool) {
	cutoff := now.Add(-w.window)
	kept := w.events[:0]
	for _, t := range w.events {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	w.events = kept
	return len(w.events) >= w.threshold
}

// reset clears recorded exceptions, used when the engine successfully
// reloads a model after a trip.
func (w *exceptionWindow) reset() {
	w.events = w.events[:0]
}
