package activity

import (
	"context"
	"sync"
)

// CaptureHook records factory events in memory. Tests and examples use it to
// assert which makes were observed.
type CaptureHook struct {
	Events []Event
	// Verbs restricts capture to the listed verbs. Empty captures everything.
	Verbs []string
	Err   error
	mu    sync.Mutex
}

// Notify records the normalized event and returns the configured error.
func (h *CaptureHook) Notify(_ context.Context, event Event) error {
	event = NormalizeEvent(event)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.accepts(event.Verb) {
		h.Events = append(h.Events, event)
	}
	return h.Err
}

// Made returns the captured events for successful makes.
func (h *CaptureHook) Made() []Event {
	return h.byVerb(VerbMade)
}

// Failed returns the captured events for failed makes.
func (h *CaptureHook) Failed() []Event {
	return h.byVerb(VerbMakeFailed)
}

// Reset discards captured events.
func (h *CaptureHook) Reset() {
	h.mu.Lock()
	h.Events = nil
	h.mu.Unlock()
}

func (h *CaptureHook) accepts(verb string) bool {
	if len(h.Verbs) == 0 {
		return true
	}
	for _, v := range h.Verbs {
		if v == verb {
			return true
		}
	}
	return false
}

func (h *CaptureHook) byVerb(verb string) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []Event
	for _, event := range h.Events {
		if event.Verb == verb {
			out = append(out, event)
		}
	}
	return out
}
