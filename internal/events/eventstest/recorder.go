// Package eventstest provides an in-memory events.Publisher for tests.
package eventstest

import (
	"sync"

	"forum_backend/internal/events"
)

type Published struct {
	Audience events.Audience
	Type     string
	Payload  any
}

// Recorder keeps every published event in order.
type Recorder struct {
	mu     sync.Mutex
	events []Published
}

func (r *Recorder) Publish(audience events.Audience, eventType string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Published{Audience: audience, Type: eventType, Payload: payload})
}

func (r *Recorder) All() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Published, len(r.events))
	copy(out, r.events)
	return out
}

// Filter returns the events of eventType sent to audience.
func (r *Recorder) Filter(audience events.Audience, eventType string) []Published {
	var out []Published
	for _, e := range r.All() {
		if e.Audience == audience && e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// OfType returns every event of eventType regardless of audience.
func (r *Recorder) OfType(eventType string) []Published {
	var out []Published
	for _, e := range r.All() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
