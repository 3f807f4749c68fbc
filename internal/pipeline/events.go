package pipeline

import "time"

// Event types emitted during an invocation.
const (
	EventSectionStarted   = "section.started"
	EventSectionSkipped   = "section.skipped"
	EventSectionCompleted = "section.completed"
	EventSectionFailed    = "section.failed"
	EventCacheHit         = "cache.hit"
	EventCacheMiss        = "cache.miss"
	EventPendingCommitted = "pending.committed"
	EventTemplateChanged  = "template.changed"
)

// Event is one observable step of a pipeline invocation.
type Event struct {
	Type         string    `json:"type"`
	InvocationID string    `json:"invocation_id,omitempty"`
	Template     string    `json:"template,omitempty"`
	Section      string    `json:"section,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	ContentHash  string    `json:"content_hash,omitempty"`
	Files        []string  `json:"files,omitempty"`
	Time         time.Time `json:"time"`
}

// EventSink receives pipeline events. Emit must not block for long.
type EventSink interface {
	Emit(Event)
}

// EventFunc adapts a function to EventSink.
type EventFunc func(Event)

// Emit calls f.
func (f EventFunc) Emit(e Event) { f(e) }

// Recorder collects events in memory.
type Recorder struct {
	Events []Event
}

// Emit implements EventSink.
func (r *Recorder) Emit(e Event) { r.Events = append(r.Events, e) }

// OfType returns the recorded events with type t.
func (r *Recorder) OfType(t string) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
