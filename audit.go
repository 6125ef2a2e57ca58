package adminauth

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"sync"
	"time"
)

// AuditEvent is one append-only record of a privileged action or a
// security-relevant rejection. Details is deliberately untyped: action
// types do not share a fixed schema.
type AuditEvent struct {
	ID      string         `json:"id"`
	ActorID string         `json:"actorId,omitempty"`
	Action  string         `json:"action"`
	Details map[string]any `json:"details,omitempty"`
	IP      string         `json:"ip,omitempty"`
	TS      EventTime      `json:"ts"`
}

// EventTime serializes as RFC 3339 for log-shipping compatibility.
type EventTime struct {
	time.Time
}

// MarshalJSON renders the timestamp as an RFC 3339 string in UTC.
func (t EventTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

// UnmarshalJSON parses an RFC 3339 timestamp.
func (t *EventTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// AuditSink receives events from the engine's audit dispatcher. Emit
// must not panic; a sink that cannot deliver records the failure itself
// (see [StoreSink]) rather than surfacing it to the operation being
// audited.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards all events.
type NoOpSink struct{}

// Emit discards the event.
func (NoOpSink) Emit(context.Context, AuditEvent) {}

// StoreSink appends events through a [CredentialStore]. Append failures
// are written to the process log so audit unavailability is observable
// without becoming a denial-of-service vector for login.
type StoreSink struct {
	store CredentialStore
}

// NewStoreSink creates a StoreSink over store.
func NewStoreSink(store CredentialStore) *StoreSink {
	return &StoreSink{store: store}
}

// Emit appends the event, logging on failure instead of returning it.
func (s *StoreSink) Emit(ctx context.Context, event AuditEvent) {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.AppendAuditEvent(ctx, event); err != nil {
		log.Printf("adminauth: audit append failed for action %s: %v", event.Action, err)
	}
}

// ChannelSink forwards events to a buffered channel, for callers that
// ship audit records themselves.
type ChannelSink struct {
	events chan AuditEvent
}

// NewChannelSink creates a ChannelSink with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan AuditEvent, buffer)}
}

// Emit enqueues the event, giving up if ctx is cancelled first.
func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// Events returns the receive side of the sink.
func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes newline-delimited JSON events to an [io.Writer],
// one object per line in the exported audit record format.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink creates a JSONWriterSink that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

// Emit writes one NDJSON line. Marshal or write failures are dropped;
// the writer is assumed to be a best-effort export target.
func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// MultiSink fans one event out to several sinks in order.
type MultiSink []AuditSink

// Emit delivers the event to every sink.
func (m MultiSink) Emit(ctx context.Context, event AuditEvent) {
	for _, sink := range m {
		if sink != nil {
			sink.Emit(ctx, event)
		}
	}
}
