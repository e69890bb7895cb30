package agent

import (
	"context"
	"io"
)

// Source yields the raw events of one running conversation.
// Recv returns io.EOF once the conversation has ended cleanly.
type Source interface {
	Recv() (Event, error)
	Close() error
}

// Transport starts conversations with the agent.
type Transport interface {
	Open(ctx context.Context, req Request) (Source, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req Request) (Source, error)

// Open calls f.
func (f TransportFunc) Open(ctx context.Context, req Request) (Source, error) {
	return f(ctx, req)
}

// SliceSource replays a fixed list of events, then returns Err (or io.EOF).
type SliceSource struct {
	Events []Event
	Err    error
	pos    int
}

// NewSliceSource creates a Source over events.
func NewSliceSource(events ...Event) *SliceSource {
	return &SliceSource{Events: events}
}

// Recv returns the next event.
func (s *SliceSource) Recv() (Event, error) {
	if s.pos < len(s.Events) {
		ev := s.Events[s.pos]
		s.pos++
		return ev, nil
	}
	if s.Err != nil {
		return Event{}, s.Err
	}
	return Event{}, io.EOF
}

// Close is a no-op.
func (s *SliceSource) Close() error {
	return nil
}
