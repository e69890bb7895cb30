package agent

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	t2perrors "github.com/bengabay11/ticket2pr/internal/errors"
)

// lowBalanceMarker is how the agent reports an exhausted API credit balance.
const lowBalanceMarker = "credit balance is too low"

// Bridge runs agent queries through a Transport and translates failures.
type Bridge struct {
	transport Transport
	timeout   time.Duration
	model     string
}

// BridgeOption configures Bridge.
type BridgeOption func(*Bridge)

// WithTimeout bounds each query's wall-clock time. Zero means no limit.
func WithTimeout(d time.Duration) BridgeOption {
	return func(b *Bridge) { b.timeout = d }
}

// WithModel sets the default model for requests that do not name one.
func WithModel(model string) BridgeOption {
	return func(b *Bridge) { b.model = model }
}

// NewBridge creates a Bridge over transport.
func NewBridge(transport Transport, opts ...BridgeOption) *Bridge {
	b := &Bridge{transport: transport}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Query starts a conversation and returns its live event stream. The
// caller must Close the stream.
func (b *Bridge) Query(ctx context.Context, req Request) (*Stream, error) {
	if req.PermissionMode == "" {
		req.PermissionMode = PermissionDefault
	}
	if req.Model == "" {
		req.Model = b.model
	}

	cancel := context.CancelFunc(func() {})
	if b.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
	}

	src, err := b.transport.Open(ctx, req)
	if err != nil {
		cancel()
		return nil, translate(err)
	}
	return &Stream{src: src, cancel: cancel, started: time.Now()}, nil
}

// Run executes a query to completion, passing every event to fn, and
// returns the session id reported by the conversation.
func (b *Bridge) Run(ctx context.Context, req Request, fn func(Event)) (string, error) {
	stream, err := b.Query(ctx, req)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	if err := stream.Drain(fn); err != nil {
		return stream.SessionID(), err
	}
	return stream.SessionID(), nil
}

// Stream is a live, pull-based view of one conversation.
type Stream struct {
	src     Source
	cancel  context.CancelFunc
	started time.Time

	peeked    *Event
	done      bool
	err       error
	sessionID string
	result    *Event
}

// Peek returns the next event without consuming it.
func (s *Stream) Peek() (Event, bool) {
	if s.peeked != nil {
		return *s.peeked, true
	}
	ev, ok := s.recv()
	if !ok {
		return Event{}, false
	}
	s.peeked = &ev
	return ev, true
}

// Next returns the next event, or false once the stream has ended.
// Check Err after Next returns false.
func (s *Stream) Next() (Event, bool) {
	if s.peeked != nil {
		ev := *s.peeked
		s.peeked = nil
		return ev, true
	}
	return s.recv()
}

// SessionID returns the conversation's session id. On a fresh stream it
// peeks the first event, which carries the id.
func (s *Stream) SessionID() string {
	if s.sessionID == "" && !s.done {
		s.Peek()
	}
	return s.sessionID
}

// Result returns the final result event, if one arrived.
func (s *Stream) Result() (Event, bool) {
	if s.result == nil {
		return Event{}, false
	}
	return *s.result, true
}

// Err returns the error that ended the stream, if any.
func (s *Stream) Err() error {
	return s.err
}

// Drain consumes the rest of the stream, calling fn for each event.
func (s *Stream) Drain(fn func(Event)) error {
	for {
		ev, ok := s.Next()
		if !ok {
			return s.err
		}
		if fn != nil {
			fn(ev)
		}
	}
}

// Close stops the conversation and releases its resources.
func (s *Stream) Close() error {
	defer s.cancel()
	s.done = true
	if err := s.src.Close(); err != nil {
		slog.Debug("close agent stream", "error", err)
	}
	return nil
}

func (s *Stream) recv() (Event, bool) {
	if s.done {
		return Event{}, false
	}
	ev, err := s.src.Recv()
	if err != nil {
		s.done = true
		if !errors.Is(err, io.EOF) && s.err == nil {
			s.err = translate(err)
		}
		slog.Debug("agent stream ended", "elapsed", time.Since(s.started), "error", s.err)
		return Event{}, false
	}

	if s.sessionID == "" && ev.SessionID != "" {
		s.sessionID = ev.SessionID
	}
	if ev.Kind == KindResult {
		result := ev
		s.result = &result
		if ev.IsError && s.err == nil {
			s.err = classifyResult(ev)
		}
	}
	return ev, true
}

// translate converts any transport failure into an agent error, keeping
// errors that are already classified.
func translate(err error) error {
	if e := t2perrors.AsError(err); e != nil && e.Category() == t2perrors.CategoryAgent {
		return err
	}
	if strings.Contains(strings.ToLower(err.Error()), lowBalanceMarker) {
		return t2perrors.ErrAgentLowBalance(err.Error())
	}
	return t2perrors.ErrAgentQuery(err)
}

func classifyResult(ev Event) error {
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		text = ev.Subtype
	}
	if strings.Contains(strings.ToLower(text), lowBalanceMarker) {
		return t2perrors.ErrAgentLowBalance(text)
	}
	return t2perrors.ErrAgentQuery(errors.New(text))
}
