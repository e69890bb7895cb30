// Package agenttest provides a scripted agent transport for tests.
package agenttest

import (
	"context"
	"sync"

	"github.com/bengabay11/ticket2pr/internal/agent"
)

// Handler produces the events for one request. Handlers may touch the
// filesystem to simulate the agent's side effects.
type Handler func(req agent.Request) ([]agent.Event, error)

// Transport replays handlers in call order. Once they run out, Default
// (or Reply with an empty text) serves every further call.
type Transport struct {
	mu       sync.Mutex
	handlers []Handler
	Default  Handler
	Requests []agent.Request
}

// New creates a Transport that serves handlers in order.
func New(handlers ...Handler) *Transport {
	return &Transport{handlers: handlers}
}

// Open records req and runs the next handler.
func (t *Transport) Open(_ context.Context, req agent.Request) (agent.Source, error) {
	t.mu.Lock()
	idx := len(t.Requests)
	t.Requests = append(t.Requests, req)
	h := t.Default
	if idx < len(t.handlers) {
		h = t.handlers[idx]
	}
	t.mu.Unlock()

	if h == nil {
		h = Reply("session-test", "")
	}
	events, err := h(req)
	if err != nil {
		return nil, err
	}
	return agent.NewSliceSource(events...), nil
}

// Calls returns how many conversations were opened.
func (t *Transport) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Requests)
}

// Request returns the i-th recorded request.
func (t *Transport) Request(i int) agent.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Requests[i]
}

// Conversation builds a successful transcript: init, one text block, result.
func Conversation(sessionID, text string) []agent.Event {
	return []agent.Event{
		{Kind: agent.KindSystem, SessionID: sessionID, Subtype: "init", Model: "claude-test"},
		{Kind: agent.KindText, SessionID: sessionID, Text: text},
		{Kind: agent.KindResult, SessionID: sessionID, Subtype: "success", Text: text},
	}
}

// Reply returns a handler that answers with Conversation.
func Reply(sessionID, text string) Handler {
	return func(agent.Request) ([]agent.Event, error) {
		return Conversation(sessionID, text), nil
	}
}

// Do runs fn for its side effects, then answers with Conversation.
func Do(sessionID, text string, fn func(req agent.Request)) Handler {
	return func(req agent.Request) ([]agent.Event, error) {
		fn(req)
		return Conversation(sessionID, text), nil
	}
}

// Fail returns a handler whose transport fails to start.
func Fail(err error) Handler {
	return func(agent.Request) ([]agent.Event, error) {
		return nil, err
	}
}
