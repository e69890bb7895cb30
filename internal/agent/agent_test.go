package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	t2perrors "github.com/bengabay11/ticket2pr/internal/errors"
	"github.com/bengabay11/ticket2pr/internal/shell"
)

const transcript = `{"type":"system","subtype":"init","session_id":"sess-123","model":"claude-sonnet-4","tools":["Read","Grep"]}
{"type":"assistant","message":{"content":[{"type":"thinking","thinking":"Look at the handler first"},{"type":"text","text":"Reading the handler."},{"type":"tool_use","id":"tu_1","name":"Read","input":{"file_path":"internal/api/handler.go"}}]},"session_id":"sess-123"}
{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"tu_1","content":[{"type":"text","text":"package api"}],"is_error":false}]},"session_id":"sess-123"}
{"type":"result","subtype":"success","is_error":false,"duration_ms":12500,"num_turns":3,"result":"Done.","session_id":"sess-123","total_cost_usd":0.042}
`

func parseTranscript(t *testing.T, text string) []Event {
	t.Helper()
	var events []Event
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		evs, err := ParseLine([]byte(line))
		require.NoError(t, err)
		events = append(events, evs...)
	}
	return events
}

func TestParseLine(t *testing.T) {
	events := parseTranscript(t, transcript)
	require.Len(t, events, 6)

	assert.Equal(t, KindSystem, events[0].Kind)
	assert.Equal(t, "sess-123", events[0].SessionID)
	assert.Equal(t, "claude-sonnet-4", events[0].Model)

	assert.Equal(t, KindThinking, events[1].Kind)
	assert.Equal(t, KindText, events[2].Kind)
	assert.Equal(t, "Reading the handler.", events[2].Text)

	assert.Equal(t, KindToolUse, events[3].Kind)
	assert.Equal(t, "Read", events[3].ToolName)
	assert.JSONEq(t, `{"file_path":"internal/api/handler.go"}`, events[3].ToolInput)

	assert.Equal(t, KindToolResult, events[4].Kind)
	assert.Equal(t, "package api", events[4].Text)

	res := events[5]
	assert.Equal(t, KindResult, res.Kind)
	assert.Equal(t, "Done.", res.Text)
	assert.Equal(t, 12500*time.Millisecond, res.Duration)
	assert.Equal(t, 3, res.NumTurns)
	assert.InDelta(t, 0.042, res.CostUSD, 1e-9)
}

func TestParseLine_Invalid(t *testing.T) {
	_, err := ParseLine([]byte("not json"))
	assert.Error(t, err)

	evs, err := ParseLine([]byte(`{"type":"stream_event"}`))
	assert.NoError(t, err)
	assert.Empty(t, evs)
}

func TestStream_PeekCapturesSession(t *testing.T) {
	src := NewSliceSource(parseTranscript(t, transcript)...)
	b := NewBridge(TransportFunc(func(context.Context, Request) (Source, error) { return src, nil }))

	stream, err := b.Query(context.Background(), Request{Prompt: "plan"})
	require.NoError(t, err)
	defer stream.Close()

	first, ok := stream.Peek()
	require.True(t, ok)
	assert.Equal(t, KindSystem, first.Kind)
	assert.Equal(t, "sess-123", stream.SessionID())

	// Peek does not consume.
	again, ok := stream.Next()
	require.True(t, ok)
	assert.Equal(t, first, again)

	var kinds []Kind
	require.NoError(t, stream.Drain(func(ev Event) { kinds = append(kinds, ev.Kind) }))
	assert.Equal(t, []Kind{KindThinking, KindText, KindToolUse, KindToolResult, KindResult}, kinds)

	result, ok := stream.Result()
	require.True(t, ok)
	assert.Equal(t, "Done.", result.Text)
}

func TestBridge_DefaultsPermissionMode(t *testing.T) {
	var got Request
	b := NewBridge(TransportFunc(func(_ context.Context, req Request) (Source, error) {
		got = req
		return NewSliceSource(), nil
	}), WithModel("claude-test"))

	_, err := b.Run(context.Background(), Request{Prompt: "x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, PermissionDefault, got.PermissionMode)
	assert.Equal(t, "claude-test", got.Model)
}

func TestBridge_TranslatesErrors(t *testing.T) {
	tests := []struct {
		name     string
		open     error
		recv     error
		events   []Event
		wantCode t2perrors.Code
	}{
		{
			name:     "transport fails to start",
			open:     errors.New("exec: claude: not found"),
			wantCode: t2perrors.CodeAgentQueryFailed,
		},
		{
			name:     "stream breaks midway",
			recv:     errors.New("claude exited: exit status 1"),
			events:   []Event{{Kind: KindSystem, SessionID: "s"}},
			wantCode: t2perrors.CodeAgentQueryFailed,
		},
		{
			name:     "error result",
			events:   []Event{{Kind: KindResult, IsError: true, Text: "Prompt is too long"}},
			wantCode: t2perrors.CodeAgentQueryFailed,
		},
		{
			name:     "low balance result",
			events:   []Event{{Kind: KindResult, IsError: true, Text: "Credit balance is too low"}},
			wantCode: t2perrors.CodeAgentLowBalance,
		},
		{
			name:     "low balance on exit",
			recv:     errors.New("claude exited: exit status 1: Credit balance is too low"),
			wantCode: t2perrors.CodeAgentLowBalance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBridge(TransportFunc(func(context.Context, Request) (Source, error) {
				if tt.open != nil {
					return nil, tt.open
				}
				return &SliceSource{Events: tt.events, Err: tt.recv}, nil
			}))

			_, err := b.Run(context.Background(), Request{Prompt: "x"}, nil)
			require.Error(t, err)
			assert.True(t, t2perrors.HasCode(err, tt.wantCode), "got %v", err)
		})
	}
}

func TestBridge_KeepsCancellationInChain(t *testing.T) {
	b := NewBridge(TransportFunc(func(ctx context.Context, _ Request) (Source, error) {
		return &SliceSource{Err: context.Canceled}, nil
	}))

	_, err := b.Run(context.Background(), Request{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, t2perrors.HasCode(err, t2perrors.CodeAgentQueryFailed))
}

func TestCLITransport_Args(t *testing.T) {
	tr := NewCLITransport()
	args := tr.Args(Request{
		Prompt:         "do it",
		SystemPrompt:   "you are a planner",
		AllowedTools:   []string{ToolGlob, ToolRead},
		PermissionMode: PermissionAcceptEdits,
		MCPConfig:      "/tmp/mcp.json",
		SessionID:      "sess-1",
	})

	assert.Equal(t, []string{
		"-p", "do it",
		"--output-format", "stream-json", "--verbose",
		"--system-prompt", "you are a planner",
		"--permission-mode", "acceptEdits",
		"--mcp-config", "/tmp/mcp.json",
		"--resume", "sess-1",
		"--allowedTools", "Glob,Read",
	}, args)
}

// fakeClaude writes a script that prints body to stdout and exits with code.
func fakeClaude(t *testing.T, body string, code int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "claude")
	script := "#!/bin/sh\ncat <<'EOF'\n" + body + "EOF\n"
	if code != 0 {
		script += "echo 'boom from claude' >&2\nexit " + strconv.Itoa(code) + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

func TestCLITransport_EndToEnd(t *testing.T) {
	path := fakeClaude(t, transcript, 0)
	b := NewBridge(NewCLITransport(WithClaudePath(path)))

	var events []Event
	session, err := b.Run(context.Background(), Request{Prompt: "hi", WorkDir: t.TempDir()}, func(ev Event) {
		events = append(events, ev)
	})
	require.NoError(t, err)
	assert.Equal(t, "sess-123", session)
	assert.Len(t, events, 6)
}

func TestCLITransport_NonZeroExit(t *testing.T) {
	path := fakeClaude(t, `{"type":"system","subtype":"init","session_id":"s1"}`+"\n", 2)
	b := NewBridge(NewCLITransport(WithClaudePath(path)))

	_, err := b.Run(context.Background(), Request{Prompt: "hi"}, nil)
	require.Error(t, err)
	assert.True(t, t2perrors.HasCode(err, t2perrors.CodeAgentQueryFailed))
	assert.Contains(t, err.Error(), "boom from claude")
}

func TestCLITransport_CloseEarly(t *testing.T) {
	path := fakeClaude(t, transcript, 0)
	b := NewBridge(NewCLITransport(WithClaudePath(path)))

	stream, err := b.Query(context.Background(), Request{Prompt: "hi"})
	require.NoError(t, err)
	_, ok := stream.Next()
	require.True(t, ok)
	assert.NoError(t, stream.Close())
}

// lingeringClaude writes a fake claude that leaves a background child
// holding its stdout and stderr open.
func lingeringClaude(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "claude")
	script := "#!/bin/sh\nsleep 30 &\n" +
		`echo '{"type":"system","subtype":"init","session_id":"s1"}'` + "\n" +
		`echo '{"type":"system","subtype":"init","session_id":"s1"}'` + "\n" +
		"wait\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

func within(t *testing.T, d time.Duration, fn func() error) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-time.After(d):
		t.Fatalf("did not return within %s", d)
		return nil
	}
}

func TestCLITransport_CloseWithLingeringChild(t *testing.T) {
	src, err := NewCLITransport(WithClaudePath(lingeringClaude(t))).Open(context.Background(), Request{Prompt: "hi"})
	require.NoError(t, err)
	_, err = src.Recv()
	require.NoError(t, err)

	assert.NoError(t, within(t, 10*time.Second, src.Close))
}

func TestCLITransport_CancelWithLingeringChild(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src, err := NewCLITransport(WithClaudePath(lingeringClaude(t))).Open(ctx, Request{Prompt: "hi"})
	require.NoError(t, err)
	_, err = src.Recv()
	require.NoError(t, err)
	_, err = src.Recv()
	require.NoError(t, err)

	cancel()
	err = within(t, 10*time.Second, func() error {
		_, err := src.Recv()
		return err
	})
	assert.ErrorIs(t, err, context.Canceled)
	_ = src.Close()
}

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{"text", Event{Kind: KindText, Text: "  hello \n"}, "hello"},
		{"tool with path", Event{Kind: KindToolUse, ToolName: "Read", ToolInput: `{"file_path":"a.go"}`}, "-> Read(a.go)"},
		{"tool with command", Event{Kind: KindToolUse, ToolName: "Bash", ToolInput: `{"command":"go test ./...\necho"}`}, "-> Bash(go test ./... ...)"},
		{"tool without args", Event{Kind: KindToolUse, ToolName: "TodoWrite", ToolInput: `{}`}, "-> TodoWrite"},
		{"tool result ok is quiet", Event{Kind: KindToolResult, Text: "fine"}, ""},
		{"tool result error", Event{Kind: KindToolResult, IsError: true, Text: "no such file"}, "<- error: no such file"},
		{"thinking", Event{Kind: KindThinking, Text: "first\nsecond"}, "thinking: first ..."},
		{"failed result", Event{Kind: KindResult, IsError: true, Text: "bad"}, "agent failed: bad"},
		{"system without model", Event{Kind: KindSystem}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.ev))
		})
	}

	ok := Render(Event{Kind: KindResult, Duration: 1500 * time.Millisecond, NumTurns: 2, CostUSD: 0.5})
	assert.Equal(t, "agent finished in 1.5s (2 turns, $0.5000)", ok)
}

type fakeRunner struct{ res shell.Result }

func (f fakeRunner) Run(context.Context, string, string, ...string) shell.Result { return f.res }

func TestCheckAuth(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	assert.NoError(t, CheckAuth(context.Background(), fakeRunner{}, ""))

	err := CheckAuth(context.Background(), fakeRunner{res: shell.Result{Code: 1, Stderr: "not logged in"}}, "")
	assert.True(t, t2perrors.HasCode(err, t2perrors.CodeAgentNotAuthenticated), "got %v", err)

	err = CheckAuth(context.Background(), fakeRunner{res: shell.Result{Code: shell.NotFoundCode}}, "")
	assert.True(t, t2perrors.HasCode(err, t2perrors.CodeExecutableNotFound), "got %v", err)

	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	assert.NoError(t, CheckAuth(context.Background(), fakeRunner{res: shell.Result{Code: 1}}, ""))
}
