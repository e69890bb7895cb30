package agent

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// maxLineSize bounds a single stream-json line. Tool results that echo
// whole files can be large.
const maxLineSize = 16 * 1024 * 1024

// waitDelay bounds how long Wait holds on to the process after it has
// been signalled.
const waitDelay = 5 * time.Second

// CLITransport runs the claude CLI in print mode with stream-json output.
type CLITransport struct {
	claudePath string
	env        []string
}

// CLIOption configures CLITransport.
type CLIOption func(*CLITransport)

// WithClaudePath sets the path to the claude binary.
func WithClaudePath(path string) CLIOption {
	return func(t *CLITransport) { t.claudePath = path }
}

// WithEnv appends environment variables to the agent process.
func WithEnv(env ...string) CLIOption {
	return func(t *CLITransport) { t.env = append(t.env, env...) }
}

// NewCLITransport creates a transport that execs claude.
func NewCLITransport(opts ...CLIOption) *CLITransport {
	t := &CLITransport{claudePath: "claude"}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Args builds the claude command line for req. The allowlist goes last
// because the CLI treats it as variadic.
func (t *CLITransport) Args(req Request) []string {
	args := []string{"-p", req.Prompt, "--output-format", "stream-json", "--verbose"}
	if req.SystemPrompt != "" {
		args = append(args, "--system-prompt", req.SystemPrompt)
	}
	if req.PermissionMode != "" {
		args = append(args, "--permission-mode", string(req.PermissionMode))
	}
	if req.MCPConfig != "" {
		args = append(args, "--mcp-config", req.MCPConfig)
	}
	if req.Resumes() {
		args = append(args, "--resume", req.SessionID)
	}
	if req.Model != "" {
		args = append(args, "--model", req.Model)
	}
	if len(req.AllowedTools) > 0 {
		args = append(args, "--allowedTools", req.Tools())
	}
	return args
}

// Open starts the claude process. Events are produced by a reader
// goroutine and handed over an unbuffered channel, so the process is
// paced by the consumer.
func (t *CLITransport) Open(ctx context.Context, req Request) (Source, error) {
	cmd := exec.CommandContext(ctx, t.claudePath, t.Args(req)...)
	cmd.Dir = req.WorkDir
	cmd.WaitDelay = waitDelay
	if len(t.env) > 0 {
		cmd.Env = append(cmd.Environ(), t.env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", t.claudePath, err)
	}

	slog.Debug("agent started",
		"pid", cmd.Process.Pid,
		"workdir", req.WorkDir,
		"resume", req.Resumes(),
		"permission_mode", req.PermissionMode,
	)

	s := &cliSource{
		ctx:    ctx,
		cmd:    cmd,
		events: make(chan Event),
		stop:   make(chan struct{}),
		pipes:  []io.Closer{stdout, stderr},
	}
	// Processes spawned by claude inherit the pipes and can keep them open
	// after claude is gone, so cancellation closes our ends directly.
	s.unwatch = context.AfterFunc(ctx, s.closePipes)
	s.group.Go(func() error { return s.readEvents(stdout) })
	s.group.Go(func() error {
		_, err := io.Copy(&s.stderr, stderr)
		return err
	})
	return s, nil
}

type cliSource struct {
	ctx    context.Context
	cmd    *exec.Cmd
	group  errgroup.Group
	events chan Event
	stop   chan struct{}
	stderr bytes.Buffer
	pipes  []io.Closer
	// unwatch detaches closePipes from ctx.
	unwatch func() bool

	stopOnce   sync.Once
	finishOnce sync.Once
	finishErr  error
}

func (s *cliSource) readEvents(r io.Reader) error {
	defer close(s.events)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		events, err := ParseLine(line)
		if err != nil {
			slog.Debug("skipping agent output line", "line", truncate(string(line), 200))
			continue
		}
		for _, ev := range events {
			select {
			case s.events <- ev:
			case <-s.stop:
				return nil
			}
		}
	}
	return scanner.Err()
}

// Recv blocks until the next event arrives or the process exits.
func (s *cliSource) Recv() (Event, error) {
	if ev, ok := <-s.events; ok {
		return ev, nil
	}
	return Event{}, s.finish()
}

// finish reaps the process once both pipes are drained.
func (s *cliSource) finish() error {
	s.finishOnce.Do(func() {
		readErr := s.group.Wait()
		s.unwatch()
		waitErr := s.cmd.Wait()
		switch {
		case s.ctx.Err() != nil:
			s.finishErr = s.ctx.Err()
		case waitErr != nil:
			msg := strings.TrimSpace(s.stderr.String())
			if msg == "" {
				s.finishErr = fmt.Errorf("claude exited: %w", waitErr)
			} else {
				s.finishErr = fmt.Errorf("claude exited: %w: %s", waitErr, msg)
			}
		case readErr != nil:
			s.finishErr = fmt.Errorf("read agent output: %w", readErr)
		default:
			s.finishErr = io.EOF
		}
	})
	return s.finishErr
}

// Close stops the conversation early, killing the process if it is still
// running.
func (s *cliSource) Close() error {
	killed := false
	s.stopOnce.Do(func() {
		close(s.stop)
		if s.cmd.ProcessState == nil && s.cmd.Process != nil {
			killed = s.cmd.Process.Kill() == nil
		}
		s.closePipes()
	})
	err := s.finish()
	if err == io.EOF || killed {
		return nil
	}
	return err
}

// closePipes unblocks the reader goroutines. Closing twice is harmless.
func (s *cliSource) closePipes() {
	for _, p := range s.pipes {
		_ = p.Close()
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
