// Package shell runs external commands and captures their result.
package shell

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strconv"
	"strings"
)

// NotFoundCode is the exit code reported when the executable cannot be started.
const NotFoundCode = 127

// Result is the outcome of one command invocation.
type Result struct {
	Code   int
	Stdout string
	Stderr string
}

// Success reports whether the command exited with status 0.
func (r Result) Success() bool {
	return r.Code == 0
}

// Output returns stdout followed by stderr.
func (r Result) Output() string {
	return r.Stdout + r.Stderr
}

// Message returns the most useful single text for error reporting:
// trimmed stderr, falling back to stdout.
func (r Result) Message() string {
	if msg := strings.TrimSpace(r.Stderr); msg != "" {
		return msg
	}
	return strings.TrimSpace(r.Stdout)
}

// Runner executes commands.
// This interface allows faking command execution in tests.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) Result
}

// ExecRunner is the default Runner using exec.CommandContext.
type ExecRunner struct {
	// Env is appended to the parent environment when non-empty.
	Env []string
}

// NewExecRunner creates a new ExecRunner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command and waits for it to finish. A command that
// cannot be started yields NotFoundCode with the start error in Stderr.
func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) Result {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		res.Code = exitErr.ExitCode()
		return res
	}
	res.Code = NotFoundCode
	if res.Stderr == "" {
		res.Stderr = err.Error()
	}
	return res
}

// LookPath reports whether name is discoverable on PATH.
func LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// CommandError describes a failed command.
type CommandError struct {
	Command string
	Args    []string
	Result  Result
}

// Check returns a *CommandError when res is not successful, nil otherwise.
func Check(res Result, name string, args ...string) error {
	if res.Success() {
		return nil
	}
	return &CommandError{Command: name, Args: args, Result: res}
}

func (e *CommandError) Error() string {
	if msg := e.Result.Message(); msg != "" {
		return msg
	}
	return e.Command + " " + strings.Join(e.Args, " ") + ": exit status " + strconv.Itoa(e.Result.Code)
}
