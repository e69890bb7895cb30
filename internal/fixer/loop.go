// Package fixer implements the bounded verify, repair, re-verify loops that
// let the agent heal failing pre-commit hooks and tests.
package fixer

import (
	"context"
	"log/slog"

	"github.com/bengabay11/ticket2pr/internal/agent"
)

// Default attempt budgets.
const (
	DefaultPreCommitRetries = 3
	DefaultTestRetries      = 10
)

// maxDiagnosticLen keeps the tail of long outputs; failures are usually
// reported last.
const maxDiagnosticLen = 20000

// Agent runs one agent conversation to completion.
type Agent interface {
	Run(ctx context.Context, req agent.Request, fn func(agent.Event)) (string, error)
}

// Verdict is the result of one verification run.
type Verdict struct {
	Passed     bool
	Diagnostic string
}

// Loop is a bounded self-healing loop. Verify runs first; while it fails
// and the budget allows, Repair is called with the diagnostic and Verify
// runs again.
type Loop struct {
	Name       string
	MaxRetries int
	Verify     func(ctx context.Context) (Verdict, error)
	Repair     func(ctx context.Context, attempt int, diagnostic string) error
}

// Outcome reports how a loop ended. Exhausting the budget is reported as
// Passed=false, not as an error.
type Outcome struct {
	Passed     bool
	Skipped    bool
	Attempts   int
	Diagnostic string
}

// Run executes the loop. Errors from Verify or Repair abort it.
func (l Loop) Run(ctx context.Context) (Outcome, error) {
	verdict, err := l.Verify(ctx)
	if err != nil {
		return Outcome{}, err
	}

	attempts := 0
	for !verdict.Passed && attempts < l.MaxRetries {
		if err := ctx.Err(); err != nil {
			return Outcome{Attempts: attempts}, err
		}
		attempts++
		slog.Info("repair attempt", "loop", l.Name, "attempt", attempts, "max", l.MaxRetries)

		if err := l.Repair(ctx, attempts, verdict.Diagnostic); err != nil {
			return Outcome{Attempts: attempts}, err
		}
		if verdict, err = l.Verify(ctx); err != nil {
			return Outcome{Attempts: attempts}, err
		}
	}

	if !verdict.Passed {
		slog.Warn("repair budget exhausted", "loop", l.Name, "attempts", attempts)
	}
	return Outcome{Passed: verdict.Passed, Attempts: attempts, Diagnostic: verdict.Diagnostic}, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "...(truncated)\n" + s[len(s)-n:]
}
