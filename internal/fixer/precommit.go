package fixer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bengabay11/ticket2pr/internal/agent"
	"github.com/bengabay11/ticket2pr/internal/precommit"
	"github.com/bengabay11/ticket2pr/internal/prompts"
	"github.com/bengabay11/ticket2pr/internal/shell"
)

// HookRunner runs the pre-commit hooks.
type HookRunner interface {
	Run(ctx context.Context, workspace string) (shell.Result, error)
}

// Stager stages the working tree.
type Stager interface {
	StageAll(ctx context.Context) error
}

// PreCommitFixer runs the hooks and asks the agent to fix what they report.
type PreCommitFixer struct {
	Agent      Agent
	Hooks      HookRunner
	Stager     Stager
	WorkDir    string
	MCPConfig  string
	MaxRetries int
	OnEvent    func(agent.Event)
}

// Run verifies the staged tree against the hooks, repairing on failure.
// The tree is re-staged before every verification so hook auto-fixes and
// agent edits are checked as they will be committed.
func (f *PreCommitFixer) Run(ctx context.Context) (Outcome, error) {
	maxRetries := f.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultPreCommitRetries
	}
	hookIDs, err := precommit.HookIDs(f.WorkDir)
	if err != nil {
		slog.Debug("could not list pre-commit hooks", "error", err)
	}

	loop := Loop{
		Name:       "pre-commit",
		MaxRetries: maxRetries,
		Verify: func(ctx context.Context) (Verdict, error) {
			if err := f.Stager.StageAll(ctx); err != nil {
				return Verdict{}, fmt.Errorf("stage before pre-commit: %w", err)
			}
			res, err := f.Hooks.Run(ctx, f.WorkDir)
			if err != nil {
				return Verdict{}, err
			}
			return Verdict{Passed: res.Success(), Diagnostic: tail(res.Output(), maxDiagnosticLen)}, nil
		},
		Repair: func(ctx context.Context, attempt int, diagnostic string) error {
			data := prompts.Data{Diagnostic: diagnostic, Attempt: attempt, MaxRetries: maxRetries, Hooks: hookIDs}
			system, err := prompts.Render(prompts.PreCommitSystem, data)
			if err != nil {
				return err
			}
			prompt, err := prompts.Render(prompts.PreCommit, data)
			if err != nil {
				return err
			}
			_, err = f.Agent.Run(ctx, agent.Request{
				Prompt:         prompt,
				SystemPrompt:   system,
				AllowedTools:   agent.EditTools,
				PermissionMode: agent.PermissionAcceptEdits,
				WorkDir:        f.WorkDir,
				MCPConfig:      f.MCPConfig,
			}, f.OnEvent)
			return err
		},
	}
	return loop.Run(ctx)
}
