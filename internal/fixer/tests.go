package fixer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/bengabay11/ticket2pr/internal/agent"
	"github.com/bengabay11/ticket2pr/internal/artifact"
	"github.com/bengabay11/ticket2pr/internal/prompts"
	"github.com/bengabay11/ticket2pr/internal/shell"
)

// runLanguage is the info string marking a plan's command blocks.
const runLanguage = "run"

// TestFixer finds existing tests related to the staged change, runs them,
// and asks the agent to fix failures. It never writes new tests.
type TestFixer struct {
	Agent      Agent
	Runner     shell.Runner
	WorkDir    string
	MCPConfig  string
	MaxRetries int
	OnEvent    func(agent.Event)
}

// Run plans, then loops. When the planner finds no related tests it
// writes no plan and the loop is skipped.
func (f *TestFixer) Run(ctx context.Context) (Outcome, error) {
	plan, found, err := f.plan(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if !found {
		slog.Info("no related existing tests for staged changes, skipping test fixing")
		return Outcome{Skipped: true, Passed: true}, nil
	}

	commands := RunCommands(plan)
	if len(commands) == 0 {
		slog.Warn("test plan has no run commands, skipping test fixing")
		return Outcome{Skipped: true, Passed: true}, nil
	}

	maxRetries := f.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultTestRetries
	}

	loop := Loop{
		Name:       "tests",
		MaxRetries: maxRetries,
		Verify: func(ctx context.Context) (Verdict, error) {
			return f.runTests(ctx, commands), nil
		},
		Repair: func(ctx context.Context, attempt int, diagnostic string) error {
			data := prompts.Data{
				Plan:       plan,
				PlanFile:   artifact.TestsPlanFile,
				Diagnostic: diagnostic,
				Attempt:    attempt,
				MaxRetries: maxRetries,
			}
			return f.query(ctx, prompts.TestsFixerSystem, prompts.TestsFixer, data, agent.EditTools, agent.PermissionAcceptEdits)
		},
	}
	return loop.Run(ctx)
}

// plan runs the test planner and consumes its artifact.
func (f *TestFixer) plan(ctx context.Context) (string, bool, error) {
	path := artifact.Path(f.WorkDir, artifact.TestsPlanFile)
	if err := artifact.Discard(path); err != nil {
		return "", false, err
	}

	data := prompts.Data{PlanFile: artifact.TestsPlanFile}
	tools := []string{agent.ToolGlob, agent.ToolBash, agent.ToolRead, agent.ToolGrep, agent.ToolWrite}
	if err := f.query(ctx, prompts.TestsPlannerSystem, prompts.TestsPlanner, data, tools, agent.PermissionDefault); err != nil {
		return "", false, err
	}
	return artifact.Consume(path)
}

func (f *TestFixer) query(ctx context.Context, systemTmpl, promptTmpl string, data prompts.Data, tools []string, mode agent.PermissionMode) error {
	system, err := prompts.Render(systemTmpl, data)
	if err != nil {
		return err
	}
	prompt, err := prompts.Render(promptTmpl, data)
	if err != nil {
		return err
	}
	_, err = f.Agent.Run(ctx, agent.Request{
		Prompt:         prompt,
		SystemPrompt:   system,
		AllowedTools:   tools,
		PermissionMode: mode,
		WorkDir:        f.WorkDir,
		MCPConfig:      f.MCPConfig,
	}, f.OnEvent)
	return err
}

// runTests runs each command in order and stops at the first failure.
func (f *TestFixer) runTests(ctx context.Context, commands []string) Verdict {
	var out strings.Builder
	for _, cmd := range commands {
		res := f.Runner.Run(ctx, f.WorkDir, "sh", "-c", cmd)
		fmt.Fprintf(&out, "$ %s\n%s\n", cmd, res.Output())
		if !res.Success() {
			fmt.Fprintf(&out, "exit status %d\n", res.Code)
			return Verdict{Diagnostic: tail(out.String(), maxDiagnosticLen)}
		}
	}
	return Verdict{Passed: true, Diagnostic: tail(out.String(), maxDiagnosticLen)}
}

// RunCommands extracts the commands from the plan's fenced code blocks
// whose info string is exactly "run". Blank lines and # comments are
// ignored.
func RunCommands(plan string) []string {
	source := []byte(plan)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var commands []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		block, ok := n.(*ast.FencedCodeBlock)
		if !entering || !ok {
			return ast.WalkContinue, nil
		}
		if string(block.Language(source)) != runLanguage {
			return ast.WalkSkipChildren, nil
		}
		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			line := strings.TrimSpace(string(seg.Value(source)))
			if line != "" && !strings.HasPrefix(line, "#") {
				commands = append(commands, line)
			}
		}
		return ast.WalkSkipChildren, nil
	})
	return commands
}
