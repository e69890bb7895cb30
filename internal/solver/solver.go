// Package solver runs the ticket-solving pipeline: planning, execution and
// optional test writing, all in one agent session.
package solver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bengabay11/ticket2pr/internal/agent"
	"github.com/bengabay11/ticket2pr/internal/artifact"
	t2perrors "github.com/bengabay11/ticket2pr/internal/errors"
	"github.com/bengabay11/ticket2pr/internal/prompts"
)

// Agent runs one agent conversation to completion.
type Agent interface {
	Run(ctx context.Context, req agent.Request, fn func(agent.Event)) (string, error)
}

var planningTools = []string{agent.ToolGlob, agent.ToolGrep, agent.ToolRead, agent.ToolWrite}

// Solver drives the agent through the solving phases.
type Solver struct {
	Agent     Agent
	WorkDir   string
	MCPConfig string
	// OnEvent receives every agent event, for display.
	OnEvent func(agent.Event)
}

// New creates a Solver working in workDir.
func New(a Agent, workDir, mcpConfig string) *Solver {
	return &Solver{Agent: a, WorkDir: workDir, MCPConfig: mcpConfig}
}

// Solve plans and implements the issue and, when writeTests is set, lets
// the agent add tests. It returns the session id shared by all phases.
func (s *Solver) Solve(ctx context.Context, issue prompts.Issue, writeTests bool) (string, error) {
	plan, sessionID, err := s.Plan(ctx, issue)
	if err != nil {
		return sessionID, err
	}
	if err := s.Execute(ctx, issue, plan, sessionID); err != nil {
		return sessionID, err
	}
	if writeTests {
		if err := s.WriteTests(ctx, issue, sessionID); err != nil {
			return sessionID, err
		}
	}
	return sessionID, nil
}

// Plan asks the agent to explore the codebase and write the plan
// artifact. A missing artifact is fatal since execution has nothing to
// act on.
func (s *Solver) Plan(ctx context.Context, issue prompts.Issue) (plan, sessionID string, err error) {
	path := artifact.Path(s.WorkDir, artifact.PlanFile)
	if err := artifact.Discard(path); err != nil {
		return "", "", err
	}

	data := prompts.Data{Issue: issue, PlanFile: artifact.PlanFile}
	sessionID, err = s.query(ctx, prompts.PlanningSystem, prompts.Planning, data, agent.Request{
		AllowedTools:   planningTools,
		PermissionMode: agent.PermissionDefault,
	})
	if err != nil {
		return "", sessionID, fmt.Errorf("planning: %w", err)
	}

	plan, found, err := artifact.Consume(path)
	if err != nil {
		return "", sessionID, err
	}
	if !found {
		return "", sessionID, t2perrors.ErrPlanNotFound(path)
	}
	slog.Debug("plan ready", "issue", issue.Key, "session", sessionID, "bytes", len(plan))
	return plan, sessionID, nil
}

// Execute resumes the planning session and implements the plan.
func (s *Solver) Execute(ctx context.Context, issue prompts.Issue, plan, sessionID string) error {
	data := prompts.Data{Issue: issue, Plan: plan}
	_, err := s.query(ctx, prompts.ExecutionSystem, prompts.Execution, data, agent.Request{
		AllowedTools:   agent.EditTools,
		PermissionMode: agent.PermissionAcceptEdits,
		SessionID:      sessionID,
	})
	if err != nil {
		return fmt.Errorf("execution: %w", err)
	}
	return nil
}

// WriteTests resumes the session and lets the agent add tests where
// coverage is genuinely missing. The prompt defaults to doing nothing.
func (s *Solver) WriteTests(ctx context.Context, issue prompts.Issue, sessionID string) error {
	data := prompts.Data{Issue: issue}
	_, err := s.query(ctx, prompts.TestWriterSystem, prompts.TestWriter, data, agent.Request{
		AllowedTools:   agent.EditTools,
		PermissionMode: agent.PermissionAcceptEdits,
		SessionID:      sessionID,
	})
	if err != nil {
		return fmt.Errorf("test writing: %w", err)
	}
	return nil
}

func (s *Solver) query(ctx context.Context, systemTmpl, promptTmpl string, data prompts.Data, req agent.Request) (string, error) {
	system, err := prompts.Render(systemTmpl, data)
	if err != nil {
		return "", err
	}
	prompt, err := prompts.Render(promptTmpl, data)
	if err != nil {
		return "", err
	}
	req.Prompt = prompt
	req.SystemPrompt = system
	req.WorkDir = s.WorkDir
	req.MCPConfig = s.MCPConfig
	return s.Agent.Run(ctx, req, s.OnEvent)
}
