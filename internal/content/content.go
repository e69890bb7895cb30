// Package content produces the commit message, pull request title and
// pull request body for a solved issue.
package content

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bengabay11/ticket2pr/internal/agent"
	"github.com/bengabay11/ticket2pr/internal/prompts"
)

// Content is the generated commit and PR text.
type Content struct {
	CommitMessage string
	PRBody        string
}

// Generator produces Content for an issue. sessionID is the solving
// session, when the generator can resume it.
type Generator interface {
	Generate(ctx context.Context, issue prompts.Issue, sessionID string) (Content, error)
}

// PRTitle is deterministic and never asks the agent.
func PRTitle(issue prompts.Issue) string {
	return fmt.Sprintf("[%s] %s", issue.Key, issue.Summary)
}

var (
	commitTag = regexp.MustCompile(`(?s)<commit_message>\s*(.*?)\s*</commit_message>`)
	bodyTag   = regexp.MustCompile(`(?s)<pr_body>\s*(.*?)\s*</pr_body>`)
)

// Parse extracts the tagged sections from a model reply. A missing commit
// tag falls back to a conventional feat message; a missing body tag uses
// the whole reply.
func Parse(reply string, issue prompts.Issue) Content {
	var c Content
	if m := commitTag.FindStringSubmatch(reply); m != nil && m[1] != "" {
		c.CommitMessage = m[1]
	} else {
		c.CommitMessage = "feat: " + issue.Summary
	}
	if m := bodyTag.FindStringSubmatch(reply); m != nil && m[1] != "" {
		c.PRBody = m[1]
	} else {
		c.PRBody = strings.TrimSpace(reply)
	}
	return c
}

// Agent runs one agent conversation to completion.
type Agent interface {
	Run(ctx context.Context, req agent.Request, fn func(agent.Event)) (string, error)
}

// AgentGenerator resumes the solving session, so the agent writes from
// everything it did, and inspects the staged diff itself.
type AgentGenerator struct {
	Agent     Agent
	WorkDir   string
	MCPConfig string
	OnEvent   func(agent.Event)
}

// Generate runs one combined read-only agent call for both texts.
func (g *AgentGenerator) Generate(ctx context.Context, issue prompts.Issue, sessionID string) (Content, error) {
	data := prompts.Data{Issue: issue}
	system, err := prompts.Render(prompts.ContentSystem, data)
	if err != nil {
		return Content{}, err
	}
	prompt, err := prompts.Render(prompts.Content, data)
	if err != nil {
		return Content{}, err
	}

	var reply strings.Builder
	collect := func(ev agent.Event) {
		if ev.Kind == agent.KindText {
			reply.WriteString(ev.Text)
			reply.WriteString("\n")
		}
		if g.OnEvent != nil {
			g.OnEvent(ev)
		}
	}

	_, err = g.Agent.Run(ctx, agent.Request{
		Prompt:         prompt,
		SystemPrompt:   system,
		AllowedTools:   append([]string{agent.ToolBash}, agent.ReadOnlyTools...),
		PermissionMode: agent.PermissionDefault,
		WorkDir:        g.WorkDir,
		MCPConfig:      g.MCPConfig,
		SessionID:      sessionID,
	}, collect)
	if err != nil {
		return Content{}, fmt.Errorf("generate commit and PR content: %w", err)
	}
	return Parse(reply.String(), issue), nil
}
