package content

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/bengabay11/ticket2pr/internal/git"
	"github.com/bengabay11/ticket2pr/internal/prompts"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-5"

const (
	maxOutputTokens = 2048
	// maxDiffLen bounds the diff sent in the request body.
	maxDiffLen = 100000
)

// DiffSource returns the staged changes.
type DiffSource interface {
	StagedDiff(ctx context.Context) (git.Diff, error)
}

// APIGenerator writes the content with a direct Messages API call from
// the staged diff, without resuming the agent session.
type APIGenerator struct {
	client anthropic.Client
	model  anthropic.Model
	diffs  DiffSource
}

// NewAPIGenerator creates an APIGenerator. Extra request options, such as
// option.WithBaseURL, are passed to the client.
func NewAPIGenerator(apiKey, model string, diffs DiffSource, opts ...option.RequestOption) *APIGenerator {
	if model == "" {
		model = DefaultModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &APIGenerator{
		client: anthropic.NewClient(opts...),
		model:  anthropic.Model(model),
		diffs:  diffs,
	}
}

// Generate ignores sessionID; the diff carries the context instead.
func (g *APIGenerator) Generate(ctx context.Context, issue prompts.Issue, _ string) (Content, error) {
	diff, err := g.diffs.StagedDiff(ctx)
	if err != nil {
		return Content{}, err
	}
	slog.Debug("generating content from diff", "files", len(diff.Files))

	text := diff.Text
	if len(text) > maxDiffLen {
		text = text[:maxDiffLen] + "\n...(diff truncated)"
	}
	data := prompts.Data{
		Issue:     issue,
		Diff:      text,
		Files:     diff.Files,
		Additions: diff.Additions,
		Deletions: diff.Deletions,
	}
	system, err := prompts.Render(prompts.ContentSystem, data)
	if err != nil {
		return Content{}, err
	}
	prompt, err := prompts.Render(prompts.ContentFromDiff, data)
	if err != nil {
		return Content{}, err
	}

	message, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     g.model,
		MaxTokens: maxOutputTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return Content{}, fmt.Errorf("messages api: %w", err)
	}

	var reply strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			reply.WriteString(block.Text)
		}
	}
	if reply.Len() == 0 {
		return Content{}, fmt.Errorf("messages api: no text in response")
	}
	return Parse(reply.String(), issue), nil
}
