package content

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bengabay11/ticket2pr/internal/agent"
	"github.com/bengabay11/ticket2pr/internal/agent/agenttest"
	"github.com/bengabay11/ticket2pr/internal/git"
	"github.com/bengabay11/ticket2pr/internal/prompts"
)

var issue = prompts.Issue{Key: "ABC-7", Summary: "Fix login"}

func TestPRTitle(t *testing.T) {
	assert.Equal(t, "[ABC-7] Fix login", PRTitle(issue))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		wantCommit string
		wantBody   string
	}{
		{
			name:       "both tags",
			reply:      "Here you go\n<commit_message>\nfix(auth): handle expired tokens\n</commit_message>\n<pr_body>\n## Summary\nFixes ABC-7\n</pr_body>",
			wantCommit: "fix(auth): handle expired tokens",
			wantBody:   "## Summary\nFixes ABC-7",
		},
		{
			name:       "no tags",
			reply:      "  Just some prose.  ",
			wantCommit: "feat: Fix login",
			wantBody:   "Just some prose.",
		},
		{
			name:       "commit only",
			reply:      "<commit_message>fix: x</commit_message> trailing",
			wantCommit: "fix: x",
			wantBody:   "<commit_message>fix: x</commit_message> trailing",
		},
		{
			name:       "empty commit tag",
			reply:      "<commit_message></commit_message><pr_body>body</pr_body>",
			wantCommit: "feat: Fix login",
			wantBody:   "body",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.reply, issue)
			assert.Equal(t, tt.wantCommit, got.CommitMessage)
			assert.Equal(t, tt.wantBody, got.PRBody)
		})
	}
}

func TestAgentGenerator(t *testing.T) {
	reply := "<commit_message>feat: add login retry</commit_message>\n<pr_body>Adds retry.</pr_body>"
	transport := agenttest.New(agenttest.Reply("sess-9", reply))
	g := &AgentGenerator{Agent: agent.NewBridge(transport), WorkDir: t.TempDir()}

	got, err := g.Generate(context.Background(), issue, "sess-9")
	require.NoError(t, err)
	assert.Equal(t, "feat: add login retry", got.CommitMessage)
	assert.Equal(t, "Adds retry.", got.PRBody)

	req := transport.Request(0)
	assert.Equal(t, "sess-9", req.SessionID)
	assert.Equal(t, agent.PermissionDefault, req.PermissionMode)
	assert.NotContains(t, req.AllowedTools, agent.ToolEdit)
	assert.Contains(t, req.SystemPrompt, "<commit_message>")
}

type staticDiff struct{ diff git.Diff }

func (s staticDiff) StagedDiff(context.Context) (git.Diff, error) { return s.diff, nil }

func TestAPIGenerator(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    "msg_1",
			"type":  "message",
			"role":  "assistant",
			"model": "claude-sonnet-4-5",
			"content": []map[string]any{
				{"type": "text", "text": "<commit_message>fix: retry login</commit_message><pr_body>Body</pr_body>"},
			},
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 10, "output_tokens": 5},
		})
	}))
	defer srv.Close()

	diff := git.Diff{Text: "diff --git a/login.go b/login.go\n+retry()\n", Files: []string{"login.go"}, Additions: 1}
	g := NewAPIGenerator("test-key", "", staticDiff{diff}, option.WithBaseURL(srv.URL), option.WithMaxRetries(0))

	got, err := g.Generate(context.Background(), issue, "ignored")
	require.NoError(t, err)
	assert.Equal(t, "fix: retry login", got.CommitMessage)
	assert.Equal(t, "Body", got.PRBody)

	assert.Equal(t, DefaultModel, gotBody["model"])
	raw, _ := json.Marshal(gotBody["messages"])
	assert.Contains(t, string(raw), "+retry()")
	assert.Contains(t, string(raw), "Changed files (1, +1 -0)")
	assert.Contains(t, string(raw), "- login.go")
}
