// Package agent is the single entry point for calls to the Claude coding agent.
//
// Every call site builds a Request with its own system prompt, tool allowlist
// and permission mode, and consumes the returned Stream as events arrive.
// Transport failures are translated into ticket2pr agent errors here and
// nowhere else.
package agent

import "strings"

// PermissionMode controls whether the agent asks before editing files.
type PermissionMode string

const (
	// PermissionDefault asks for confirmation on edits.
	PermissionDefault PermissionMode = "default"
	// PermissionAcceptEdits applies edits unattended. Used only by phases
	// that are expected to modify the workspace.
	PermissionAcceptEdits PermissionMode = "acceptEdits"
)

// Tool names understood by the agent.
const (
	ToolGlob  = "Glob"
	ToolGrep  = "Grep"
	ToolRead  = "Read"
	ToolWrite = "Write"
	ToolEdit  = "Edit"
	ToolBash  = "Bash"
)

// ReadOnlyTools explore the codebase without changing it.
var ReadOnlyTools = []string{ToolGlob, ToolGrep, ToolRead}

// EditTools grant full read, write and execute access.
var EditTools = []string{ToolGlob, ToolBash, ToolRead, ToolGrep, ToolWrite, ToolEdit}

// Request is one agent invocation.
type Request struct {
	Prompt         string
	SystemPrompt   string
	AllowedTools   []string
	PermissionMode PermissionMode
	// WorkDir is the directory the agent operates in.
	WorkDir string
	// MCPConfig is an optional path to an MCP server config file.
	MCPConfig string
	// SessionID resumes an earlier conversation when set.
	SessionID string
	Model     string
}

// Resumes reports whether the request continues an existing session.
func (r Request) Resumes() bool {
	return r.SessionID != ""
}

// Tools returns the allowlist in the CLI's comma separated form.
func (r Request) Tools() string {
	return strings.Join(r.AllowedTools, ",")
}
