// Package errors provides structured error types for ticket2pr.
//
// Every failure that crosses a client boundary (tracker, forge, git, agent)
// is converted into an *Error with a Code, so callers can branch on the kind
// and the CLI can render a What/Why/Fix panel.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Code represents a unique error code.
type Code string

// Error codes for ticket2pr.
const (
	// Tracker errors
	CodeIssueNotFound     Code = "ISSUE_NOT_FOUND"
	CodeIssueFetchServer  Code = "ISSUE_FETCH_SERVER"
	CodeIssueFetchUnknown Code = "ISSUE_FETCH_UNKNOWN"
	CodeJiraAuthFailed    Code = "JIRA_AUTH_FAILED"

	// Forge errors
	CodeBranchNotFound     Code = "BRANCH_NOT_FOUND"
	CodeBranchCreateFailed Code = "BRANCH_CREATE_FAILED"
	CodePRCreateFailed     Code = "PR_CREATE_FAILED"
	CodePRFetchFailed      Code = "PR_FETCH_FAILED"

	// Version control errors
	CodeWorkspaceNotFound Code = "WORKSPACE_NOT_FOUND"
	CodeLocalBranchExists Code = "LOCAL_BRANCH_EXISTS"
	CodeCheckoutFailed    Code = "CHECKOUT_FAILED"
	CodePushFailed        Code = "PUSH_FAILED"
	CodeNoStagedChanges   Code = "NO_STAGED_CHANGES"
	CodeCloneFailed       Code = "CLONE_FAILED"
	CodeWorkspaceBusy     Code = "WORKSPACE_BUSY"

	// Agent errors
	CodeAgentQueryFailed      Code = "AGENT_QUERY_FAILED"
	CodeAgentLowBalance       Code = "AGENT_LOW_BALANCE"
	CodeAgentNotAuthenticated Code = "AGENT_NOT_AUTHENTICATED"

	// Pipeline artifact errors
	CodePlanNotFound Code = "PLAN_NOT_FOUND"

	// Environment errors
	CodeExecutableNotFound Code = "EXECUTABLE_NOT_FOUND"

	// Settings and input errors
	CodeConfigInvalid     Code = "CONFIG_INVALID"
	CodeConfigMissing     Code = "CONFIG_MISSING"
	CodeInvalidIssueInput Code = "INVALID_ISSUE_INPUT"

	CodeInterrupted Code = "INTERRUPTED"
)

// Category groups codes by the system that produced them.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryClient
	CategoryVCS
	CategoryAgent
	CategoryArtifact
	CategoryEnvironment
	CategorySettings
)

var codeCategories = map[Code]Category{
	CodeIssueNotFound:         CategoryClient,
	CodeIssueFetchServer:      CategoryClient,
	CodeIssueFetchUnknown:     CategoryClient,
	CodeJiraAuthFailed:        CategoryClient,
	CodeBranchNotFound:        CategoryClient,
	CodeBranchCreateFailed:    CategoryClient,
	CodePRCreateFailed:        CategoryClient,
	CodePRFetchFailed:         CategoryClient,
	CodeWorkspaceNotFound:     CategoryVCS,
	CodeLocalBranchExists:     CategoryVCS,
	CodeCheckoutFailed:        CategoryVCS,
	CodePushFailed:            CategoryVCS,
	CodeNoStagedChanges:       CategoryVCS,
	CodeCloneFailed:           CategoryVCS,
	CodeWorkspaceBusy:         CategoryVCS,
	CodeAgentQueryFailed:      CategoryAgent,
	CodeAgentLowBalance:       CategoryAgent,
	CodeAgentNotAuthenticated: CategoryAgent,
	CodePlanNotFound:          CategoryArtifact,
	CodeExecutableNotFound:    CategoryEnvironment,
	CodeConfigInvalid:         CategorySettings,
	CodeConfigMissing:         CategorySettings,
	CodeInvalidIssueInput:     CategorySettings,
}

func (c Category) String() string {
	switch c {
	case CategoryClient:
		return "client"
	case CategoryVCS:
		return "git"
	case CategoryAgent:
		return "agent"
	case CategoryArtifact:
		return "artifact"
	case CategoryEnvironment:
		return "environment"
	case CategorySettings:
		return "settings"
	default:
		return "unknown"
	}
}

// Error is the structured error type for ticket2pr.
//
// IssueKey, Branch, PRNumber and Path carry the context needed to render a
// precise message without parsing What.
type Error struct {
	Code  Code
	What  string
	Why   string
	Fix   string
	Cause error

	IssueKey string
	Branch   string
	PRNumber int
	Path     string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString(": ")
		b.WriteString(e.Why)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// UserMessage returns a user-friendly message for CLI output.
func (e *Error) UserMessage() string {
	var b strings.Builder
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString("\n\nWhy: ")
		b.WriteString(e.Why)
	}
	if e.Cause != nil {
		b.WriteString("\n\nDetails: ")
		b.WriteString(e.Cause.Error())
	}
	if e.Fix != "" {
		b.WriteString("\n\nFix: ")
		b.WriteString(e.Fix)
	}
	return b.String()
}

// Category returns the category of the error's code.
func (e *Error) Category() Category {
	if cat, ok := codeCategories[e.Code]; ok {
		return cat
	}
	return CategoryUnknown
}

// Title is a short heading for error panels.
func (e *Error) Title() string {
	switch e.Category() {
	case CategoryClient:
		return "Remote Service Error"
	case CategoryVCS:
		return "Git Error"
	case CategoryAgent:
		return "Agent Error"
	case CategoryArtifact:
		return "Pipeline Error"
	case CategoryEnvironment:
		return "Environment Error"
	case CategorySettings:
		return "Settings Error"
	}
	if e.Code == CodeInterrupted {
		return "Interrupted"
	}
	return "Error"
}

// WithCause returns a copy of the error with the given cause.
func (e *Error) WithCause(err error) *Error {
	cp := *e
	cp.Cause = err
	return &cp
}

// --- Tracker constructors ---

// ErrIssueNotFound is returned when the tracker reports the issue does not exist.
func ErrIssueNotFound(key string, cause error) *Error {
	return &Error{
		Code:     CodeIssueNotFound,
		What:     fmt.Sprintf("issue %s not found", key),
		Why:      "Jira returned 404 for this key",
		Fix:      "Check the issue key and that your Jira user can browse the project",
		Cause:    cause,
		IssueKey: key,
	}
}

// ErrIssueFetchServer is returned when the tracker rejects the request.
func ErrIssueFetchServer(key string, status int, cause error) *Error {
	return &Error{
		Code:     CodeIssueFetchServer,
		What:     fmt.Sprintf("failed to fetch issue %s", key),
		Why:      fmt.Sprintf("Jira responded with status %d", status),
		Fix:      "Verify jira.username and jira.api_token in your config",
		Cause:    cause,
		IssueKey: key,
	}
}

// ErrIssueFetchUnknown is returned for transport-level failures.
func ErrIssueFetchUnknown(key string, cause error) *Error {
	return &Error{
		Code:     CodeIssueFetchUnknown,
		What:     fmt.Sprintf("failed to fetch issue %s", key),
		Why:      "Jira could not be reached",
		Fix:      "Check jira.base_url and your network connection",
		Cause:    cause,
		IssueKey: key,
	}
}

// ErrJiraAuthFailed is returned when the credentials check fails. A zero
// status means Jira could not be reached.
func ErrJiraAuthFailed(status int, cause error) *Error {
	e := &Error{
		Code:  CodeJiraAuthFailed,
		What:  "could not authenticate with Jira",
		Why:   "Jira could not be reached",
		Fix:   "Check jira.base_url and your network connection",
		Cause: cause,
	}
	if status != 0 {
		e.Why = fmt.Sprintf("Jira responded with status %d", status)
		e.Fix = "Verify jira.username and jira.api_token in your config"
	}
	return e
}

// --- Forge constructors ---

// ErrBranchNotFound is returned when the base branch does not exist on the forge.
func ErrBranchNotFound(branch string, cause error) *Error {
	return &Error{
		Code:   CodeBranchNotFound,
		What:   fmt.Sprintf("base branch %s not found", branch),
		Why:    "The forge has no branch with this name",
		Fix:    "Pass --base-branch or set core.base_branch to an existing branch",
		Cause:  cause,
		Branch: branch,
	}
}

// ErrBranchCreate is returned when the forge refuses to create a branch.
func ErrBranchCreate(branch string, cause error) *Error {
	return &Error{
		Code:   CodeBranchCreateFailed,
		What:   fmt.Sprintf("failed to create branch %s", branch),
		Fix:    "Check that your token has write access to the repository",
		Cause:  cause,
		Branch: branch,
	}
}

// ErrPRCreate is returned when the forge refuses to open a pull request.
func ErrPRCreate(head, base string, cause error) *Error {
	return &Error{
		Code:   CodePRCreateFailed,
		What:   fmt.Sprintf("failed to create pull request %s -> %s", head, base),
		Fix:    "The branch was pushed; open the pull request manually",
		Cause:  cause,
		Branch: head,
	}
}

// ErrPRFetch is returned when a pull request cannot be read.
func ErrPRFetch(number int, cause error) *Error {
	return &Error{
		Code:     CodePRFetchFailed,
		What:     fmt.Sprintf("failed to fetch pull request #%d", number),
		Cause:    cause,
		PRNumber: number,
	}
}

// --- Version control constructors ---

// ErrWorkspaceNotFound is returned when the local workspace path is missing.
func ErrWorkspaceNotFound(path string) *Error {
	return &Error{
		Code: CodeWorkspaceNotFound,
		What: fmt.Sprintf("workspace %s does not exist", path),
		Fix:  "Pass --workspace or set core.workspace_path to a local clone",
		Path: path,
	}
}

// ErrWorkspaceBusy is returned when another run holds the workspace.
func ErrWorkspaceBusy(path string, pid int) *Error {
	return &Error{
		Code: CodeWorkspaceBusy,
		What: fmt.Sprintf("workspace %s is in use by another ticket2pr run (pid %d)", path, pid),
		Why:  "Two runs in one clone would check out branches under each other",
		Fix:  "Wait for the other run to finish, or use a different --workspace",
		Path: path,
	}
}

// ErrLocalBranchExists is returned when a local branch would be reused.
func ErrLocalBranchExists(branch string) *Error {
	return &Error{
		Code:   CodeLocalBranchExists,
		What:   fmt.Sprintf("local branch %s already exists", branch),
		Why:    "Refusing to switch onto an existing branch that may hold unrelated work",
		Fix:    fmt.Sprintf("Delete it with 'git branch -D %s' and run again", branch),
		Branch: branch,
	}
}

// ErrCheckout is returned when fetch or checkout fails.
func ErrCheckout(branch string, cause error) *Error {
	return &Error{
		Code:   CodeCheckoutFailed,
		What:   fmt.Sprintf("failed to check out %s", branch),
		Cause:  cause,
		Branch: branch,
	}
}

// ErrPush is returned when commit or push fails.
func ErrPush(branch string, cause error) *Error {
	return &Error{
		Code:   CodePushFailed,
		What:   "failed to commit and push changes",
		Fix:    "Inspect the workspace, then commit and push manually",
		Cause:  cause,
		Branch: branch,
	}
}

// ErrNoStagedChanges is returned when a staged diff was required but empty.
func ErrNoStagedChanges() *Error {
	return &Error{
		Code: CodeNoStagedChanges,
		What: "no staged changes",
		Why:  "The index matches HEAD",
	}
}

// ErrClone is returned when the repository cannot be cloned from any URL.
func ErrClone(dest string, cause error) *Error {
	return &Error{
		Code:  CodeCloneFailed,
		What:  "failed to clone repository",
		Fix:   "Check SSH keys or token access, or set core.workspace_path to an existing clone",
		Cause: cause,
		Path:  dest,
	}
}

// --- Agent constructors ---

// ErrAgentQuery wraps any failure of the coding agent transport.
func ErrAgentQuery(cause error) *Error {
	return &Error{
		Code:  CodeAgentQueryFailed,
		What:  "agent query failed",
		Cause: cause,
	}
}

// ErrAgentLowBalance is returned when the agent reports an exhausted credit balance.
func ErrAgentLowBalance(message string) *Error {
	return &Error{
		Code: CodeAgentLowBalance,
		What: "agent query failed",
		Why:  message,
		Fix:  "Top up your Anthropic credits or switch to a subscription login with 'claude login'",
	}
}

// ErrAgentNotAuthenticated is returned when the claude CLI has no credentials.
func ErrAgentNotAuthenticated(cause error) *Error {
	return &Error{
		Code:  CodeAgentNotAuthenticated,
		What:  "claude is not authenticated",
		Fix:   "Run 'claude login' or export ANTHROPIC_API_KEY",
		Cause: cause,
	}
}

// --- Artifact and environment constructors ---

// ErrPlanNotFound is returned when the planning phase produced no plan file.
func ErrPlanNotFound(path string) *Error {
	return &Error{
		Code: CodePlanNotFound,
		What: "plan file was not created",
		Why:  fmt.Sprintf("Expected the planning agent to write %s", path),
		Path: path,
	}
}

// ErrExecutableNotFound is returned when a required tool is not on PATH.
func ErrExecutableNotFound(name string) *Error {
	return &Error{
		Code: CodeExecutableNotFound,
		What: fmt.Sprintf("%s is not installed", name),
		Why:  fmt.Sprintf("%s was not found on PATH", name),
		Path: name,
	}
}

// --- Settings constructors ---

// ErrConfigInvalid returns an error for an invalid configuration value.
func ErrConfigInvalid(field, reason string) *Error {
	return &Error{
		Code: CodeConfigInvalid,
		What: fmt.Sprintf("invalid configuration: %s", field),
		Why:  reason,
		Fix:  "Run 'ticket2pr init' or edit ~/.ticket2pr/config.toml",
	}
}

// ErrConfigMissing returns an error for a missing required configuration value.
func ErrConfigMissing(field string) *Error {
	return &Error{
		Code: CodeConfigMissing,
		What: fmt.Sprintf("missing required configuration: %s", field),
		Fix:  "Run 'ticket2pr init' or set the matching TICKET2PR_ environment variable",
	}
}

// ErrInvalidIssueInput is returned when the CLI argument is neither a key nor an issue URL.
func ErrInvalidIssueInput(input string) *Error {
	return &Error{
		Code: CodeInvalidIssueInput,
		What: fmt.Sprintf("%q is not a Jira issue key or URL", input),
		Fix:  "Pass a key like PROJ-123 or a URL like https://acme.atlassian.net/browse/PROJ-123",
	}
}

// ErrInterrupted is returned when the run was cancelled by the user.
func ErrInterrupted(cause error) *Error {
	return &Error{
		Code:  CodeInterrupted,
		What:  "interrupted",
		Why:   "Created branches and commits were left in place",
		Cause: cause,
	}
}

// AsError returns the first *Error in err's chain, or nil.
func AsError(err error) *Error {
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return nil
}

// HasCode reports whether err's chain contains an *Error with the given code.
func HasCode(err error, code Code) bool {
	return stderrors.Is(err, &Error{Code: code})
}

// Wrap wraps a generic error into an *Error with unknown code.
func Wrap(err error, what string) *Error {
	return &Error{
		Code:  Code("UNKNOWN"),
		What:  what,
		Cause: err,
	}
}

// ExitCode returns the process exit status for err: 0 for nil, 1 for any
// failure.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
