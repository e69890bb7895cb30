// Package hosting provides a unified interface for code forges (GitHub, GitLab).
package hosting

import (
	"context"
	"strings"
)

// ProviderType identifies which hosting provider is in use.
type ProviderType string

const (
	ProviderGitHub  ProviderType = "github"
	ProviderGitLab  ProviderType = "gitlab"
	ProviderUnknown ProviderType = "unknown"
)

// Provider is the forge surface the workflow needs.
// Implementations exist for GitHub (go-github) and GitLab (client-go).
type Provider interface {
	// GetBaseBranchRef resolves a branch to the commit it points at.
	GetBaseBranchRef(ctx context.Context, branch string) (Ref, error)
	// CreateBranch creates branch at base and returns its web URL. A branch
	// that already exists is not an error.
	CreateBranch(ctx context.Context, branch string, base Ref) (string, error)
	CreatePR(ctx context.Context, opts PRCreateOptions) (*PR, error)
	GetPR(ctx context.Context, number int) (*PRDetails, error)
	// CloneURLs lists the repository clone URLs, SSH first.
	CloneURLs(ctx context.Context) ([]string, error)
	Name() ProviderType
}

// Ref is a resolved branch.
type Ref struct {
	Branch string
	SHA    string
}

// PR represents a pull request / merge request.
type PR struct {
	Number     int
	Title      string
	Body       string
	State      string
	HeadBranch string
	BaseBranch string
	HTMLURL    string
	Draft      bool
}

// PRCreateOptions for creating a PR / merge request.
type PRCreateOptions struct {
	Title string
	Body  string
	Head  string // Source branch
	Base  string // Target branch
	Draft bool
}

// PRDetails is a PR with its changed files.
type PRDetails struct {
	PR
	Files []FileDiff
}

// File statuses reported in FileDiff.Status.
const (
	StatusAdded    = "added"
	StatusRemoved  = "removed"
	StatusModified = "modified"
	StatusRenamed  = "renamed"
)

// FileDiff is one changed file of a PR.
type FileDiff struct {
	Filename  string
	Status    string
	Patch     string
	Additions int
	Deletions int
	Changes   int
}

// NormalizeStatus maps forge specific file statuses onto the four
// statuses above. Unknown values count as modified.
func NormalizeStatus(status string) string {
	switch strings.ToLower(status) {
	case "added", "new":
		return StatusAdded
	case "removed", "deleted":
		return StatusRemoved
	case "renamed", "moved":
		return StatusRenamed
	default:
		return StatusModified
	}
}
