// Package git wraps the local repository operations the workflow needs:
// checking out the work branch, staging, committing, pushing and reading
// the staged diff.
package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	t2perrors "github.com/bengabay11/ticket2pr/internal/errors"
	"github.com/bengabay11/ticket2pr/internal/shell"
)

// DefaultRemote is the remote pushed to when none is given.
const DefaultRemote = "origin"

// Repo manages git operations for one workspace.
type Repo struct {
	path   string
	repo   *gogit.Repository
	runner shell.Runner
}

// Option configures Repo.
type Option func(*Repo)

// WithRunner sets a custom command runner for git operations.
// This is primarily used for testing to inject fake command execution.
func WithRunner(runner shell.Runner) Option {
	return func(r *Repo) {
		r.runner = runner
	}
}

// Open opens the repository at path. It fails with a workspace-not-found
// error when the path does not exist, and with ErrNotGitRepo when it is not
// inside a git repository.
func Open(path string, opts ...Option) (*Repo, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		return nil, t2perrors.ErrWorkspaceNotFound(absPath)
	}

	repo, err := gogit.PlainOpenWithOptions(absPath, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotGitRepo, absPath)
	}

	r := &Repo{
		path:   absPath,
		repo:   repo,
		runner: shell.NewExecRunner(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Path returns the workspace root.
func (r *Repo) Path() string {
	return r.path
}

// LocalBranchExists reports whether refs/heads/<name> exists.
func (r *Repo) LocalBranchExists(name string) (bool, error) {
	_, err := r.repo.Reference(plumbing.NewBranchReferenceName(name), false)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("resolve branch %s: %w", name, err)
	}
	return true, nil
}

// RemoteURL returns the first URL configured for the named remote.
func (r *Repo) RemoteURL(name string) (string, error) {
	remote, err := r.repo.Remote(name)
	if err != nil {
		return "", &GitError{Op: "get remote " + name, Err: err}
	}
	if urls := remote.Config().URLs; len(urls) > 0 {
		return urls[0], nil
	}
	return "", &GitError{Op: "get remote " + name, Err: errors.New("no URL configured")}
}

// GitDir returns the absolute path of the repository's git directory.
// Files kept there never show up in the working tree.
func (r *Repo) GitDir(ctx context.Context) (string, error) {
	out, err := r.runGit(ctx, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return "", &GitError{Op: "resolve git dir", Err: err}
	}
	return out, nil
}

// CurrentBranch returns the checked out branch name.
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", &GitError{Op: "get current branch", Err: err}
	}
	return head.Name().Short(), nil
}

// FetchAndCheckout fetches remote refs and checks out branch, which is
// expected to exist on the remote only. An existing local branch with the
// same name is never reused.
func (r *Repo) FetchAndCheckout(ctx context.Context, branch string) error {
	exists, err := r.LocalBranchExists(branch)
	if err != nil {
		return t2perrors.ErrCheckout(branch, err)
	}
	if exists {
		return t2perrors.ErrLocalBranchExists(branch)
	}

	if _, err := r.runGit(ctx, "fetch", DefaultRemote); err != nil {
		return t2perrors.ErrCheckout(branch, &GitError{Op: "fetch", Err: err})
	}
	if _, err := r.runGit(ctx, "checkout", branch); err != nil {
		return t2perrors.ErrCheckout(branch, &GitError{Op: "checkout", Err: err})
	}

	slog.Debug("checked out branch", "branch", branch, "workspace", r.path)
	return nil
}

// StageAll stages every working tree change, including untracked files.
func (r *Repo) StageAll(ctx context.Context) error {
	if _, err := r.runGit(ctx, "add", "-A"); err != nil {
		return &GitError{Op: "stage all", Err: err}
	}
	return nil
}

// IsClean reports whether the working tree has no changes, counting
// untracked files.
func (r *Repo) IsClean(ctx context.Context) (bool, error) {
	status, err := r.runGit(ctx, "status", "--porcelain")
	if err != nil {
		return false, &GitError{Op: "status", Err: err}
	}
	return strings.TrimSpace(status) == "", nil
}

// CommitAndPush commits the index and pushes the current branch to remote.
// A clean working tree is not an error: it returns false without pushing.
// Any failure along the way is reported as a push error.
func (r *Repo) CommitAndPush(ctx context.Context, message, remote string, noVerify bool) (bool, error) {
	if remote == "" {
		remote = DefaultRemote
	}
	branch, _ := r.CurrentBranch()

	clean, err := r.IsClean(ctx)
	if err != nil {
		return false, t2perrors.ErrPush(branch, err)
	}
	if clean {
		slog.Info("nothing to commit", "workspace", r.path)
		return false, nil
	}

	if err := r.commit(ctx, message, noVerify); err != nil {
		return false, t2perrors.ErrPush(branch, err)
	}
	if _, err := r.runGit(ctx, "push", "-u", remote, "HEAD"); err != nil {
		return true, t2perrors.ErrPush(branch, &GitError{Op: "push", Err: err})
	}

	slog.Info("pushed changes", "branch", branch, "remote", remote, "no_verify", noVerify)
	return true, nil
}

func (r *Repo) commit(ctx context.Context, message string, noVerify bool) error {
	args := []string{"commit", "-m", message}
	if noVerify {
		args = append(args, "--no-verify")
	}
	output, err := r.runGit(ctx, args...)
	if err != nil {
		if strings.Contains(output, "nothing to commit") || strings.Contains(err.Error(), "nothing to commit") {
			return ErrNothingToCommit
		}
		return &GitError{Op: "commit", Output: output, Err: err}
	}
	return nil
}

// Clone clones the first reachable URL into dest and opens it.
// URLs are tried in order, so callers list SSH before HTTPS.
func Clone(ctx context.Context, urls []string, dest string, opts ...Option) (*Repo, error) {
	cloner := &Repo{runner: shell.NewExecRunner()}
	for _, opt := range opts {
		opt(cloner)
	}

	var errs []error
	for _, url := range urls {
		res := cloner.runner.Run(ctx, "", "git", "clone", url, dest)
		if err := shell.Check(res, "git", "clone", url, dest); err != nil {
			slog.Warn("clone attempt failed", "url", url, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", url, err))
			_ = os.RemoveAll(dest)
			continue
		}
		return Open(dest, opts...)
	}
	if len(errs) == 0 {
		errs = append(errs, errors.New("no clone URLs"))
	}
	return nil, t2perrors.ErrClone(dest, errors.Join(errs...))
}

// runGit executes a git command in the workspace and returns trimmed stdout.
// On failure the returned string is the command's diagnostic output.
func (r *Repo) runGit(ctx context.Context, args ...string) (string, error) {
	res := r.runner.Run(ctx, r.path, "git", args...)
	if err := shell.Check(res, "git", args...); err != nil {
		return res.Message(), err
	}
	return strings.TrimSpace(res.Stdout), nil
}
