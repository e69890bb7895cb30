package git

import "errors"

var (
	// ErrNotGitRepo indicates the path is not a git repository.
	ErrNotGitRepo = errors.New("not a git repository")

	// ErrNothingToCommit indicates there are no staged changes to commit.
	ErrNothingToCommit = errors.New("nothing to commit")
)

// GitError wraps a git command error with the operation that failed.
type GitError struct {
	Op     string // Operation that failed (e.g., "commit", "push")
	Output string // Combined stdout/stderr output
	Err    error
}

func (e *GitError) Error() string {
	if e.Output != "" {
		return e.Op + ": " + e.Output
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *GitError) Unwrap() error {
	return e.Err
}
