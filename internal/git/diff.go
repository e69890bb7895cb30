package git

import (
	"context"
	"log/slog"
	"strings"

	"github.com/waigani/diffparser"

	t2perrors "github.com/bengabay11/ticket2pr/internal/errors"
)

// Diff is the staged change set relative to HEAD.
type Diff struct {
	Text      string
	Files     []string
	Additions int
	Deletions int
}

// StagedDiff returns the staged unified diff and the changed paths.
// An empty index is reported as a no-staged-changes error; callers use it
// as a precondition check.
func (r *Repo) StagedDiff(ctx context.Context) (Diff, error) {
	text, err := r.runGit(ctx, "diff", "--cached")
	if err != nil {
		return Diff{}, &GitError{Op: "diff staged", Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return Diff{}, t2perrors.ErrNoStagedChanges()
	}

	names, err := r.runGit(ctx, "diff", "--cached", "--name-only")
	if err != nil {
		return Diff{}, &GitError{Op: "diff staged names", Err: err}
	}

	d := Diff{Text: text}
	for _, name := range strings.Split(names, "\n") {
		if name = strings.TrimSpace(name); name != "" {
			d.Files = append(d.Files, name)
		}
	}
	d.Additions, d.Deletions = countLines(text)
	return d, nil
}

// countLines tallies added and removed lines across all hunks.
func countLines(text string) (additions, deletions int) {
	parsed, err := diffparser.Parse(text)
	if err != nil {
		slog.Debug("parse staged diff", "error", err)
		return 0, 0
	}
	for _, f := range parsed.Files {
		for _, h := range f.Hunks {
			for _, line := range h.WholeRange.Lines {
				switch line.Mode {
				case diffparser.ADDED:
					additions++
				case diffparser.REMOVED:
					deletions++
				}
			}
		}
	}
	return additions, deletions
}
