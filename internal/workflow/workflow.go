// Package workflow drives one issue from the tracker to an opened pull
// request. Every external system is reached through a small interface so
// the pipeline can be exercised without Jira, a forge, git or the agent.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bengabay11/ticket2pr/internal/content"
	t2perrors "github.com/bengabay11/ticket2pr/internal/errors"
	"github.com/bengabay11/ticket2pr/internal/fixer"
	"github.com/bengabay11/ticket2pr/internal/git"
	"github.com/bengabay11/ticket2pr/internal/hosting"
	"github.com/bengabay11/ticket2pr/internal/jira"
	"github.com/bengabay11/ticket2pr/internal/precommit"
	"github.com/bengabay11/ticket2pr/internal/prompts"
)

// Tracker is the issue tracker surface used by a run.
type Tracker interface {
	FetchIssue(ctx context.Context, key string) (jira.Issue, error)
	LinkBranch(ctx context.Context, key string, branch jira.RemoteBranch) error
}

// Forge is the subset of hosting.Provider a run touches.
type Forge interface {
	Name() hosting.ProviderType
	GetBaseBranchRef(ctx context.Context, branch string) (hosting.Ref, error)
	CreateBranch(ctx context.Context, branch string, base hosting.Ref) (string, error)
	CreatePR(ctx context.Context, opts hosting.PRCreateOptions) (*hosting.PR, error)
}

// Repo is the local workspace.
type Repo interface {
	Path() string
	FetchAndCheckout(ctx context.Context, branch string) error
	StageAll(ctx context.Context) error
	CommitAndPush(ctx context.Context, message, remote string, noVerify bool) (bool, error)
}

// Solver implements the issue in the workspace and returns the agent session.
type Solver interface {
	Solve(ctx context.Context, issue prompts.Issue, writeTests bool) (string, error)
}

// Fixer is a bounded verify/repair loop.
type Fixer interface {
	Run(ctx context.Context) (fixer.Outcome, error)
}

// PreCommitGate decides whether hooks run for a workspace.
type PreCommitGate interface {
	Decide(noVerify bool, workspace string) precommit.Decision
}

// Options are the per-run switches.
type Options struct {
	BaseBranch      string
	FixTests        bool
	CommitNoVerify  bool
	WriteTests      bool
	MaxBranchLength int
	Remote          string
}

// Result is what a successful run produced.
type Result struct {
	BranchName     string
	BranchURL      string
	PRNumber       int
	PRURL          string
	IssuePermalink string
	Committed      bool
	NoVerify       bool
}

// Workflow wires the collaborators of one run.
type Workflow struct {
	Tracker        Tracker
	Forge          Forge
	Repo           Repo
	Solver         Solver
	TestFixer      Fixer
	PreCommitGate  PreCommitGate
	PreCommitFixer Fixer
	Content        content.Generator
	Reporter       Reporter
	Options        Options

	// Now stamps branch names. Defaults to time.Now.
	Now func() time.Time
}

// Run executes the pipeline for issueKey. Only the two fix loops degrade
// softly; any other failure aborts the run, leaving the branch and any
// pushed commit in place. Cancellation is reported as an interrupted error.
func (w *Workflow) Run(ctx context.Context, issueKey string) (*Result, error) {
	runID := uuid.NewString()
	log := slog.With("run_id", runID, "issue", issueKey)
	rep := w.reporter()

	res, err := w.run(ctx, log, rep, issueKey)
	if err != nil {
		if ctx.Err() != nil {
			return nil, t2perrors.ErrInterrupted(err)
		}
		log.Error("run failed", "error", err)
		return nil, err
	}
	log.Info("run finished", "branch", res.BranchName, "pr", res.PRNumber, "no_verify", res.NoVerify)
	return res, nil
}

func (w *Workflow) run(ctx context.Context, log *slog.Logger, rep Reporter, issueKey string) (*Result, error) {
	opts := w.Options
	if opts.BaseBranch == "" {
		opts.BaseBranch = "main"
	}

	rep.Step("Fetching issue " + issueKey)
	issue, err := w.Tracker.FetchIssue(ctx, issueKey)
	if err != nil {
		return nil, err
	}
	rep.Info(fmt.Sprintf("%s: %s", issue.Key, issue.Summary))

	rep.Step("Creating branch")
	branch := git.GenerateBranchName(issue.Key, issue.Summary, issue.Type, opts.MaxBranchLength, w.now())
	base, err := w.Forge.GetBaseBranchRef(ctx, opts.BaseBranch)
	if err != nil {
		return nil, err
	}
	branchURL, err := w.Forge.CreateBranch(ctx, branch, base)
	if err != nil {
		return nil, err
	}
	log.Info("branch created", "branch", branch, "base", base.Branch, "sha", base.SHA)
	link := jira.RemoteBranch{Forge: string(w.Forge.Name()), URL: branchURL, Name: branch}
	if err := w.Tracker.LinkBranch(ctx, issue.Key, link); err != nil {
		log.Warn("link branch to issue", "branch", branch, "error", err)
		rep.Warn("Could not link the branch to " + issue.Key)
	}

	rep.Step("Checking out " + branch)
	if err := w.Repo.FetchAndCheckout(ctx, branch); err != nil {
		return nil, err
	}

	pIssue := promptIssue(issue)

	rep.Step("Solving " + issue.Key)
	sessionID, err := w.Solver.Solve(ctx, pIssue, opts.WriteTests)
	if err != nil {
		return nil, err
	}
	log = log.With("session_id", sessionID)

	if opts.FixTests && w.TestFixer != nil {
		rep.Step("Running tests")
		out, err := w.TestFixer.Run(ctx)
		if err != nil {
			return nil, err
		}
		switch {
		case out.Skipped:
			rep.Info("No tests plan produced, skipping tests")
		case !out.Passed:
			log.Warn("tests still failing", "attempts", out.Attempts)
			rep.Warn(fmt.Sprintf("Tests still failing after %d attempts", out.Attempts))
		default:
			rep.Info("Tests pass")
		}
	}

	noVerify, err := w.verifyPreCommit(ctx, log, rep, opts.CommitNoVerify)
	if err != nil {
		return nil, err
	}

	if err := w.Repo.StageAll(ctx); err != nil {
		return nil, err
	}

	rep.Step("Generating commit message and PR description")
	c, err := w.Content.Generate(ctx, pIssue, sessionID)
	if err != nil {
		return nil, err
	}

	rep.Step("Committing and pushing")
	committed, err := w.Repo.CommitAndPush(ctx, c.CommitMessage, opts.Remote, noVerify)
	if err != nil {
		return nil, err
	}
	if !committed {
		rep.Warn("The agent left no changes to commit")
	}

	rep.Step("Creating pull request")
	pr, err := w.Forge.CreatePR(ctx, hosting.PRCreateOptions{
		Title: content.PRTitle(pIssue),
		Body:  c.PRBody,
		Head:  branch,
		Base:  opts.BaseBranch,
		Draft: true,
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		BranchName:     branch,
		BranchURL:      branchURL,
		PRNumber:       pr.Number,
		PRURL:          pr.HTMLURL,
		IssuePermalink: issuePermalink(issue),
		Committed:      committed,
		NoVerify:       noVerify,
	}, nil
}

// issuePermalink prefers the link for the key Jira reported.
func issuePermalink(issue jira.Issue) string {
	if issue.Permalink != "" {
		return issue.Permalink
	}
	return issue.URL
}

// verifyPreCommit applies the gate and runs the fix loop. It returns
// whether the commit must bypass hooks.
func (w *Workflow) verifyPreCommit(ctx context.Context, log *slog.Logger, rep Reporter, noVerify bool) (bool, error) {
	decision := precommit.SkipNotInstalled
	if w.PreCommitGate != nil {
		decision = w.PreCommitGate.Decide(noVerify, w.Repo.Path())
	}
	if decision.Skipped() || w.PreCommitFixer == nil {
		log.Info("pre-commit skipped", "reason", decision.String())
		if decision != precommit.SkipNoVerifyFlag {
			rep.Info("Pre-commit " + decision.String())
		}
		return true, nil
	}

	step := "Verifying pre-commit hooks"
	if ids, err := precommit.HookIDs(w.Repo.Path()); err == nil && len(ids) > 0 {
		step += " (" + strings.Join(ids, ", ") + ")"
	}
	rep.Step(step)
	out, err := w.PreCommitFixer.Run(ctx)
	if err != nil {
		return false, fmt.Errorf("pre-commit: %w", err)
	}
	if !out.Passed {
		log.Warn("pre-commit still failing, committing with --no-verify", "attempts", out.Attempts)
		rep.Warn(fmt.Sprintf("Pre-commit still failing after %d attempts, committing without hooks", out.Attempts))
		return true, nil
	}
	rep.Info("Pre-commit hooks pass")
	return false, nil
}

func (w *Workflow) reporter() Reporter {
	if w.Reporter == nil {
		return NopReporter{}
	}
	return w.Reporter
}

func (w *Workflow) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

func promptIssue(issue jira.Issue) prompts.Issue {
	return prompts.Issue{
		Key:         issue.Key,
		Type:        issue.Type,
		Status:      issue.Status,
		Summary:     issue.Summary,
		URL:         issue.URL,
		Description: issue.Description,
	}
}
