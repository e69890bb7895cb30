// Package gitlab implements hosting.Provider on the GitLab REST API, with
// merge requests standing in for pull requests.
package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	gogitlab "gitlab.com/gitlab-org/api/client-go"

	t2perrors "github.com/bengabay11/ticket2pr/internal/errors"
	"github.com/bengabay11/ticket2pr/internal/hosting"
)

// Compile-time interface check.
var _ hosting.Provider = (*GitLabProvider)(nil)

func init() {
	hosting.RegisterProvider(hosting.ProviderGitLab, newProvider)
}

// GitLabProvider implements hosting.Provider using the GitLab client-go library.
type GitLabProvider struct {
	client    *gogitlab.Client
	projectID string // "group/subgroup/repo" path used as project identifier

	projectOnce sync.Once
	project     *gogitlab.Project
	projectErr  error
}

// newProvider creates a new GitLabProvider from config.
func newProvider(cfg hosting.Config) (hosting.Provider, error) {
	token, err := resolveToken(cfg)
	if err != nil {
		return nil, err
	}

	projectID := strings.Trim(cfg.Repo, "/")
	if !strings.Contains(projectID, "/") {
		return nil, t2perrors.ErrConfigInvalid("gitlab.project_path", fmt.Sprintf("%q is not a group/project path", cfg.Repo))
	}

	var opts []gogitlab.ClientOptionFunc
	if cfg.BaseURL != "" {
		opts = append(opts, gogitlab.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")+"/api/v4"))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, gogitlab.WithHTTPClient(cfg.HTTPClient))
	}
	client, err := gogitlab.NewClient(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GitLab client: %w", err)
	}

	return &GitLabProvider{client: client, projectID: projectID}, nil
}

// resolveToken prefers the configured token, then GITLAB_TOKEN, then
// GITLAB_PRIVATE_TOKEN.
func resolveToken(cfg hosting.Config) (string, error) {
	if cfg.Token != "" {
		return cfg.Token, nil
	}
	for _, env := range []string{"GITLAB_TOKEN", "GITLAB_PRIVATE_TOKEN"} {
		if token := os.Getenv(env); token != "" {
			return token, nil
		}
	}
	return "", t2perrors.ErrConfigMissing("gitlab.api_token")
}

// Name returns the provider type.
func (g *GitLabProvider) Name() hosting.ProviderType {
	return hosting.ProviderGitLab
}

// GetBaseBranchRef resolves a branch to its head commit.
func (g *GitLabProvider) GetBaseBranchRef(ctx context.Context, branch string) (hosting.Ref, error) {
	b, _, err := g.client.Branches.GetBranch(g.projectID, branch, gogitlab.WithContext(ctx))
	if err != nil {
		return hosting.Ref{}, t2perrors.ErrBranchNotFound(branch, err)
	}
	ref := hosting.Ref{Branch: branch}
	if b.Commit != nil {
		ref.SHA = b.Commit.ID
	}
	return ref, nil
}

// CreateBranch creates branch from the base commit. GitLab answers 400
// "Branch already exists" for a duplicate, which is treated as success.
func (g *GitLabProvider) CreateBranch(ctx context.Context, branch string, base hosting.Ref) (string, error) {
	project, err := g.getProject(ctx)
	if err != nil {
		return "", t2perrors.ErrBranchCreate(branch, err)
	}
	branchURL := project.WebURL + "/-/tree/" + branch

	start := base.SHA
	if start == "" {
		start = base.Branch
	}
	_, resp, err := g.client.Branches.CreateBranch(g.projectID, &gogitlab.CreateBranchOptions{
		Branch: gogitlab.Ptr(branch),
		Ref:    gogitlab.Ptr(start),
	}, gogitlab.WithContext(ctx))
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusBadRequest && strings.Contains(err.Error(), "already exists") {
			return branchURL, nil
		}
		return "", t2perrors.ErrBranchCreate(branch, err)
	}
	return branchURL, nil
}

// CreatePR creates a merge request. Drafts use the "Draft:" title prefix.
func (g *GitLabProvider) CreatePR(ctx context.Context, opts hosting.PRCreateOptions) (*hosting.PR, error) {
	title := opts.Title
	if opts.Draft {
		title = "Draft: " + title
	}

	mr, _, err := g.client.MergeRequests.CreateMergeRequest(g.projectID, &gogitlab.CreateMergeRequestOptions{
		Title:              gogitlab.Ptr(title),
		Description:        gogitlab.Ptr(opts.Body),
		SourceBranch:       gogitlab.Ptr(opts.Head),
		TargetBranch:       gogitlab.Ptr(opts.Base),
		RemoveSourceBranch: gogitlab.Ptr(true),
	}, gogitlab.WithContext(ctx))
	if err != nil {
		return nil, t2perrors.ErrPRCreate(opts.Head, opts.Base, err)
	}
	return mapMR(mr), nil
}

// GetPR gets a merge request by IID together with its file diffs.
func (g *GitLabProvider) GetPR(ctx context.Context, number int) (*hosting.PRDetails, error) {
	mr, _, err := g.client.MergeRequests.GetMergeRequest(g.projectID, int64(number), nil, gogitlab.WithContext(ctx))
	if err != nil {
		return nil, t2perrors.ErrPRFetch(number, err)
	}
	details := &hosting.PRDetails{PR: *mapMR(mr)}

	opts := &gogitlab.ListMergeRequestDiffsOptions{
		ListOptions: gogitlab.ListOptions{PerPage: 100},
	}
	for {
		diffs, resp, err := g.client.MergeRequests.ListMergeRequestDiffs(g.projectID, int64(number), opts, gogitlab.WithContext(ctx))
		if err != nil {
			return nil, t2perrors.ErrPRFetch(number, err)
		}
		for _, d := range diffs {
			details.Files = append(details.Files, mapDiff(d))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return details, nil
}

// CloneURLs returns the SSH and HTTPS clone URLs, SSH first.
func (g *GitLabProvider) CloneURLs(ctx context.Context) ([]string, error) {
	project, err := g.getProject(ctx)
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", g.projectID, err)
	}
	var urls []string
	for _, u := range []string{project.SSHURLToRepo, project.HTTPURLToRepo} {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

func (g *GitLabProvider) getProject(ctx context.Context) (*gogitlab.Project, error) {
	g.projectOnce.Do(func() {
		g.project, _, g.projectErr = g.client.Projects.GetProject(g.projectID, nil, gogitlab.WithContext(ctx))
	})
	return g.project, g.projectErr
}

// mapMR converts a GitLab MergeRequest to a hosting.PR.
func mapMR(mr *gogitlab.MergeRequest) *hosting.PR {
	state := mr.State
	if state == "opened" {
		state = "open"
	}
	return &hosting.PR{
		Number:     int(mr.IID),
		Title:      mr.Title,
		Body:       mr.Description,
		State:      state,
		HeadBranch: mr.SourceBranch,
		BaseBranch: mr.TargetBranch,
		HTMLURL:    mr.WebURL,
		Draft:      mr.Draft,
	}
}

func mapDiff(d *gogitlab.MergeRequestDiff) hosting.FileDiff {
	status := hosting.StatusModified
	switch {
	case d.NewFile:
		status = hosting.StatusAdded
	case d.DeletedFile:
		status = hosting.StatusRemoved
	case d.RenamedFile:
		status = hosting.StatusRenamed
	}

	filename := d.NewPath
	if d.DeletedFile {
		filename = d.OldPath
	}

	additions, deletions := countLines(d.Diff)
	return hosting.FileDiff{
		Filename:  filename,
		Status:    status,
		Patch:     d.Diff,
		Additions: additions,
		Deletions: deletions,
		Changes:   additions + deletions,
	}
}

// countLines counts added and removed lines in a unified diff hunk body.
func countLines(patch string) (additions, deletions int) {
	for _, line := range strings.Split(patch, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			additions++
		case strings.HasPrefix(line, "-"):
			deletions++
		}
	}
	return additions, deletions
}
