// Package github implements hosting.Provider on the GitHub REST API.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	gogithub "github.com/google/go-github/v82/github"
	"golang.org/x/oauth2"

	t2perrors "github.com/bengabay11/ticket2pr/internal/errors"
	"github.com/bengabay11/ticket2pr/internal/hosting"
)

// Compile-time interface check.
var _ hosting.Provider = (*GitHubProvider)(nil)

func init() {
	hosting.RegisterProvider(hosting.ProviderGitHub, newProvider)
}

// filesPerPage is the page size when listing PR files.
const filesPerPage = 100

// GitHubProvider implements hosting.Provider using the go-github library.
type GitHubProvider struct {
	client *gogithub.Client
	owner  string
	repo   string

	repoOnce sync.Once
	repoInfo *gogithub.Repository
	repoErr  error
}

// newProvider creates a new GitHubProvider from config.
func newProvider(cfg hosting.Config) (hosting.Provider, error) {
	token, err := resolveToken(cfg)
	if err != nil {
		return nil, err
	}

	owner, repo, ok := strings.Cut(strings.Trim(cfg.Repo, "/"), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return nil, t2perrors.ErrConfigInvalid("github.repo_full_name", fmt.Sprintf("%q is not in owner/repo form", cfg.Repo))
	}

	ctx := context.Background()
	if cfg.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, cfg.HTTPClient)
	}
	client := gogithub.NewClient(oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})))

	// GitHub Enterprise: override base URL.
	if cfg.BaseURL != "" {
		baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
		var parseErr error
		client.BaseURL, parseErr = client.BaseURL.Parse(baseURL + "/api/v3/")
		if parseErr != nil {
			return nil, fmt.Errorf("parse base URL %q: %w", cfg.BaseURL, parseErr)
		}
		client.UploadURL, parseErr = client.UploadURL.Parse(baseURL + "/api/uploads/")
		if parseErr != nil {
			return nil, fmt.Errorf("parse upload URL %q: %w", cfg.BaseURL, parseErr)
		}
	}

	return &GitHubProvider{client: client, owner: owner, repo: repo}, nil
}

// resolveToken prefers the configured token and falls back to GITHUB_TOKEN.
func resolveToken(cfg hosting.Config) (string, error) {
	if cfg.Token != "" {
		return cfg.Token, nil
	}
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token, nil
	}
	return "", t2perrors.ErrConfigMissing("github.api_token")
}

// Name returns the provider type.
func (g *GitHubProvider) Name() hosting.ProviderType {
	return hosting.ProviderGitHub
}

// GetBaseBranchRef resolves heads/<branch>.
func (g *GitHubProvider) GetBaseBranchRef(ctx context.Context, branch string) (hosting.Ref, error) {
	ref, _, err := g.client.Git.GetRef(ctx, g.owner, g.repo, "heads/"+branch)
	if err != nil {
		return hosting.Ref{}, t2perrors.ErrBranchNotFound(branch, err)
	}
	return hosting.Ref{Branch: branch, SHA: ref.GetObject().GetSHA()}, nil
}

type createRefRequest struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

// CreateBranch creates refs/heads/<branch> at base. A 422 saying the
// reference already exists is treated as success; any other 422, such as
// an invalid ref name, is a failure.
func (g *GitHubProvider) CreateBranch(ctx context.Context, branch string, base hosting.Ref) (string, error) {
	repo, err := g.repository(ctx)
	if err != nil {
		return "", t2perrors.ErrBranchCreate(branch, err)
	}
	branchURL := repo.GetHTMLURL() + "/tree/" + branch

	u := fmt.Sprintf("repos/%v/%v/git/refs", g.owner, g.repo)
	req, err := g.client.NewRequest(http.MethodPost, u, &createRefRequest{Ref: "refs/heads/" + branch, SHA: base.SHA})
	if err != nil {
		return "", t2perrors.ErrBranchCreate(branch, err)
	}
	resp, err := g.client.Do(ctx, req, nil)
	if err != nil {
		if refAlreadyExists(resp, err) {
			return branchURL, nil
		}
		return "", t2perrors.ErrBranchCreate(branch, err)
	}
	return branchURL, nil
}

func refAlreadyExists(resp *gogithub.Response, err error) bool {
	if resp == nil || resp.StatusCode != http.StatusUnprocessableEntity {
		return false
	}
	var errResp *gogithub.ErrorResponse
	if !errors.As(err, &errResp) {
		return false
	}
	if strings.Contains(errResp.Message, "Reference already exists") {
		return true
	}
	for _, e := range errResp.Errors {
		if strings.Contains(e.Message, "Reference already exists") {
			return true
		}
	}
	return false
}

// CreatePR creates a pull request.
func (g *GitHubProvider) CreatePR(ctx context.Context, opts hosting.PRCreateOptions) (*hosting.PR, error) {
	created, _, err := g.client.PullRequests.Create(ctx, g.owner, g.repo, &gogithub.NewPullRequest{
		Title: gogithub.Ptr(opts.Title),
		Body:  gogithub.Ptr(opts.Body),
		Head:  gogithub.Ptr(opts.Head),
		Base:  gogithub.Ptr(opts.Base),
		Draft: gogithub.Ptr(opts.Draft),
	})
	if err != nil {
		return nil, t2perrors.ErrPRCreate(opts.Head, opts.Base, err)
	}
	return mapPR(created), nil
}

// GetPR fetches a pull request with all its changed files.
func (g *GitHubProvider) GetPR(ctx context.Context, number int) (*hosting.PRDetails, error) {
	pr, _, err := g.client.PullRequests.Get(ctx, g.owner, g.repo, number)
	if err != nil {
		return nil, t2perrors.ErrPRFetch(number, err)
	}

	details := &hosting.PRDetails{PR: *mapPR(pr)}
	opts := &gogithub.ListOptions{PerPage: filesPerPage}
	for {
		files, resp, err := g.client.PullRequests.ListFiles(ctx, g.owner, g.repo, number, opts)
		if err != nil {
			return nil, t2perrors.ErrPRFetch(number, err)
		}
		for _, f := range files {
			details.Files = append(details.Files, hosting.FileDiff{
				Filename:  f.GetFilename(),
				Status:    hosting.NormalizeStatus(f.GetStatus()),
				Patch:     f.GetPatch(),
				Additions: f.GetAdditions(),
				Deletions: f.GetDeletions(),
				Changes:   f.GetChanges(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return details, nil
}

// CloneURLs returns the SSH and HTTPS clone URLs, SSH first.
func (g *GitHubProvider) CloneURLs(ctx context.Context) ([]string, error) {
	repo, err := g.repository(ctx)
	if err != nil {
		return nil, fmt.Errorf("get repository %s/%s: %w", g.owner, g.repo, err)
	}
	var urls []string
	for _, u := range []string{repo.GetSSHURL(), repo.GetCloneURL()} {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

// repository fetches the repository metadata once.
func (g *GitHubProvider) repository(ctx context.Context) (*gogithub.Repository, error) {
	g.repoOnce.Do(func() {
		g.repoInfo, _, g.repoErr = g.client.Repositories.Get(ctx, g.owner, g.repo)
	})
	return g.repoInfo, g.repoErr
}

func mapPR(pr *gogithub.PullRequest) *hosting.PR {
	return &hosting.PR{
		Number:     pr.GetNumber(),
		Title:      pr.GetTitle(),
		Body:       pr.GetBody(),
		State:      pr.GetState(),
		HeadBranch: pr.GetHead().GetRef(),
		BaseBranch: pr.GetBase().GetRef(),
		HTMLURL:    pr.GetHTMLURL(),
		Draft:      pr.GetDraft(),
	}
}
