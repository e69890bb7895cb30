package jira

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	v3 "github.com/ctreminiom/go-atlassian/v2/jira/v3"
	"github.com/ctreminiom/go-atlassian/v2/pkg/infra/models"

	t2perrors "github.com/bengabay11/ticket2pr/internal/errors"
)

// maxLinkElapsed bounds the remote link retries.
const maxLinkElapsed = 30 * time.Second

// ClientConfig holds the configuration for connecting to a Jira Cloud instance.
type ClientConfig struct {
	// BaseURL is the Jira Cloud instance URL (e.g., "https://acme.atlassian.net").
	BaseURL string
	// Username is the account email used for basic auth.
	Username string
	APIToken string
	// HTTPClient overrides the default client with a 30s timeout.
	HTTPClient *http.Client
}

// Client wraps the go-atlassian Jira v3 client.
type Client struct {
	jira    *v3.Client
	baseURL string
	// newBackOff builds the retry policy for LinkBranch.
	newBackOff func() backoff.BackOff
}

// NewClient creates a new Jira Cloud client with basic auth.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, t2perrors.ErrConfigMissing("jira.base_url")
	}
	if cfg.Username == "" {
		return nil, t2perrors.ErrConfigMissing("jira.username")
	}
	if cfg.APIToken == "" {
		return nil, t2perrors.ErrConfigMissing("jira.api_token")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	client, err := v3.New(httpClient, baseURL)
	if err != nil {
		return nil, fmt.Errorf("create jira client: %w", err)
	}
	client.Auth.SetBasicAuth(cfg.Username, cfg.APIToken)
	client.Auth.SetUserAgent("ticket2pr/1.0")

	return &Client{jira: client, baseURL: baseURL, newBackOff: linkBackOff}, nil
}

func linkBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxLinkElapsed
	return bo
}

var issueFields = []string{"summary", "description", "issuetype", "status"}

// FetchIssue loads one issue. A 404 is ISSUE_NOT_FOUND, any other HTTP
// failure ISSUE_FETCH_SERVER, and a failure without a response
// ISSUE_FETCH_UNKNOWN.
func (c *Client) FetchIssue(ctx context.Context, key string) (Issue, error) {
	issue, resp, err := c.jira.Issue.Get(ctx, key, issueFields, nil)
	if err != nil {
		switch {
		case resp == nil:
			return Issue{}, t2perrors.ErrIssueFetchUnknown(key, err)
		case resp.StatusCode == http.StatusNotFound:
			return Issue{}, t2perrors.ErrIssueNotFound(key, err)
		default:
			return Issue{}, t2perrors.ErrIssueFetchServer(key, resp.StatusCode, err)
		}
	}
	if issue == nil {
		return Issue{}, t2perrors.ErrIssueFetchUnknown(key, fmt.Errorf("empty response"))
	}
	return c.convertIssue(key, issue), nil
}

func (c *Client) convertIssue(key string, issue *models.IssueScheme) Issue {
	canonical := key
	if issue.Key != "" {
		canonical = issue.Key
	}
	result := Issue{
		Key:       key,
		URL:       c.browseURL(key),
		Permalink: c.browseURL(canonical),
		Self:      issue.Self,
	}
	if f := issue.Fields; f != nil {
		result.Summary = f.Summary
		result.Description = ADFToMarkdown(f.Description)
		if f.IssueType != nil {
			result.Type = f.IssueType.Name
		}
		if f.Status != nil {
			result.Status = f.Status.Name
		}
	}
	return result
}

func (c *Client) browseURL(key string) string {
	return c.baseURL + "/browse/" + key
}

// forgeTitles are the display names used in remote link titles.
var forgeTitles = map[string]string{
	"github": "GitHub",
	"gitlab": "GitLab",
}

// remoteLink builds the remote link payload for a branch. An empty forge
// is treated as GitHub.
func remoteLink(branch RemoteBranch) *models.RemoteLinkScheme {
	system := strings.ToLower(branch.Forge)
	if system == "" {
		system = "github"
	}
	title, ok := forgeTitles[system]
	if !ok {
		title = branch.Forge
	}
	return &models.RemoteLinkScheme{
		GlobalID:     "system=" + system + "&id=" + branch.URL,
		Relationship: "source",
		Object: &models.RemoteLinkObjectScheme{
			URL:   branch.URL,
			Title: title + " Branch: " + branch.Name,
		},
	}
}

// LinkBranch records a remote link from the issue to the forge branch.
// Server errors and transport failures are retried with exponential
// backoff; client errors are not.
func (c *Client) LinkBranch(ctx context.Context, key string, branch RemoteBranch) error {
	link := remoteLink(branch)

	op := func() error {
		_, resp, err := c.jira.Issue.Link.Remote.Create(ctx, key, link)
		if err == nil {
			return nil
		}
		if resp != nil && resp.StatusCode < http.StatusInternalServerError {
			return backoff.Permanent(fmt.Errorf("link branch to %s (status %d): %w", key, resp.StatusCode, err))
		}
		return fmt.Errorf("link branch to %s: %w", key, err)
	}
	notify := func(err error, wait time.Duration) {
		slog.Debug("retrying jira remote link", "issue", key, "wait", wait, "error", err)
	}
	return backoff.RetryNotify(op, backoff.WithContext(c.newBackOff(), ctx), notify)
}

// CheckAuth verifies the client can authenticate with Jira.
func (c *Client) CheckAuth(ctx context.Context) error {
	_, resp, err := c.jira.MySelf.Details(ctx, nil)
	if err != nil {
		if resp != nil {
			return t2perrors.ErrJiraAuthFailed(resp.StatusCode, err)
		}
		return t2perrors.ErrJiraAuthFailed(0, err)
	}
	return nil
}
