package jira

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"

	t2perrors "github.com/bengabay11/ticket2pr/internal/errors"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(ClientConfig{BaseURL: srv.URL + "/", Username: "dev@example.com", APIToken: "token"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.newBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 3)
	}
	return c
}

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name  string
		cfg   ClientConfig
		field string
	}{
		{"missing url", ClientConfig{Username: "u", APIToken: "t"}, "jira.base_url"},
		{"missing username", ClientConfig{BaseURL: "https://x.atlassian.net", APIToken: "t"}, "jira.username"},
		{"missing token", ClientConfig{BaseURL: "https://x.atlassian.net", Username: "u"}, "jira.api_token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.cfg)
			if !t2perrors.HasCode(err, t2perrors.CodeConfigMissing) {
				t.Fatalf("err = %v, want CONFIG_MISSING", err)
			}
		})
	}
}

func TestFetchIssue(t *testing.T) {
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/3/issue/ABC-7", func(w http.ResponseWriter, r *http.Request) {
		if user, _, ok := r.BasicAuth(); !ok || user != "dev@example.com" {
			t.Errorf("basic auth user = %q", user)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":   "10007",
			"key":  "ABC-7",
			"self": srvURL + "/rest/api/3/issue/10007",
			"fields": map[string]any{
				"summary":   "Fix login",
				"issuetype": map[string]any{"name": "Bug"},
				"status":    map[string]any{"name": "To Do"},
				"description": map[string]any{
					"type":    "doc",
					"version": 1,
					"content": []any{
						map[string]any{"type": "paragraph", "content": []any{
							map[string]any{"type": "text", "text": "Login fails on Safari"},
						}},
					},
				},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	c, err := NewClient(ClientConfig{BaseURL: srv.URL, Username: "dev@example.com", APIToken: "token"})
	if err != nil {
		t.Fatal(err)
	}

	issue, err := c.FetchIssue(context.Background(), "ABC-7")
	if err != nil {
		t.Fatalf("FetchIssue: %v", err)
	}

	want := Issue{
		Key:         "ABC-7",
		Summary:     "Fix login",
		URL:         srv.URL + "/browse/ABC-7",
		Permalink:   srv.URL + "/browse/ABC-7",
		Self:        srv.URL + "/rest/api/3/issue/10007",
		Description: "Login fails on Safari",
		Type:        "Bug",
		Status:      "To Do",
	}
	if issue != want {
		t.Errorf("FetchIssue =\n%+v\nwant\n%+v", issue, want)
	}
}

func TestFetchIssue_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   t2perrors.Code
	}{
		{"not found", http.StatusNotFound, t2perrors.CodeIssueNotFound},
		{"server error", http.StatusInternalServerError, t2perrors.CodeIssueFetchServer},
		{"unauthorized", http.StatusUnauthorized, t2perrors.CodeIssueFetchServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, `{"errorMessages":["nope"],"errors":{}}`)
			}))

			_, err := c.FetchIssue(context.Background(), "ABC-7")
			if !t2perrors.HasCode(err, tt.code) {
				t.Fatalf("err = %v, want %s", err, tt.code)
			}
			if e := t2perrors.AsError(err); e.IssueKey != "ABC-7" {
				t.Errorf("IssueKey = %q", e.IssueKey)
			}
		})
	}
}

func TestFetchIssue_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(ClientConfig{BaseURL: url, Username: "u", APIToken: "t"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.FetchIssue(context.Background(), "ABC-7")
	if !t2perrors.HasCode(err, t2perrors.CodeIssueFetchUnknown) {
		t.Fatalf("err = %v, want ISSUE_FETCH_UNKNOWN", err)
	}
}

func TestLinkBranch(t *testing.T) {
	var calls atomic.Int32
	var got map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/3/issue/ABC-7/remotelink" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":10000,"self":"https://x/rest/api/3/issue/ABC-7/remotelink/10000"}`)
	}))

	branchURL := "https://github.com/acme/app/tree/bug/ABC-7-fix-login-20260101000000"
	branch := RemoteBranch{Forge: "github", URL: branchURL, Name: "bug/ABC-7-fix-login-20260101000000"}
	if err := c.LinkBranch(context.Background(), "ABC-7", branch); err != nil {
		t.Fatalf("LinkBranch: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2 (one retry)", calls.Load())
	}
	if got["globalId"] != "system=github&id="+branchURL {
		t.Errorf("globalId = %v", got["globalId"])
	}
	if got["relationship"] != "source" {
		t.Errorf("relationship = %v", got["relationship"])
	}
	obj, _ := got["object"].(map[string]any)
	if obj["title"] != "GitHub Branch: bug/ABC-7-fix-login-20260101000000" || obj["url"] != branchURL {
		t.Errorf("object = %v", obj)
	}
}

func TestRemoteLink(t *testing.T) {
	tests := []struct {
		forge      string
		wantGlobal string
		wantTitle  string
	}{
		{"github", "system=github&id=https://forge/b", "GitHub Branch: feat/x"},
		{"gitlab", "system=gitlab&id=https://forge/b", "GitLab Branch: feat/x"},
		{"", "system=github&id=https://forge/b", "GitHub Branch: feat/x"},
	}
	for _, tt := range tests {
		link := remoteLink(RemoteBranch{Forge: tt.forge, URL: "https://forge/b", Name: "feat/x"})
		if link.GlobalID != tt.wantGlobal {
			t.Errorf("forge %q: globalId = %q, want %q", tt.forge, link.GlobalID, tt.wantGlobal)
		}
		if link.Object.Title != tt.wantTitle {
			t.Errorf("forge %q: title = %q, want %q", tt.forge, link.Object.Title, tt.wantTitle)
		}
	}
}

func TestFetchIssue_MovedIssuePermalink(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/3/issue/OLD-3", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"10007","key":"ABC-7","fields":{"summary":"Fix login"}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := NewClient(ClientConfig{BaseURL: srv.URL, Username: "u", APIToken: "t"})
	if err != nil {
		t.Fatal(err)
	}
	issue, err := c.FetchIssue(context.Background(), "OLD-3")
	if err != nil {
		t.Fatalf("FetchIssue: %v", err)
	}
	if issue.URL != srv.URL+"/browse/OLD-3" {
		t.Errorf("URL = %q", issue.URL)
	}
	if issue.Permalink != srv.URL+"/browse/ABC-7" {
		t.Errorf("Permalink = %q, want the browse link of the reported key", issue.Permalink)
	}
}

func TestLinkBranch_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))

	if err := c.LinkBranch(context.Background(), "ABC-7", RemoteBranch{URL: "https://x", Name: "b"}); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestCheckAuth(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"valid credentials", http.StatusOK, false},
		{"bad token", http.StatusUnauthorized, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/rest/api/3/myself" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, `{"accountId":"abc","emailAddress":"dev@example.com"}`)
			}))

			err := c.CheckAuth(context.Background())
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("CheckAuth: %v", err)
				}
				return
			}
			if !t2perrors.HasCode(err, t2perrors.CodeJiraAuthFailed) {
				t.Fatalf("err = %v, want JIRA_AUTH_FAILED", err)
			}
		})
	}
}
