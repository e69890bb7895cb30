package cli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/bengabay11/ticket2pr/internal/config"
	"github.com/bengabay11/ticket2pr/internal/console"
	t2perrors "github.com/bengabay11/ticket2pr/internal/errors"
	"github.com/bengabay11/ticket2pr/internal/git"
	"github.com/bengabay11/ticket2pr/internal/lock"
	"github.com/bengabay11/ticket2pr/internal/shell"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.FileName)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const sampleConfig = `
[core]
base_branch = "develop"

[jira]
base_url = "https://acme.atlassian.net"
username = "dev@acme.io"
api_token = "jira-secret-token-7788"

[github]
repo_full_name = "acme/app"
`

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, "ticket2pr version "+version) {
		t.Errorf("output = %q", out)
	}
}

func TestRootWithoutArgsPrintsHelp(t *testing.T) {
	out, err := execute(t)
	if err != nil {
		t.Fatalf("root failed: %v", err)
	}
	if !strings.Contains(out, "show-pr") || !strings.Contains(out, "--no-verify") {
		t.Errorf("help output missing commands or flags:\n%s", out)
	}
}

func TestConfigShowMasksSecrets(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	out, err := execute(t, "config", "show", "--config", path)
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(out, "core.base_branch") || !strings.Contains(out, "develop") {
		t.Errorf("output missing base branch:\n%s", out)
	}
	if strings.Contains(out, "jira-secret-token") {
		t.Errorf("token leaked:\n%s", out)
	}
	if !strings.Contains(out, "7788") {
		t.Errorf("masked token should keep its last characters:\n%s", out)
	}

	out, err = execute(t, "config", "show", "--config", path, "--reveal")
	if err != nil {
		t.Fatalf("config show --reveal failed: %v", err)
	}
	if !strings.Contains(out, "jira-secret-token-7788") {
		t.Errorf("--reveal should print the token:\n%s", out)
	}
}

func TestConfigGet(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	out, err := execute(t, "config", "get", "core.base_branch", "--config", path)
	if err != nil {
		t.Fatalf("config get failed: %v", err)
	}
	if strings.TrimSpace(out) != "develop" {
		t.Errorf("output = %q, want develop", out)
	}

	if _, err := execute(t, "config", "get", "core.nope", "--config", path); err == nil {
		t.Error("unknown key should fail")
	}
}

func TestConfigSetPersistsFileOnly(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	t.Setenv("TICKET2PR_JIRA__USERNAME", "env-user")

	if _, err := execute(t, "config", "set", "core.fix_tests", "true", "--config", path); err != nil {
		t.Fatalf("config set failed: %v", err)
	}

	cfg, err := config.Loader{Path: path, DotEnv: "-", NoEnv: true}.Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !cfg.Core.FixTests {
		t.Error("fix_tests was not written")
	}
	if cfg.Jira.Username != "dev@acme.io" {
		t.Errorf("username = %q, environment value must not be persisted", cfg.Jira.Username)
	}
	if cfg.Core.BaseBranch != "develop" {
		t.Errorf("base_branch = %q, existing values must survive", cfg.Core.BaseBranch)
	}
}

func TestConfigPath(t *testing.T) {
	out, err := execute(t, "config", "path", "--config", "/tmp/custom.toml")
	if err != nil {
		t.Fatalf("config path failed: %v", err)
	}
	if strings.TrimSpace(out) != "/tmp/custom.toml" {
		t.Errorf("output = %q", out)
	}
}

func TestRunRejectsInvalidIssue(t *testing.T) {
	for _, args := range [][]string{
		{"run", "not an issue"},
		{"not an issue"},
	} {
		_, err := execute(t, args...)
		if !t2perrors.HasCode(err, t2perrors.CodeInvalidIssueInput) {
			t.Errorf("%v: err = %v, want invalid issue input", args, err)
		}
	}
}

func TestRunValidatesConfig(t *testing.T) {
	path := writeConfig(t, "[core]\nbase_branch = \"main\"\n")
	for _, k := range []string{"TICKET2PR_JIRA__BASE_URL", "TICKET2PR_JIRA__USERNAME", "TICKET2PR_JIRA__API_TOKEN"} {
		t.Setenv(k, "")
	}

	_, err := execute(t, "run", "ABC-1", "--config", path)
	if t2perrors.AsError(err) == nil {
		t.Fatalf("err = %v, want a settings error", err)
	}
	if got := t2perrors.AsError(err).Category(); got != t2perrors.CategorySettings {
		t.Errorf("category = %v, want settings", got)
	}
}

func TestShowPRRejectsBadNumber(t *testing.T) {
	for _, arg := range []string{"abc", "0", "-3"} {
		if _, err := execute(t, "show-pr", "--", arg); err == nil {
			t.Errorf("show-pr %s should fail", arg)
		}
	}
}

func TestApplyRunFlags(t *testing.T) {
	cfg := config.Default()
	cfg.Core.FixTests = true
	cfg.Core.WorkspacePath = "/configured"

	applyRunFlags(cfg, &runOptions{})
	if cfg.Core.WorkspacePath != "/configured" || !cfg.Core.FixTests || cfg.Core.BaseBranch != "main" {
		t.Errorf("unset flags must keep config values: %+v", cfg.Core)
	}

	applyRunFlags(cfg, &runOptions{workspace: "/flag", baseBranch: "develop", writeTests: true})
	if cfg.Core.WorkspacePath != "/flag" || cfg.Core.BaseBranch != "develop" || !cfg.Core.WriteTests {
		t.Errorf("flags not applied: %+v", cfg.Core)
	}
}

func TestPrintError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{
			name: "structured",
			err:  t2perrors.ErrInvalidIssueInput("oops"),
			want: []string{"Settings Error", `"oops" is not a Jira issue key`},
		},
		{
			name: "interrupted",
			err:  t2perrors.ErrInterrupted(context.Canceled),
			want: []string{"interrupted"},
		},
		{
			name: "plain",
			err:  errors.New("boom"),
			want: []string{"Error", "boom"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			PrintError(console.New(&buf), tt.err)
			for _, w := range tt.want {
				if !strings.Contains(buf.String(), w) {
					t.Errorf("output missing %q:\n%s", w, buf.String())
				}
			}
		})
	}
}

func TestSetupLogging(t *testing.T) {
	var buf bytes.Buffer
	defer func() {
		verbose = false
		setupLogging(os.Stderr, "warn")
	}()

	verbose = false
	setupLogging(&buf, "error")
	slog.Warn("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("warn should be filtered at error level")
	}

	verbose = true
	setupLogging(&buf, "error")
	slog.Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Error("--verbose should enable debug logs")
	}
}

func TestGuardWorkspace(t *testing.T) {
	dir := t.TempDir()
	if out, err := exec.Command("git", "init", dir).CombinedOutput(); err != nil {
		t.Fatalf("git init: %v\n%s", err, out)
	}
	repo, err := git.Open(dir)
	if err != nil {
		t.Fatal(err)
	}

	release, err := guardWorkspace(context.Background(), repo)
	if err != nil {
		t.Fatalf("guardWorkspace: %v", err)
	}
	release()

	// The parent process is alive and is not us.
	pidFile := filepath.Join(dir, ".git", lock.PIDFileName)
	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getppid())), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = guardWorkspace(context.Background(), repo)
	if !t2perrors.HasCode(err, t2perrors.CodeWorkspaceBusy) {
		t.Errorf("err = %v, want workspace busy", err)
	}
}

type authedRunner struct{ calls int }

func (r *authedRunner) Run(context.Context, string, string, ...string) shell.Result {
	r.calls++
	return shell.Result{}
}

func TestPreflightChecksJiraCredentials(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	tests := []struct {
		name     string
		status   int
		wantCode t2perrors.Code
	}{
		{name: "authenticated", status: http.StatusOK},
		{name: "rejected token", status: http.StatusUnauthorized, wantCode: t2perrors.CodeJiraAuthFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"accountId":"abc"}`))
			}))
			defer srv.Close()

			cfg := config.Default()
			cfg.Jira.BaseURL = srv.URL
			cfg.Jira.Username = "dev@acme.io"
			cfg.Jira.APIToken = "token"
			runner := &authedRunner{}

			tracker, err := preflight(context.Background(), runner, cfg)
			if runner.calls != 1 {
				t.Errorf("agent auth checks = %d, want 1", runner.calls)
			}
			if tt.wantCode == "" {
				if err != nil || tracker == nil {
					t.Fatalf("preflight = %v, %v", tracker, err)
				}
				return
			}
			if !t2perrors.HasCode(err, tt.wantCode) {
				t.Errorf("err = %v, want %s", err, tt.wantCode)
			}
		})
	}
}
