package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	t2perrors "github.com/bengabay11/ticket2pr/internal/errors"
	"github.com/bengabay11/ticket2pr/internal/git"
	"github.com/bengabay11/ticket2pr/internal/hosting"
)

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks the settings a run depends on. Forge tokens are not
// required here because providers also read GITHUB_TOKEN and GITLAB_TOKEN.
func (c *Config) Validate() error {
	if c.Jira.BaseURL == "" {
		return t2perrors.ErrConfigMissing("jira.base_url")
	}
	if err := ValidateURL(c.Jira.BaseURL); err != nil {
		return t2perrors.ErrConfigInvalid("jira.base_url", err.Error())
	}
	if c.Jira.Username == "" {
		return t2perrors.ErrConfigMissing("jira.username")
	}
	if c.Jira.APIToken == "" {
		return t2perrors.ErrConfigMissing("jira.api_token")
	}

	switch c.Forge.Provider {
	case "", "auto", "github", "gitlab":
	default:
		return t2perrors.ErrConfigInvalid("forge.provider", fmt.Sprintf("unknown provider %q (supported: github, gitlab, auto)", c.Forge.Provider))
	}
	if c.Forge.BaseURL != "" {
		if err := ValidateURL(c.Forge.BaseURL); err != nil {
			return t2perrors.ErrConfigInvalid("forge.base_url", err.Error())
		}
	}
	if name := c.GitHub.RepoFullName; name != "" && !hosting.ValidRepoName(name) {
		return t2perrors.ErrConfigInvalid("github.repo_full_name", fmt.Sprintf("%q is not in owner/repo form", name))
	}
	if p := c.GitLab.ProjectPath; p != "" && !ValidProjectPath(p) {
		return t2perrors.ErrConfigInvalid("gitlab.project_path", fmt.Sprintf("%q is not in group/project form", p))
	}
	if c.Core.WorkspacePath == "" && c.RepoName() == "" {
		return t2perrors.ErrConfigInvalid("core.workspace_path", "either a workspace path or the forge repository must be configured")
	}

	if err := git.ValidateBranchName(c.Core.BaseBranch); err != nil {
		return t2perrors.ErrConfigInvalid("core.base_branch", err.Error())
	}
	if c.Core.TestFixMaxRetries < 0 {
		return t2perrors.ErrConfigInvalid("core.test_fix_max_retries", "must not be negative")
	}
	if c.Core.PreCommitMaxRetries < 0 {
		return t2perrors.ErrConfigInvalid("core.precommit_max_retries", "must not be negative")
	}
	if c.Core.AgentTimeout < 0 {
		return t2perrors.ErrConfigInvalid("core.agent_timeout", "must not be negative")
	}

	switch c.Core.ContentGenerator {
	case GeneratorAgent:
	case GeneratorAPI:
		if c.Anthropic.APIKey == "" && os.Getenv("ANTHROPIC_API_KEY") == "" {
			return t2perrors.ErrConfigMissing("anthropic.api_key")
		}
	default:
		return t2perrors.ErrConfigInvalid("core.content_generator", fmt.Sprintf("unknown generator %q (supported: agent, api)", c.Core.ContentGenerator))
	}

	if !validLogLevels[c.Logging.Level] {
		return t2perrors.ErrConfigInvalid("logging.level", fmt.Sprintf("unknown level %q (supported: debug, info, warn, error)", c.Logging.Level))
	}
	return nil
}

// ValidateURL checks raw is an absolute http or https URL.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%q is not a URL: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q must start with http:// or https://", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}

// ValidProjectPath checks a GitLab group/project path.
func ValidProjectPath(p string) bool {
	parts := strings.Split(p, "/")
	if len(parts) < 2 {
		return false
	}
	for _, part := range parts {
		if part == "" {
			return false
		}
	}
	return true
}
