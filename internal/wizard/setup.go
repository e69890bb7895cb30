package wizard

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bengabay11/ticket2pr/internal/config"
	"github.com/bengabay11/ticket2pr/internal/git"
	"github.com/bengabay11/ticket2pr/internal/hosting"
)

// SaveKey holds the final confirmation.
const SaveKey = "save"

var boolKeys = []string{"core.fix_tests", "core.write_tests"}

// SetupSteps returns the steps of `ticket2pr init`. Step ids are config keys.
func SetupSteps() []Step {
	isGitLab := func(s State) bool { return s.String("forge.provider") == "gitlab" }
	isGitHub := func(s State) bool { return !isGitLab(s) }

	return []Step{
		NewInputStep("jira.base_url", "Jira URL").
			WithPlaceholder("https://your-company.atlassian.net").
			WithValidate(config.ValidateURL),
		NewInputStep("jira.username", "Jira username").
			WithDescription("The email address you sign in to Jira with.").
			WithValidate(required),
		NewInputStep("jira.api_token", "Jira API token").
			WithDescription("Create one at https://id.atlassian.com/manage-profile/security/api-tokens").
			WithMask().
			WithValidate(required),
		NewSelectStep("forge.provider", "Code forge", []SelectOption{
			{Value: "github", Label: "GitHub"},
			{Value: "gitlab", Label: "GitLab"},
		}).WithDefault("github"),
		NewInputStep("forge.base_url", "Forge URL").
			WithDescription("Leave empty for github.com or gitlab.com.").
			WithValidate(optional(config.ValidateURL)),
		NewInputStep("github.repo_full_name", "GitHub repository").
			WithPlaceholder("owner/repo").
			WithSkipFunc(isGitLab).
			WithValidate(optional(func(v string) error {
				if !hosting.ValidRepoName(v) {
					return errors.New("use the owner/repo form")
				}
				return nil
			})),
		NewInputStep("github.api_token", "GitHub token").
			WithDescription("Leave empty to use GITHUB_TOKEN.").
			WithSkipFunc(isGitLab).
			WithMask(),
		NewInputStep("gitlab.project_path", "GitLab project").
			WithPlaceholder("group/project").
			WithSkipFunc(isGitHub).
			WithValidate(optional(func(v string) error {
				if !config.ValidProjectPath(v) {
					return errors.New("use the group/project form")
				}
				return nil
			})),
		NewInputStep("gitlab.api_token", "GitLab token").
			WithDescription("Leave empty to use GITLAB_TOKEN.").
			WithSkipFunc(isGitHub).
			WithMask(),
		NewInputStep("core.workspace_path", "Workspace").
			WithDescription("Path to a local clone. Leave empty to clone into a temporary directory on every run.").
			WithValidate(optional(existingDir)),
		NewInputStep("core.base_branch", "Base branch").
			WithDefault("main").
			WithValidate(git.ValidateBranchName),
		NewConfirmStep("core.fix_tests", "Run and fix tests after solving?").
			WithDefault(false),
		NewDisplayStep("summary", "Review", Summary),
		NewConfirmStep(SaveKey, "Write the configuration?"),
	}
}

// SeedState fills a state with the current configuration.
func SeedState(cfg *config.Config) State {
	state := make(State)
	for key, value := range cfg.Values() {
		state[key] = value
	}
	for _, key := range boolKeys {
		state[key] = state.String(key) == "true"
	}
	return state
}

// Apply copies the answers in state onto cfg.
func Apply(state State, cfg *config.Config) error {
	for _, key := range config.Keys() {
		switch v := state[key].(type) {
		case string:
			if err := cfg.SetValue(key, v); err != nil {
				return err
			}
		case bool:
			if err := cfg.SetValue(key, strconv.FormatBool(v)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Summary lists the answers with tokens masked.
func Summary(state State) string {
	var b strings.Builder
	for _, key := range config.Keys() {
		v, ok := state[key]
		if !ok {
			continue
		}
		value := fmt.Sprint(v)
		if value == "" {
			continue
		}
		if config.IsSecret(key) {
			value = Mask(value)
		}
		fmt.Fprintf(&b, "%-24s %s\n", key, value)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Mask hides all but the last four characters of a secret.
func Mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("•", len(secret))
	}
	return strings.Repeat("•", 8) + secret[len(secret)-4:]
}

func required(v string) error {
	if v == "" {
		return errors.New("a value is required")
	}
	return nil
}

func optional(fn func(string) error) func(string) error {
	return func(v string) error {
		if v == "" {
			return nil
		}
		return fn(v)
	}
}

func existingDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s does not exist", path)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}
