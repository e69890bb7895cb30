// Package config provides configuration management for ticket2pr.
//
// Settings live in ~/.ticket2pr/config.toml. Environment variables named
// TICKET2PR_<SECTION>__<KEY> override the file, and a .env file in the
// working directory supplies the same variables when they are unset.
package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"
)

const (
	// DirName is the per-user configuration directory under $HOME.
	DirName = ".ticket2pr"
	// FileName is the configuration file inside DirName.
	FileName = "config.toml"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "TICKET2PR"
	// EnvDelimiter separates section and key in environment names.
	EnvDelimiter = "__"
	// DotEnvFile is read from the working directory.
	DotEnvFile = ".env"
)

// Content generator backends.
const (
	GeneratorAgent = "agent"
	GeneratorAPI   = "api"
)

// Config is the full ticket2pr configuration.
type Config struct {
	Core      CoreConfig      `mapstructure:"core" toml:"core"`
	Logging   LoggingConfig   `mapstructure:"logging" toml:"logging"`
	Jira      JiraConfig      `mapstructure:"jira" toml:"jira"`
	Forge     ForgeConfig     `mapstructure:"forge" toml:"forge"`
	GitHub    GitHubConfig    `mapstructure:"github" toml:"github"`
	GitLab    GitLabConfig    `mapstructure:"gitlab" toml:"gitlab"`
	Anthropic AnthropicConfig `mapstructure:"anthropic" toml:"anthropic"`
}

// CoreConfig controls a run.
type CoreConfig struct {
	// WorkspacePath is the local clone to work in. Empty means clone the
	// forge repository into a temporary directory for every run.
	WorkspacePath string `mapstructure:"workspace_path" toml:"workspace_path"`
	BaseBranch    string `mapstructure:"base_branch" toml:"base_branch"`

	FixTests            bool `mapstructure:"fix_tests" toml:"fix_tests"`
	WriteTests          bool `mapstructure:"write_tests" toml:"write_tests"`
	TestFixMaxRetries   int  `mapstructure:"test_fix_max_retries" toml:"test_fix_max_retries"`
	PreCommitMaxRetries int  `mapstructure:"precommit_max_retries" toml:"precommit_max_retries"`

	// AgentTimeout bounds each agent call. Zero disables it.
	AgentTimeout time.Duration `mapstructure:"agent_timeout" toml:"agent_timeout"`
	// ContentGenerator is "agent" or "api".
	ContentGenerator string `mapstructure:"content_generator" toml:"content_generator"`
	ClaudePath       string `mapstructure:"claude_path" toml:"claude_path"`
	// Model is passed to the claude CLI; empty keeps the CLI default.
	Model string `mapstructure:"model" toml:"model"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level string `mapstructure:"level" toml:"level"`
}

// JiraConfig holds Jira Cloud credentials.
type JiraConfig struct {
	BaseURL  string `mapstructure:"base_url" toml:"base_url"`
	Username string `mapstructure:"username" toml:"username"`
	APIToken string `mapstructure:"api_token" toml:"api_token"`
}

// ForgeConfig selects the code forge.
type ForgeConfig struct {
	// Provider is github, gitlab or auto (detected from the origin remote).
	Provider string `mapstructure:"provider" toml:"provider"`
	// BaseURL is set for GitHub Enterprise or self-hosted GitLab.
	BaseURL string `mapstructure:"base_url" toml:"base_url"`
}

// GitHubConfig holds GitHub credentials and the target repository.
type GitHubConfig struct {
	APIToken     string `mapstructure:"api_token" toml:"api_token"`
	RepoFullName string `mapstructure:"repo_full_name" toml:"repo_full_name"`
}

// GitLabConfig holds GitLab credentials and the target project.
type GitLabConfig struct {
	APIToken    string `mapstructure:"api_token" toml:"api_token"`
	ProjectPath string `mapstructure:"project_path" toml:"project_path"`
}

// AnthropicConfig is used by the api content generator.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key" toml:"api_key"`
	Model  string `mapstructure:"model" toml:"model"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Core: CoreConfig{
			BaseBranch:          "main",
			TestFixMaxRetries:   10,
			PreCommitMaxRetries: 3,
			ContentGenerator:    GeneratorAgent,
			ClaudePath:          "claude",
		},
		Logging: LoggingConfig{Level: "info"},
		Forge:   ForgeConfig{Provider: "github"},
		Anthropic: AnthropicConfig{
			Model: "claude-sonnet-4-5",
		},
	}
}

// Dir returns ~/.ticket2pr.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DirName), nil
}

// DefaultPath returns ~/.ticket2pr/config.toml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// RepoName returns the repository identifier for the configured provider.
func (c *Config) RepoName() string {
	if c.Forge.Provider == "gitlab" {
		return c.GitLab.ProjectPath
	}
	return c.GitHub.RepoFullName
}

// ForgeToken returns the token for the configured provider.
func (c *Config) ForgeToken() string {
	if c.Forge.Provider == "gitlab" {
		return c.GitLab.APIToken
	}
	return c.GitHub.APIToken
}

// IsSecret reports whether key holds a credential.
func IsSecret(key string) bool {
	return strings.HasSuffix(key, "api_token") || strings.HasSuffix(key, "api_key")
}

// EnvName returns the environment variable overriding key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", EnvDelimiter))
}

// Keys lists every dotted key in declaration order.
func Keys() []string {
	var keys []string
	walk(reflect.ValueOf(Default()).Elem(), "", func(key string, _ reflect.Value) {
		keys = append(keys, key)
	})
	return keys
}

// walk visits every leaf field of v, naming it by its toml tags.
func walk(v reflect.Value, prefix string, fn func(key string, field reflect.Value)) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name := tagName(t.Field(i))
		if prefix != "" {
			name = prefix + "." + name
		}
		field := v.Field(i)
		if field.Kind() == reflect.Struct {
			walk(field, name, fn)
			continue
		}
		fn(name, field)
	}
}

func tagName(f reflect.StructField) string {
	if tag := f.Tag.Get("toml"); tag != "" {
		return strings.Split(tag, ",")[0]
	}
	return strings.ToLower(f.Name)
}
