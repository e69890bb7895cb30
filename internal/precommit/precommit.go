// Package precommit runs the local pre-commit hook suite against staged files.
package precommit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	t2perrors "github.com/bengabay11/ticket2pr/internal/errors"
	"github.com/bengabay11/ticket2pr/internal/shell"
)

const (
	// Executable is the hook runner binary.
	Executable = "pre-commit"

	// ConfigFile is the hook configuration path relative to the workspace root.
	ConfigFile = ".pre-commit-config.yaml"
)

// Gate detects and runs the pre-commit hook suite.
type Gate struct {
	runner   shell.Runner
	lookPath func(string) bool
}

// Option configures Gate.
type Option func(*Gate)

// WithRunner sets the command runner.
func WithRunner(r shell.Runner) Option {
	return func(g *Gate) { g.runner = r }
}

// WithLookPath overrides executable discovery.
func WithLookPath(fn func(string) bool) Option {
	return func(g *Gate) { g.lookPath = fn }
}

// NewGate creates a Gate backed by the real shell.
func NewGate(opts ...Option) *Gate {
	g := &Gate{runner: shell.NewExecRunner(), lookPath: shell.LookPath}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// IsInstalled reports whether pre-commit is on PATH.
func (g *Gate) IsInstalled() bool {
	return g.lookPath(Executable)
}

// HasConfig reports whether the workspace has a regular hook config file.
func (g *Gate) HasConfig(workspace string) bool {
	info, err := os.Stat(filepath.Join(workspace, ConfigFile))
	return err == nil && info.Mode().IsRegular()
}

// Run executes the hooks against staged files only and returns the raw
// result. A non-zero exit is not an error here; callers interpret it.
func (g *Gate) Run(ctx context.Context, workspace string) (shell.Result, error) {
	if !g.IsInstalled() {
		return shell.Result{}, t2perrors.ErrExecutableNotFound(Executable)
	}
	return g.runner.Run(ctx, workspace, Executable, "run"), nil
}

type hookConfig struct {
	Repos []struct {
		Repo  string `yaml:"repo"`
		Hooks []struct {
			ID string `yaml:"id"`
		} `yaml:"hooks"`
	} `yaml:"repos"`
}

// HookIDs lists the hook ids declared in the workspace config, in order.
func HookIDs(workspace string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(workspace, ConfigFile))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ConfigFile, err)
	}
	var cfg hookConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ConfigFile, err)
	}
	var ids []string
	for _, repo := range cfg.Repos {
		for _, hook := range repo.Hooks {
			ids = append(ids, hook.ID)
		}
	}
	return ids, nil
}
