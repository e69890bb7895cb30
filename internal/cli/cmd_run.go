package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bengabay11/ticket2pr/internal/agent"
	"github.com/bengabay11/ticket2pr/internal/config"
	"github.com/bengabay11/ticket2pr/internal/console"
	"github.com/bengabay11/ticket2pr/internal/content"
	t2perrors "github.com/bengabay11/ticket2pr/internal/errors"
	"github.com/bengabay11/ticket2pr/internal/fixer"
	"github.com/bengabay11/ticket2pr/internal/git"
	"github.com/bengabay11/ticket2pr/internal/hosting"
	"github.com/bengabay11/ticket2pr/internal/jira"
	"github.com/bengabay11/ticket2pr/internal/lock"
	"github.com/bengabay11/ticket2pr/internal/precommit"
	"github.com/bengabay11/ticket2pr/internal/shell"
	"github.com/bengabay11/ticket2pr/internal/solver"
	"github.com/bengabay11/ticket2pr/internal/workflow"
)

// runOptions are the per-run flags. Unset flags keep the configured value.
type runOptions struct {
	workspace  string
	baseBranch string
	mcpConfig  string
	noVerify   bool
	fixTests   bool
	writeTests bool
}

func addRunFlags(cmd *cobra.Command, opts *runOptions) {
	cmd.Flags().StringVarP(&opts.workspace, "workspace", "w", "", "local clone to work in (default: clone into a temp dir)")
	cmd.Flags().StringVarP(&opts.baseBranch, "base-branch", "b", "", "branch to fork from and target with the PR")
	cmd.Flags().StringVarP(&opts.mcpConfig, "mcp-config", "m", "", "MCP server config passed to the agent")
	cmd.Flags().BoolVarP(&opts.noVerify, "no-verify", "n", false, "skip pre-commit hooks")
	cmd.Flags().BoolVarP(&opts.fixTests, "fix-tests", "t", false, "run related tests and fix failures")
	cmd.Flags().BoolVar(&opts.writeTests, "write-tests", false, "ask the agent to add tests for its change")
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run <ISSUE_KEY|ISSUE_URL>",
		Short: "Solve a Jira issue and open a pull request",
		Example: `  ticket2pr run ABC-123
  ticket2pr run https://acme.atlassian.net/browse/ABC-123 -w ~/src/app
  ticket2pr run ABC-123 --fix-tests --no-verify`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIssue(cmd, args[0], opts)
		},
	}
	addRunFlags(cmd, opts)
	return cmd
}

// applyRunFlags overlays the flags on the loaded configuration.
func applyRunFlags(cfg *config.Config, opts *runOptions) {
	if opts.workspace != "" {
		cfg.Core.WorkspacePath = opts.workspace
	}
	if opts.baseBranch != "" {
		cfg.Core.BaseBranch = opts.baseBranch
	}
	if opts.fixTests {
		cfg.Core.FixTests = true
	}
	if opts.writeTests {
		cfg.Core.WriteTests = true
	}
}

func runIssue(cmd *cobra.Command, input string, opts *runOptions) error {
	ctx := cmd.Context()
	con := console.New(cmd.OutOrStdout(), console.WithQuiet(quiet))

	key, err := jira.ParseIssueInput(input)
	if err != nil {
		return err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	applyRunFlags(cfg, opts)
	if err := cfg.Validate(); err != nil {
		return err
	}
	setupLogging(cmd.ErrOrStderr(), cfg.Logging.Level)

	runner := shell.NewExecRunner()
	tracker, err := preflight(ctx, runner, cfg)
	if err != nil {
		return err
	}

	repo, forge, cleanup, err := openWorkspace(ctx, con, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	release, err := guardWorkspace(ctx, repo)
	if err != nil {
		return err
	}
	defer release()

	bridge := agent.NewBridge(
		agent.NewCLITransport(agent.WithClaudePath(cfg.Core.ClaudePath)),
		agent.WithTimeout(cfg.Core.AgentTimeout),
		agent.WithModel(cfg.Core.Model),
	)
	gate := precommit.NewGate(precommit.WithRunner(runner))

	s := solver.New(bridge, repo.Path(), opts.mcpConfig)
	s.OnEvent = con.AgentEvent

	gen := newGenerator(cfg, bridge, repo, opts.mcpConfig, con)

	wf := &workflow.Workflow{
		Tracker: tracker,
		Forge:   forge,
		Repo:    repo,
		Solver:  s,
		TestFixer: &fixer.TestFixer{
			Agent:      bridge,
			Runner:     runner,
			WorkDir:    repo.Path(),
			MCPConfig:  opts.mcpConfig,
			MaxRetries: cfg.Core.TestFixMaxRetries,
			OnEvent:    con.AgentEvent,
		},
		PreCommitGate: gate,
		PreCommitFixer: &fixer.PreCommitFixer{
			Agent:      bridge,
			Hooks:      gate,
			Stager:     repo,
			WorkDir:    repo.Path(),
			MCPConfig:  opts.mcpConfig,
			MaxRetries: cfg.Core.PreCommitMaxRetries,
			OnEvent:    con.AgentEvent,
		},
		Content:  gen,
		Reporter: con,
		Options: workflow.Options{
			BaseBranch:     cfg.Core.BaseBranch,
			FixTests:       cfg.Core.FixTests,
			CommitNoVerify: opts.noVerify,
			WriteTests:     cfg.Core.WriteTests,
			Remote:         git.DefaultRemote,
		},
	}

	res, err := wf.Run(ctx, key)
	if err != nil {
		return err
	}

	lines := []string{
		"Branch:  " + res.BranchName,
		fmt.Sprintf("PR:      #%d %s", res.PRNumber, res.PRURL),
		"Issue:   " + res.IssuePermalink,
	}
	if res.NoVerify {
		lines = append(lines, "Committed without pre-commit hooks")
	}
	con.Success("Pull request opened", lines...)
	return nil
}

// preflight checks the agent and Jira credentials before any workspace is
// touched, and returns the authenticated Jira client.
func preflight(ctx context.Context, runner shell.Runner, cfg *config.Config) (*jira.Client, error) {
	if err := agent.CheckAuth(ctx, runner, cfg.Core.ClaudePath); err != nil {
		return nil, err
	}
	tracker, err := jira.NewClient(jira.ClientConfig{
		BaseURL:  cfg.Jira.BaseURL,
		Username: cfg.Jira.Username,
		APIToken: cfg.Jira.APIToken,
	})
	if err != nil {
		return nil, err
	}
	if err := tracker.CheckAuth(ctx); err != nil {
		return nil, err
	}
	return tracker, nil
}

// openWorkspace opens the configured clone, or clones the forge repository
// into a temporary directory. The cleanup removes that directory.
func openWorkspace(ctx context.Context, con *console.Console, cfg *config.Config) (*git.Repo, hosting.Provider, func(), error) {
	noop := func() {}
	hcfg := hosting.Config{
		Provider: cfg.Forge.Provider,
		BaseURL:  cfg.Forge.BaseURL,
		Token:    cfg.ForgeToken(),
		Repo:     cfg.RepoName(),
	}

	if cfg.Core.WorkspacePath != "" {
		repo, err := git.Open(cfg.Core.WorkspacePath)
		if err != nil {
			return nil, nil, noop, err
		}
		if url, err := repo.RemoteURL(git.DefaultRemote); err == nil {
			hcfg.RemoteURL = url
		}
		forge, err := hosting.New(hcfg)
		if err != nil {
			return nil, nil, noop, err
		}
		return repo, forge, noop, nil
	}

	forge, err := hosting.New(hcfg)
	if err != nil {
		return nil, nil, noop, err
	}
	urls, err := forge.CloneURLs(ctx)
	if err != nil {
		return nil, nil, noop, err
	}
	dir, err := os.MkdirTemp("", "ticket2pr-")
	if err != nil {
		return nil, nil, noop, fmt.Errorf("create temp workspace: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			con.Warn(fmt.Sprintf("Could not remove %s: %v", dir, err))
		}
	}

	con.Step("Cloning " + cfg.RepoName())
	repo, err := git.Clone(ctx, urls, dir)
	if err != nil {
		cleanup()
		return nil, nil, noop, err
	}
	return repo, forge, cleanup, nil
}

// guardWorkspace keeps a second run out of the same clone until release.
func guardWorkspace(ctx context.Context, repo *git.Repo) (func(), error) {
	gitDir, err := repo.GitDir(ctx)
	if err != nil {
		return nil, err
	}
	guard := lock.NewGuard(gitDir)
	if err := guard.Acquire(); err != nil {
		var busy *lock.BusyError
		if errors.As(err, &busy) {
			return nil, t2perrors.ErrWorkspaceBusy(repo.Path(), busy.PID)
		}
		return nil, err
	}
	return guard.Release, nil
}

func newGenerator(cfg *config.Config, bridge *agent.Bridge, repo *git.Repo, mcpConfig string, con *console.Console) content.Generator {
	if cfg.Core.ContentGenerator == config.GeneratorAPI {
		key := cfg.Anthropic.APIKey
		if key == "" {
			key = os.Getenv("ANTHROPIC_API_KEY")
		}
		return content.NewAPIGenerator(key, cfg.Anthropic.Model, repo)
	}
	return &content.AgentGenerator{
		Agent:     bridge,
		WorkDir:   repo.Path(),
		MCPConfig: mcpConfig,
		OnEvent:   con.AgentEvent,
	}
}
