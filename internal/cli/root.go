// Package cli implements the ticket2pr command-line interface.
package cli

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bengabay11/ticket2pr/internal/console"
	t2perrors "github.com/bengabay11/ticket2pr/internal/errors"

	// Forge providers register themselves with the hosting factory.
	_ "github.com/bengabay11/ticket2pr/internal/hosting/github"
	_ "github.com/bengabay11/ticket2pr/internal/hosting/gitlab"
)

var (
	cfgFile string
	verbose bool
	quiet   bool
)

// newRootCmd builds the command tree. The root doubles as `run` when given
// an issue argument.
func newRootCmd() *cobra.Command {
	opts := &runOptions{}

	root := &cobra.Command{
		Use:   "ticket2pr [ISSUE_KEY|ISSUE_URL]",
		Short: "Turn a Jira issue into a pull request",
		Long: `ticket2pr fetches a Jira issue, creates a branch for it, lets Claude implement
it, runs the pre-commit hooks (and optionally the tests), then commits, pushes
and opens a draft pull request.

Quick start:
  ticket2pr init            Write ~/.ticket2pr/config.toml
  ticket2pr ABC-123         Solve ABC-123 and open a PR
  ticket2pr show-pr 42      Show a pull request and its files`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cmd.ErrOrStderr(), "info")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runIssue(cmd, args[0], opts)
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.ticket2pr/config.toml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "hide agent activity")
	addRunFlags(root, opts)

	root.AddCommand(newRunCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newShowPRCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, cancel := SetupSignalHandler()
	defer cancel()

	root := newRootCmd()
	err := root.ExecuteContext(ctx)
	if err != nil {
		PrintError(console.New(os.Stderr), err)
	}
	return t2perrors.ExitCode(err)
}

// setupLogging installs a text handler on w. --verbose forces debug.
func setupLogging(w io.Writer, level string) {
	lvl := slog.LevelWarn
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
}
