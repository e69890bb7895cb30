package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bengabay11/ticket2pr/internal/config"
	"github.com/bengabay11/ticket2pr/internal/console"
	"github.com/bengabay11/ticket2pr/internal/git"
	"github.com/bengabay11/ticket2pr/internal/hosting"
)

func newShowPRCmd() *cobra.Command {
	var workspace string

	cmd := &cobra.Command{
		Use:   "show-pr <number>",
		Short: "Show a pull request and its changed files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := strconv.Atoi(args[0])
			if err != nil || number <= 0 {
				return fmt.Errorf("invalid pull request number %q", args[0])
			}

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if workspace != "" {
				cfg.Core.WorkspacePath = workspace
			}

			hcfg := hosting.Config{
				Provider: cfg.Forge.Provider,
				BaseURL:  cfg.Forge.BaseURL,
				Token:    cfg.ForgeToken(),
				Repo:     cfg.RepoName(),
			}
			if cfg.Core.WorkspacePath != "" {
				if repo, err := git.Open(cfg.Core.WorkspacePath); err == nil {
					if url, err := repo.RemoteURL(git.DefaultRemote); err == nil {
						hcfg.RemoteURL = url
					}
				}
			}
			forge, err := hosting.New(hcfg)
			if err != nil {
				return err
			}

			pr, err := forge.GetPR(cmd.Context(), number)
			if err != nil {
				return err
			}
			console.New(cmd.OutOrStdout()).PullRequest(pr)
			return nil
		},
	}
	cmd.Flags().StringVarP(&workspace, "workspace", "w", "", "local clone used to detect the repository")
	return cmd
}
