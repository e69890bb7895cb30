package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bengabay11/ticket2pr/internal/config"
	"github.com/bengabay11/ticket2pr/internal/console"
	"github.com/bengabay11/ticket2pr/internal/wizard"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create or update the configuration interactively",
		Long: `Walk through the settings ticket2pr needs and write them to
~/.ticket2pr/config.toml (or --config).

Current values are offered as defaults, so running init again edits the
existing file. Tokens are masked while typing and in the summary.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			con := console.New(cmd.OutOrStdout())
			if !wizard.Interactive() {
				return fmt.Errorf("%w; edit the config file or use 'ticket2pr config set'", wizard.ErrNotInteractive)
			}

			path, err := configPath()
			if err != nil {
				return err
			}
			cfg, err := config.Loader{Path: path, DotEnv: "-", NoEnv: true}.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			w := wizard.New(wizard.SetupSteps()...).WithState(wizard.SeedState(cfg))
			if err := w.Run(cmd.Context()); err != nil {
				if errors.Is(err, wizard.ErrCancelled) {
					con.Warning("Setup cancelled", "Nothing was written.")
					return nil
				}
				return err
			}

			state := w.State()
			if !state.Bool(wizard.SaveKey) {
				con.Warning("Setup not saved", "Nothing was written.")
				return nil
			}
			if err := wizard.Apply(state, cfg); err != nil {
				return err
			}
			written, err := config.Save(path, cfg)
			if err != nil {
				return err
			}
			con.Success("Configuration saved", written, "", "Next: ticket2pr <ISSUE_KEY>")
			return nil
		},
	}
}
