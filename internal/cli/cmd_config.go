package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/bengabay11/ticket2pr/internal/config"
	"github.com/bengabay11/ticket2pr/internal/wizard"
)

// newConfigCmd creates the config command with subcommands.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and manage configuration",
		Long: `View and manage ticket2pr configuration.

Configuration is loaded with this priority:
  1. Environment variables (TICKET2PR_<SECTION>__<KEY>)
  2. .env in the current directory
  3. ~/.ticket2pr/config.toml (or --config)
  4. Built-in defaults

Examples:
  ticket2pr config show
  ticket2pr config get core.base_branch
  ticket2pr config set core.fix_tests true
  ticket2pr config path`,
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigPathCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long:  "Show the merged configuration. Tokens are masked unless --reveal is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			printConfig(cmd.OutOrStdout(), cfg, reveal)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reveal, "reveal", false, "print tokens in clear text")
	return cmd
}

func printConfig(out io.Writer, cfg *config.Config, reveal bool) {
	values := cfg.Values()
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := values[k]
		if config.IsSecret(k) && !reveal && v != "" {
			v = wizard.Mask(v)
		}
		_, _ = fmt.Fprintf(out, "%-28s = %s\n", k, v)
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			v, err := cfg.GetValue(args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a value in the config file",
		Long: `Set a value in the config file.

Only the file is read and rewritten, so environment overrides are not
persisted by accident.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			cfg, err := config.Loader{Path: path, DotEnv: "-", NoEnv: true}.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.SetValue(args[0], args[1]); err != nil {
				return err
			}
			written, err := config.Save(path, cfg)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set %s in %s\n", args[0], written)
			return nil
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.DefaultPath()
}
