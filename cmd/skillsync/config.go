package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/skillsync/pkg/config"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Long: `Config prints the fully resolved configuration, after embedded defaults,
the user config file, and SKILLSYNC_* environment overrides have been
merged. The output can be saved as config.toml and edited.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			rendered, err := config.Render(cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), rendered)
			return nil
		},
	}
}
