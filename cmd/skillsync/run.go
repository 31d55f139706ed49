package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/skillsync/pkg/checkfile"
	"github.com/arthur-debert/skillsync/pkg/config"
)

// debugCheckFile is the intermediate check file persisted by
// "run --debug-artifacts"
const debugCheckFile = "skill_update_check.debug.tsv"

func newRunCmd() *cobra.Command {
	flags := &applyFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Check for updates and apply them in one pass",
		Long: `Run combines "check" and "apply": it probes every installed skill, then
feeds the resulting rows straight into the updater without writing an
intermediate check file. With --debug-artifacts the intermediate rows and
the detailed report are persisted in the current directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			flags.mergeConfig(cfg)

			result, err := runCheck(cmd, cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.SummaryLine())

			label := "(in-memory check)"
			if flags.debugArtifacts {
				f, err := os.Create(debugCheckFile)
				if err != nil {
					return fmt.Errorf("cannot write debug check file %s: %w", debugCheckFile, err)
				}
				writeErr := checkfile.Write(f, result.Rows, result.SummaryLine())
				if closeErr := f.Close(); writeErr == nil {
					writeErr = closeErr
				}
				if writeErr != nil {
					return fmt.Errorf("cannot write debug check file %s: %w", debugCheckFile, writeErr)
				}
				label = debugCheckFile
			}

			return runApply(cmd, cfg, flags, result.Rows, result.Total, label)
		},
	}
	flags.register(cmd)
	return cmd
}
