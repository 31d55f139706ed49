package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/skillsync/pkg/checkfile"
	"github.com/arthur-debert/skillsync/pkg/config"
	skerrors "github.com/arthur-debert/skillsync/pkg/errors"
	"github.com/arthur-debert/skillsync/pkg/fetch"
	"github.com/arthur-debert/skillsync/pkg/filesystem"
	"github.com/arthur-debert/skillsync/pkg/paths"
	"github.com/arthur-debert/skillsync/pkg/probe"
)

// errChecksFailed signals that the probe completed but at least one skill
// came back FAIL.
var errChecksFailed = errors.New("one or more skills failed the update check")

const (
	formatTSV    = "tsv"
	formatNDJSON = "ndjson"
)

func newCheckCmd() *cobra.Command {
	var (
		format string
		output string
		jobs   int
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Probe installed skills for available updates",
		Long: `Check inspects every installed skill, resolves its remote source, and
dry-runs an install into a throwaway directory to verify the source is
reachable. The resulting rows are the input to "skillsync apply".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if jobs > 0 {
				cfg.Jobs = jobs
			}
			if format != formatTSV && format != formatNDJSON {
				return fmt.Errorf("unknown format %q (want %s or %s)", format, formatTSV, formatNDJSON)
			}

			result, err := runCheck(cmd, cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if output != "" && output != stdinCheckFile {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("cannot write check file %s: %w", output, err)
				}
				defer func() { _ = f.Close() }()
				out = f
			}
			if format == formatNDJSON {
				err = writeNDJSON(out, result)
			} else {
				err = checkfile.Write(out, result.Rows, result.SummaryLine())
			}
			if err != nil {
				return err
			}

			if result.Fail > 0 {
				return errChecksFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", formatTSV, "Output format (tsv or ndjson)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write rows to this file instead of stdout")
	cmd.Flags().IntVar(&jobs, "jobs", 0, fmt.Sprintf("Parallel probe workers (1-%d)", config.MaxJobs))
	return cmd
}

// runCheck wires the prober and runs it. Shared by "check" and "run".
func runCheck(cmd *cobra.Command, cfg *config.Config) (*probe.Result, error) {
	fsys := filesystem.NewOS()
	p := paths.New(cfg)

	installer := p.InstallerScript()
	if info, err := os.Stat(installer); err != nil || info.IsDir() {
		return nil, skerrors.Newf(skerrors.ErrInstallerMissing, "installer script not found: %s", installer)
	}
	lister := p.ListScript()
	if info, err := os.Stat(lister); err != nil || info.IsDir() {
		return nil, skerrors.Newf(skerrors.ErrInstallerMissing, "list script not found: %s", lister)
	}

	prober := probe.New(fsys, p,
		fetch.NewScriptFetcher(cfg.Python, installer),
		fetch.NewScriptLister(cfg.Python, lister),
		cfg)
	return prober.Run(cmd.Context())
}

// writeNDJSON emits one JSON object per row followed by a summary object
func writeNDJSON(w io.Writer, result *probe.Result) error {
	enc := json.NewEncoder(w)
	for _, row := range result.Rows {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	summary := map[string]int{
		"total": result.Total,
		"ok":    result.OK,
		"fail":  result.Fail,
		"skip":  result.Skip,
	}
	return enc.Encode(summary)
}
