package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/skillsync/pkg/backup"
	"github.com/arthur-debert/skillsync/pkg/checkfile"
	"github.com/arthur-debert/skillsync/pkg/config"
	skerrors "github.com/arthur-debert/skillsync/pkg/errors"
	"github.com/arthur-debert/skillsync/pkg/fetch"
	"github.com/arthur-debert/skillsync/pkg/filesystem"
	"github.com/arthur-debert/skillsync/pkg/paths"
	"github.com/arthur-debert/skillsync/pkg/report"
	"github.com/arthur-debert/skillsync/pkg/sourcemap"
	"github.com/arthur-debert/skillsync/pkg/staging"
	"github.com/arthur-debert/skillsync/pkg/types"
	"github.com/arthur-debert/skillsync/pkg/updater"
)

// stdinCheckFile is the check-file value meaning standard input
const stdinCheckFile = "-"

// debugReportFile is the report path used by --debug-artifacts when no
// explicit --report is given
const debugReportFile = "skill_update_apply_report.debug.json"

// applyFlags carries the per-run options of the apply command
type applyFlags struct {
	checkFile      string
	strategies     []string
	skills         []string
	dryRun         bool
	backupRoot     string
	noBackup       bool
	allowManualMap bool
	sourceMap      string
	sourceMapLocal string
	failFast       bool
	reportPath     string
	jobs           int
	debugArtifacts bool
}

func (f *applyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.strategies, "strategy", nil, "Only apply rows with this strategy (repeatable)")
	cmd.Flags().StringArrayVar(&f.skills, "skill", nil, "Only apply rows for this skill (repeatable)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Stage and validate without touching the install root")
	cmd.Flags().StringVar(&f.backupRoot, "backup-root", "", "Directory for per-run backup areas")
	cmd.Flags().BoolVar(&f.noBackup, "no-backup", false, "Skip backups (failed updates cannot be restored)")
	cmd.Flags().BoolVar(&f.allowManualMap, "allow-manual-map", false, "Enable the manual source map strategies")
	cmd.Flags().StringVar(&f.sourceMap, "source-map", "", "Source map file")
	cmd.Flags().StringVar(&f.sourceMapLocal, "source-map-local", "", "Local source map override file")
	cmd.Flags().BoolVar(&f.failFast, "fail-fast", false, "Stop after the first failed update")
	cmd.Flags().StringVar(&f.reportPath, "report", "", "Write a detailed JSON report to this path")
	cmd.Flags().IntVar(&f.jobs, "jobs", 0, fmt.Sprintf("Parallel staging workers (1-%d)", config.MaxJobs))
	cmd.Flags().BoolVar(&f.debugArtifacts, "debug-artifacts", false, "Write debug artifact files in the current directory")
}

// mergeConfig overlays flag values onto the resolved configuration
func (f *applyFlags) mergeConfig(cfg *config.Config) {
	if f.jobs > 0 {
		cfg.Jobs = f.jobs
	}
	if f.backupRoot != "" {
		cfg.BackupRoot = f.backupRoot
	}
	if f.noBackup {
		cfg.NoBackup = true
	}
	if f.allowManualMap {
		cfg.AllowManualMap = true
	}
	if f.sourceMap != "" {
		cfg.SourceMap = f.sourceMap
	}
	if f.sourceMapLocal != "" {
		cfg.SourceMapLocal = f.sourceMapLocal
	}
}

func newApplyCmd() *cobra.Command {
	flags := &applyFlags{}
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply skill updates from a check file",
		Long: `Apply reads preflight check rows (see "skillsync check"), stages candidate
replacement content for each selected skill, and applies the updates one at
a time with backup and rollback. The summary is printed to stdout as JSON;
the exit code is 0 when nothing failed, 1 otherwise.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			flags.mergeConfig(cfg)

			rows, label, err := loadCheckRows(flags.checkFile)
			if err != nil {
				return err
			}
			return runApply(cmd, cfg, flags, rows, len(rows), label)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&flags.checkFile, "check-file", stdinCheckFile, "Check file to apply (\"-\" for stdin)")
	return cmd
}

// loadCheckRows reads check rows from a file or standard input
func loadCheckRows(checkFile string) ([]types.UpdateRequest, string, error) {
	if checkFile == stdinCheckFile {
		rows, err := checkfile.Load(os.Stdin)
		return rows, stdinCheckFile, err
	}
	f, err := os.Open(checkFile)
	if err != nil {
		return nil, "", skerrors.Newf(skerrors.ErrCheckFileNotFound, "check file not found: %s", checkFile)
	}
	defer func() { _ = f.Close() }()
	rows, err := checkfile.Load(f)
	return rows, checkFile, err
}

// runApply drives one apply run over already-loaded rows. It is shared by
// "apply" and the combined "run" pipeline.
func runApply(cmd *cobra.Command, cfg *config.Config, flags *applyFlags,
	rows []types.UpdateRequest, totalRows int, checkFileLabel string) error {

	fsys := filesystem.NewOS()
	p := paths.New(cfg)

	installer := p.InstallerScript()
	if info, err := os.Stat(installer); err != nil || info.IsDir() {
		return skerrors.Newf(skerrors.ErrInstallerMissing, "installer script not found: %s", installer)
	}

	var srcMap map[string]sourcemap.Entry
	mapBase, mapLocal := p.SourceMapPaths()
	if cfg.AllowManualMap {
		var err error
		srcMap, err = sourcemap.LoadMerged(mapBase, mapLocal)
		if err != nil {
			return err
		}
	}

	selected := checkfile.Filter(rows, flags.strategies, flags.skills)

	runStart := time.Now()
	backupRoot := p.BackupRoot(runStart)
	if !cfg.NoBackup {
		log.Info().Str("backupRoot", backupRoot).Msg("Backups for this run")
	}
	fetcher := fetch.NewScriptFetcher(cfg.Python, installer)
	stager := staging.New(fsys, p, fetcher, cfg, srcMap, flags.dryRun)
	backups := backup.NewManager(fsys, p, backupRoot, cfg.NoBackup)
	u := updater.New(fsys, stager, backups, cfg, flags.failFast)

	outcomes := u.Run(cmd.Context(), selected)
	summary := report.Summarize(totalRows, len(selected), outcomes)
	fmt.Fprintln(cmd.OutOrStdout(), summary.Line())

	reportPath := flags.reportPath
	if reportPath == "" && flags.debugArtifacts {
		reportPath = debugReportFile
	}
	if reportPath != "" {
		rep := &report.Report{
			GeneratedAt:   runStart,
			DryRun:        flags.dryRun,
			CheckFile:     checkFileLabel,
			BackupRoot:    backupRoot,
			SourceMapUsed: cfg.AllowManualMap,
			Summary:       summary,
			Results:       outcomes,
		}
		if cfg.AllowManualMap {
			rep.SourceMapPath = mapBase
			rep.SourceMapLocalPath = mapLocal
		}
		if err := rep.Write(reportPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "report: %s\n", reportPath)
	}

	if summary.Failed > 0 {
		return errUpdatesFailed
	}
	return nil
}
