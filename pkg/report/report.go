// Package report aggregates per-request outcomes into the run summary and
// the optional detailed JSON report file. Both are machine-readable; the
// summary goes to standard output as a single JSON line.
package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/arthur-debert/skillsync/pkg/errors"
	"github.com/arthur-debert/skillsync/pkg/types"
)

// Summary holds the aggregate counts for one run
type Summary struct {
	TotalRows    int `json:"total_rows"`
	SelectedRows int `json:"selected_rows"`
	Success      int `json:"success"`
	Failed       int `json:"failed"`
	Skipped      int `json:"skipped"`
	DryRun       int `json:"dry_run"`
}

// Summarize counts outcomes by status. FAILED and FAILED_ROLLBACK both
// count as failed.
func Summarize(totalRows, selectedRows int, outcomes []types.UpdateOutcome) Summary {
	s := Summary{TotalRows: totalRows, SelectedRows: selectedRows}
	for _, outcome := range outcomes {
		switch {
		case outcome.Status == types.StatusSuccess:
			s.Success++
		case outcome.Status.IsFailure():
			s.Failed++
		case outcome.Status == types.StatusSkipped:
			s.Skipped++
		case outcome.Status == types.StatusDryRun:
			s.DryRun++
		}
	}
	return s
}

// Line renders the summary as a single JSON line for standard output
func (s Summary) Line() string {
	data, _ := json.Marshal(s)
	return string(data)
}

// Report is the detailed per-run record set written when a report path is
// configured. It persists alongside the backup area as the run's audit
// trail.
type Report struct {
	GeneratedAt        time.Time             `json:"generated_at"`
	DryRun             bool                  `json:"dry_run"`
	CheckFile          string                `json:"check_file"`
	BackupRoot         string                `json:"backup_root"`
	SourceMapUsed      bool                  `json:"source_map_used"`
	SourceMapPath      string                `json:"source_map_path,omitempty"`
	SourceMapLocalPath string                `json:"source_map_local_path,omitempty"`
	Summary            Summary               `json:"summary"`
	Results            []types.UpdateOutcome `json:"results"`
}

// Write stores the report as indented JSON at path, creating parent
// directories as needed.
func (r *Report) Write(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "cannot encode report")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "cannot create report directory for %s", path)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "cannot write report %s", path)
	}
	return nil
}
