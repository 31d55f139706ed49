package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/skillsync/pkg/types"
)

func TestSummarize(t *testing.T) {
	outcomes := []types.UpdateOutcome{
		{Skill: "a", Status: types.StatusSuccess},
		{Skill: "b", Status: types.StatusFailed},
		{Skill: "c", Status: types.StatusFailedRollback},
		{Skill: "d", Status: types.StatusSkipped},
		{Skill: "e", Status: types.StatusSkipped},
		{Skill: "f", Status: types.StatusDryRun},
	}

	s := Summarize(10, 6, outcomes)
	assert.Equal(t, Summary{
		TotalRows:    10,
		SelectedRows: 6,
		Success:      1,
		Failed:       2,
		Skipped:      2,
		DryRun:       1,
	}, s)
}

func TestSummaryLine(t *testing.T) {
	s := Summary{TotalRows: 3, SelectedRows: 2, Success: 1, Skipped: 1}
	line := s.Line()

	var decoded map[string]int
	require.NoError(t, json.Unmarshal([]byte(line), &decoded))
	assert.Equal(t, 3, decoded["total_rows"])
	assert.Equal(t, 2, decoded["selected_rows"])
	assert.Equal(t, 1, decoded["success"])
	assert.Equal(t, 0, decoded["failed"])
}

func TestReportWrite(t *testing.T) {
	rep := &Report{
		GeneratedAt:   time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		DryRun:        false,
		CheckFile:     "check.tsv",
		BackupRoot:    "/var/backups/skillsync/20260314-092653",
		SourceMapUsed: false,
		Summary:       Summary{TotalRows: 1, SelectedRows: 1, Success: 1},
		Results: []types.UpdateOutcome{
			{Skill: "pdf", Strategy: types.StrategyGitHub, Status: types.StatusSuccess,
				Reason: types.ReasonUpdated, Commands: []string{"python3 install.py"}},
		},
	}

	path := filepath.Join(t.TempDir(), "reports", "run.json")
	require.NoError(t, rep.Write(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
	assert.Equal(t, byte('\n'), data[len(data)-1])

	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, rep.Summary, decoded.Summary)
	require.Len(t, decoded.Results, 1)
	assert.Equal(t, "pdf", decoded.Results[0].Skill)

	// Optional fields stay out of the document when unset
	assert.NotContains(t, string(data), "source_map_path")
	assert.NotContains(t, string(data), "rollback")
}
