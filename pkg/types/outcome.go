package types

// Status is the terminal state of one update request
type Status string

const (
	StatusSuccess        Status = "SUCCESS"
	StatusFailed         Status = "FAILED"
	StatusFailedRollback Status = "FAILED_ROLLBACK"
	StatusSkipped        Status = "SKIPPED"
	StatusDryRun         Status = "DRY_RUN"
)

// IsFailure reports whether the status counts against the run's exit code
func (s Status) IsFailure() bool {
	return s == StatusFailed || s == StatusFailedRollback
}

// Reason strings attached to outcomes. These are stable wire values consumed
// by automation; do not reword them.
const (
	ReasonPrecheckFail        = "precheck_result_is_fail"
	ReasonSystemDisabled      = "system_updates_disabled_per_policy"
	ReasonMirrorDisabled      = "claude_mirror_disabled_per_policy"
	ReasonUnsupportedStrategy = "unsupported_strategy"
	ReasonManualMapNotEnabled = "manual_source_map_not_enabled"
	ReasonNotInSourceMap      = "skill_not_found_in_source_map"
	ReasonNoChanges           = "no_changes_detected"
	ReasonStagedAndValidated  = "staged_and_validated"
	ReasonUpdated             = "updated"
	ReasonAbortedByFailFast   = "aborted_by_fail_fast"
)

// Rollback results. RollbackErrorPrefix marks the severe case where the
// rollback itself failed and the install root needs manual inspection.
const (
	RollbackRestored    = "restored_from_backup"
	RollbackNoBackup    = "failed_no_backup"
	RollbackNotNeeded   = "not_needed"
	RollbackErrorPrefix = "rollback_error: "
)

// UpdateOutcome is the single, final record produced for each selected
// request. Exactly one outcome exists per request; it is never revised.
type UpdateOutcome struct {
	Skill      string   `json:"skill"`
	Strategy   string   `json:"strategy"`
	Status     Status   `json:"status"`
	Reason     string   `json:"reason"`
	Commands   []string `json:"commands"`
	BackupPath string   `json:"backup_path,omitempty"`
	Rollback   string   `json:"rollback,omitempty"`
}
