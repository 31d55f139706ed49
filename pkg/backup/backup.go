// Package backup owns the transactional part of an update: capturing a
// verbatim copy of a skill's pre-update state, replacing the installed
// tree with staged content, and restoring the backup when an apply fails.
package backup

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/skillsync/pkg/errors"
	"github.com/arthur-debert/skillsync/pkg/logging"
	"github.com/arthur-debert/skillsync/pkg/paths"
	"github.com/arthur-debert/skillsync/pkg/types"
)

// Manager captures backups into a per-run area and applies or rolls back
// staged updates. The backup area is created lazily on the first capture
// and persists after the run.
type Manager struct {
	fs       types.FS
	paths    *paths.Paths
	root     string
	disabled bool
	logger   zerolog.Logger
}

// NewManager creates a backup manager writing under root. When disabled is
// set no backups are captured and failed applies cannot be restored.
func NewManager(fsys types.FS, p *paths.Paths, root string, disabled bool) *Manager {
	return &Manager{
		fs:       fsys,
		paths:    p,
		root:     root,
		disabled: disabled,
		logger:   logging.GetLogger("backup"),
	}
}

// Root returns the per-run backup area
func (m *Manager) Root() string {
	return m.root
}

// Create captures the installed tree of (bucket, skill) into the backup
// area at key <bucket>__<skill>. It returns the backup path (empty when no
// backup was taken) and whether the target currently exists. Backups are
// only taken when the target exists and backups are enabled. Existence
// follows symlinks: a link to a directory is backed up via its resolved
// tree, and a dangling link counts as absent.
func (m *Manager) Create(bucket, skill string) (backupPath string, existed bool, err error) {
	target := m.paths.TargetPath(bucket, skill)
	_, statErr := m.fs.Stat(target)
	existed = statErr == nil

	if m.disabled || !existed {
		return "", existed, nil
	}

	if err := m.fs.MkdirAll(m.root, 0755); err != nil {
		return "", existed, errors.Wrapf(err, errors.ErrBackupFailed, "cannot create backup area %s", m.root)
	}
	backupPath = filepath.Join(m.root, fmt.Sprintf("%s__%s", bucket, skill))
	if err := CopyTree(m.fs, target, backupPath); err != nil {
		return "", existed, errors.Wrapf(err, errors.ErrBackupFailed, "cannot back up %s", target)
	}

	m.logger.Debug().Str("skill", skill).Str("backup", backupPath).Msg("Backup captured")
	return backupPath, existed, nil
}

// Apply replaces whatever occupies the install location of (bucket, skill)
// with the staged tree, then requires the manifest marker file at the new
// root. A missing manifest is a post-apply validation failure even though
// the copy itself succeeded.
func (m *Manager) Apply(staged, bucket, skill string) error {
	target := m.paths.TargetPath(bucket, skill)
	if err := CopyTree(m.fs, staged, target); err != nil {
		return err
	}

	manifest := filepath.Join(target, types.ManifestFileName)
	info, err := m.fs.Stat(manifest)
	if err != nil || info.IsDir() {
		return errors.Newf(errors.ErrApplyValidation,
			"post-update validation failed (missing %s)", types.ManifestFileName)
	}

	m.logger.Info().Str("skill", skill).Str("target", target).Msg("Skill updated")
	return nil
}

// Rollback restores the install location of (bucket, skill) after a failed
// apply. The returned string is the rollback result recorded on the
// outcome: restored_from_backup when a captured backup was put back,
// failed_no_backup when the target existed but no backup was taken (a
// genuine data-loss case), not_needed when the target never existed, or
// "rollback_error: ..." when the rollback itself failed - the severe case
// where the install root needs manual inspection.
func (m *Manager) Rollback(bucket, skill, backupPath string, existed bool) string {
	target := m.paths.TargetPath(bucket, skill)

	if err := RemoveAny(m.fs, target); err != nil {
		m.logger.Error().Err(err).Str("target", target).Msg("Rollback could not clear target")
		return types.RollbackErrorPrefix + err.Error()
	}

	if backupPath != "" {
		if _, err := m.fs.Lstat(backupPath); err == nil {
			if err := CopyTree(m.fs, backupPath, target); err != nil {
				m.logger.Error().Err(err).Str("target", target).Msg("Rollback restore failed")
				return types.RollbackErrorPrefix + err.Error()
			}
			m.logger.Info().Str("skill", skill).Msg("Restored from backup")
			return types.RollbackRestored
		}
	}
	if existed {
		m.logger.Error().Str("skill", skill).Msg("Target existed but no backup was captured")
		return types.RollbackNoBackup
	}
	return types.RollbackNotNeeded
}
