// Package paths provides centralized path handling for skillsync. Every
// location the updater touches - the skills install tree, the system tree,
// the dist archive directory, the collaborator scripts, backup areas and
// source maps - is derived here from the resolved configuration, so tests
// can point the whole system at a temp directory.
package paths

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/arthur-debert/skillsync/pkg/config"
	"github.com/arthur-debert/skillsync/pkg/types"
)

// Names inside the skills tree. These define the install root layout and
// are not user-configurable; overridable locations live in pkg/config.
const (
	// SkillsDirName is the skills tree under the skillsync home
	SkillsDirName = "skills"

	// SystemDirName holds system-managed skills under the skills root
	SystemDirName = ".system"

	// DistDirName holds local .skill archives under the skills root
	DistDirName = "dist"

	// ArchiveExt is the packaged-skill file extension
	ArchiveExt = ".skill"

	// InstallerDirName is the skill-installer tool directory under the
	// system tree
	InstallerDirName = "skill-installer"

	// InstallerScriptName fetches one skill from a remote repository
	InstallerScriptName = "install-skill-from-github.py"

	// ListScriptName enumerates skills published in a remote repository
	ListScriptName = "list-skills.py"

	// SourceMapName is the manual source map file name; the local
	// override lives beside it
	SourceMapName      = "skills_source_map.json"
	SourceMapLocalName = "skills_source_map.local.json"

	// BackupTimestampLayout names per-run backup areas
	BackupTimestampLayout = "20060102-150405"
)

// Paths resolves every filesystem location skillsync uses
type Paths struct {
	cfg *config.Config
}

// New creates a Paths resolver from the resolved configuration
func New(cfg *config.Config) *Paths {
	return &Paths{cfg: cfg}
}

// SkillsRoot returns the root of the skills install tree
func (p *Paths) SkillsRoot() string {
	return filepath.Join(p.cfg.Home, SkillsDirName)
}

// TargetRoot returns the install root for a bucket: the skills root for
// user skills, the .system tree for system skills.
func (p *Paths) TargetRoot(bucket string) string {
	if bucket == types.BucketSystem {
		return filepath.Join(p.SkillsRoot(), SystemDirName)
	}
	return p.SkillsRoot()
}

// TargetPath returns the install location of one skill
func (p *Paths) TargetPath(bucket, skill string) string {
	return filepath.Join(p.TargetRoot(bucket), skill)
}

// DistRoot returns the local archive directory
func (p *Paths) DistRoot() string {
	return filepath.Join(p.SkillsRoot(), DistDirName)
}

// ArchivePath returns the default local archive location for a skill
func (p *Paths) ArchivePath(skill string) string {
	return filepath.Join(p.DistRoot(), skill+ArchiveExt)
}

// InstallerScript returns the fetch collaborator script path
func (p *Paths) InstallerScript() string {
	if p.cfg.InstallerScript != "" {
		return p.cfg.InstallerScript
	}
	return filepath.Join(p.SkillsRoot(), SystemDirName, InstallerDirName, "scripts", InstallerScriptName)
}

// ListScript returns the listing collaborator script path
func (p *Paths) ListScript() string {
	if p.cfg.ListScript != "" {
		return p.cfg.ListScript
	}
	return filepath.Join(p.SkillsRoot(), SystemDirName, InstallerDirName, "scripts", ListScriptName)
}

// BackupRoot returns a fresh per-run backup area for the given run start
// time. Backup areas are never pruned; they double as an audit trail.
func (p *Paths) BackupRoot(runStart time.Time) string {
	root := p.cfg.BackupRoot
	if root == "" {
		root = filepath.Join(xdg.StateHome, "skillsync", "backups")
	}
	return filepath.Join(root, runStart.Format(BackupTimestampLayout))
}

// SourceMapPaths returns the base and local-override source map locations.
// The local file wins per key when both define a skill.
func (p *Paths) SourceMapPaths() (base, local string) {
	base = p.cfg.SourceMap
	if base == "" {
		base = filepath.Join(xdg.ConfigHome, "skillsync", SourceMapName)
	}
	local = p.cfg.SourceMapLocal
	if local == "" {
		local = filepath.Join(xdg.ConfigHome, "skillsync", SourceMapLocalName)
	}
	return base, local
}
