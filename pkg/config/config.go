package config

// Limits on the staging/probe worker pools. MaxJobs bounds concurrency no
// matter what the configuration asks for; fail-fast always forces one
// worker so the stop point is deterministic.
const (
	DefaultJobs = 4
	MaxJobs     = 8
)

// Config is the process-wide configuration, resolved once at startup and
// passed explicitly to every component constructor. Nothing reads the
// environment after Load returns, which lets tests inject a throwaway
// filesystem root.
type Config struct {
	// Home is the skillsync home directory; the skills install tree
	// lives at <home>/skills. Empty resolves to ~/.skillsync.
	Home string `koanf:"home" toml:"home"`

	// Jobs is the requested parallel worker count for staging and
	// probing. Clamped to [1, MaxJobs].
	Jobs int `koanf:"jobs" toml:"jobs"`

	// DefaultRef is the git ref used when a source names none.
	DefaultRef string `koanf:"default_ref" toml:"default_ref"`

	// NoBackup disables backup capture before replacing a skill.
	NoBackup bool `koanf:"no_backup" toml:"no_backup"`

	// BackupRoot is the directory per-run backup areas are created
	// under. Empty resolves to the XDG state dir.
	BackupRoot string `koanf:"backup_root" toml:"backup_root"`

	// AllowManualMap enables the manual source map strategies.
	AllowManualMap bool `koanf:"allow_manual_map" toml:"allow_manual_map"`

	// SourceMap and SourceMapLocal override the source map file
	// locations. Empty resolves to the XDG config dir.
	SourceMap      string `koanf:"source_map" toml:"source_map"`
	SourceMapLocal string `koanf:"source_map_local" toml:"source_map_local"`

	// InstallerScript and ListScript override the collaborator script
	// locations. Empty resolves to the bundled scripts under the
	// skills system tree.
	InstallerScript string `koanf:"installer_script" toml:"installer_script"`
	ListScript      string `koanf:"list_script" toml:"list_script"`

	// Python is the interpreter used for the collaborator scripts.
	Python string `koanf:"python" toml:"python"`
}

// EffectiveJobs returns the worker count actually used for a run: one when
// failFast is set, otherwise Jobs clamped to [1, MaxJobs].
func (c *Config) EffectiveJobs(failFast bool) int {
	if failFast {
		return 1
	}
	jobs := c.Jobs
	if jobs < 1 {
		jobs = 1
	}
	if jobs > MaxJobs {
		jobs = MaxJobs
	}
	return jobs
}
