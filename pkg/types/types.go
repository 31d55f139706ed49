package types

import (
	"io"
	"io/fs"
)

// ManifestFileName is the marker file whose presence at a skill's root
// validates it as a legitimate skill package.
const ManifestFileName = "SKILL.md"

// Bucket values classify a skill's install location
const (
	BucketUser   = "user"
	BucketSystem = "system"
)

// Precheck results from the check phase
const (
	ResultOK   = "OK"
	ResultFail = "FAIL"
	ResultSkip = "SKIP"
)

// Update strategies as they appear in check rows
const (
	StrategyGitHub          = "update-via-github"
	StrategyLocalArchive    = "install-from-local-archive"
	StrategyManualMap       = "manual-source-map-required"
	StrategyManualSystemMap = "manual-system-source-map"
	StrategyClaudeMirror    = "sync-from-claude-mirror"
	StrategySourceRepo      = "update-source-repo"
)

// FS is the filesystem interface required for skillsync operations
type FS interface {
	// File operations
	Stat(name string) (fs.FileInfo, error)
	Open(name string) (io.ReadCloser, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error

	// Directory operations
	MkdirAll(path string, perm fs.FileMode) error
	ReadDir(name string) ([]fs.DirEntry, error)

	// Symlink operations
	Symlink(oldname, newname string) error
	Readlink(name string) (string, error)

	// Other operations
	Remove(name string) error
	RemoveAll(path string) error
	Lstat(name string) (fs.FileInfo, error)
}
