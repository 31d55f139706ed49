package types

import "context"

// FetchSpec identifies remote skill content to stage.
type FetchSpec struct {
	// Repo is the remote repository identifier, e.g. "org/repo".
	Repo string
	// Path is the skill's path within the repository.
	Path string
	// Ref is the git ref to fetch; defaults to "main" when empty.
	Ref string
	// Name is the destination directory name for the staged skill.
	// When empty the collaborator picks the skill's own name.
	Name string
	// DestDir is the directory the staged tree is placed under.
	DestDir string
}

// Fetcher stages remote skill content into a destination directory.
// It is the process/network boundary: implementations invoke the external
// installer, fakes stand in for it in tests. The returned command string is
// the human-readable invocation, recorded on the request's outcome. On
// failure the error carries the collaborator's trimmed diagnostic text.
type Fetcher interface {
	Fetch(ctx context.Context, spec FetchSpec) (command string, err error)
}

// Lister enumerates the skill names published under a path of a remote
// repository. Used by the preflight check to resolve update candidates.
type Lister interface {
	ListSkills(ctx context.Context, repo, ref, path string) ([]string, error)
}
