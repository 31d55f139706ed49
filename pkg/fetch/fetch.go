// Package fetch invokes the external skill-installer collaborators: the
// script that stages one skill from a remote repository and the script
// that lists skills published under a repository path. Both are process
// boundaries; unit tests substitute fakes for the interfaces in pkg/types.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/skillsync/pkg/errors"
	"github.com/arthur-debert/skillsync/pkg/logging"
	"github.com/arthur-debert/skillsync/pkg/types"
)

// ScriptFetcher implements types.Fetcher by running the installer script
type ScriptFetcher struct {
	python string
	script string
	logger zerolog.Logger
}

// NewScriptFetcher creates a fetcher that runs script with the given
// python interpreter.
func NewScriptFetcher(python, script string) *ScriptFetcher {
	return &ScriptFetcher{
		python: python,
		script: script,
		logger: logging.GetLogger("fetch"),
	}
}

// Fetch stages spec into spec.DestDir. The returned command string is the
// exact invocation for the request's outcome record. On a non-zero exit
// the error message is the collaborator's trimmed stderr (or stdout when
// stderr is empty).
func (f *ScriptFetcher) Fetch(ctx context.Context, spec types.FetchSpec) (string, error) {
	ref := spec.Ref
	if ref == "" {
		ref = "main"
	}
	args := []string{
		f.script,
		"--repo", spec.Repo,
		"--path", spec.Path,
		"--ref", ref,
	}
	if spec.Name != "" {
		args = append(args, "--name", spec.Name)
	}
	args = append(args, "--dest", spec.DestDir)

	command := f.python + " " + strings.Join(args, " ")
	f.logger.Debug().Str("command", command).Msg("Invoking installer")

	cmd := exec.CommandContext(ctx, f.python, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		diag := strings.TrimSpace(stderr.String())
		if diag == "" {
			diag = strings.TrimSpace(stdout.String())
		}
		if diag == "" {
			diag = "install-skill-from-github failed"
		}
		f.logger.Debug().Err(err).Str("diagnostic", diag).Msg("Installer failed")
		return command, errors.New(errors.ErrFetchFailed, diag)
	}
	return command, nil
}

// ScriptLister implements types.Lister by running the list script
type ScriptLister struct {
	python string
	script string
	logger zerolog.Logger
}

// NewScriptLister creates a lister that runs script with the given python
// interpreter.
func NewScriptLister(python, script string) *ScriptLister {
	return &ScriptLister{
		python: python,
		script: script,
		logger: logging.GetLogger("fetch"),
	}
}

// ListSkills returns the names published under path of repo at ref
func (l *ScriptLister) ListSkills(ctx context.Context, repo, ref, path string) ([]string, error) {
	args := []string{
		l.script,
		"--repo", repo,
		"--ref", ref,
		"--path", path,
		"--format", "json",
	}
	l.logger.Debug().Str("repo", repo).Str("path", path).Msg("Listing remote skills")

	cmd := exec.CommandContext(ctx, l.python, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		diag := strings.TrimSpace(stderr.String())
		if diag == "" {
			diag = err.Error()
		}
		return nil, errors.Newf(errors.ErrFetchFailed, "failed to load remote skills %s:%s: %s", repo, path, diag)
	}

	var rows []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &rows); err != nil {
		return nil, errors.Wrapf(err, errors.ErrFetchFailed, "unexpected list output for %s:%s", repo, path)
	}
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row.Name)
	}
	return names, nil
}
