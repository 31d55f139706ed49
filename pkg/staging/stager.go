// Package staging resolves update requests into candidate replacement
// trees. Staging never mutates the install root: every strategy produces
// its tree under an ephemeral temp root that is deleted on every exit path
// except a pending hand-off to the apply phase.
package staging

import (
	"context"
	"os"
	"path/filepath"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/skillsync/pkg/config"
	"github.com/arthur-debert/skillsync/pkg/errors"
	"github.com/arthur-debert/skillsync/pkg/fingerprint"
	"github.com/arthur-debert/skillsync/pkg/logging"
	"github.com/arthur-debert/skillsync/pkg/paths"
	"github.com/arthur-debert/skillsync/pkg/sourcemap"
	"github.com/arthur-debert/skillsync/pkg/types"
)

// archivePathPattern finds an absolute .skill archive path inside a
// request's free-text note.
var archivePathPattern = regexp.MustCompile(`(/[^\s]+\.skill)`)

// Stager resolves one request at a time. Stagers are safe for concurrent
// use: all state is read-only after construction.
type Stager struct {
	fs        types.FS
	paths     *paths.Paths
	fetcher   types.Fetcher
	cfg       *config.Config
	sourceMap map[string]sourcemap.Entry
	dryRun    bool
	logger    zerolog.Logger
}

// New creates a Stager. sourceMap may be nil when the manual strategies
// are not enabled.
func New(fsys types.FS, p *paths.Paths, fetcher types.Fetcher, cfg *config.Config,
	sourceMap map[string]sourcemap.Entry, dryRun bool) *Stager {
	return &Stager{
		fs:        fsys,
		paths:     p,
		fetcher:   fetcher,
		cfg:       cfg,
		sourceMap: sourceMap,
		dryRun:    dryRun,
		logger:    logging.GetLogger("staging"),
	}
}

// Stage resolves one request end to end: strategy dispatch, manifest
// validation, the no-op short circuit against the installed tree, and the
// dry-run short circuit. Policy skips (precheck FAIL, system bucket) are
// the orchestrator's phase 1 and never reach here.
func (s *Stager) Stage(ctx context.Context, index int, req types.UpdateRequest) Result {
	var commands []string

	tempRoot, staged, skipReason, err := s.dispatch(ctx, req, &commands)
	if err != nil {
		return s.failed(index, req, commands, err)
	}
	if skipReason != "" {
		return s.skipped(index, req, commands, skipReason)
	}

	// No-op short circuit: identical content is discarded before any
	// backup or replace can happen
	dest := s.paths.TargetPath(req.Bucket, req.Skill)
	same, err := s.sameContent(staged, dest)
	if err != nil {
		s.cleanup(tempRoot)
		return s.failed(index, req, commands, err)
	}
	if same {
		s.logger.Debug().Str("skill", req.Skill).Msg("No changes detected")
		s.cleanup(tempRoot)
		return s.skipped(index, req, commands, types.ReasonNoChanges)
	}

	if s.dryRun {
		s.cleanup(tempRoot)
		return Result{
			Index:    index,
			Request:  req,
			Commands: commands,
			Outcome: &types.UpdateOutcome{
				Skill:    req.Skill,
				Strategy: req.Strategy,
				Status:   types.StatusDryRun,
				Reason:   types.ReasonStagedAndValidated,
				Commands: commands,
			},
		}
	}

	return Result{
		Index:      index,
		Request:    req,
		Commands:   commands,
		TempRoot:   tempRoot,
		StagedPath: staged,
	}
}

// dispatch runs the strategy. Exactly one of the return positions is
// populated: a staged artifact (tempRoot, stagedPath), a policy skip
// reason, or an error. Temp roots are already cleaned up on error paths.
func (s *Stager) dispatch(ctx context.Context, req types.UpdateRequest, commands *[]string) (tempRoot, staged, skipReason string, err error) {
	switch req.Strategy {
	case types.StrategyGitHub:
		if !req.HasRemote() {
			return "", "", "", errors.New(errors.ErrMissingRemote, "missing repo/remote_path in check file")
		}
		tempRoot, staged, err = s.stageFromInstaller(ctx, req.Skill, req.Repo, req.RemotePath, s.cfg.DefaultRef, commands)
		return tempRoot, staged, "", err

	case types.StrategyLocalArchive:
		tempRoot, staged, err = s.stageFromArchive(req.Skill, req.Note)
		return tempRoot, staged, "", err

	case types.StrategyManualMap, types.StrategyManualSystemMap:
		if !s.cfg.AllowManualMap {
			return "", "", types.ReasonManualMapNotEnabled, nil
		}
		entry, ok := s.sourceMap[req.Skill]
		if !ok {
			return "", "", types.ReasonNotInSourceMap, nil
		}
		tempRoot, staged, err = s.stageFromInstaller(ctx, req.Skill, entry.Repo, entry.Path, entry.Ref, commands)
		return tempRoot, staged, "", err

	case types.StrategyClaudeMirror:
		return "", "", types.ReasonMirrorDisabled, nil

	default:
		return "", "", types.ReasonUnsupportedStrategy, nil
	}
}

// stageFromInstaller fetches the skill through the external installer
// collaborator into a fresh temp root and validates the manifest marker.
func (s *Stager) stageFromInstaller(ctx context.Context, skill, repo, remotePath, ref string, commands *[]string) (string, string, error) {
	tempRoot, err := os.MkdirTemp("", "skill-stage-"+skill+"-")
	if err != nil {
		return "", "", errors.Wrap(err, errors.ErrFetchFailed, "cannot create staging directory")
	}

	command, err := s.fetcher.Fetch(ctx, types.FetchSpec{
		Repo:    repo,
		Path:    remotePath,
		Ref:     ref,
		Name:    skill,
		DestDir: tempRoot,
	})
	if command != "" {
		*commands = append(*commands, command)
	}
	if err != nil {
		s.cleanup(tempRoot)
		return "", "", err
	}

	staged := filepath.Join(tempRoot, skill)
	if !s.isFile(filepath.Join(staged, types.ManifestFileName)) {
		s.cleanup(tempRoot)
		return "", "", errors.Newf(errors.ErrManifestMissing,
			"staged skill is invalid (missing %s)", types.ManifestFileName)
	}
	return tempRoot, staged, nil
}

// sameContent compares the staged tree with the currently installed tree.
// A missing or non-directory install location never counts as identical.
func (s *Stager) sameContent(staged, dest string) (bool, error) {
	info, err := s.fs.Stat(dest)
	if err != nil || !info.IsDir() {
		return false, nil
	}
	stagedDigest, err := fingerprint.Tree(s.fs, staged)
	if err != nil {
		return false, err
	}
	destDigest, err := fingerprint.Tree(s.fs, dest)
	if err != nil {
		return false, err
	}
	return stagedDigest == destDigest, nil
}

func (s *Stager) skipped(index int, req types.UpdateRequest, commands []string, reason string) Result {
	return Result{
		Index:    index,
		Request:  req,
		Commands: commands,
		Outcome: &types.UpdateOutcome{
			Skill:    req.Skill,
			Strategy: req.Strategy,
			Status:   types.StatusSkipped,
			Reason:   reason,
			Commands: commands,
		},
	}
}

func (s *Stager) failed(index int, req types.UpdateRequest, commands []string, err error) Result {
	s.logger.Debug().Err(err).Str("skill", req.Skill).Msg("Staging failed")
	return Result{
		Index:    index,
		Request:  req,
		Commands: commands,
		Outcome: &types.UpdateOutcome{
			Skill:    req.Skill,
			Strategy: req.Strategy,
			Status:   types.StatusFailed,
			Reason:   errors.Message(err),
			Commands: commands,
			Rollback: types.RollbackNotNeeded,
		},
	}
}

func (s *Stager) isFile(path string) bool {
	info, err := s.fs.Stat(path)
	return err == nil && !info.IsDir()
}

func (s *Stager) cleanup(tempRoot string) {
	if tempRoot == "" {
		return
	}
	if err := s.fs.RemoveAll(tempRoot); err != nil {
		s.logger.Warn().Err(err).Str("tempRoot", tempRoot).Msg("Failed to remove staging directory")
	}
}
