// Package updater orchestrates a run of skill updates over three phases:
//
//  1. Policy pre-filter: requests with a FAIL precheck or a system bucket
//     resolve to SKIPPED without entering the worker pool.
//  2. Staging: remaining requests are staged across a bounded pool of
//     workers. Staging never mutates the install root, so distinct skills
//     stage concurrently.
//  3. Apply: every pending staged artifact is applied strictly
//     sequentially, in original input order, because apply mutates the
//     shared install root.
//
// Results are keyed by each request's original position and flattened back
// into input order before reporting, so report ordering is independent of
// worker count and scheduling. Fail-fast forces a single staging worker
// and stops new work after the first failure; requests never reached are
// reported as SKIPPED with reason aborted_by_fail_fast.
package updater

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/arthur-debert/skillsync/pkg/backup"
	"github.com/arthur-debert/skillsync/pkg/config"
	skerrors "github.com/arthur-debert/skillsync/pkg/errors"
	"github.com/arthur-debert/skillsync/pkg/logging"
	"github.com/arthur-debert/skillsync/pkg/staging"
	"github.com/arthur-debert/skillsync/pkg/types"
)

// Updater runs selected update requests to completion
type Updater struct {
	fs       types.FS
	stager   *staging.Stager
	backups  *backup.Manager
	cfg      *config.Config
	failFast bool
	logger   zerolog.Logger
}

// New creates an Updater
func New(fsys types.FS, stager *staging.Stager, backups *backup.Manager,
	cfg *config.Config, failFast bool) *Updater {
	return &Updater{
		fs:       fsys,
		stager:   stager,
		backups:  backups,
		cfg:      cfg,
		failFast: failFast,
		logger:   logging.GetLogger("updater"),
	}
}

type stageInput struct {
	index int
	req   types.UpdateRequest
}

// Run processes the selected requests and returns exactly one outcome per
// request, in input order.
func (u *Updater) Run(ctx context.Context, selected []types.UpdateRequest) []types.UpdateOutcome {
	ordered := make(map[int]types.UpdateOutcome, len(selected))
	var stageInputs []stageInput

	// Phase 1: policy pre-filter
	for i, req := range selected {
		switch {
		case req.Result == types.ResultFail:
			ordered[i] = skipOutcome(req, types.ReasonPrecheckFail)
		case req.Bucket == types.BucketSystem:
			ordered[i] = skipOutcome(req, types.ReasonSystemDisabled)
		default:
			stageInputs = append(stageInputs, stageInput{index: i, req: req})
		}
	}

	// Phase 2: staging, parallel
	jobs := u.cfg.EffectiveJobs(u.failFast)
	u.logger.Debug().Int("jobs", jobs).Int("requests", len(stageInputs)).Msg("Staging phase")
	outputs := u.stageAll(ctx, stageInputs, jobs)

	var pending []staging.Result
	for _, out := range outputs {
		if out.Outcome != nil {
			ordered[out.Index] = *out.Outcome
			continue
		}
		pending = append(pending, out)
	}

	// Phase 3: apply, strictly sequential in input order. stageAll
	// returns results in input order, so pending is already ordered.
	aborted := false
	for _, out := range pending {
		if aborted {
			u.discard(out)
			ordered[out.Index] = skipOutcome(out.Request, types.ReasonAbortedByFailFast)
			continue
		}
		outcome := u.applyOne(out)
		ordered[out.Index] = outcome
		if u.failFast && outcome.Status.IsFailure() {
			aborted = true
		}
	}

	// Requests never reached because fail-fast stopped the staging
	// phase resolve here rather than silently dropping out
	results := make([]types.UpdateOutcome, 0, len(selected))
	for i, req := range selected {
		outcome, ok := ordered[i]
		if !ok {
			outcome = skipOutcome(req, types.ReasonAbortedByFailFast)
		}
		results = append(results, outcome)
	}
	return results
}

// stageAll stages the inputs with the given worker count, returning
// results in input order. Under fail-fast (always one worker) staging
// stops after the first failed outcome; already-staged artifacts before
// the failure still proceed to apply.
func (u *Updater) stageAll(ctx context.Context, inputs []stageInput, jobs int) []staging.Result {
	if jobs == 1 {
		var outputs []staging.Result
		for _, in := range inputs {
			out := u.stageOne(ctx, in)
			outputs = append(outputs, out)
			if u.failFast && out.Outcome != nil && out.Outcome.Status.IsFailure() {
				u.logger.Warn().Str("skill", in.req.Skill).Msg("Fail-fast: stopping staging")
				break
			}
		}
		return outputs
	}

	outputs := make([]staging.Result, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			outputs[i] = u.stageOne(gctx, in)
			return nil
		})
	}
	// workers never return errors; every failure is already an outcome
	_ = g.Wait()
	return outputs
}

// stageOne is the per-request catch-all boundary for the staging phase:
// even an unexpected panic yields exactly one outcome.
func (u *Updater) stageOne(ctx context.Context, in stageInput) (res staging.Result) {
	defer func() {
		if r := recover(); r != nil {
			u.logger.Error().Interface("panic", r).Str("skill", in.req.Skill).Msg("Staging panicked")
			res = staging.Result{
				Index:   in.index,
				Request: in.req,
				Outcome: &types.UpdateOutcome{
					Skill:    in.req.Skill,
					Strategy: in.req.Strategy,
					Status:   types.StatusFailed,
					Reason:   fmt.Sprintf("unexpected staging failure: %v", r),
					Rollback: types.RollbackNotNeeded,
				},
			}
		}
	}()
	return u.stager.Stage(ctx, in.index, in.req)
}

// applyOne runs backup, replace and validation for one staged artifact,
// rolling back on failure. The staged temp root is deleted
// unconditionally, success or failure.
func (u *Updater) applyOne(res staging.Result) types.UpdateOutcome {
	defer u.discard(res)
	req := res.Request

	backupPath, existed, err := u.backups.Create(req.Bucket, req.Skill)
	if err == nil {
		err = u.applyGuarded(res.StagedPath, req.Bucket, req.Skill)
	}

	if err != nil {
		rollback := u.backups.Rollback(req.Bucket, req.Skill, backupPath, existed)
		status := types.StatusFailed
		if strings.HasPrefix(rollback, types.RollbackErrorPrefix) {
			status = types.StatusFailedRollback
		}
		u.logger.Error().Err(err).Str("skill", req.Skill).Str("rollback", rollback).Msg("Apply failed")
		return types.UpdateOutcome{
			Skill:      req.Skill,
			Strategy:   req.Strategy,
			Status:     status,
			Reason:     skerrors.Message(err),
			Commands:   res.Commands,
			BackupPath: backupPath,
			Rollback:   rollback,
		}
	}

	return types.UpdateOutcome{
		Skill:      req.Skill,
		Strategy:   req.Strategy,
		Status:     types.StatusSuccess,
		Reason:     types.ReasonUpdated,
		Commands:   res.Commands,
		BackupPath: backupPath,
	}
}

// applyGuarded is the apply-phase catch-all boundary
func (u *Updater) applyGuarded(staged, bucket, skill string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected apply failure: %v", r)
		}
	}()
	return u.backups.Apply(staged, bucket, skill)
}

func (u *Updater) discard(res staging.Result) {
	if res.TempRoot == "" {
		return
	}
	if err := u.fs.RemoveAll(res.TempRoot); err != nil {
		u.logger.Warn().Err(err).Str("tempRoot", res.TempRoot).Msg("Failed to remove staging directory")
	}
}

func skipOutcome(req types.UpdateRequest, reason string) types.UpdateOutcome {
	return types.UpdateOutcome{
		Skill:    req.Skill,
		Strategy: req.Strategy,
		Status:   types.StatusSkipped,
		Reason:   reason,
	}
}
