package updater

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/skillsync/pkg/backup"
	"github.com/arthur-debert/skillsync/pkg/config"
	"github.com/arthur-debert/skillsync/pkg/errors"
	"github.com/arthur-debert/skillsync/pkg/filesystem"
	"github.com/arthur-debert/skillsync/pkg/paths"
	"github.com/arthur-debert/skillsync/pkg/staging"
	"github.com/arthur-debert/skillsync/pkg/types"
)

// skillFetcher serves a distinct canned tree per skill name and can be
// told to fail for specific skills.
type skillFetcher struct {
	content map[string]string
	failing map[string]bool
}

func (f *skillFetcher) Fetch(ctx context.Context, spec types.FetchSpec) (string, error) {
	command := "python3 install-skill-from-github.py --repo " + spec.Repo
	if f.failing[spec.Name] {
		return command, errors.New(errors.ErrFetchFailed, "repository not reachable")
	}
	root := filepath.Join(spec.DestDir, spec.Name)
	if err := os.MkdirAll(root, 0755); err != nil {
		return command, err
	}
	content := f.content[spec.Name]
	if content == "" {
		content = "# " + spec.Name + "\n"
	}
	if err := os.WriteFile(filepath.Join(root, types.ManifestFileName), []byte(content), 0644); err != nil {
		return command, err
	}
	return command, nil
}

// poisonFS fails every write of a file named "poison", forcing an apply
// failure after staging succeeded.
type poisonFS struct {
	types.FS
}

func (p *poisonFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	if filepath.Base(name) == "poison" {
		return errors.New(errors.ErrApplyFailed, "disk write rejected")
	}
	return p.FS.WriteFile(name, data, perm)
}

type updaterEnv struct {
	cfg     *config.Config
	paths   *paths.Paths
	fetcher *skillFetcher
	fs      types.FS
}

func newUpdaterEnv(t *testing.T) *updaterEnv {
	t.Helper()
	cfg := &config.Config{Home: t.TempDir(), Jobs: config.DefaultJobs, DefaultRef: "main"}
	return &updaterEnv{
		cfg:     cfg,
		paths:   paths.New(cfg),
		fetcher: &skillFetcher{content: map[string]string{}, failing: map[string]bool{}},
		fs:      filesystem.NewOS(),
	}
}

func (e *updaterEnv) updater(t *testing.T, failFast bool) *Updater {
	t.Helper()
	stager := staging.New(e.fs, e.paths, e.fetcher, e.cfg, nil, false)
	backups := backup.NewManager(e.fs, e.paths, filepath.Join(e.cfg.Home, "backups", "run"), e.cfg.NoBackup)
	return New(e.fs, stager, backups, e.cfg, failFast)
}

func (e *updaterEnv) installSkill(t *testing.T, skill, manifest string) {
	t.Helper()
	root := e.paths.TargetPath(types.BucketUser, skill)
	require.NoError(t, os.MkdirAll(root, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, types.ManifestFileName), []byte(manifest), 0644))
}

func okRequest(skill string) types.UpdateRequest {
	return types.UpdateRequest{
		Skill:      skill,
		Bucket:     types.BucketUser,
		Result:     types.ResultOK,
		Strategy:   types.StrategyGitHub,
		Repo:       "openai/skills",
		RemotePath: "skills/.curated/" + skill,
	}
}

func statuses(outcomes []types.UpdateOutcome) []types.Status {
	out := make([]types.Status, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.Status
	}
	return out
}

func TestRunSuccess(t *testing.T) {
	e := newUpdaterEnv(t)
	e.installSkill(t, "pdf", "# pdf v1\n")
	e.fetcher.content["pdf"] = "# pdf v2\n"
	u := e.updater(t, false)

	outcomes := u.Run(context.Background(), []types.UpdateRequest{okRequest("pdf")})
	require.Len(t, outcomes, 1)
	assert.Equal(t, types.StatusSuccess, outcomes[0].Status)
	assert.Equal(t, types.ReasonUpdated, outcomes[0].Reason)
	assert.NotEmpty(t, outcomes[0].BackupPath)
	assert.Len(t, outcomes[0].Commands, 1)

	data, err := os.ReadFile(filepath.Join(e.paths.TargetPath(types.BucketUser, "pdf"), types.ManifestFileName))
	require.NoError(t, err)
	assert.Equal(t, "# pdf v2\n", string(data))

	backed, err := os.ReadFile(filepath.Join(outcomes[0].BackupPath, types.ManifestFileName))
	require.NoError(t, err)
	assert.Equal(t, "# pdf v1\n", string(backed))
}

func TestRunSymlinkedInstallTarget(t *testing.T) {
	e := newUpdaterEnv(t)
	real := filepath.Join(t.TempDir(), "pdf-checkout")
	require.NoError(t, os.MkdirAll(real, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(real, types.ManifestFileName), []byte("# pdf v1\n"), 0644))
	target := e.paths.TargetPath(types.BucketUser, "pdf")
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0755))
	require.NoError(t, os.Symlink(real, target))

	e.fetcher.content["pdf"] = "# pdf v2\n"
	u := e.updater(t, false)

	outcomes := u.Run(context.Background(), []types.UpdateRequest{okRequest("pdf")})
	require.Len(t, outcomes, 1)
	assert.Equal(t, types.StatusSuccess, outcomes[0].Status)
	assert.NotEmpty(t, outcomes[0].BackupPath)

	// The resolved pre-update tree was captured before the link was
	// replaced, and the link target itself is untouched
	backed, err := os.ReadFile(filepath.Join(outcomes[0].BackupPath, types.ManifestFileName))
	require.NoError(t, err)
	assert.Equal(t, "# pdf v1\n", string(backed))
	data, err := os.ReadFile(filepath.Join(real, types.ManifestFileName))
	require.NoError(t, err)
	assert.Equal(t, "# pdf v1\n", string(data))

	info, err := os.Lstat(target)
	require.NoError(t, err)
	assert.True(t, info.IsDir(), "the install location is now a real directory")
	updated, err := os.ReadFile(filepath.Join(target, types.ManifestFileName))
	require.NoError(t, err)
	assert.Equal(t, "# pdf v2\n", string(updated))
}

func TestRunPolicyPrefilter(t *testing.T) {
	e := newUpdaterEnv(t)
	u := e.updater(t, false)

	failRow := okRequest("pdf")
	failRow.Result = types.ResultFail
	systemRow := okRequest("internal-tool")
	systemRow.Bucket = types.BucketSystem

	outcomes := u.Run(context.Background(), []types.UpdateRequest{failRow, systemRow})
	require.Len(t, outcomes, 2)
	assert.Equal(t, types.StatusSkipped, outcomes[0].Status)
	assert.Equal(t, types.ReasonPrecheckFail, outcomes[0].Reason)
	assert.Equal(t, types.StatusSkipped, outcomes[1].Status)
	assert.Equal(t, types.ReasonSystemDisabled, outcomes[1].Reason)
}

func TestRunNoChanges(t *testing.T) {
	e := newUpdaterEnv(t)
	e.installSkill(t, "pdf", "# pdf\n")
	u := e.updater(t, false)

	outcomes := u.Run(context.Background(), []types.UpdateRequest{okRequest("pdf")})
	require.Len(t, outcomes, 1)
	assert.Equal(t, types.StatusSkipped, outcomes[0].Status)
	assert.Equal(t, types.ReasonNoChanges, outcomes[0].Reason)
	assert.Empty(t, outcomes[0].BackupPath, "no backup for a no-op")
}

func TestRunApplyFailureRollsBack(t *testing.T) {
	e := newUpdaterEnv(t)
	e.fs = &poisonFS{FS: filesystem.NewOS()}
	e.installSkill(t, "pdf", "# pdf v1\n")

	// The fetched tree carries a file the apply-phase filesystem refuses
	// to write
	fetcher := &poisonedFetcher{inner: &skillFetcher{
		content: map[string]string{"pdf": "# pdf v2\n"},
		failing: map[string]bool{},
	}}
	stager := staging.New(e.fs, e.paths, fetcher, e.cfg, nil, false)
	backups := backup.NewManager(e.fs, e.paths, filepath.Join(e.cfg.Home, "backups", "run"), false)
	u := New(e.fs, stager, backups, e.cfg, false)

	outcomes := u.Run(context.Background(), []types.UpdateRequest{okRequest("pdf")})
	require.Len(t, outcomes, 1)
	assert.Equal(t, types.StatusFailed, outcomes[0].Status)
	assert.Equal(t, types.RollbackRestored, outcomes[0].Rollback)
	assert.Contains(t, outcomes[0].Reason, "disk write rejected")

	// The pre-update state is back in place
	data, err := os.ReadFile(filepath.Join(e.paths.TargetPath(types.BucketUser, "pdf"), types.ManifestFileName))
	require.NoError(t, err)
	assert.Equal(t, "# pdf v1\n", string(data))
	assert.NoFileExists(t, filepath.Join(e.paths.TargetPath(types.BucketUser, "pdf"), "poison"))
}

// poisonedFetcher adds a "poison" file to every fetched tree
type poisonedFetcher struct {
	inner types.Fetcher
}

func (p *poisonedFetcher) Fetch(ctx context.Context, spec types.FetchSpec) (string, error) {
	command, err := p.inner.Fetch(ctx, spec)
	if err != nil {
		return command, err
	}
	root := filepath.Join(spec.DestDir, spec.Name)
	if err := os.WriteFile(filepath.Join(root, "poison"), []byte("x"), 0644); err != nil {
		return command, err
	}
	return command, nil
}

func TestRunNoBackupFailure(t *testing.T) {
	e := newUpdaterEnv(t)
	e.fs = &poisonFS{FS: filesystem.NewOS()}
	e.cfg.NoBackup = true
	e.installSkill(t, "pdf", "# pdf v1\n")

	fetcher := &poisonedFetcher{inner: &skillFetcher{
		content: map[string]string{"pdf": "# pdf v2\n"},
		failing: map[string]bool{},
	}}
	stager := staging.New(e.fs, e.paths, fetcher, e.cfg, nil, false)
	backups := backup.NewManager(e.fs, e.paths, filepath.Join(e.cfg.Home, "backups", "run"), true)
	u := New(e.fs, stager, backups, e.cfg, false)

	outcomes := u.Run(context.Background(), []types.UpdateRequest{okRequest("pdf")})
	require.Len(t, outcomes, 1)
	assert.Equal(t, types.StatusFailed, outcomes[0].Status)
	assert.Equal(t, types.RollbackNoBackup, outcomes[0].Rollback)
}

func TestRunFailFast(t *testing.T) {
	e := newUpdaterEnv(t)
	e.installSkill(t, "alpha", "# alpha v1\n")
	e.fetcher.content["alpha"] = "# alpha v2\n"
	e.fetcher.failing["beta"] = true
	u := e.updater(t, true)

	selected := []types.UpdateRequest{okRequest("alpha"), okRequest("beta"), okRequest("gamma")}
	outcomes := u.Run(context.Background(), selected)
	require.Len(t, outcomes, 3)

	// alpha was staged before the failure and still applies
	assert.Equal(t, types.StatusSuccess, outcomes[0].Status)
	assert.Equal(t, types.StatusFailed, outcomes[1].Status)
	assert.Equal(t, types.StatusSkipped, outcomes[2].Status)
	assert.Equal(t, types.ReasonAbortedByFailFast, outcomes[2].Reason)
}

func TestRunOrderIndependentOfWorkerCount(t *testing.T) {
	skills := []string{"alpha", "beta", "gamma", "delta", "epsilon"}

	run := func(t *testing.T, jobs int) []types.UpdateOutcome {
		e := newUpdaterEnv(t)
		e.cfg.Jobs = jobs
		e.installSkill(t, "beta", "# beta\n") // beta becomes a no-op skip
		e.fetcher.failing["delta"] = true

		var selected []types.UpdateRequest
		for _, skill := range skills {
			selected = append(selected, okRequest(skill))
		}
		return e.updater(t, false).Run(context.Background(), selected)
	}

	serial := run(t, 1)
	parallel := run(t, config.MaxJobs)

	require.Len(t, serial, len(skills))
	require.Len(t, parallel, len(skills))
	assert.Equal(t, statuses(serial), statuses(parallel))
	for i := range serial {
		assert.Equal(t, skills[i], serial[i].Skill)
		assert.Equal(t, serial[i].Skill, parallel[i].Skill)
		assert.Equal(t, serial[i].Reason, parallel[i].Reason)
	}
	assert.Equal(t, types.StatusSkipped, serial[1].Status)
	assert.Equal(t, types.StatusFailed, serial[3].Status)
}

func TestRunEmptySelection(t *testing.T) {
	e := newUpdaterEnv(t)
	u := e.updater(t, false)
	outcomes := u.Run(context.Background(), nil)
	assert.Empty(t, outcomes)
}
