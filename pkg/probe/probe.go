// Package probe implements the preflight check: for every installed user
// skill it resolves candidate remote sources and verifies, with a
// throwaway staging fetch, whether the skill can be updated safely. The
// probe never touches the install root; its product is the check rows the
// updater consumes.
package probe

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/arthur-debert/skillsync/pkg/config"
	"github.com/arthur-debert/skillsync/pkg/errors"
	"github.com/arthur-debert/skillsync/pkg/logging"
	"github.com/arthur-debert/skillsync/pkg/paths"
	"github.com/arthur-debert/skillsync/pkg/types"
)

// Public skill collections consulted when install metadata does not name
// a source.
const (
	openaiRepo      = "openai/skills"
	openaiCurated   = "skills/.curated"
	openaiSystem    = "skills/.system"
	anthropicsRepo  = "anthropics/skills"
	anthropicsRoot  = "skills"
)

// Prober evaluates installed skills against their remote sources
type Prober struct {
	fs      types.FS
	paths   *paths.Paths
	fetcher types.Fetcher
	lister  types.Lister
	cfg     *config.Config
	logger  zerolog.Logger
}

// New creates a Prober
func New(fsys types.FS, p *paths.Paths, fetcher types.Fetcher, lister types.Lister, cfg *config.Config) *Prober {
	return &Prober{
		fs:      fsys,
		paths:   p,
		fetcher: fetcher,
		lister:  lister,
		cfg:     cfg,
		logger:  logging.GetLogger("probe"),
	}
}

// Result is the product of one probe run
type Result struct {
	Rows  []types.UpdateRequest
	Total int
	OK    int
	Fail  int
	Skip  int
}

// SummaryLine renders the trailing summary row of a TSV check file
func (r *Result) SummaryLine() string {
	return fmt.Sprintf("summary: total=%d ok=%d fail=%d skip=%d",
		r.Total, r.OK, r.Fail, r.Skip)
}

// localSkill is one installed skill awaiting evaluation
type localSkill struct {
	name      string
	path      string
	isSymlink bool
	resolved  string
	meta      Meta
}

// remoteSets are the public skill collections, loaded once per run
type remoteSets struct {
	curated    map[string]bool
	system     map[string]bool
	anthropics map[string]bool
}

// Run probes every installed user skill with bounded parallel workers and
// returns rows sorted by skill name.
func (p *Prober) Run(ctx context.Context) (*Result, error) {
	sets, err := p.loadRemoteSets(ctx)
	if err != nil {
		return nil, err
	}

	skills, err := p.collectLocalSkills()
	if err != nil {
		return nil, err
	}

	rows := make([]types.UpdateRequest, len(skills))
	jobs := p.cfg.EffectiveJobs(false)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, skill := range skills {
		i, skill := i, skill
		g.Go(func() error {
			rows[i] = p.evaluate(gctx, skill, sets)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Skill < rows[j].Skill })

	result := &Result{Rows: rows, Total: len(rows)}
	for _, row := range rows {
		switch row.Result {
		case types.ResultOK:
			result.OK++
		case types.ResultFail:
			result.Fail++
		case types.ResultSkip:
			result.Skip++
		}
	}
	return result, nil
}

func (p *Prober) loadRemoteSets(ctx context.Context) (*remoteSets, error) {
	load := func(repo, path string) (map[string]bool, error) {
		names, err := p.lister.ListSkills(ctx, repo, p.cfg.DefaultRef, path)
		if err != nil {
			return nil, err
		}
		set := make(map[string]bool, len(names))
		for _, name := range names {
			set[name] = true
		}
		return set, nil
	}

	curated, err := load(openaiRepo, openaiCurated)
	if err != nil {
		return nil, err
	}
	system, err := load(openaiRepo, openaiSystem)
	if err != nil {
		return nil, err
	}
	anthropics, err := load(anthropicsRepo, anthropicsRoot)
	if err != nil {
		return nil, err
	}
	return &remoteSets{curated: curated, system: system, anthropics: anthropics}, nil
}

// collectLocalSkills scans the skills root for installed user skills:
// non-dotted entries whose (possibly symlink-resolved) directory carries
// the manifest marker.
func (p *Prober) collectLocalSkills() ([]localSkill, error) {
	root := p.paths.SkillsRoot()
	entries, err := p.fs.ReadDir(root)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "cannot read skills root %s", root)
	}

	var skills []localSkill
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		skillPath := filepath.Join(root, name)

		info, err := p.fs.Lstat(skillPath)
		if err != nil {
			continue
		}
		isSymlink := info.Mode()&fs.ModeSymlink != 0
		scanPath := skillPath
		if isSymlink {
			scanPath = p.resolveLink(skillPath)
		}

		manifest := filepath.Join(scanPath, types.ManifestFileName)
		if minfo, err := p.fs.Stat(manifest); err != nil || minfo.IsDir() {
			continue
		}
		skills = append(skills, localSkill{
			name:      name,
			path:      skillPath,
			isSymlink: isSymlink,
			resolved:  scanPath,
			meta:      loadMeta(p.fs, scanPath),
		})
	}
	return skills, nil
}

func (p *Prober) resolveLink(path string) string {
	target, err := p.fs.Readlink(path)
	if err != nil {
		return path
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(path), target)
	}
	return filepath.Clean(target)
}

// evaluate produces one check row for one installed skill
func (p *Prober) evaluate(ctx context.Context, skill localSkill, sets *remoteSets) types.UpdateRequest {
	if skill.isSymlink {
		strategy, note := p.skipStrategy(skill)
		return skipRow(skill.name, strategy, note)
	}

	candidates := p.resolveCandidates(skill, sets)
	if len(candidates) == 0 {
		strategy, note := p.skipStrategy(skill)
		return skipRow(skill.name, strategy, note)
	}

	var repo, remotePath, note string
	result := types.ResultFail
	for _, cand := range candidates {
		ok, diag := p.probeInstall(ctx, cand.repo, cand.path)
		repo, remotePath = cand.repo, cand.path
		if ok {
			result = types.ResultOK
			note = "ok (" + cand.reason + ")"
			break
		}
		note = diag + " (" + cand.reason + ")"
	}
	return types.UpdateRequest{
		Skill:      skill.name,
		Bucket:     types.BucketUser,
		Result:     result,
		Strategy:   types.StrategyGitHub,
		Repo:       repo,
		RemotePath: remotePath,
		Note:       note,
	}
}

// probeInstall stages a candidate into a throwaway directory to verify
// the remote source actually serves the skill.
func (p *Prober) probeInstall(ctx context.Context, repo, remotePath string) (bool, string) {
	tempRoot, err := os.MkdirTemp("", "skill-update-probe-")
	if err != nil {
		return false, "cannot create probe directory"
	}
	defer func() {
		if err := p.fs.RemoveAll(tempRoot); err != nil {
			p.logger.Warn().Err(err).Str("tempRoot", tempRoot).Msg("Failed to remove probe directory")
		}
	}()

	_, err = p.fetcher.Fetch(ctx, types.FetchSpec{
		Repo:    repo,
		Path:    remotePath,
		Ref:     p.cfg.DefaultRef,
		DestDir: tempRoot,
	})
	if err != nil {
		diag := errors.Message(err)
		if lines := strings.Split(strings.TrimSpace(diag), "\n"); len(lines) > 0 && lines[len(lines)-1] != "" {
			diag = lines[len(lines)-1]
		}
		if diag == "" {
			diag = "install probe failed"
		}
		return false, diag
	}
	return true, "ok"
}

type candidate struct {
	repo   string
	path   string
	reason string
}

// resolveCandidates lists the remote locations worth probing for a skill,
// most specific first, deduplicated by (repo, path).
func (p *Prober) resolveCandidates(skill localSkill, sets *remoteSets) []candidate {
	var candidates []candidate
	seen := map[[2]string]bool{}
	add := func(repo, path, reason string) {
		key := [2]string{repo, path}
		if seen[key] {
			return
		}
		seen[key] = true
		candidates = append(candidates, candidate{repo: repo, path: path, reason: reason})
	}

	meta := skill.meta
	switch {
	case meta.Source == SourceGitHub && meta.Repo != "" && meta.SkillPath != "":
		skillPath := strings.Trim(meta.SkillPath, "/")
		add(meta.Repo, skillPath, "meta github skillPath")
		if !strings.HasPrefix(skillPath, "skills/") {
			add(meta.Repo, "skills/"+skillPath, "meta github + skills/ prefix")
		}

	case meta.Source == SourceRegistry:
		// the registry does not expose a repo/path; match its name
		// against the public collections
		regName := meta.Name
		if regName == "" {
			regName = skill.name
		}
		if sets.curated[regName] {
			add(openaiRepo, openaiCurated+"/"+regName, "registry matched openai curated")
		}
		if sets.system[regName] {
			add(openaiRepo, openaiSystem+"/"+regName, "registry matched openai system")
		}
		if sets.anthropics[regName] {
			add(anthropicsRepo, anthropicsRoot+"/"+regName, "registry matched anthropics public")
		}

	default:
		if sets.curated[skill.name] {
			add(openaiRepo, openaiCurated+"/"+skill.name, "name matched openai curated")
		}
		if sets.system[skill.name] {
			add(openaiRepo, openaiSystem+"/"+skill.name, "name matched openai system")
		}
		if sets.anthropics[skill.name] {
			add(anthropicsRepo, anthropicsRoot+"/"+skill.name, "name matched anthropics public")
		}
	}
	return candidates
}

// skipStrategy picks the recommended follow-up for a skill the probe
// cannot update automatically.
func (p *Prober) skipStrategy(skill localSkill) (strategy, note string) {
	if skill.isSymlink {
		return types.StrategySourceRepo,
			"symlink target must be updated at the source (" + skill.resolved + ")"
	}
	archive := p.paths.ArchivePath(skill.name)
	if info, err := p.fs.Stat(archive); err == nil && !info.IsDir() {
		return types.StrategyLocalArchive, "local archive available: " + archive
	}
	source := skill.meta.Source
	if source == "" {
		source = "unknown"
	}
	return types.StrategyManualMap,
		"repo/path unresolved (meta source=" + source + "); explicit source map required"
}

func skipRow(name, strategy, note string) types.UpdateRequest {
	return types.UpdateRequest{
		Skill:    name,
		Bucket:   types.BucketUser,
		Result:   types.ResultSkip,
		Strategy: strategy,
		Note:     note,
	}
}
