package probe

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/skillsync/pkg/types"
)

// MetaFileName records how a skill was installed
const MetaFileName = ".skill-meta.json"

// Meta install sources
const (
	SourceGitHub   = "github"
	SourceRegistry = "registry"
)

// Meta is the loosely-schemaed install metadata left beside a skill. Any
// unreadable or malformed file yields the zero value; the probe then falls
// back to name matching.
type Meta struct {
	Source    string `json:"source"`
	Repo      string `json:"repo"`
	SkillPath string `json:"skillPath"`
	Name      string `json:"name"`
}

// loadMeta reads a skill's install metadata. The registry name falls back
// to the SKILL.md frontmatter name when the metadata does not carry one.
func loadMeta(fsys types.FS, skillDir string) Meta {
	var meta Meta
	if data, err := fsys.ReadFile(filepath.Join(skillDir, MetaFileName)); err == nil {
		// best effort: a broken meta file is treated as absent
		_ = json.Unmarshal(data, &meta)
	}
	if meta.Name == "" {
		meta.Name = frontmatterName(fsys, filepath.Join(skillDir, types.ManifestFileName))
	}
	return meta
}

// frontmatterName extracts the name field from a manifest's YAML
// frontmatter, or "" when there is none.
func frontmatterName(fsys types.FS, manifestPath string) string {
	data, err := fsys.ReadFile(manifestPath)
	if err != nil {
		return ""
	}
	block, ok := frontmatter(data)
	if !ok {
		return ""
	}
	var fm struct {
		Name string `yaml:"name"`
	}
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return ""
	}
	return strings.TrimSpace(fm.Name)
}

// frontmatter returns the YAML block delimited by "---" lines at the very
// top of a document.
func frontmatter(data []byte) ([]byte, bool) {
	const fence = "---"
	if !bytes.HasPrefix(data, []byte(fence+"\n")) {
		return nil, false
	}
	rest := data[len(fence)+1:]
	end := bytes.Index(rest, []byte("\n"+fence))
	if end < 0 {
		return nil, false
	}
	return rest[:end], true
}
