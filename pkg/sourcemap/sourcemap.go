// Package sourcemap loads the manual skill source maps: JSON objects
// mapping skill name to {repo, path, ref}. A base map can be overlaid with
// a local override file, local values winning per key.
package sourcemap

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/arthur-debert/skillsync/pkg/errors"
)

// Entry locates one skill in a remote repository
type Entry struct {
	Repo string `json:"repo"`
	Path string `json:"path"`
	Ref  string `json:"ref"`
}

// Load reads a source map file. A missing file yields an empty map, not an
// error; a file that is not a JSON object is rejected. Entries without a
// repo or path are dropped, and a missing ref defaults to "main".
func Load(path string) (map[string]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Entry{}, nil
		}
		return nil, errors.Wrapf(err, errors.ErrSourceMapInvalid, "cannot read source map %s", path)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, errors.ErrSourceMapInvalid, "source map must be a JSON object: %s", path)
	}

	out := make(map[string]Entry, len(raw))
	for skill, msg := range raw {
		var entry Entry
		if err := json.Unmarshal(msg, &entry); err != nil {
			// non-object values are skipped, matching loose inputs
			continue
		}
		entry.Repo = strings.TrimSpace(entry.Repo)
		entry.Path = strings.TrimSpace(entry.Path)
		entry.Ref = strings.TrimSpace(entry.Ref)
		if entry.Ref == "" {
			entry.Ref = "main"
		}
		if entry.Repo == "" || entry.Path == "" {
			continue
		}
		out[skill] = entry
	}
	return out, nil
}

// LoadMerged loads the base map and overlays the local override on top
func LoadMerged(basePath, localPath string) (map[string]Entry, error) {
	merged, err := Load(basePath)
	if err != nil {
		return nil, err
	}
	local, err := Load(localPath)
	if err != nil {
		return nil, err
	}
	for skill, entry := range local {
		merged[skill] = entry
	}
	return merged, nil
}
