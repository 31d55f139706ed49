package staging

import (
	"archive/zip"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/arthur-debert/skillsync/pkg/errors"
	"github.com/arthur-debert/skillsync/pkg/types"
)

// stageFromArchive extracts a local .skill archive into a fresh temp root.
// The archive location comes from a path embedded in the request's note,
// falling back to the default dist location keyed by skill name. When the
// manifest is not at the expected root the whole extracted tree is
// searched; exactly one candidate location must exist.
func (s *Stager) stageFromArchive(skill, note string) (string, string, error) {
	archive := archivePathFromNote(note)
	if archive == "" {
		archive = s.paths.ArchivePath(skill)
	}
	if !s.isFile(archive) {
		return "", "", errors.Newf(errors.ErrArchiveNotFound, "archive not found: %s", archive)
	}

	tempRoot, err := os.MkdirTemp("", "skill-stage-"+skill+"-")
	if err != nil {
		return "", "", errors.Wrap(err, errors.ErrArchiveExtract, "cannot create staging directory")
	}

	if err := extractZip(archive, tempRoot); err != nil {
		s.cleanup(tempRoot)
		return "", "", errors.Wrapf(err, errors.ErrArchiveExtract, "failed to extract archive: %s", archive)
	}

	staged := filepath.Join(tempRoot, skill)
	if s.isFile(filepath.Join(staged, types.ManifestFileName)) {
		return tempRoot, staged, nil
	}

	// fallback: locate the unique folder containing the manifest
	matches, err := doublestar.Glob(os.DirFS(tempRoot), "**/"+types.ManifestFileName)
	if err != nil {
		s.cleanup(tempRoot)
		return "", "", errors.Wrap(err, errors.ErrArchiveExtract, "cannot scan extracted archive")
	}
	if len(matches) != 1 {
		s.cleanup(tempRoot)
		return "", "", errors.Newf(errors.ErrArchiveAmbiguous,
			"archive layout is ambiguous (%s not uniquely resolvable)", types.ManifestFileName)
	}
	staged = filepath.Join(tempRoot, filepath.FromSlash(path.Dir(matches[0])))
	return tempRoot, staged, nil
}

// archivePathFromNote extracts an absolute archive path from a note's free
// text, or "" when none is present.
func archivePathFromNote(note string) string {
	match := archivePathPattern.FindString(note)
	return match
}

// extractZip unpacks archive into dest, rejecting entries that would
// escape it.
func extractZip(archive, dest string) error {
	reader, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	for _, file := range reader.File {
		name := filepath.FromSlash(file.Name)
		if !filepath.IsLocal(name) {
			return errors.Newf(errors.ErrArchiveExtract, "unsafe path in archive: %s", file.Name)
		}
		target := filepath.Join(dest, name)

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		if err := extractFile(file, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(file *zip.File, target string) error {
	perm := file.Mode().Perm()
	if perm == 0 {
		perm = 0644
	}
	in, err := file.Open()
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
