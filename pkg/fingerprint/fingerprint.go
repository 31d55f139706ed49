// Package fingerprint computes deterministic content digests of directory
// trees. Two trees with equal digests are update-equivalent: the updater
// uses this to skip no-op updates, and tests use it to verify rollback
// round-trips.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"sort"

	"github.com/arthur-debert/skillsync/pkg/errors"
	"github.com/arthur-debert/skillsync/pkg/types"
)

// chunkSize bounds memory while streaming file contents into the digest
const chunkSize = 1024 * 1024

// Entry type tags. Together with the NUL delimiter after every path and
// content field they make the digest stream unambiguous: no placement of
// boundaries can make two different trees collide.
const (
	tagSymlink = 'L'
	tagDir     = 'D'
	tagFile    = 'F'
)

// Tree computes the digest of the directory tree rooted at root. Entries
// are visited in lexical order over slash-separated relative paths, so the
// result is independent of on-disk traversal order. The root itself is
// resolved through symlinks; a link to a directory digests the resolved
// tree.
func Tree(fsys types.FS, root string) (string, error) {
	info, err := fsys.Stat(root)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrFingerprint, "cannot fingerprint %s", root)
	}
	if !info.IsDir() {
		return "", errors.Newf(errors.ErrFingerprint, "not a directory: %s", root)
	}

	rels, err := collect(fsys, root, "")
	if err != nil {
		return "", err
	}
	sort.Strings(rels)

	digest := sha256.New()
	for _, rel := range rels {
		if err := hashEntry(fsys, digest, root, rel); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}

// collect gathers the slash-separated relative paths of every entry below
// root. The root itself is not an entry.
func collect(fsys types.FS, root, rel string) ([]string, error) {
	dir := root
	if rel != "" {
		dir = filepath.Join(root, filepath.FromSlash(rel))
	}
	children, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFingerprint, "cannot read %s", dir)
	}

	var rels []string
	for _, child := range children {
		childRel := child.Name()
		if rel != "" {
			childRel = path.Join(rel, child.Name())
		}
		rels = append(rels, childRel)
		// ReadDir reports symlinks to directories as non-dirs, so
		// only genuine directories recurse
		if child.IsDir() {
			sub, err := collect(fsys, root, childRel)
			if err != nil {
				return nil, err
			}
			rels = append(rels, sub...)
		}
	}
	return rels, nil
}

func hashEntry(fsys types.FS, digest hash.Hash, root, rel string) error {
	full := filepath.Join(root, filepath.FromSlash(rel))
	info, err := fsys.Lstat(full)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFingerprint, "cannot stat %s", full)
	}

	mode := info.Mode()
	switch {
	case mode&fs.ModeSymlink != 0:
		target, err := fsys.Readlink(full)
		if err != nil {
			return errors.Wrapf(err, errors.ErrFingerprint, "cannot read link %s", full)
		}
		digest.Write([]byte{tagSymlink})
		digest.Write([]byte(rel))
		digest.Write([]byte{0})
		digest.Write([]byte(target))
		digest.Write([]byte{0})
	case mode.IsDir():
		digest.Write([]byte{tagDir})
		digest.Write([]byte(rel))
		digest.Write([]byte{0})
	case mode.IsRegular():
		digest.Write([]byte{tagFile})
		digest.Write([]byte(rel))
		digest.Write([]byte{0})
		if err := hashContent(fsys, digest, full); err != nil {
			return err
		}
		digest.Write([]byte{0})
	}
	// sockets, devices and other specials never occur in skill trees
	// and contribute nothing, matching the three disjoint rules
	return nil
}

func hashContent(fsys types.FS, digest hash.Hash, full string) error {
	f, err := fsys.Open(full)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFingerprint, "cannot open %s", full)
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(digest, f, buf); err != nil {
		return errors.Wrapf(err, errors.ErrFingerprint, "cannot read %s", full)
	}
	return nil
}
