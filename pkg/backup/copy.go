package backup

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/arthur-debert/skillsync/pkg/errors"
	"github.com/arthur-debert/skillsync/pkg/types"
)

// RemoveAny deletes whatever occupies path - file, symlink or directory -
// uniformly. A missing path is not an error.
func RemoveAny(fsys types.FS, path string) error {
	info, err := fsys.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return fsys.RemoveAll(path)
	}
	return fsys.Remove(path)
}

// CopyTree copies the directory tree at src to dst verbatim, replacing
// anything already at dst. The src root itself is resolved through
// symlinks, so a link to a directory copies the resolved tree; entries
// inside the tree keep links as links. File modes are preserved.
func CopyTree(fsys types.FS, src, dst string) error {
	if err := RemoveAny(fsys, dst); err != nil {
		return errors.Wrapf(err, errors.ErrApplyFailed, "cannot clear %s", dst)
	}

	info, err := fsys.Stat(src)
	if err != nil {
		return errors.Wrapf(err, errors.ErrApplyFailed, "cannot stat %s", src)
	}
	if !info.IsDir() {
		return errors.Newf(errors.ErrApplyFailed, "not a directory: %s", src)
	}
	return copyDir(fsys, src, dst, info.Mode().Perm())
}

func copyDir(fsys types.FS, src, dst string, perm fs.FileMode) error {
	if err := fsys.MkdirAll(dst, perm); err != nil {
		return errors.Wrapf(err, errors.ErrApplyFailed, "cannot create %s", dst)
	}
	entries, err := fsys.ReadDir(src)
	if err != nil {
		return errors.Wrapf(err, errors.ErrApplyFailed, "cannot read %s", src)
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		info, err := fsys.Lstat(srcPath)
		if err != nil {
			return errors.Wrapf(err, errors.ErrApplyFailed, "cannot stat %s", srcPath)
		}
		mode := info.Mode()
		switch {
		case mode&fs.ModeSymlink != 0:
			target, err := fsys.Readlink(srcPath)
			if err != nil {
				return errors.Wrapf(err, errors.ErrApplyFailed, "cannot read link %s", srcPath)
			}
			if err := fsys.Symlink(target, dstPath); err != nil {
				return errors.Wrapf(err, errors.ErrApplyFailed, "cannot create link %s", dstPath)
			}
		case mode.IsDir():
			if err := copyDir(fsys, srcPath, dstPath, mode.Perm()); err != nil {
				return err
			}
		case mode.IsRegular():
			data, err := fsys.ReadFile(srcPath)
			if err != nil {
				return errors.Wrapf(err, errors.ErrApplyFailed, "cannot read %s", srcPath)
			}
			if err := fsys.WriteFile(dstPath, data, mode.Perm()); err != nil {
				return errors.Wrapf(err, errors.ErrApplyFailed, "cannot write %s", dstPath)
			}
		}
	}
	return nil
}
