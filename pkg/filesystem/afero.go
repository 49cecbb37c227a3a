package filesystem

import (
	"io"
	"os"
	"path/filepath"

	"github.com/arthur-debert/mlbuild/pkg/errors"
	"github.com/spf13/afero"
)

// NewMemory creates an in-memory filesystem
func NewMemory() afero.Fs {
	return afero.NewMemMapFs()
}

// CopyFile copies src to dst, creating dst's parent directory and keeping
// the source mode and modification time
func CopyFile(fsys afero.Fs, src, dst string) error {
	info, err := fsys.Stat(src)
	if err != nil {
		return errors.Wrap(err, errors.ErrFileAccess, "cannot stat copy source").
			WithDetail("path", src)
	}
	if info.IsDir() {
		return errors.New(errors.ErrInvalidInput, "copy source is a directory").
			WithDetail("path", src)
	}

	if err := EnsureDir(fsys, filepath.Dir(dst)); err != nil {
		return err
	}

	in, err := fsys.Open(src)
	if err != nil {
		return errors.Wrap(err, errors.ErrFileAccess, "cannot open copy source").
			WithDetail("path", src)
	}
	defer func() { _ = in.Close() }()

	out, err := fsys.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return errors.Wrap(err, errors.ErrFileWrite, "cannot create copy target").
			WithDetail("path", dst)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return errors.Wrap(err, errors.ErrFileWrite, "copy failed").
			WithDetail("source", src).
			WithDetail("path", dst)
	}
	if err := out.Close(); err != nil {
		return errors.Wrap(err, errors.ErrFileWrite, "cannot flush copy target").
			WithDetail("path", dst)
	}

	// Best effort, like cp -p
	_ = fsys.Chtimes(dst, info.ModTime(), info.ModTime())
	return nil
}

// SameFile reports whether a and b refer to the same file. Paths are
// compared after cleaning; on the OS filesystem existing files are also
// compared by identity so symlinked paths match.
func SameFile(fsys afero.Fs, a, b string) bool {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}
	ia, err := fsys.Stat(a)
	if err != nil {
		return false
	}
	ib, err := fsys.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ia, ib)
}

// EnsureDir creates dir and its parents
func EnsureDir(fsys afero.Fs, dir string) error {
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, errors.ErrDirCreate, "cannot create directory").
			WithDetail("path", dir)
	}
	return nil
}

// ResetDir removes dir entirely and recreates it empty
func ResetDir(fsys afero.Fs, dir string) error {
	if err := fsys.RemoveAll(dir); err != nil {
		return errors.Wrap(err, errors.ErrFileWrite, "cannot remove directory").
			WithDetail("path", dir)
	}
	return EnsureDir(fsys, dir)
}

// Exists reports whether path exists
func Exists(fsys afero.Fs, path string) bool {
	_, err := fsys.Stat(path)
	return err == nil
}

// ResolveLinks returns path with every symbolic link resolved. Filesystems
// without links (in-memory trees) return path unchanged.
func ResolveLinks(fsys afero.Fs, path string) (string, error) {
	if _, ok := fsys.(*afero.OsFs); !ok {
		return path, nil
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrFileAccess, "cannot resolve symbolic links").
			WithDetail("path", path)
	}
	return resolved, nil
}

// RemoveIfExists deletes the file at path; a missing file is not an error
func RemoveIfExists(fsys afero.Fs, path string) error {
	if err := fsys.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ErrFileWrite, "cannot remove file").
			WithDetail("path", path)
	}
	return nil
}
