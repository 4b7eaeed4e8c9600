package utils

import (
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// RemoveFileNoError will remove the file at the given path if it exists. Any
// errors will be suppressed.
func RemoveFileNoError(path string) {
	utils.UncheckedErrorFunc(func() error {
		if _, err := os.Stat(path); err == nil {
			return os.Remove(path)
		}
		return nil
	})
}

// SafeJoinDir performs a filepath.Join of 'parent' and 'subdir' but returns an error
// if the resulting path points outside of 'parent'.
// See also https://github.com/cyphar/filepath-securejoin.
func SafeJoinDir(parent, subdir string) (string, error) {
	res := filepath.Join(parent, subdir)
	if !strings.HasPrefix(filepath.Clean(res), filepath.Clean(parent)+string(os.PathSeparator)) {
		return res, errors.Errorf("unsafe path join: '%s' with '%s'", parent, subdir)
	}
	return res, nil
}

// WriteFileAtomic writes everything `write` produces to a temporary file next to `path` and
// renames it into place once the data has been synced. Readers either see no file or the whole
// file; on any failure the temporary file is removed and `path` is left untouched.
func WriteFileAtomic(path string, perm os.FileMode, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "cannot create temporary file in %q", dir)
	}
	tmpName := tmp.Name()
	abort := func(err error) error {
		err = multierr.Combine(err, tmp.Close())
		RemoveFileNoError(tmpName)
		return err
	}

	if err := write(tmp); err != nil {
		return abort(err)
	}
	if err := tmp.Sync(); err != nil {
		return abort(errors.Wrapf(err, "cannot sync %q", tmpName))
	}
	if err := tmp.Chmod(perm); err != nil {
		return abort(errors.Wrapf(err, "cannot chmod %q", tmpName))
	}
	if err := tmp.Close(); err != nil {
		RemoveFileNoError(tmpName)
		return errors.Wrapf(err, "cannot close %q", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		RemoveFileNoError(tmpName)
		return errors.Wrapf(err, "cannot move temporary file into %q", path)
	}
	return nil
}

// LocalPath converts a `file://` URI into a filesystem path. Any other input is returned as is.
func LocalPath(uri string) (string, error) {
	if !strings.HasPrefix(uri, "file:") {
		return uri, nil
	}
	parsed, err := url.Parse(uri)
	if err != nil {
		return "", errors.Wrapf(err, "invalid file uri %q", uri)
	}
	if parsed.Path == "" {
		// file:relative/path
		return parsed.Opaque, nil
	}
	return parsed.Path, nil
}

// FileURI turns an absolute filesystem path into a `file://` URI.
func FileURI(path string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

// ReplaceExt swaps the extension of a path (or file URI) for `newExt`, e.g.
// "/tmp/photo.jpg" with "depth.bin" becomes "/tmp/photo.depth.bin".
func ReplaceExt(path, newExt string) string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	return base + "." + strings.TrimPrefix(newExt, ".")
}
