package objfile

import (
	"github.com/arthur-debert/mlbuild/pkg/errors"
	"github.com/spf13/afero"
)

// ReadFile decodes the object stored at path
func ReadFile(fsys afero.Fs, path string) (*Object, error) {
	b, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot read object %s", path).
			WithDetail("path", path)
	}
	obj, err := Decode(b)
	if err != nil {
		return nil, withPath(err, path)
	}
	return obj, nil
}

// WriteFile encodes obj to path
func WriteFile(fsys afero.Fs, path string, obj *Object) error {
	b, err := Encode(obj)
	if err != nil {
		return withPath(err, path)
	}
	if err := afero.WriteFile(fsys, path, b, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot write object %s", path).
			WithDetail("path", path)
	}
	return nil
}

func withPath(err error, path string) error {
	if mlErr, ok := err.(*errors.MlbuildError); ok {
		return mlErr.WithDetail("path", path)
	}
	return err
}
