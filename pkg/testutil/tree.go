package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// NewMemTree creates an in-memory filesystem holding files. Keys are
// absolute slash-separated paths; a key ending in "/" creates an empty
// directory.
func NewMemTree(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	WriteTree(t, fsys, "", files)
	return fsys
}

// NewDiskTree writes files under a fresh temporary directory and returns
// its path. Keys are relative slash-separated paths.
func NewDiskTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	WriteTree(t, afero.NewOsFs(), root, files)
	return root
}

// WriteTree writes files into fsys below base
func WriteTree(t *testing.T, fsys afero.Fs, base string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(base, filepath.FromSlash(name))
		if strings.HasSuffix(name, "/") {
			require.NoError(t, fsys.MkdirAll(path, 0755))
			continue
		}
		require.NoError(t, fsys.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, afero.WriteFile(fsys, path, []byte(content), 0644))
	}
}

// ReadFile returns the content of path, failing the test if it is missing
func ReadFile(t *testing.T, fsys afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fsys, path)
	require.NoError(t, err)
	return string(data)
}

// AssertMissing fails the test if path exists
func AssertMissing(t *testing.T, fsys afero.Fs, path string) {
	t.Helper()
	_, err := fsys.Stat(path)
	require.True(t, os.IsNotExist(err), "expected %s to be missing", path)
}
