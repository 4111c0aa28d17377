// Package testutil builds Python project fixtures for tests, in memory or on
// disk.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// MemFS returns an empty in-memory filesystem.
func MemFS() afero.Fs {
	return afero.NewMemMapFs()
}

// WriteFile creates path on fs, parents included.
func WriteFile(t testing.TB, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

// CreateFileTree writes files, keyed by slash-separated path relative to root.
func CreateFileTree(t testing.TB, fs afero.Fs, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		WriteFile(t, fs, filepath.Join(root, filepath.FromSlash(rel)), content)
	}
}

// OSTree writes files into a fresh temporary directory and returns its path.
func OSTree(t testing.TB, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	CreateFileTree(t, afero.NewOsFs(), root, files)
	return root
}
