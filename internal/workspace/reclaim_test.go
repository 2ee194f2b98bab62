package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoveStale(t *testing.T) {
	root := t.TempDir()

	fileWithPrefix, err := os.CreateTemp(root, TempDirPrefix)
	require.NoError(t, err)
	require.NoError(t, fileWithPrefix.Close())

	dirWithPrefix, err := os.MkdirTemp(root, TempDirPrefix)
	require.NoError(t, err)
	fileInside := filepath.Join(dirWithPrefix, "some_file_name")
	require.NoError(t, os.WriteFile(fileInside, []byte("x"), 0o600))

	otherFile, err := os.CreateTemp(root, "other")
	require.NoError(t, err)
	require.NoError(t, otherFile.Close())

	otherDir, err := os.MkdirTemp(root, "other")
	require.NoError(t, err)

	removed, err := RemoveStale(root, TempDirPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{dirWithPrefix}, removed)

	assert.NoDirExists(t, dirWithPrefix)
	assert.NoFileExists(t, fileInside)

	assert.FileExists(t, fileWithPrefix.Name())
	assert.FileExists(t, otherFile.Name())
	assert.DirExists(t, otherDir)
}

func TestRemoveStaleMissingRoot(t *testing.T) {
	_, err := RemoveStale(filepath.Join(t.TempDir(), "missing"), TempDirPrefix)
	assert.Error(t, err)
}

func TestRemoveStaleEphemeralWorkspace(t *testing.T) {
	root := t.TempDir()
	mgr := NewManager(root)
	require.NoError(t, mgr.Create())

	removed, err := RemoveStale(root, TempDirPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{mgr.GetPath()}, removed)
}
