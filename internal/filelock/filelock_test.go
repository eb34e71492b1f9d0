package filelock

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLock_AcquireAndRelease(t *testing.T) {
	lock, err := NewRunLock(filepath.Join(t.TempDir(), "run.lock"))
	require.NoError(t, err)

	acquired, err := lock.TryAcquire()
	require.NoError(t, err)
	assert.True(t, acquired)

	require.NoError(t, lock.Release())

	// Reacquirable after release.
	acquired, err = lock.TryAcquire()
	require.NoError(t, err)
	assert.True(t, acquired)
	require.NoError(t, lock.Release())
}

func TestNewRunLock_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".checkrun", "run.lock")

	lock, err := NewRunLock(path)
	require.NoError(t, err)

	acquired, err := lock.TryAcquire()
	require.NoError(t, err)
	assert.True(t, acquired)
	defer lock.Release()

	_, err = os.Stat(filepath.Dir(path))
	assert.NoError(t, err)
}

func TestAtomicWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")

	require.NoError(t, AtomicWrite(path, []byte("first")))
	require.NoError(t, AtomicWrite(path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestAtomicWrite_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "report.md")

	require.NoError(t, AtomicWrite(path, []byte("content")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestAtomicWrite_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.md")

	require.NoError(t, AtomicWrite(path, []byte("content")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "report.md", entries[0].Name())
}
