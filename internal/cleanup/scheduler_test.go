package cleanup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0644))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestSweepRemovesOnlyOldClips(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	touch(t, filepath.Join(dir, "old.wav"), now.Add(-2*time.Hour))
	touch(t, filepath.Join(dir, "fresh.wav"), now.Add(-5*time.Minute))
	touch(t, filepath.Join(dir, ".keep"), now.Add(-48*time.Hour))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))

	s := NewScheduler(dir, 15, 60)
	assert.Equal(t, 1, s.Sweep(now))

	assert.NoFileExists(t, filepath.Join(dir, "old.wav"))
	assert.FileExists(t, filepath.Join(dir, "fresh.wav"))
	assert.FileExists(t, filepath.Join(dir, ".keep"))
	assert.DirExists(t, filepath.Join(dir, "nested"))
}

func TestSweepMissingDir(t *testing.T) {
	s := NewScheduler(filepath.Join(t.TempDir(), "absent"), 15, 60)
	assert.Equal(t, 0, s.Sweep(time.Now()))
}

func TestStartStop(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "stale.wav"), time.Now().Add(-3*time.Hour))

	s := NewScheduler(dir, 0, 60)
	s.Start()
	s.Stop()

	assert.NoFileExists(t, filepath.Join(dir, "stale.wav"))
}

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()
	a, b := filepath.Join(root, "a"), filepath.Join(root, "b", "c")
	require.NoError(t, EnsureDirs(a, b))
	assert.DirExists(t, a)
	assert.DirExists(t, b)
}
