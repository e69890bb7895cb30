package lock

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_AcquireAndRelease(t *testing.T) {
	dir := t.TempDir()
	g := NewGuard(dir)

	require.NoError(t, g.Acquire())
	data, err := os.ReadFile(filepath.Join(dir, PIDFileName))
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))

	g.Release()
	_, err = os.Stat(filepath.Join(dir, PIDFileName))
	assert.True(t, os.IsNotExist(err), "release should remove the pid file")
}

func TestGuard_ReacquireBySameProcess(t *testing.T) {
	g := NewGuard(t.TempDir())
	require.NoError(t, g.Acquire())
	assert.NoError(t, g.Acquire())
}

func TestGuard_Busy(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, PIDFileName), []byte("4242"), 0o644))

	g := NewGuard(dir)
	g.alive = func(pid int) bool { return pid == 4242 }

	err := g.Acquire()
	var busy *BusyError
	require.True(t, errors.As(err, &busy), "err = %v", err)
	assert.Equal(t, 4242, busy.PID)
}

func TestGuard_ReclaimsStaleFile(t *testing.T) {
	for name, content := range map[string]string{
		"dead process": "4242",
		"garbage":      "not-a-pid",
	} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, PIDFileName), []byte(content), 0o644))

			g := NewGuard(dir)
			g.alive = func(int) bool { return false }
			require.NoError(t, g.Acquire())

			data, err := os.ReadFile(filepath.Join(dir, PIDFileName))
			require.NoError(t, err)
			assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))
		})
	}
}

func TestGuard_ReleaseKeepsForeignFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, PIDFileName)
	require.NoError(t, os.WriteFile(path, []byte("4242"), 0o644))

	NewGuard(dir).Release()
	_, err := os.Stat(path)
	assert.NoError(t, err, "a file owned by another process must survive")
}

func TestProcessExists(t *testing.T) {
	assert.True(t, processExists(os.Getpid()))
	assert.False(t, processExists(0))
}
