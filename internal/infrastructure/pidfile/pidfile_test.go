package pidfile_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/robofleet/internal/infrastructure/pidfile"
)

func TestPIDFile_AcquireAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robofleet.pid")
	pf := pidfile.New(path)

	require.NoError(t, pf.Acquire())
	owner, ok, err := pf.Owner()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, os.Getpid(), owner)

	require.NoError(t, pf.Release())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestPIDFile_RefusesLiveOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robofleet.pid")
	// the parent process is alive for as long as the test runs
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getppid())), 0o644))

	err := pidfile.New(path).Acquire()

	assert.ErrorIs(t, err, pidfile.ErrAlreadyRunning)
}

func TestPIDFile_ReplacesGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robofleet.pid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0o644))
	pf := pidfile.New(path)

	require.NoError(t, pf.Acquire())

	owner, ok, err := pf.Owner()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, os.Getpid(), owner)
}

func TestPIDFile_ReleaseKeepsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robofleet.pid")
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getppid())), 0o644))

	require.NoError(t, pidfile.New(path).Release())

	_, err := os.Stat(path)
	assert.NoError(t, err)
}
