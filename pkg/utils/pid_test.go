package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIDManager(t *testing.T) {
	tmpDir := t.TempDir()
	pidFile := filepath.Join(tmpDir, "run", "test.pid")

	t.Run("NewPIDManager", func(t *testing.T) {
		manager := NewPIDManager(pidFile)
		assert.Equal(t, pidFile, manager.GetPIDFile())
	})

	t.Run("WriteAndReadPID", func(t *testing.T) {
		manager := NewPIDManager(pidFile)
		require.NoError(t, manager.WritePID())

		pid, err := manager.ReadPID()
		require.NoError(t, err)
		assert.Equal(t, os.Getpid(), pid)

		_, err = os.Stat(pidFile + ".tmp")
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("RemovePID", func(t *testing.T) {
		manager := NewPIDManager(pidFile)
		require.NoError(t, manager.WritePID())
		require.NoError(t, manager.RemovePID())

		_, err := os.Stat(pidFile)
		assert.True(t, os.IsNotExist(err))

		// removing twice is fine
		assert.NoError(t, manager.RemovePID())
	})

	t.Run("ReadPIDInvalid", func(t *testing.T) {
		bad := filepath.Join(tmpDir, "bad.pid")
		require.NoError(t, os.WriteFile(bad, []byte("not-a-pid"), 0644))
		_, err := NewPIDManager(bad).ReadPID()
		assert.Error(t, err)
	})

	t.Run("ReadPIDMissing", func(t *testing.T) {
		_, err := NewPIDManager(filepath.Join(tmpDir, "none.pid")).ReadPID()
		assert.Error(t, err)
	})
}
