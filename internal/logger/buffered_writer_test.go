package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedFileWriterFlushAndClose(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.log")
	w, err := NewBufferedFileWriter(path, WithFlushInterval(0))
	require.NoError(t, err)

	_, err = w.Write([]byte("line one\n"))
	require.NoError(t, err)
	assert.Positive(t, w.Buffered())

	require.NoError(t, w.Flush())
	assert.Zero(t, w.Buffered())

	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "second close is a no-op")

	_, err = w.Write([]byte("late"))
	require.Error(t, err)

	data, err := os.ReadFile(path) //nolint:gosec // test path
	require.NoError(t, err)
	assert.Equal(t, "line one\n", string(data))
}

func TestBufferedFileWriterPermissions(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "perm.log")
	w, err := NewBufferedFileWriter(path, WithBufferSize(16))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(LogFilePermissions), info.Mode().Perm())
	assert.Equal(t, path, w.FilePath())
}
