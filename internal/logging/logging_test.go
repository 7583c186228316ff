package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAppendsWithSurface(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "flowdo.log")

	log, closer, err := Open(path, slog.LevelInfo, "daemon")
	require.NoError(t, err)
	log.Debug("hidden")
	log.Info("reminder scheduled", "task", "abc")
	require.NoError(t, closer.Close())

	log, closer, err = Open(path, slog.LevelDebug, "tui")
	require.NoError(t, err)
	log.Debug("visible")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `msg="reminder scheduled"`)
	assert.Contains(t, out, "surface=daemon")
	assert.Contains(t, out, "task=abc")
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "surface=tui")
	assert.Contains(t, out, "msg=visible")
}
