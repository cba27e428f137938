package observability_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/omochice/socket-session/internal/config"
	"github.com/omochice/socket-session/internal/observability"
)

func TestSetupLogger_FileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "session.log")
	logger, err := observability.SetupLogger(config.LogConfig{
		Level:   "info",
		Format:  "json",
		Outputs: []string{path},
	})
	require.NoError(t, err)
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	logger.Debug("hidden")
	logger.Info("connected", zap.Int("attempt", 2))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1, "debug entries are below the configured level")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "connected", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.EqualValues(t, 2, entry["attempt"])
}

func TestSetupLogger_RotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rotated.log")
	logger, err := observability.SetupLogger(config.LogConfig{
		Level:    "debug",
		Format:   "console",
		Outputs:  []string{path},
		Rotation: config.RotationConfig{Enable: true, MaxSizeMB: 1},
	})
	require.NoError(t, err)
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	logger.Debug("ping sent")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ping sent")
}

func TestSetupLogger_InvalidLevel(t *testing.T) {
	_, err := observability.SetupLogger(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestSetupLogger_DevelopmentFileHasNoColor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dev.log")
	logger, err := observability.SetupLogger(config.LogConfig{
		Level:       "debug",
		Format:      "console",
		Development: true,
		Outputs:     []string{path},
	})
	require.NoError(t, err)
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	logger.Info("connected")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "INFO")
	assert.NotContains(t, string(data), "\x1b[")
}
