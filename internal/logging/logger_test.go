// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLevelFromString(t *testing.T) {
	require.Equal(t, zapcore.DebugLevel, levelFromString("debug"))
	require.Equal(t, zapcore.WarnLevel, levelFromString("warning"))
	require.Equal(t, zapcore.ErrorLevel, levelFromString("error"))
	require.Equal(t, zapcore.InfoLevel, levelFromString("garbage"))
	require.Equal(t, zapcore.InfoLevel, levelFromString(""))
}

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("PIXELFEED_LOG_DEV", "")
	t.Setenv("PIXELFEED_LOG_LEVEL", "")
	t.Setenv("PIXELFEED_LOG_FILE", "")

	cfg := ConfigFromEnv()
	require.Equal(t, "info", cfg.Level)
	require.False(t, cfg.Dev)

	t.Setenv("PIXELFEED_LOG_DEV", "1")
	cfg = ConfigFromEnv()
	require.Equal(t, "debug", cfg.Level)
	require.True(t, cfg.Dev)
}

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pixelfeed.log")

	log, err := Init(Config{Level: "info", Path: path})
	require.NoError(t, err)

	log.Info("session started", zap.String("user", "alice"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), "session started"))
	require.True(t, strings.Contains(string(data), "alice"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
