// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
}

func TestDefaultPolicyValues(t *testing.T) {
	cfg := Default()
	require.Equal(t, 5, cfg.Security.MaxLoginAttempts)
	require.Equal(t, 3, cfg.Security.WarnAfterAttempts)
	require.Equal(t, 5, cfg.Security.LockoutDurationMinutes)
	require.Equal(t, 5, cfg.Security.AttemptWindowMinutes)
	require.Equal(t, 30, cfg.Session.RememberDays)
	require.Equal(t, 20, cfg.Session.LogoutGraceMinutes)
}

func TestLoadFromPathTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
version = "1.0.0"

[api]
base_url = "http://api.example.test:3000"
timeout_secs = 30

[security]
max_login_attempts = 4
warn_after_attempts = 2
lockout_duration_minutes = 10

[storage]
dir = "` + dir + `"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, "http://api.example.test:3000", cfg.API.BaseURL)
	require.Equal(t, 30, cfg.API.TimeoutSecs)
	require.Equal(t, 4, cfg.Security.MaxLoginAttempts)
	require.Equal(t, 10, cfg.Security.LockoutDurationMinutes)
	// Unset fields fall back to defaults.
	require.Equal(t, 5, cfg.Security.AttemptWindowMinutes)
	require.Equal(t, 30, cfg.Session.RememberDays)
	require.Equal(t, filepath.Join(dir, "audit.log"), cfg.Security.AuditLogPath)
}

func TestLoadFromPathJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{"api": {"base_url": "http://127.0.0.1:4000"}, "storage": {"dir": "` + dir + `"}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:4000", cfg.API.BaseURL)
	require.Equal(t, filepath.Join(dir, "pixelfeed.db"), cfg.DatabasePath())
}

func TestExplicitZeroLogoutGraceSurvivesLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[session]
logout_grace_minutes = 0

[storage]
dir = "` + dir + `"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, 0, cfg.Session.LogoutGraceMinutes)

	// An absent key still carries the default.
	require.NoError(t, os.WriteFile(path, []byte(`[storage]
dir = "`+dir+`"
`), 0600))
	cfg, err = LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, 20, cfg.Session.LogoutGraceMinutes)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad url", func(c *Config) { c.API.BaseURL = "not a url" }, "api.base_url"},
		{"timeout too high", func(c *Config) { c.API.TimeoutSecs = 600 }, "api.timeout_secs"},
		{"attempts too low", func(c *Config) { c.Security.MaxLoginAttempts = 1 }, "security.max_login_attempts"},
		{"warn above max", func(c *Config) { c.Security.WarnAfterAttempts = 9 }, "security.warn_after_attempts"},
		{"lockout too long", func(c *Config) { c.Security.LockoutDurationMinutes = 120 }, "security.lockout_duration_minutes"},
		{"remember too long", func(c *Config) { c.Session.RememberDays = 1000 }, "session.remember_days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.SetDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("PIXELFEED_API_URL", "http://env.example.test")
	t.Setenv("PIXELFEED_AUDIT", "false")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	require.Equal(t, "http://env.example.test", cfg.API.BaseURL)
	require.False(t, cfg.Security.AuditEnabled)
}

func TestSaveAndReloadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.API.BaseURL = "http://roundtrip.test"
	cfg.Storage.Dir = dir
	require.NoError(t, SaveTOML(cfg, path))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, "http://roundtrip.test", loaded.API.BaseURL)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestSaveJSONAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Default()
	cfg.Storage.Dir = dir
	require.NoError(t, SaveJSON(cfg, path))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, cfg.API.BaseURL, loaded.API.BaseURL)
}
