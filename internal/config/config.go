// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/morganforge/pixelfeed/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete pixelfeed configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// API configuration for the remote directory and feed endpoints
	API APIConfig `toml:"api" json:"api"`

	// Security configuration (lockout policy, audit log)
	Security SecurityConfig `toml:"security" json:"security"`

	// Session configuration (remember-me and logout grace windows)
	Session SessionConfig `toml:"session" json:"session"`

	// Storage configuration (local persisted state)
	Storage StorageConfig `toml:"storage" json:"storage"`
}

// APIConfig contains settings for the remote REST API.
type APIConfig struct {
	// BaseURL is the json-server style API root (default: http://127.0.0.1:3000)
	BaseURL string `toml:"base_url" json:"base_url"`
	// TimeoutSecs is the per-request timeout in seconds
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// RequestsPerSecond throttles outbound calls (0 = unlimited)
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
}

// SecurityConfig contains the progressive lockout policy.
type SecurityConfig struct {
	// MaxLoginAttempts is the failed-attempt count that triggers a lock.
	MaxLoginAttempts int `toml:"max_login_attempts" json:"max_login_attempts"`
	// WarnAfterAttempts is the count at which warnings start.
	WarnAfterAttempts int `toml:"warn_after_attempts" json:"warn_after_attempts"`
	// LockoutDurationMinutes is how long an account stays locked.
	LockoutDurationMinutes int `toml:"lockout_duration_minutes" json:"lockout_duration_minutes"`
	// AttemptWindowMinutes is the rolling window after which idle
	// failed-attempt counters reset.
	AttemptWindowMinutes int `toml:"attempt_window_minutes" json:"attempt_window_minutes"`
	// AuditEnabled enables the auth audit log.
	AuditEnabled bool `toml:"audit_enabled" json:"audit_enabled"`
	// AuditLogPath is the audit log file (empty = <storage.dir>/audit.log).
	AuditLogPath string `toml:"audit_log_path" json:"audit_log_path"`
}

// SessionConfig contains session persistence settings.
type SessionConfig struct {
	// RememberDays is how long a remembered session persists.
	RememberDays int `toml:"remember_days" json:"remember_days"`
	// LogoutGraceMinutes is how long the identity entry survives after an
	// explicit logout. The session itself ends immediately; the grace window
	// only keeps the profile data around for a quick re-login. Zero removes
	// the identity immediately.
	LogoutGraceMinutes int `toml:"logout_grace_minutes" json:"logout_grace_minutes"`
}

// StorageConfig contains local persistence settings.
type StorageConfig struct {
	// Dir is the state directory (default: ~/.pixelfeed)
	Dir string `toml:"dir" json:"dir"`
	// DatabaseFile is the KV store file inside Dir.
	DatabaseFile string `toml:"database_file" json:"database_file"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		API: APIConfig{
			BaseURL:           "http://127.0.0.1:3000",
			TimeoutSecs:       15,
			RequestsPerSecond: 10,
		},

		Security: SecurityConfig{
			MaxLoginAttempts:       5,
			WarnAfterAttempts:      3,
			LockoutDurationMinutes: 5,
			AttemptWindowMinutes:   5,
			AuditEnabled:           true,
		},

		Session: SessionConfig{
			RememberDays:       30,
			LogoutGraceMinutes: 20,
		},

		Storage: StorageConfig{
			DatabaseFile: "pixelfeed.db",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// Dir returns the pixelfeed configuration directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".pixelfeed"), nil
}

// PathTOML returns the path to the TOML config file.
func PathTOML() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// PathJSON returns the path to the JSON config file.
func PathJSON() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureDir ensures the config directory exists.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// A .env file in the working directory is honored, then environment
// overrides are applied last.
func Load() (*Config, error) {
	// Best effort; a missing .env is the normal case.
	_ = godotenv.Load()

	cfg := Default()

	tomlPath, err := PathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := loadTOML(cfg, tomlPath); err != nil {
				return nil, fmt.Errorf("failed to load TOML config: %w", err)
			}
			return finish(cfg)
		}
	}

	jsonPath, err := PathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := loadJSON(cfg, jsonPath); err != nil {
				return nil, fmt.Errorf("failed to load JSON config: %w", err)
			}
			return finish(cfg)
		}
	}

	return finish(cfg)
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := loadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := loadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finish(cfg)
}

// finish applies env overrides, defaults and validation in load order.
func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

func loadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := PathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Config files are created 0600 (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# pixelfeed configuration file")
	fmt.Fprintln(file, "# Generated by pixelfeed - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// SaveJSON saves the configuration to a JSON file.
// RELIABILITY: Atomic write with fsync prevents data loss on crash.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.API.BaseURL != "" {
		u, err := url.Parse(c.API.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "api.base_url",
				Message: fmt.Sprintf("invalid URL '%s'", c.API.BaseURL),
			})
		}
	}
	if c.API.TimeoutSecs < 1 || c.API.TimeoutSecs > 120 {
		errs = append(errs, ValidationError{
			Field:   "api.timeout_secs",
			Message: fmt.Sprintf("must be 1-120, got %d", c.API.TimeoutSecs),
		})
	}
	if c.API.RequestsPerSecond < 0 {
		errs = append(errs, ValidationError{
			Field:   "api.requests_per_second",
			Message: "must be non-negative",
		})
	}

	if c.Security.MaxLoginAttempts < 3 || c.Security.MaxLoginAttempts > 10 {
		errs = append(errs, ValidationError{
			Field:   "security.max_login_attempts",
			Message: fmt.Sprintf("must be 3-10, got %d", c.Security.MaxLoginAttempts),
		})
	}
	if c.Security.WarnAfterAttempts < 1 || c.Security.WarnAfterAttempts >= c.Security.MaxLoginAttempts {
		errs = append(errs, ValidationError{
			Field:   "security.warn_after_attempts",
			Message: fmt.Sprintf("must be between 1 and max_login_attempts-1, got %d", c.Security.WarnAfterAttempts),
		})
	}
	if c.Security.LockoutDurationMinutes < 1 || c.Security.LockoutDurationMinutes > 60 {
		errs = append(errs, ValidationError{
			Field:   "security.lockout_duration_minutes",
			Message: fmt.Sprintf("must be 1-60, got %d", c.Security.LockoutDurationMinutes),
		})
	}
	if c.Security.AttemptWindowMinutes < 1 || c.Security.AttemptWindowMinutes > 60 {
		errs = append(errs, ValidationError{
			Field:   "security.attempt_window_minutes",
			Message: fmt.Sprintf("must be 1-60, got %d", c.Security.AttemptWindowMinutes),
		})
	}

	if c.Session.RememberDays < 1 || c.Session.RememberDays > 365 {
		errs = append(errs, ValidationError{
			Field:   "session.remember_days",
			Message: fmt.Sprintf("must be 1-365, got %d", c.Session.RememberDays),
		})
	}
	if c.Session.LogoutGraceMinutes < 0 || c.Session.LogoutGraceMinutes > 1440 {
		errs = append(errs, ValidationError{
			Field:   "session.logout_grace_minutes",
			Message: fmt.Sprintf("must be 0-1440, got %d", c.Session.LogoutGraceMinutes),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}

	if c.API.BaseURL == "" {
		c.API.BaseURL = defaults.API.BaseURL
	}
	if c.API.TimeoutSecs == 0 {
		c.API.TimeoutSecs = defaults.API.TimeoutSecs
	}

	if c.Security.MaxLoginAttempts == 0 {
		c.Security.MaxLoginAttempts = defaults.Security.MaxLoginAttempts
	}
	if c.Security.WarnAfterAttempts == 0 {
		c.Security.WarnAfterAttempts = defaults.Security.WarnAfterAttempts
	}
	if c.Security.LockoutDurationMinutes == 0 {
		c.Security.LockoutDurationMinutes = defaults.Security.LockoutDurationMinutes
	}
	if c.Security.AttemptWindowMinutes == 0 {
		c.Security.AttemptWindowMinutes = defaults.Security.AttemptWindowMinutes
	}

	if c.Session.RememberDays == 0 {
		c.Session.RememberDays = defaults.Session.RememberDays
	}
	// LogoutGraceMinutes is deliberately not defaulted here: zero is a valid
	// setting (remove the identity immediately on logout). Loading starts
	// from Default(), so an absent key already carries 20.
	if c.Session.LogoutGraceMinutes < 0 {
		c.Session.LogoutGraceMinutes = defaults.Session.LogoutGraceMinutes
	}

	if c.Storage.Dir == "" {
		if dir, err := Dir(); err == nil {
			c.Storage.Dir = dir
		}
	}
	if c.Storage.DatabaseFile == "" {
		c.Storage.DatabaseFile = defaults.Storage.DatabaseFile
	}
	if c.Security.AuditLogPath == "" && c.Storage.Dir != "" {
		c.Security.AuditLogPath = filepath.Join(c.Storage.Dir, "audit.log")
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - PIXELFEED_API_URL: overrides api.base_url
//   - PIXELFEED_STORAGE_DIR: overrides storage.dir
//   - PIXELFEED_AUDIT: set to "0" or "false" to disable audit logging
func (c *Config) ApplyEnvOverrides() {
	if apiURL := os.Getenv("PIXELFEED_API_URL"); apiURL != "" {
		c.API.BaseURL = apiURL
	}
	if dir := os.Getenv("PIXELFEED_STORAGE_DIR"); dir != "" {
		c.Storage.Dir = dir
	}
	if audit := os.Getenv("PIXELFEED_AUDIT"); audit != "" {
		c.Security.AuditEnabled = audit != "0" && strings.ToLower(audit) != "false"
	}
}

// DatabasePath returns the full path of the KV store database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Storage.Dir, c.Storage.DatabaseFile)
}
