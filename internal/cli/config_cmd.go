// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration inspection and editing.
//
// Command: config [show|set|path]
package cli

import (
	"fmt"
	"strconv"

	"github.com/morganforge/pixelfeed/internal/config"
)

// HandleConfig dispatches the config subcommands.
func HandleConfig(app *App, args *ArgParser) error {
	switch args.Subcommand() {
	case "", "show":
		return configShow(app)
	case "set":
		return configSet(app, args)
	case "path":
		path, err := config.PathTOML()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	default:
		return fmt.Errorf("unknown config subcommand: %s", args.Subcommand())
	}
}

func configShow(app *App) error {
	cfg := app.Config
	fmt.Println("Configuration")
	fmt.Printf("  api.base_url                     %s\n", cfg.API.BaseURL)
	fmt.Printf("  api.timeout_secs                 %d\n", cfg.API.TimeoutSecs)
	fmt.Printf("  security.max_login_attempts      %d\n", cfg.Security.MaxLoginAttempts)
	fmt.Printf("  security.warn_after_attempts     %d\n", cfg.Security.WarnAfterAttempts)
	fmt.Printf("  security.lockout_duration_minutes %d\n", cfg.Security.LockoutDurationMinutes)
	fmt.Printf("  security.audit_enabled           %t\n", cfg.Security.AuditEnabled)
	fmt.Printf("  session.remember_days            %d\n", cfg.Session.RememberDays)
	fmt.Printf("  session.logout_grace_minutes     %d\n", cfg.Session.LogoutGraceMinutes)
	fmt.Printf("  storage.dir                      %s\n", cfg.Storage.Dir)
	return nil
}

func configSet(app *App, args *ArgParser) error {
	key := args.Positional(1)
	value := args.Positional(2)
	if key == "" || value == "" {
		return fmt.Errorf("usage: config set <key> <value>")
	}

	cfg := app.Config
	switch key {
	case "api.base_url":
		cfg.API.BaseURL = value
	case "api.timeout_secs":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %s", key, value)
		}
		cfg.API.TimeoutSecs = n
	case "security.audit_enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %s", key, value)
		}
		cfg.Security.AuditEnabled = b
	case "session.remember_days":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %s", key, value)
		}
		cfg.Session.RememberDays = n
	default:
		return fmt.Errorf("unknown or read-only config key: %s", key)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("rejected: %w", err)
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	fmt.Printf("Set %s = %s\n", key, value)
	return nil
}
