// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for pixelfeed.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// optional .env loading, environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.pixelfeed/config.toml
//   - ~/.pixelfeed/config.json
//   - Built-in defaults
package config
