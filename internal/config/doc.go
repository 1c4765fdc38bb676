// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for vaulthub.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// .env and environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - APIConfig: Service endpoint, timeout, rate limit and envelope codes
//   - CredentialConfig: Where the bearer token slot lives
//   - RoutesConfig: The login, register, landing and enrollment routes
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (VAULTHUB_*), including a .env file
//   - The file named by --config or VAULTHUB_CONFIG
//   - ~/.vaulthub/config.toml
//   - ~/.vaulthub/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	timeout := cfg.API.Timeout()
package config
