// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the vaulthub command tree.
//
// Every command that talks to the service is bound to a route of the client
// and runs the same navigation guard the TUI runs before doing anything, so
// both front ends enforce one access policy. A command whose route the guard
// redirects away from fails with a GuardError naming the reason.
//
// # Commands Overview
//
// Session:
//   - login, logout, register, whoami, refresh
//   - password-reset request|verify|confirm
//   - pin status|setup|reset
//
// Vault:
//   - secrets list|create|decrypt|delete
//   - keys verify-recovery|rotate|rotation-status
//
// Administration:
//   - users, audit, stats, profile, sysconfig, email
//
// Local:
//   - routes, history, config, tui, version
//
// All commands support --json for machine-readable output. Human-readable
// notices go to stderr in that mode.
package cli
