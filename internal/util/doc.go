// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the vaulthub client.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: crash-safe write used for the token slot and config
//   - RemoveIfExists: delete that treats a missing file as success
//
// Display:
//   - Truncate: display-width aware truncation with an ellipsis
//   - PadRight: pad to a display width for aligned columns
//   - Fingerprint: short non-reversible tag for secrets in logs
//
// # Usage
//
//	err := util.AtomicWriteFile(path, []byte(token), 0600, 0700)
//	cell := util.Truncate(name, 24)
package util
