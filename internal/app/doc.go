// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app owns everything with process lifetime: configuration, logger,
// credential store, session state, transport client, navigation guard,
// navigator and journal. The CLI and the TUI each build one App and share
// its policy.
//
// The App is the client's deauthenticator: when the transport sees a
// rejected credential it calls ForceLogout, which clears the session and
// moves the navigator to the login route.
package app
