// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui is the interactive terminal client.
//
// Every screen is bound to a route. Moving between screens goes through the
// App's navigator, so the same guard that protects CLI commands decides what
// the UI may show. Redirects committed elsewhere, like the forced return to
// the login screen after the service rejects the session, arrive as messages
// through a bridge registered with the navigator and the notifier.
//
// Keys:
//
//	ctrl+n   route menu (logged in)
//	ctrl+l   log out
//	x        dismiss the newest notice
//	q        quit (outside text inputs)
//	ctrl+c   quit
package ui
