// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the client's authentication state.
//
// State mirrors the credential store in memory: whether a user is logged in
// and, once fetched, who that user is. It changes only through Login and
// Logout, and a current-user snapshot is never reported without a token.
//
// IdleTracker logs the user out after a period without input. It drives
// itself with Bubble Tea tick messages.
//
// # Usage
//
//	st := session.New(store, log)
//	if err := st.Load(ctx); err != nil {
//		return err
//	}
//	if !st.IsAuthenticated() {
//		// show the login view
//	}
package session
