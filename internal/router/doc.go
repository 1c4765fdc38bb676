// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package router decides which view the user may see.
//
// A Table declares every route and its Policy. The Guard evaluates one
// attempted transition against that policy in a fixed order and returns
// Allow or Redirect:
//
//  1. protected route without a token: redirect to login
//  2. login or register with a token: redirect to the landing route
//  3. role-restricted route: fetch the current user; a failed fetch sends
//     the user to login, a role mismatch to the landing route
//  4. protected route without a PIN exemption: fetch the PIN status and
//     send users without a PIN to enrollment; a failed fetch is ignored
//  5. allow
//
// The Navigator owns the current route. It follows redirects through the
// Guard until a route is allowed, then commits it.
package router
