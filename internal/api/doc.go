// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the transport client for the VaultHub service.
//
// All calls pass through Client.Send, which attaches the stored bearer
// token, unwraps the {code, data, message} envelope and turns every failure
// into an *Error with a Kind. When the service rejects the credential,
// either with envelope code 401 or HTTP 401, the client announces the
// expired session and runs its Deauthenticator before returning
// ErrAuthentication.
//
// # Usage
//
//	client := api.New(cfg.API.BaseURL, store).
//		WithTimeout(10 * time.Second).
//		WithNotifier(notifier).
//		WithDeauthenticator(app)
//
//	user, err := client.CurrentUser(ctx)
//	if errors.Is(err, api.ErrAuthentication) {
//		// already logged out and redirected
//	}
package api
