// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/url"
)

// Login exchanges a username and password for a bearer token. It does not
// store the token; that is the session's job.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.Do(ctx, http.MethodPost, "/v1/auth/login", req, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var out RegisterResponse
	if err := c.Do(ctx, http.MethodPost, "/v1/auth/register", req, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout tells the service to revoke the current token.
func (c *Client) Logout(ctx context.Context) error {
	return c.Do(ctx, http.MethodPost, "/v1/auth/logout", nil, nil, nil)
}

// CurrentUser fetches the authenticated user's snapshot.
func (c *Client) CurrentUser(ctx context.Context) (*UserInfo, error) {
	var out UserInfo
	if err := c.Do(ctx, http.MethodGet, "/v1/auth/current", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SecurityPinStatus asks whether the user has enrolled a security PIN. The
// answer is never cached.
func (c *Client) SecurityPinStatus(ctx context.Context) (*SecurityPinStatus, error) {
	var out SecurityPinStatus
	if err := c.Do(ctx, http.MethodGet, "/v1/auth/security-pin-status", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RefreshToken(ctx context.Context) (*RefreshResponse, error) {
	var out RefreshResponse
	if err := c.Do(ctx, http.MethodPost, "/v1/auth/refresh", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RequestPasswordReset(ctx context.Context, req PasswordResetRequest) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.Do(ctx, http.MethodPost, "/v1/auth/request-password-reset", req, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) VerifyResetToken(ctx context.Context, token string) (*ResetTokenStatus, error) {
	var out ResetTokenStatus
	q := url.Values{"token": {token}}
	if err := c.Do(ctx, http.MethodGet, "/v1/auth/verify-reset-token", nil, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ResetPasswordWithToken(ctx context.Context, req ResetPasswordWithTokenRequest) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.Do(ctx, http.MethodPost, "/v1/auth/reset-password-with-token", req, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResetSecurityPin replaces a forgotten PIN using the recovery mnemonic.
func (c *Client) ResetSecurityPin(ctx context.Context, req ResetSecurityPinRequest) (*ResetSecurityPinResponse, error) {
	var out ResetSecurityPinResponse
	if err := c.Do(ctx, http.MethodPost, "/v1/auth/reset-password", req, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
