// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

func (c *Client) CreateSecret(ctx context.Context, req CreateSecretRequest) (*Secret, error) {
	var out Secret
	if err := c.Do(ctx, http.MethodPost, "/v1/secrets", req, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListSecrets(ctx context.Context, req ListSecretsRequest) (*SecretList, error) {
	q := url.Values{}
	if req.SecretType != "" {
		q.Set("secret_type", req.SecretType)
	}
	if req.Page > 0 {
		q.Set("page", strconv.Itoa(req.Page))
	}
	if req.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(req.PageSize))
	}
	var out SecretList
	if err := c.Do(ctx, http.MethodGet, "/v1/secrets", nil, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DecryptSecret asks the service to decrypt one secret with the user's PIN.
func (c *Client) DecryptSecret(ctx context.Context, secretUUID, securityPin string) (*DecryptedSecret, error) {
	var out DecryptedSecret
	body := map[string]string{"security_pin": securityPin}
	if err := c.Do(ctx, http.MethodPost, "/v1/secrets/"+url.PathEscape(secretUUID)+"/decrypt", body, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteSecret(ctx context.Context, secretUUID string) error {
	return c.Do(ctx, http.MethodDelete, "/v1/secrets/"+url.PathEscape(secretUUID), nil, nil, nil)
}

// =============================================================================
// KEYS
// =============================================================================

// CreateEncryptionKey enrolls the security PIN. The recovery key in the
// reply is shown once and never again.
func (c *Client) CreateEncryptionKey(ctx context.Context, securityPin string) (*CreateKeyResponse, error) {
	var out CreateKeyResponse
	body := map[string]string{"security_pin": securityPin}
	if err := c.Do(ctx, http.MethodPost, "/v1/keys/create", body, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) VerifyRecoveryKey(ctx context.Context, mnemonic string) (*RecoveryCheck, error) {
	var out RecoveryCheck
	body := map[string]string{"recovery_mnemonic": mnemonic}
	if err := c.Do(ctx, http.MethodPost, "/v1/keys/verify-recovery", body, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RotateKey(ctx context.Context, securityPin string) (*RotateKeyResponse, error) {
	var out RotateKeyResponse
	body := map[string]string{"security_pin": securityPin}
	if err := c.Do(ctx, http.MethodPost, "/v1/keys/rotate", body, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RotationStatus(ctx context.Context) (*RotationStatus, error) {
	var out RotationStatus
	if err := c.Do(ctx, http.MethodGet, "/v1/keys/rotation-status", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
