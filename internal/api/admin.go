// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

func pageQuery(page, pageSize int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("page_size", strconv.Itoa(pageSize))
	}
	return q
}

// =============================================================================
// USERS
// =============================================================================

func (c *Client) ListUsers(ctx context.Context, page, pageSize int) (*UserList, error) {
	var out UserList
	if err := c.Do(ctx, http.MethodGet, "/v1/users", nil, pageQuery(page, pageSize), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetUser(ctx context.Context, uuid string) (*UserInfo, error) {
	var out UserInfo
	if err := c.Do(ctx, http.MethodGet, "/v1/users/"+url.PathEscape(uuid), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (*UserInfo, error) {
	var out UserInfo
	if err := c.Do(ctx, http.MethodPost, "/v1/users", req, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateUser(ctx context.Context, uuid string, req UpdateUserRequest) (*UserInfo, error) {
	var out UserInfo
	if err := c.Do(ctx, http.MethodPut, "/v1/users/"+url.PathEscape(uuid), req, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteUser(ctx context.Context, uuid string) error {
	return c.Do(ctx, http.MethodDelete, "/v1/users/"+url.PathEscape(uuid), nil, nil, nil)
}

func (c *Client) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	return c.Do(ctx, http.MethodPost, "/v1/users/change-password", req, nil, nil)
}

// =============================================================================
// AUDIT AND STATISTICS
// =============================================================================

func (q AuditQuery) values() url.Values {
	v := pageQuery(q.Page, q.PageSize)
	set := func(k, s string) {
		if s != "" {
			v.Set(k, s)
		}
	}
	set("user_uuid", q.UserUUID)
	set("action_type", q.ActionType)
	set("resource_type", q.ResourceType)
	set("status", q.Status)
	if !q.StartTime.IsZero() {
		v.Set("start_time", q.StartTime.Format(time.RFC3339))
	}
	if !q.EndTime.IsZero() {
		v.Set("end_time", q.EndTime.Format(time.RFC3339))
	}
	return v
}

func (c *Client) AuditLogs(ctx context.Context, q AuditQuery) (*AuditLogList, error) {
	var out AuditLogList
	if err := c.Do(ctx, http.MethodGet, "/v1/audit/logs", nil, q.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ExportSecretStats(ctx context.Context, q AuditQuery) (*SecretsExport, error) {
	var out SecretsExport
	if err := c.Do(ctx, http.MethodGet, "/v1/audit/logs/export", nil, q.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ExportOperations(ctx context.Context, q AuditQuery) (*OperationsExport, error) {
	var out OperationsExport
	if err := c.Do(ctx, http.MethodGet, "/v1/audit/operations/export", nil, q.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CurrentStatistics returns live counters. An empty userUUID means the
// caller.
func (c *Client) CurrentStatistics(ctx context.Context, userUUID string) (*CurrentStatistics, error) {
	var q url.Values
	if userUUID != "" {
		q = url.Values{"user_uuid": {userUUID}}
	}
	var out CurrentStatistics
	if err := c.Do(ctx, http.MethodGet, "/v1/statistics/current", nil, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UserStatistics(ctx context.Context, statType string, start, end time.Time) ([]DailyStatistics, error) {
	q := url.Values{}
	if statType != "" {
		q.Set("stat_type", statType)
	}
	if !start.IsZero() {
		q.Set("start_date", start.Format("2006-01-02"))
	}
	if !end.IsZero() {
		q.Set("end_date", end.Format("2006-01-02"))
	}
	var out []DailyStatistics
	if err := c.Do(ctx, http.MethodGet, "/v1/statistics/user", nil, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// =============================================================================
// PROFILE
// =============================================================================

func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	var out Profile
	if err := c.Do(ctx, http.MethodGet, "/v1/profile", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateProfile(ctx context.Context, p Profile) (*Profile, error) {
	return c.writeProfile(ctx, http.MethodPost, "/v1/profile", p)
}

func (c *Client) UpdateProfile(ctx context.Context, p Profile) (*Profile, error) {
	return c.writeProfile(ctx, http.MethodPut, "/v1/profile", p)
}

// PatchProfile sends only the given fields.
func (c *Client) PatchProfile(ctx context.Context, fields map[string]string) (*Profile, error) {
	var out Profile
	if err := c.Do(ctx, http.MethodPatch, "/v1/profile", fields, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteProfile(ctx context.Context) error {
	return c.Do(ctx, http.MethodDelete, "/v1/profile", nil, nil, nil)
}

func (c *Client) ListProfiles(ctx context.Context, page, pageSize int) (*ProfileList, error) {
	var out ProfileList
	if err := c.Do(ctx, http.MethodGet, "/v1/admin/profiles", nil, pageQuery(page, pageSize), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetUserProfile(ctx context.Context, userID uint) (*Profile, error) {
	var out Profile
	path := "/v1/admin/users/" + strconv.FormatUint(uint64(userID), 10) + "/profile"
	if err := c.Do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateUserProfile(ctx context.Context, userID uint, p Profile) (*Profile, error) {
	path := "/v1/admin/users/" + strconv.FormatUint(uint64(userID), 10) + "/profile"
	return c.writeProfile(ctx, http.MethodPut, path, p)
}

func (c *Client) writeProfile(ctx context.Context, method, path string, p Profile) (*Profile, error) {
	body := map[string]string{"nickname": p.Nickname, "phone": p.Phone, "email": p.Email}
	var out Profile
	if err := c.Do(ctx, method, path, body, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// EMAIL
// =============================================================================

// Email code purposes.
const (
	PurposeRegister      = "register"
	PurposeLogin         = "login"
	PurposeResetPassword = "reset_password"
	PurposeChangeEmail   = "change_email"
)

// Purposes lists the accepted email code purposes.
var Purposes = []string{PurposeRegister, PurposeLogin, PurposeResetPassword, PurposeChangeEmail}

func (c *Client) SendEmailCode(ctx context.Context, email, purpose string) error {
	body := map[string]string{"email": email, "purpose": purpose}
	return c.Do(ctx, http.MethodPost, "/v1/email/send-code", body, nil, nil)
}

func (c *Client) VerifyEmailCode(ctx context.Context, email, code, purpose string) error {
	body := map[string]string{"email": email, "code": code, "purpose": purpose}
	return c.Do(ctx, http.MethodPost, "/v1/email/verify-code", body, nil, nil)
}

// =============================================================================
// SYSTEM CONFIG
// =============================================================================

func (c *Client) ListConfigs(ctx context.Context) ([]SystemConfig, error) {
	var out []SystemConfig
	if err := c.Do(ctx, http.MethodGet, "/v1/configs", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetConfig(ctx context.Context, key string) (*SystemConfig, error) {
	var out SystemConfig
	if err := c.Do(ctx, http.MethodGet, "/v1/configs/"+url.PathEscape(key), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateConfig(ctx context.Context, key, value string) error {
	body := map[string]string{"config_value": value}
	return c.Do(ctx, http.MethodPut, "/v1/configs/"+url.PathEscape(key), body, nil, nil)
}

func (c *Client) BatchUpdateConfigs(ctx context.Context, updates []ConfigUpdate) error {
	body := map[string][]ConfigUpdate{"configs": updates}
	return c.Do(ctx, http.MethodPut, "/v1/configs/batch", body, nil, nil)
}

// ReloadConfigs makes the service re-read its configuration.
func (c *Client) ReloadConfigs(ctx context.Context) error {
	return c.Do(ctx, http.MethodPost, "/v1/configs/reload", nil, nil, nil)
}
