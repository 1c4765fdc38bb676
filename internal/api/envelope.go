// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"slices"
)

// Envelope is the shape of every reply from the vault service.
type Envelope struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// Codes tells the client which envelope codes mean success and which mean
// the credential is no longer valid. Every other code is an application
// failure.
type Codes struct {
	Success      []int
	Unauthorized []int
}

// DefaultCodes treats 200 as success and 401 as an invalid credential.
func DefaultCodes() Codes {
	return Codes{Success: []int{200}, Unauthorized: []int{401}}
}

func (c Codes) isSuccess(code int) bool      { return slices.Contains(c.Success, code) }
func (c Codes) isUnauthorized(code int) bool { return slices.Contains(c.Unauthorized, code) }
