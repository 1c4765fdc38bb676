// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
)

// Kind classifies a failed call.
type Kind int

const (
	// KindApplication is a non-success envelope code or an unmapped HTTP
	// status. Message carries the service's text.
	KindApplication Kind = iota
	// KindAuthentication means the service declared the credential invalid.
	// The client has already logged out when this is returned.
	KindAuthentication
	// KindPermission is an HTTP 403.
	KindPermission
	// KindNotFound is an HTTP 404.
	KindNotFound
	// KindServer is an HTTP 5xx or an unreadable reply.
	KindServer
	// KindTimeout means no reply arrived before the deadline.
	KindTimeout
	// KindNetwork means no reply arrived for any other reason.
	KindNetwork
)

var kindNames = map[Kind]string{
	KindApplication:    "application",
	KindAuthentication: "authentication",
	KindPermission:     "permission",
	KindNotFound:       "not_found",
	KindServer:         "server",
	KindTimeout:        "timeout",
	KindNetwork:        "network",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinel errors matching each kind through errors.Is.
var (
	ErrApplication    = &Error{Kind: KindApplication}
	ErrAuthentication = &Error{Kind: KindAuthentication}
	ErrPermission     = &Error{Kind: KindPermission}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrServer         = &Error{Kind: KindServer}
	ErrTimeout        = &Error{Kind: KindTimeout}
	ErrNetwork        = &Error{Kind: KindNetwork}
)

// Error is the single error type returned by Client calls.
type Error struct {
	Kind Kind
	// Status is the HTTP status, 0 when no reply was received.
	Status int
	// Code is the envelope code, 0 when there was no envelope.
	Code int
	// Message is the service's message when it sent one.
	Message   string
	Method    string
	Path      string
	RequestID string
	// Err is the underlying transport error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var target string
	if e.Method != "" {
		target = " " + e.Method + " " + e.Path
	}
	switch {
	case e.Message != "" && e.Status != 0 && e.Code != 0:
		return fmt.Sprintf("%s error%s (HTTP %d, code %d): %s", e.Kind, target, e.Status, e.Code, e.Message)
	case e.Message != "" && e.Status != 0:
		return fmt.Sprintf("%s error%s (HTTP %d): %s", e.Kind, target, e.Status, e.Message)
	case e.Message != "":
		return fmt.Sprintf("%s error%s: %s", e.Kind, target, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s error%s: %v", e.Kind, target, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s error%s (HTTP %d)", e.Kind, target, e.Status)
	default:
		return fmt.Sprintf("%s error%s", e.Kind, target)
	}
}

// Unwrap returns the transport error.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind. This lets callers
// write errors.Is(err, api.ErrTimeout).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of err and whether err is an *Error at all.
func KindOf(err error) (Kind, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind, true
	}
	return 0, false
}

// MessageOf returns the service message carried by err, or err.Error().
func MessageOf(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
