// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Unified error handling for all vaulthub commands.
//
// STANDARDIZED PATTERN:
//   - ALWAYS return errors (never just print and return nil)
//   - Let Execute decide how to display errors
//   - Map service error kinds to exit codes

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/vaulthub-tui/internal/api"
	"github.com/jeranaias/vaulthub-tui/internal/config"
	"github.com/jeranaias/vaulthub-tui/internal/router"
)

// =============================================================================
// EXIT CODES - Specific codes for different error categories
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates a missing or rejected credential
	ExitAuthError = 4
	// ExitNetworkError indicates network or connectivity error
	ExitNetworkError = 5
	// ExitPermissionError indicates the user lacks the required role
	ExitPermissionError = 6
	// ExitNotFoundError indicates a resource was not found
	ExitNotFoundError = 7
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
)

// =============================================================================
// ERROR TYPES FOR STRUCTURED ERROR HANDLING
// =============================================================================

// ValidationError represents a validation failure for user input.
type ValidationError struct {
	Field   string // Field that failed validation
	Value   string // Value that was provided
	Reason  string // Why validation failed
	Example string // Example of valid value (optional)
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NewValidationError creates a new validation error.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// ConfigError wraps a failure to load or save configuration.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return "config: " + e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }

// GuardError reports that the navigation guard did not allow the command's
// route.
type GuardError struct {
	Route    string
	Decision router.Decision
}

func (e *GuardError) Error() string {
	switch e.Decision.Reason {
	case router.ReasonUnauthenticated, router.ReasonSessionEnded:
		return "not logged in; run `vaulthub login`"
	case router.ReasonUserLookupFailed:
		return "could not verify your account; log in again with `vaulthub login`"
	case router.ReasonAlreadyAuthenticated:
		return "already logged in; run `vaulthub logout` first"
	case router.ReasonRoleMismatch:
		return fmt.Sprintf("permission denied: %s requires role %q", e.Route, e.Decision.Route.Policy.RequiredRole)
	case router.ReasonPinNotEnrolled:
		return "no security PIN set up yet; run `vaulthub pin setup`"
	default:
		return fmt.Sprintf("%s is not available (redirected to %s)", e.Route, e.Decision.Target)
	}
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode determines the appropriate exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validationErr *ValidationError
	var ttyErr *TTYRequiredError
	if errors.As(err, &validationErr) || errors.As(err, &ttyErr) {
		return ExitUsageError
	}

	var configErr *ConfigError
	var verrs config.ValidateErrors
	if errors.As(err, &configErr) || errors.As(err, &verrs) {
		return ExitConfigError
	}

	var guardErr *GuardError
	if errors.As(err, &guardErr) {
		if guardErr.Decision.Reason == router.ReasonRoleMismatch {
			return ExitPermissionError
		}
		if guardErr.Decision.Reason == router.ReasonAlreadyAuthenticated {
			return ExitUsageError
		}
		return ExitAuthError
	}

	if errors.Is(err, router.ErrUnknownRoute) {
		return ExitUsageError
	}

	kind, ok := api.KindOf(err)
	if !ok {
		return ExitGeneralError
	}
	switch kind {
	case api.KindAuthentication:
		return ExitAuthError
	case api.KindPermission:
		return ExitPermissionError
	case api.KindNotFound:
		return ExitNotFoundError
	case api.KindTimeout:
		return ExitTimeoutError
	case api.KindNetwork:
		return ExitNetworkError
	}

	return ExitGeneralError
}

// =============================================================================
// ERROR DISPLAY HELPERS
// =============================================================================

// DisplayError writes err in a consistent format. Service errors that
// already produced a notice are not repeated in text mode.
func DisplayError(w io.Writer, err error, jsonMode bool, command string) {
	if err == nil {
		return
	}
	if jsonMode {
		_ = NewJSONErrorResponse(command, err).Print(w)
		return
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return
	}
	fmt.Fprintf(w, "%s %s\n", RenderConditional(ErrorStyle, "[ERROR]"), err.Error())
}

// errorType names err for JSON output.
func errorType(err error) string {
	var (
		validationErr *ValidationError
		guardErr      *GuardError
		configErr     *ConfigError
	)
	switch {
	case errors.As(err, &validationErr):
		return "validation_error"
	case errors.As(err, &guardErr):
		return "guard_" + string(guardErr.Decision.Reason)
	case errors.As(err, &configErr):
		return "config_error"
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind.String() + "_error"
	}
	return "generic_error"
}

// errorDetails returns the structured fields of err, or nil.
func errorDetails(err error) map[string]any {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		out := map[string]any{"kind": apiErr.Kind.String()}
		if apiErr.Status != 0 {
			out["status"] = apiErr.Status
		}
		if apiErr.Code != 0 {
			out["code"] = apiErr.Code
		}
		if apiErr.RequestID != "" {
			out["request_id"] = apiErr.RequestID
		}
		return out
	}
	var guardErr *GuardError
	if errors.As(err, &guardErr) {
		return map[string]any{
			"route":  guardErr.Route,
			"target": guardErr.Decision.Target,
			"reason": string(guardErr.Decision.Reason),
		}
	}
	return nil
}
