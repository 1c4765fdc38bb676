// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth_cmd.go - Session commands: login, logout, register, whoami, refresh,
// password reset and email verification.

package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/jeranaias/vaulthub-tui/internal/api"
	"github.com/jeranaias/vaulthub-tui/internal/router"
	"github.com/jeranaias/vaulthub-tui/internal/util"
)

// Input limits enforced by the service.
const (
	minUsernameLen = 3
	maxUsernameLen = 32
	minPasswordLen = 8
	minPinLen      = 8
)

// =============================================================================
// SECRET INPUT
// =============================================================================

// readSecret reads a secret from stdin when fromStdin is set, else prompts
// without echo.
func (rt *Runtime) readSecret(label string, fromStdin bool) (string, error) {
	s := rt.Env.Streams
	if !fromStdin && !s.IsTTY() {
		return "", &TTYRequiredError{Operation: "read " + strings.ToLower(strings.TrimSuffix(label, ": "))}
	}
	v, err := s.PromptSecret(label)
	if err != nil {
		return "", err
	}
	return v, nil
}

// readNewSecret reads a secret twice and checks the minimum length.
func (rt *Runtime) readNewSecret(field, label string, minLen int, fromStdin bool) (string, error) {
	v, err := rt.readSecret(label, fromStdin)
	if err != nil {
		return "", err
	}
	if utf8.RuneCountInString(v) < minLen {
		return "", &ValidationError{Field: field, Reason: fmt.Sprintf("must be at least %d characters", minLen)}
	}
	if fromStdin {
		return v, nil
	}
	again, err := rt.readSecret("Confirm "+strings.ToLower(label[:1])+label[1:], false)
	if err != nil {
		return "", err
	}
	if again != v {
		return "", &ValidationError{Field: field, Reason: "entries do not match"}
	}
	return v, nil
}

// requireSession runs the guard's authentication check without a role or
// PIN requirement.
func (rt *Runtime) requireSession() error {
	route := router.Route{
		Path:   rt.Cmd.CommandPath(),
		Policy: router.Policy{RequiresAuth: true, SkipSecurityPinCheck: true},
	}
	d := rt.App.Guard.Evaluate(rt.Ctx, route)
	if !d.Allowed() {
		return &GuardError{Route: route.Path, Decision: d}
	}
	return nil
}

func validateUsername(name string) error {
	n := utf8.RuneCountInString(name)
	if n < minUsernameLen || n > maxUsernameLen {
		return &ValidationError{Field: "username", Value: name,
			Reason: fmt.Sprintf("must be %d to %d characters", minUsernameLen, maxUsernameLen)}
	}
	return nil
}

// =============================================================================
// LOGIN / LOGOUT
// =============================================================================

// LoginData is the --json payload of login and whoami.
type LoginData struct {
	User           *api.UserInfo `json:"user"`
	HasSecurityPin *bool         `json:"has_security_pin,omitempty"`
	Next           string        `json:"next,omitempty"`
}

func newLoginCmd(env *Env) *cobra.Command {
	var (
		username      string
		passwordStdin bool
		force         bool
	)
	cmd := &cobra.Command{
		Use:   "login [username]",
		Short: "Log in and store the session token",
		Long: `Log in to the vault service.

The password is read without echo from the terminal, or from stdin with
--password-stdin. The token is kept in the configured credential store until
you log out or the service rejects it.`,
		Example: `  vaulthub login alice
  echo "$PASSWORD" | vaulthub login alice --password-stdin`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			if len(args) == 1 {
				username = args[0]
			}
			if !force {
				if err := rt.guard(rt.Config.Routes.Login); err != nil {
					return err
				}
			}
			if username == "" {
				if passwordStdin {
					return requireFlag("username", username)
				}
				var err error
				if username, err = rt.Env.Streams.Prompt("Username: "); err != nil {
					return err
				}
			}
			username = strings.TrimSpace(username)
			if username == "" {
				return requireFlag("username", username)
			}
			password, err := rt.readSecret("Password: ", passwordStdin)
			if err != nil {
				return err
			}

			user, err := rt.App.Login(rt.Ctx, username, password)
			if err != nil {
				return err
			}

			// Walk to the landing route so the PIN gate runs now rather than
			// on the next command.
			data := LoginData{User: user}
			if tr, err := rt.App.Navigate(rt.Ctx, rt.Config.Routes.Landing); err == nil && tr.Redirected() {
				data.Next = tr.To
			}
			return rt.Emit(data, func(w io.Writer) {
				if data.Next == rt.Config.Routes.Enrollment {
					fmt.Fprintln(w, RenderConditional(WarningStyle, "Set up your security PIN before using the vault: vaulthub pin setup"))
				}
			})
		}),
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account name")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	cmd.Flags().BoolVar(&force, "force", false, "log in even when a session exists")
	return cmd
}

func newLogoutCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and remove the stored token",
		Args:  usageArgs(cobra.NoArgs),
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			was := rt.App.Session.IsAuthenticated()
			if err := rt.App.Logout(rt.Ctx); err != nil {
				return err
			}
			return rt.Emit(map[string]bool{"was_logged_in": was}, func(w io.Writer) {
				if !was {
					fmt.Fprintln(w, RenderConditional(DimStyle, "No session to end."))
				}
			})
		}),
	}
}

// =============================================================================
// REGISTER
// =============================================================================

func newRegisterCmd(env *Env) *cobra.Command {
	var (
		req           api.RegisterRequest
		passwordStdin bool
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Long: `Create an account.

Request a verification code first with:
  vaulthub email send-code --email you@example.com --purpose register`,
		Args:        usageArgs(cobra.NoArgs),
		Annotations: map[string]string{routeAnnotation: router.PathRegister},
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			if err := validateUsername(req.Username); err != nil {
				return err
			}
			if err := requireFlag("email", req.Email); err != nil {
				return err
			}
			if err := requireFlag("code", req.Code); err != nil {
				return err
			}
			pw, err := rt.readNewSecret("password", "Password: ", minPasswordLen, passwordStdin)
			if err != nil {
				return err
			}
			req.Password = pw

			resp, err := rt.App.Client.Register(rt.Ctx, req)
			if err != nil {
				return err
			}
			return rt.Emit(resp, func(w io.Writer) {
				fmt.Fprintf(w, "%s Account %s created. Log in with: vaulthub login %s\n",
					RenderStatus("ok"), req.Username, req.Username)
			})
		}),
	}
	f := cmd.Flags()
	f.StringVarP(&req.Username, "username", "u", "", "account name (3 to 32 characters)")
	f.StringVar(&req.Email, "email", "", "email address")
	f.StringVar(&req.Code, "code", "", "verification code sent to the email address")
	f.StringVar(&req.Nickname, "nickname", "", "display name")
	f.BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	return cmd
}

// =============================================================================
// WHOAMI / REFRESH
// =============================================================================

func newWhoamiCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  usageArgs(cobra.NoArgs),
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			if err := rt.requireSession(); err != nil {
				return err
			}
			user, err := rt.App.Client.CurrentUser(rt.Ctx)
			if err != nil {
				return err
			}
			_ = rt.App.Session.SetCurrentUser(user)

			data := LoginData{User: user}
			if st, err := rt.App.Client.SecurityPinStatus(api.Quiet(rt.Ctx)); err == nil {
				data.HasSecurityPin = &st.HasSecurityPin
			}
			return rt.Emit(data, func(w io.Writer) {
				printUser(w, user)
				pin := "unknown"
				if data.HasSecurityPin != nil {
					pin = map[bool]string{true: "set", false: "not set"}[*data.HasSecurityPin]
				}
				fmt.Fprintf(w, "%s%s\n", RenderLabel("Security PIN"), pin)
			})
		}),
	}
}

func printUser(w io.Writer, u *api.UserInfo) {
	fmt.Fprintf(w, "%s%s\n", RenderLabel("Username"), u.Username)
	fmt.Fprintf(w, "%s%s\n", RenderLabel("UUID"), u.UUID)
	fmt.Fprintf(w, "%s%s\n", RenderLabel("Role"), u.Role)
	fmt.Fprintf(w, "%s%s\n", RenderLabel("Status"), RenderStatus(u.Status))
	if u.LastLoginAt != nil {
		fmt.Fprintf(w, "%s%s\n", RenderLabel("Last login"), u.LastLoginAt.Local().Format("2006-01-02 15:04:05"))
	}
}

func newRefreshCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the session token for a fresh one",
		Args:  usageArgs(cobra.NoArgs),
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			if err := rt.requireSession(); err != nil {
				return err
			}
			if err := rt.App.Refresh(rt.Ctx); err != nil {
				return err
			}
			tok := rt.App.Session.Token()
			return rt.Emit(map[string]string{"fingerprint": util.Fingerprint(tok)}, func(w io.Writer) {
				fmt.Fprintf(w, "%s Token refreshed (%s)\n", RenderStatus("ok"), util.Fingerprint(tok))
			})
		}),
	}
}

// =============================================================================
// PASSWORD RESET
// =============================================================================

func newPasswordResetCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password-reset",
		Short: "Reset a forgotten password by email",
	}

	var req api.PasswordResetRequest
	request := &cobra.Command{
		Use:         "request",
		Short:       "Email a password reset link",
		Args:        usageArgs(cobra.NoArgs),
		Annotations: map[string]string{routeAnnotation: router.PathForgotPassword},
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			if err := requireFlag("email", req.Email); err != nil {
				return err
			}
			resp, err := rt.App.Client.RequestPasswordReset(rt.Ctx, req)
			if err != nil {
				return err
			}
			return rt.Emit(resp, func(w io.Writer) {
				fmt.Fprintf(w, "%s If %s belongs to an account, a reset link is on its way.\n", RenderStatus("ok"), req.Email)
			})
		}),
	}
	request.Flags().StringVar(&req.Email, "email", "", "account email address")
	request.Flags().StringVar(&req.Domain, "domain", "", "base URL used in the emailed link")

	verify := &cobra.Command{
		Use:         "verify <token>",
		Short:       "Check that a reset token is still valid",
		Args:        usageArgs(cobra.ExactArgs(1)),
		Annotations: map[string]string{routeAnnotation: router.PathResetPassword, "sensitive": "true"},
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			st, err := rt.App.Client.VerifyResetToken(rt.Ctx, args[0])
			if err != nil {
				return err
			}
			return rt.Emit(st, func(w io.Writer) {
				if st.Valid {
					fmt.Fprintf(w, "%s Token is valid\n", RenderStatus("ok"))
				} else {
					fmt.Fprintf(w, "%s Token is invalid or expired\n", RenderStatus("failed"))
				}
			})
		}),
	}

	var passwordStdin bool
	confirm := &cobra.Command{
		Use:         "confirm <token>",
		Short:       "Set a new password with a reset token",
		Args:        usageArgs(cobra.ExactArgs(1)),
		Annotations: map[string]string{routeAnnotation: router.PathResetPassword, "sensitive": "true"},
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			pw, err := rt.readNewSecret("password", "New password: ", minPasswordLen, passwordStdin)
			if err != nil {
				return err
			}
			resp, err := rt.App.Client.ResetPasswordWithToken(rt.Ctx, api.ResetPasswordWithTokenRequest{
				Token:       args[0],
				NewPassword: pw,
			})
			if err != nil {
				return err
			}
			return rt.Emit(resp, func(w io.Writer) {
				fmt.Fprintf(w, "%s Password changed. Log in with your new password.\n", RenderStatus("ok"))
			})
		}),
	}
	confirm.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the new password from stdin")

	cmd.AddCommand(request, verify, confirm)
	return cmd
}

// =============================================================================
// EMAIL
// =============================================================================

func newEmailCmd(env *Env) *cobra.Command {
	var email, purpose string
	cmd := &cobra.Command{
		Use:   "email",
		Short: "Send and check email verification codes",
	}
	checkPurpose := func() error {
		if !slices.Contains(api.Purposes, purpose) {
			return &ValidationError{Field: "--purpose", Value: purpose,
				Reason: "must be one of " + strings.Join(api.Purposes, ", ")}
		}
		return requireFlag("email", email)
	}

	send := &cobra.Command{
		Use:   "send-code",
		Short: "Email a verification code",
		Args:  usageArgs(cobra.NoArgs),
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			if err := checkPurpose(); err != nil {
				return err
			}
			if err := rt.App.Client.SendEmailCode(rt.Ctx, email, purpose); err != nil {
				return err
			}
			return rt.Emit(map[string]string{"email": email, "purpose": purpose}, func(w io.Writer) {
				fmt.Fprintf(w, "%s Code sent to %s\n", RenderStatus("ok"), email)
			})
		}),
	}

	verify := &cobra.Command{
		Use:   "verify <code>",
		Short: "Check a verification code",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			if err := checkPurpose(); err != nil {
				return err
			}
			if err := rt.App.Client.VerifyEmailCode(rt.Ctx, email, args[0], purpose); err != nil {
				return err
			}
			return rt.Emit(map[string]bool{"verified": true}, func(w io.Writer) {
				fmt.Fprintf(w, "%s Code accepted\n", RenderStatus("ok"))
			})
		}),
	}

	for _, c := range []*cobra.Command{send, verify} {
		c.Flags().StringVar(&email, "email", "", "email address")
		c.Flags().StringVar(&purpose, "purpose", api.PurposeRegister, "one of register, login, reset_password, change_email")
	}
	cmd.AddCommand(send, verify)
	return cmd
}
