// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"

	"github.com/jeranaias/vaulthub-tui/internal/api"
	"github.com/jeranaias/vaulthub-tui/internal/router"
)

// Input limits enforced before a request is sent.
const (
	minUsernameLen = 3
	maxUsernameLen = 32
	minPasswordLen = 8
	minPinLen      = 8
)

var errMismatch = errors.New("the two entries do not match")

// viewFor builds the screen of path.
func viewFor(d *deps, path string) view {
	sp := d.app.Guard.Table().Special()
	switch path {
	case sp.Login:
		return loginScreen(d, sp)
	case sp.Register:
		return registerScreen(d, sp)
	case sp.Enrollment:
		return setupPinScreen(d, sp)
	case router.PathForgotPassword:
		return forgotPasswordScreen(d, sp)
	case router.PathResetPassword:
		return resetPasswordScreen(d, sp)
	case router.PathResetSecurityPin:
		return resetPinScreen(d, sp)
	case router.PathVault:
		return newVaultView(d)
	case router.PathUser:
		return userScreen(d)
	case router.PathProfile:
		return profileScreen(d)
	case router.PathKeys:
		return keysScreen(d)
	case router.PathStatistics:
		return statisticsScreen(d)
	case router.PathAudit:
		return auditScreen(d)
	case router.PathSystemConfig:
		return systemConfigScreen(d)
	}
	title := path
	if r, ok := d.app.Guard.Table().Lookup(path); ok && r.Title != "" {
		title = r.Title
	}
	return newDetailView(d, title, func(context.Context) ([][2]string, error) {
		return [][2]string{{"Route", path}}, nil
	})
}

// =============================================================================
// PUBLIC SCREENS
// =============================================================================

func loginScreen(d *deps, sp router.Special) view {
	f := newFormView(d, "Log in to VaultHub", []formField{
		{label: "Username"},
		{label: "Password", secret: true},
	}, func(ctx context.Context, v []string) (string, error) {
		if strings.TrimSpace(v[0]) == "" || v[1] == "" {
			return "", errors.New("username and password are required")
		}
		_, err := d.app.Login(ctx, strings.TrimSpace(v[0]), v[1])
		return "", err
	})
	f.next = sp.Landing
	f.links = map[string]string{
		"ctrl+r": sp.Register,
		"ctrl+f": router.PathForgotPassword,
		"ctrl+p": router.PathResetSecurityPin,
	}
	return f
}

func validateUsername(name string) error {
	if n := len(name); n < minUsernameLen || n > maxUsernameLen {
		return fmt.Errorf("username must be %d to %d characters", minUsernameLen, maxUsernameLen)
	}
	return nil
}

func registerScreen(d *deps, sp router.Special) view {
	f := newFormView(d, "Create an account", []formField{
		{label: "Username"},
		{label: "Email", placeholder: "you@example.com"},
		{label: "Email code"},
		{label: "Nickname", placeholder: "optional"},
		{label: "Password", secret: true},
		{label: "Confirm", secret: true},
	}, func(ctx context.Context, v []string) (string, error) {
		name := strings.TrimSpace(v[0])
		if err := validateUsername(name); err != nil {
			return "", err
		}
		if strings.TrimSpace(v[1]) == "" || strings.TrimSpace(v[2]) == "" {
			return "", errors.New("email and verification code are required")
		}
		if len(v[4]) < minPasswordLen {
			return "", fmt.Errorf("password must be at least %d characters", minPasswordLen)
		}
		if v[4] != v[5] {
			return "", errMismatch
		}
		_, err := d.app.Client.Register(ctx, api.RegisterRequest{
			Username: name,
			Email:    strings.TrimSpace(v[1]),
			Code:     strings.TrimSpace(v[2]),
			Nickname: strings.TrimSpace(v[3]),
			Password: v[4],
		})
		if err != nil {
			return "", err
		}
		return "Account created. Press enter to log in.", nil
	})
	f.next = sp.Login
	f.back = sp.Login
	f.actions = map[string]formAction{
		"ctrl+s": {help: "send email code", run: func(ctx context.Context, v []string) (string, error) {
			email := strings.TrimSpace(v[1])
			if email == "" {
				return "", errors.New("enter an email address first")
			}
			if err := d.app.Client.SendEmailCode(ctx, email, api.PurposeRegister); err != nil {
				return "", err
			}
			return "Verification code sent to " + email, nil
		}},
	}
	return f
}

func forgotPasswordScreen(d *deps, sp router.Special) view {
	f := newFormView(d, "Forgot password", []formField{
		{label: "Email", placeholder: "you@example.com"},
	}, func(ctx context.Context, v []string) (string, error) {
		email := strings.TrimSpace(v[0])
		if email == "" {
			return "", errors.New("email is required")
		}
		resp, err := d.app.Client.RequestPasswordReset(ctx, api.PasswordResetRequest{Email: email})
		if err != nil {
			return "", err
		}
		msg := "If the address is registered, a reset link is on its way."
		if resp != nil && resp.Message != "" {
			msg = resp.Message
		}
		return msg + "\nPress enter to enter the reset token.", nil
	})
	f.intro = "A reset token will be emailed to you."
	f.next = router.PathResetPassword
	f.back = sp.Login
	return f
}

func resetPasswordScreen(d *deps, sp router.Special) view {
	f := newFormView(d, "Reset password", []formField{
		{label: "Reset token"},
		{label: "New password", secret: true},
		{label: "Confirm", secret: true},
	}, func(ctx context.Context, v []string) (string, error) {
		token := strings.TrimSpace(v[0])
		if token == "" {
			return "", errors.New("reset token is required")
		}
		if len(v[1]) < minPasswordLen {
			return "", fmt.Errorf("password must be at least %d characters", minPasswordLen)
		}
		if v[1] != v[2] {
			return "", errMismatch
		}
		st, err := d.app.Client.VerifyResetToken(ctx, token)
		if err != nil {
			return "", err
		}
		if !st.Valid {
			return "", errors.New("the reset token is invalid or has expired")
		}
		if _, err := d.app.Client.ResetPasswordWithToken(ctx, api.ResetPasswordWithTokenRequest{
			Token:       token,
			NewPassword: v[1],
		}); err != nil {
			return "", err
		}
		return "Password changed. Press enter to log in.", nil
	})
	f.next = sp.Login
	f.back = sp.Login
	return f
}

// renderMnemonic numbers the words of a recovery phrase.
func renderMnemonic(m string) string {
	var b strings.Builder
	b.WriteString(warningTextStyle.Render("Write down this recovery phrase and keep it offline.\nIt will not be shown again."))
	b.WriteString("\n\n")
	for i, w := range strings.Fields(m) {
		fmt.Fprintf(&b, "%2d. %s\n", i+1, selectedStyle.Render(w))
	}
	return b.String()
}

func setupPinScreen(d *deps, sp router.Special) view {
	f := newFormView(d, "Set up security PIN", []formField{
		{label: "Security PIN", secret: true},
		{label: "Confirm", secret: true},
	}, func(ctx context.Context, v []string) (string, error) {
		if len(v[0]) < minPinLen {
			return "", fmt.Errorf("PIN must be at least %d characters", minPinLen)
		}
		if v[0] != v[1] {
			return "", errMismatch
		}
		resp, err := d.app.Client.CreateEncryptionKey(ctx, v[0])
		if err != nil {
			return "", err
		}
		if resp.RecoveryKey == "" {
			return "", nil
		}
		return renderMnemonic(resp.RecoveryKey) + "\nPress enter to open the vault.", nil
	})
	f.intro = "Your vault stays locked until a security PIN is set."
	f.next = sp.Landing
	return f
}

func resetPinScreen(d *deps, sp router.Special) view {
	f := newFormView(d, "Reset security PIN", []formField{
		{label: "Recovery phrase"},
		{label: "New PIN", secret: true},
		{label: "Confirm", secret: true},
	}, func(ctx context.Context, v []string) (string, error) {
		phrase := strings.Join(strings.Fields(v[0]), " ")
		if phrase == "" {
			return "", errors.New("recovery phrase is required")
		}
		if len(v[1]) < minPinLen {
			return "", fmt.Errorf("PIN must be at least %d characters", minPinLen)
		}
		if v[1] != v[2] {
			return "", errMismatch
		}
		resp, err := d.app.Client.ResetSecurityPin(ctx, api.ResetSecurityPinRequest{
			RecoveryMnemonic: phrase,
			NewSecurityPin:   v[1],
		})
		if err != nil {
			return "", err
		}
		if resp.NewRecoveryMnemonic == "" {
			return "", nil
		}
		return renderMnemonic(resp.NewRecoveryMnemonic) + "\nPress enter to continue.", nil
	})
	f.inputs[0].Width = 60
	f.next = sp.Landing
	f.back = sp.Login
	return f
}

// =============================================================================
// PROTECTED SCREENS
// =============================================================================

func formatCount(n int64) string { return strconv.FormatInt(n, 10) }

func userScreen(d *deps) view {
	return newDetailView(d, "Account", func(ctx context.Context) ([][2]string, error) {
		u, err := d.app.Client.CurrentUser(ctx)
		if err != nil {
			return nil, err
		}
		rows := [][2]string{
			{"Username", u.Username},
			{"UUID", u.UUID},
			{"Role", u.Role},
			{"Status", u.Status},
			{"Created", u.CreatedAt.Local().Format("2006-01-02 15:04")},
		}
		if u.LastLoginAt != nil {
			rows = append(rows, [2]string{"Last login", u.LastLoginAt.Local().Format("2006-01-02 15:04")})
		}
		if st, err := d.app.Client.SecurityPinStatus(api.Quiet(ctx)); err == nil {
			pin := "not set"
			if st.HasSecurityPin {
				pin = "set"
			}
			rows = append(rows, [2]string{"Security PIN", pin})
		}
		return rows, nil
	})
}

func profileScreen(d *deps) view {
	return newDetailView(d, "Profile", func(ctx context.Context) ([][2]string, error) {
		p, err := d.app.Client.GetProfile(ctx)
		if err != nil {
			return nil, err
		}
		email := p.Email
		if email != "" && !p.EmailVerified {
			email += " (unverified)"
		}
		rows := [][2]string{{"Nickname", p.Nickname}, {"Email", email}}
		if p.Phone != "" {
			rows = append(rows, [2]string{"Phone", p.Phone})
		}
		return rows, nil
	})
}

func keysScreen(d *deps) view {
	return newDetailView(d, "Encryption keys", func(ctx context.Context) ([][2]string, error) {
		st, err := d.app.Client.RotationStatus(api.Quiet(ctx))
		if err != nil {
			if kind, ok := api.KindOf(err); ok && kind == api.KindNotFound {
				return [][2]string{{"Rotation", "never rotated"}}, nil
			}
			return nil, err
		}
		rows := [][2]string{
			{"Status", st.Status},
			{"Key version", fmt.Sprintf("%d -> %d", st.OldVersion, st.NewVersion)},
			{"Migrated", fmt.Sprintf("%d of %d", st.MigratedSecrets, st.TotalSecrets)},
			{"Failed", formatCount(st.FailedSecrets)},
			{"Started", st.StartedAt.Local().Format("2006-01-02 15:04")},
		}
		if st.CompletedAt != nil {
			rows = append(rows, [2]string{"Completed", st.CompletedAt.Local().Format("2006-01-02 15:04")})
		}
		if st.Error != "" {
			rows = append(rows, [2]string{"Error", st.Error})
		}
		return rows, nil
	})
}

func statisticsScreen(d *deps) view {
	return newDetailView(d, "Statistics", func(ctx context.Context) ([][2]string, error) {
		s, err := d.app.Client.CurrentStatistics(ctx, "")
		if err != nil {
			return nil, err
		}
		return [][2]string{
			{"Secrets", formatCount(s.TotalSecrets)},
			{"API keys", formatCount(s.APIKeyCount)},
			{"Passwords", formatCount(s.PasswordCount)},
			{"Certificates", formatCount(s.CertificateCount)},
			{"SSH keys", formatCount(s.SSHKeyCount)},
			{"Private keys", formatCount(s.PrivateKeyCount)},
			{"Other", formatCount(s.OtherCount)},
			{"Operations today", formatCount(s.TodayOperations)},
		}, nil
	})
}

func auditScreen(d *deps) view {
	return newTableView(d, "Audit log", []table.Column{
		{Title: "Time", Width: 17},
		{Title: "User", Width: 14},
		{Title: "Action", Width: 14},
		{Title: "Resource", Width: 22},
		{Title: "Status", Width: 8},
	}, func(ctx context.Context) ([]table.Row, error) {
		res, err := d.app.Client.AuditLogs(ctx, api.AuditQuery{Page: 1, PageSize: 100})
		if err != nil {
			return nil, err
		}
		rows := make([]table.Row, 0, len(res.Logs))
		for _, l := range res.Logs {
			resource := l.ResourceType
			if l.ResourceName != "" {
				resource += ":" + l.ResourceName
			}
			rows = append(rows, table.Row{
				l.CreatedAt.Local().Format("2006-01-02 15:04"),
				l.Username,
				l.ActionType,
				resource,
				l.Status,
			})
		}
		return rows, nil
	})
}

func systemConfigScreen(d *deps) view {
	return newTableView(d, "System config", []table.Column{
		{Title: "Key", Width: 30},
		{Title: "Value", Width: 24},
		{Title: "Description", Width: 30},
	}, func(ctx context.Context) ([]table.Row, error) {
		cfgs, err := d.app.Client.ListConfigs(ctx)
		if err != nil {
			return nil, err
		}
		sort.Slice(cfgs, func(i, j int) bool { return cfgs[i].ConfigKey < cfgs[j].ConfigKey })
		rows := make([]table.Row, 0, len(cfgs))
		for _, c := range cfgs {
			rows = append(rows, table.Row{c.ConfigKey, c.ConfigValue, c.Description})
		}
		return rows, nil
	})
}
