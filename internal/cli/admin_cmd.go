// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// admin_cmd.go - User, audit, statistics and system configuration commands.
//
// The client only checks the route policy. Whether an account may manage
// other users is enforced by the service and surfaces as a permission error.

package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/vaulthub-tui/internal/api"
	"github.com/jeranaias/vaulthub-tui/internal/router"
)

const dateLayout = "2006-01-02"

// parseTime accepts a date, an RFC3339 timestamp or a duration before now.
func parseTime(field, value string, now time.Time) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(value); err == nil {
		return now.Add(-d), nil
	}
	if t, err := time.ParseInLocation(dateLayout, value, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, &ValidationError{Field: field, Value: value,
		Reason: "expected a date, an RFC3339 time or a duration", Example: "2025-01-31, 24h"}
}

// =============================================================================
// USERS
// =============================================================================

func newUsersCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "users",
		Aliases: []string{"user"},
		Short:   "Manage accounts",
	}
	ann := map[string]string{routeAnnotation: router.PathUser}

	var page, pageSize int
	list := &cobra.Command{
		Use:         "list",
		Aliases:     []string{"ls"},
		Short:       "List accounts",
		Args:        usageArgs(cobra.NoArgs),
		Annotations: ann,
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			users, err := rt.App.Client.ListUsers(rt.Ctx, page, pageSize)
			if err != nil {
				return err
			}
			return rt.Emit(users, func(w io.Writer) {
				rows := make([][]string, 0, len(users.Users))
				for _, u := range users.Users {
					last := "-"
					if u.LastLoginAt != nil {
						last = u.LastLoginAt.Local().Format("2006-01-02 15:04")
					}
					rows = append(rows, []string{u.UUID, u.Username, u.Role, u.Status, last})
				}
				fmt.Fprintln(w, RenderTable([]string{"UUID", "USERNAME", "ROLE", "STATUS", "LAST LOGIN"}, rows))
				fmt.Fprintln(w, RenderConditional(DimStyle, fmt.Sprintf("%d accounts", users.Total)))
			})
		}),
	}
	list.Flags().IntVar(&page, "page", 1, "page number")
	list.Flags().IntVar(&pageSize, "page-size", 20, "accounts per page")

	get := &cobra.Command{
		Use:         "get <uuid>",
		Short:       "Show one account",
		Args:        usageArgs(cobra.ExactArgs(1)),
		Annotations: ann,
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			u, err := rt.App.Client.GetUser(rt.Ctx, args[0])
			if err != nil {
				return err
			}
			return rt.Emit(u, func(w io.Writer) { printUser(w, u) })
		}),
	}

	var (
		create        api.CreateUserRequest
		passwordStdin bool
	)
	add := &cobra.Command{
		Use:         "create",
		Short:       "Create an account",
		Args:        usageArgs(cobra.NoArgs),
		Annotations: ann,
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			if err := validateUsername(create.Username); err != nil {
				return err
			}
			if err := checkRole(create.Role, true); err != nil {
				return err
			}
			pw, err := rt.readNewSecret("password", "Password: ", minPasswordLen, passwordStdin)
			if err != nil {
				return err
			}
			create.Password = pw
			u, err := rt.App.Client.CreateUser(rt.Ctx, create)
			if err != nil {
				return err
			}
			return rt.Emit(u, func(w io.Writer) {
				fmt.Fprintf(w, "%s Created %s (%s)\n", RenderStatus("ok"), u.Username, u.UUID)
			})
		}),
	}
	add.Flags().StringVarP(&create.Username, "username", "u", "", "account name")
	add.Flags().StringVar(&create.Role, "role", api.RoleUser, "role: admin, user or readonly")
	add.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")

	var update api.UpdateUserRequest
	set := &cobra.Command{
		Use:         "update <uuid>",
		Short:       "Change an account's role or status",
		Args:        usageArgs(cobra.ExactArgs(1)),
		Annotations: ann,
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			if update.Role == "" && update.Status == "" {
				return &ValidationError{Field: "flags", Reason: "give --role or --status"}
			}
			if err := checkRole(update.Role, true); err != nil {
				return err
			}
			u, err := rt.App.Client.UpdateUser(rt.Ctx, args[0], update)
			if err != nil {
				return err
			}
			return rt.Emit(u, func(w io.Writer) { printUser(w, u) })
		}),
	}
	set.Flags().StringVar(&update.Role, "role", "", "new role")
	set.Flags().StringVar(&update.Status, "status", "", "new status (active, disabled, locked)")

	var yes bool
	del := &cobra.Command{
		Use:         "delete <uuid>",
		Aliases:     []string{"rm"},
		Short:       "Delete an account",
		Args:        usageArgs(cobra.ExactArgs(1)),
		Annotations: ann,
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			if !yes {
				if err := rt.confirm(fmt.Sprintf("Delete account %s? [y/N] ", args[0])); err != nil {
					return err
				}
			}
			if err := rt.App.Client.DeleteUser(rt.Ctx, args[0]); err != nil {
				return err
			}
			return rt.Emit(map[string]string{"deleted": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "%s Deleted %s\n", RenderStatus("ok"), args[0])
			})
		}),
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	cmd.AddCommand(list, get, add, set, del)
	return cmd
}

func checkRole(role string, allowEmpty bool) error {
	switch role {
	case api.RoleAdmin, api.RoleUser, api.RoleReadonly:
		return nil
	case "":
		if allowEmpty {
			return nil
		}
	}
	return &ValidationError{Field: "--role", Value: role, Reason: "must be admin, user or readonly"}
}

func newPasswdCmd(env *Env) *cobra.Command {
	var stdin bool
	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change your login password",
		Long: `Change your login password.

With --stdin the current and the new password are read from stdin, one per
line.`,
		Args:        usageArgs(cobra.NoArgs),
		Annotations: map[string]string{routeAnnotation: router.PathProfile},
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			old, err := rt.readSecret("Current password: ", stdin)
			if err != nil {
				return err
			}
			pw, err := rt.readNewSecret("password", "New password: ", minPasswordLen, stdin)
			if err != nil {
				return err
			}
			if pw == old {
				return &ValidationError{Field: "password", Reason: "new password must differ from the current one"}
			}
			if err := rt.App.Client.ChangePassword(rt.Ctx, api.ChangePasswordRequest{OldPassword: old, NewPassword: pw}); err != nil {
				return err
			}
			return rt.Emit(map[string]bool{"changed": true}, func(w io.Writer) {
				fmt.Fprintf(w, "%s Password changed\n", RenderStatus("ok"))
			})
		}),
	}
	cmd.Flags().BoolVar(&stdin, "stdin", false, "read both passwords from stdin")
	return cmd
}

// =============================================================================
// AUDIT
// =============================================================================

type auditFlags struct {
	q          api.AuditQuery
	since, end string
}

func (f *auditFlags) register(cmd *cobra.Command, paged bool) {
	fl := cmd.Flags()
	fl.StringVar(&f.q.UserUUID, "user", "", "only this user UUID")
	fl.StringVar(&f.q.ActionType, "action", "", "only this action type")
	fl.StringVar(&f.q.ResourceType, "resource", "", "only this resource type")
	fl.StringVar(&f.q.Status, "status", "", "only this outcome (success, failed)")
	fl.StringVar(&f.since, "since", "", "start: date, RFC3339 time or duration ago")
	fl.StringVar(&f.end, "until", "", "end: date, RFC3339 time or duration ago")
	if paged {
		fl.IntVar(&f.q.Page, "page", 1, "page number")
		fl.IntVar(&f.q.PageSize, "page-size", 20, "entries per page")
	}
}

func (f *auditFlags) query() (api.AuditQuery, error) {
	now := time.Now()
	q := f.q
	var err error
	if q.StartTime, err = parseTime("--since", f.since, now); err != nil {
		return q, err
	}
	if q.EndTime, err = parseTime("--until", f.end, now); err != nil {
		return q, err
	}
	if !q.StartTime.IsZero() && !q.EndTime.IsZero() && q.EndTime.Before(q.StartTime) {
		return q, &ValidationError{Field: "--until", Value: f.end, Reason: "is before --since"}
	}
	return q, nil
}

func newAuditCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query the service audit log",
	}
	ann := map[string]string{routeAnnotation: router.PathAudit}

	var lf auditFlags
	logs := &cobra.Command{
		Use:         "logs",
		Short:       "List audit entries",
		Args:        usageArgs(cobra.NoArgs),
		Annotations: ann,
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			q, err := lf.query()
			if err != nil {
				return err
			}
			res, err := rt.App.Client.AuditLogs(rt.Ctx, q)
			if err != nil {
				return err
			}
			return rt.Emit(res, func(w io.Writer) {
				rows := make([][]string, 0, len(res.Logs))
				for _, l := range res.Logs {
					target := l.ResourceType
					if l.ResourceName != "" {
						target += ":" + l.ResourceName
					}
					rows = append(rows, []string{
						l.CreatedAt.Local().Format("2006-01-02 15:04:05"),
						l.Username, l.ActionType, target, l.Status, l.IPAddress,
					})
				}
				fmt.Fprintln(w, RenderTable([]string{"TIME", "USER", "ACTION", "RESOURCE", "STATUS", "IP"}, rows))
				fmt.Fprintln(w, RenderConditional(DimStyle, fmt.Sprintf("%d entries", res.Total)))
			})
		}),
	}
	lf.register(logs, true)

	var sf auditFlags
	secrets := &cobra.Command{
		Use:         "export-secrets",
		Short:       "Count secrets by type",
		Args:        usageArgs(cobra.NoArgs),
		Annotations: ann,
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			q, err := sf.query()
			if err != nil {
				return err
			}
			res, err := rt.App.Client.ExportSecretStats(rt.Ctx, q)
			if err != nil {
				return err
			}
			return rt.Emit(res, func(w io.Writer) {
				fmt.Fprintln(w, RenderTable([]string{"TYPE", "COUNT"}, countRows(res.ByType)))
				fmt.Fprintf(w, "%s%d\n", RenderLabel("Total"), res.TotalSecrets)
			})
		}),
	}
	sf.register(secrets, false)

	var of auditFlags
	ops := &cobra.Command{
		Use:         "export-operations",
		Short:       "Count operations by action",
		Args:        usageArgs(cobra.NoArgs),
		Annotations: ann,
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			q, err := of.query()
			if err != nil {
				return err
			}
			res, err := rt.App.Client.ExportOperations(rt.Ctx, q)
			if err != nil {
				return err
			}
			return rt.Emit(res, func(w io.Writer) {
				fmt.Fprintln(w, RenderTable([]string{"ACTION", "COUNT"}, countRows(res.ByAction)))
				fmt.Fprintf(w, "%s%d\n", RenderLabel("Total"), res.TotalOperations)
			})
		}),
	}
	of.register(ops, false)

	cmd.AddCommand(logs, secrets, ops)
	return cmd
}

// countRows turns a count map into rows sorted by count, then name.
func countRows(m map[string]int64) [][]string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, strconv.FormatInt(m[k], 10)})
	}
	return rows
}

// =============================================================================
// STATISTICS
// =============================================================================

func newStatsCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "stats",
		Aliases: []string{"statistics"},
		Short:   "Show vault usage statistics",
	}
	ann := map[string]string{routeAnnotation: router.PathStatistics}

	var userUUID string
	current := &cobra.Command{
		Use:         "current",
		Short:       "Show current totals",
		Args:        usageArgs(cobra.NoArgs),
		Annotations: ann,
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			st, err := rt.App.Client.CurrentStatistics(rt.Ctx, userUUID)
			if err != nil {
				return err
			}
			return rt.Emit(st, func(w io.Writer) {
				for _, row := range [][2]any{
					{"Secrets", st.TotalSecrets},
					{"API keys", st.APIKeyCount},
					{"Passwords", st.PasswordCount},
					{"Certificates", st.CertificateCount},
					{"SSH keys", st.SSHKeyCount},
					{"Private keys", st.PrivateKeyCount},
					{"Other", st.OtherCount},
					{"Operations today", st.TodayOperations},
				} {
					fmt.Fprintf(w, "%s%d\n", RenderLabel(row[0].(string)), row[1])
				}
			})
		}),
	}
	current.Flags().StringVar(&userUUID, "user", "", "statistics of this user UUID (admin)")

	var statType, since, until string
	history := &cobra.Command{
		Use:         "history",
		Short:       "Show daily statistics",
		Args:        usageArgs(cobra.NoArgs),
		Annotations: ann,
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			now := time.Now()
			start, err := parseTime("--since", since, now)
			if err != nil {
				return err
			}
			end, err := parseTime("--until", until, now)
			if err != nil {
				return err
			}
			days, err := rt.App.Client.UserStatistics(rt.Ctx, statType, start, end)
			if err != nil {
				return err
			}
			return rt.Emit(days, func(w io.Writer) {
				rows := make([][]string, 0, len(days))
				for _, d := range days {
					rows = append(rows, []string{
						d.StatDate.Format(dateLayout),
						strconv.Itoa(d.TotalSecrets),
						strconv.Itoa(d.CreateCount),
						strconv.Itoa(d.AccessCount),
						strconv.Itoa(d.DeleteCount),
						strconv.Itoa(d.LoginCount),
					})
				}
				fmt.Fprintln(w, RenderTable([]string{"DATE", "SECRETS", "CREATED", "READ", "DELETED", "LOGINS"}, rows))
			})
		}),
	}
	history.Flags().StringVar(&statType, "type", "daily", "statistic type")
	history.Flags().StringVar(&since, "since", "168h", "start: date, RFC3339 time or duration ago")
	history.Flags().StringVar(&until, "until", "", "end: date, RFC3339 time or duration ago")

	cmd.AddCommand(current, history)
	return cmd
}

// =============================================================================
// SYSTEM CONFIG
// =============================================================================

func newSysconfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sysconfig",
		Short: "Read and change service configuration (admin)",
	}
	ann := map[string]string{routeAnnotation: router.PathSystemConfig}

	list := &cobra.Command{
		Use:         "list",
		Short:       "List configuration entries",
		Args:        usageArgs(cobra.NoArgs),
		Annotations: ann,
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			cfgs, err := rt.App.Client.ListConfigs(rt.Ctx)
			if err != nil {
				return err
			}
			return rt.Emit(cfgs, func(w io.Writer) {
				rows := make([][]string, 0, len(cfgs))
				for _, c := range cfgs {
					rows = append(rows, []string{c.ConfigKey, c.ConfigValue, c.Description})
				}
				fmt.Fprintln(w, RenderTable([]string{"KEY", "VALUE", "DESCRIPTION"}, rows))
			})
		}),
	}

	get := &cobra.Command{
		Use:         "get <key>",
		Short:       "Show one entry",
		Args:        usageArgs(cobra.ExactArgs(1)),
		Annotations: ann,
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			c, err := rt.App.Client.GetConfig(rt.Ctx, args[0])
			if err != nil {
				return err
			}
			return rt.Emit(c, func(w io.Writer) { fmt.Fprintln(w, c.ConfigValue) })
		}),
	}

	set := &cobra.Command{
		Use:   "set <key=value>...",
		Short: "Change one or more entries",
		Example: `  vaulthub sysconfig set smtp.host=mail.internal
  vaulthub sysconfig set session.ttl=3600 audit.retention_days=90`,
		Args:        usageArgs(cobra.MinimumNArgs(1)),
		Annotations: ann,
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			updates := make([]api.ConfigUpdate, 0, len(args))
			for _, a := range args {
				k, v, ok := strings.Cut(a, "=")
				if !ok || strings.TrimSpace(k) == "" {
					return &ValidationError{Field: "argument", Value: a, Reason: "expected key=value"}
				}
				updates = append(updates, api.ConfigUpdate{ConfigKey: strings.TrimSpace(k), ConfigValue: v})
			}
			var err error
			if len(updates) == 1 {
				err = rt.App.Client.UpdateConfig(rt.Ctx, updates[0].ConfigKey, updates[0].ConfigValue)
			} else {
				err = rt.App.Client.BatchUpdateConfigs(rt.Ctx, updates)
			}
			if err != nil {
				return err
			}
			return rt.Emit(updates, func(w io.Writer) {
				fmt.Fprintf(w, "%s Updated %d entries\n", RenderStatus("ok"), len(updates))
			})
		}),
	}

	reload := &cobra.Command{
		Use:         "reload",
		Short:       "Make the service reload its configuration",
		Args:        usageArgs(cobra.NoArgs),
		Annotations: ann,
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			if err := rt.App.Client.ReloadConfigs(rt.Ctx); err != nil {
				return err
			}
			return rt.Emit(map[string]bool{"reloaded": true}, func(w io.Writer) {
				fmt.Fprintf(w, "%s Configuration reloaded\n", RenderStatus("ok"))
			})
		}),
	}

	cmd.AddCommand(list, get, set, reload)
	return cmd
}
