// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/vaulthub-tui/internal/config"
	"github.com/jeranaias/vaulthub-tui/internal/router"
)

// routeTable builds the route table with the configured special routes.
func routeTable(cfg *config.Config) (*router.Table, error) {
	t, err := router.NewTable(router.DefaultRoutes(), router.Special{
		Login:      cfg.Routes.Login,
		Register:   cfg.Routes.Register,
		Landing:    cfg.Routes.Landing,
		Enrollment: cfg.Routes.Enrollment,
	})
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	return t, nil
}

// policyCells describes a route's policy for tables.
func policyCells(r router.Route) (auth, role, pin string) {
	if r.RedirectTo != "" {
		return "-", "-", "-"
	}
	auth, role, pin = "no", "-", "-"
	if r.Policy.RequiresAuth {
		auth = "yes"
		pin = "checked"
		if r.Policy.SkipSecurityPinCheck {
			pin = "skipped"
		}
	}
	if r.Policy.RequiredRole != "" {
		role = r.Policy.RequiredRole
	}
	return auth, role, pin
}

// routesMarkdown renders the table as a markdown document.
func routesMarkdown(t *router.Table) string {
	var b strings.Builder
	b.WriteString("# Routes\n\n")
	b.WriteString("| Path | View | Login | Role | PIN gate |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, r := range t.Routes() {
		auth, role, pin := policyCells(r)
		view := r.Title
		if r.RedirectTo != "" {
			view = "alias of `" + r.RedirectTo + "`"
		}
		fmt.Fprintf(&b, "| `%s` | %s | %s | %s | %s |\n", r.Path, view, auth, role, pin)
	}
	sp := t.Special()
	fmt.Fprintf(&b, "\nLogin `%s`, register `%s`, landing `%s`, PIN enrollment `%s`.\n",
		sp.Login, sp.Register, sp.Landing, sp.Enrollment)
	return b.String()
}

func newRoutesCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Show the route access policy",
		Args:  usageArgs(cobra.NoArgs),
		RunE: wrapLocal(env, func(rt *Runtime, args []string) error {
			t, err := routeTable(rt.Config)
			if err != nil {
				return err
			}
			return rt.Emit(t.Routes(), func(w io.Writer) {
				if rt.Env.Streams.IsStdoutTTY() && ColorsEnabled() {
					fmt.Fprint(w, renderMarkdown(routesMarkdown(t), rt.Env.Streams.TerminalWidth()))
					return
				}
				rows := make([][]string, 0)
				for _, r := range t.Routes() {
					auth, role, pin := policyCells(r)
					view := r.Title
					if r.RedirectTo != "" {
						view = "-> " + r.RedirectTo
					}
					rows = append(rows, []string{r.Path, view, auth, role, pin})
				}
				fmt.Fprintln(w, RenderTable([]string{"PATH", "VIEW", "LOGIN", "ROLE", "PIN GATE"}, rows))
			})
		}),
	}

	check := &cobra.Command{
		Use:   "check <path>",
		Short: "Run the guard for a route and show each decision",
		Long: `Run the navigation guard for a route with the current session and print
every decision of the redirect chain. Nothing is changed.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			tr, err := rt.App.Navigator.Resolve(rt.Ctx, args[0])
			if err != nil {
				return err
			}
			return rt.Emit(tr, func(w io.Writer) {
				for i, d := range tr.Decisions {
					line := fmt.Sprintf("%d. %s %s", i+1, d.Route.Path, RenderStatus(d.Outcome.String()))
					if !d.Allowed() {
						line += fmt.Sprintf(" -> %s (%s)", d.Target, d.Reason)
					}
					if d.PinCheckFailedOpen {
						line += " " + RenderConditional(WarningStyle, "PIN status unknown, allowed")
					}
					fmt.Fprintln(w, line)
				}
				fmt.Fprintf(w, "%s%s\n", RenderLabel("Final route"), tr.To)
			})
		}),
	}
	cmd.AddCommand(check)
	return cmd
}
