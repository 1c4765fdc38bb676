// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/vaulthub-tui/internal/api"
)

// Route paths of the client.
const (
	PathRoot             = "/"
	PathLogin            = "/login"
	PathRegister         = "/register"
	PathForgotPassword   = "/forgot-password"
	PathResetPassword    = "/reset-password"
	PathSetupSecurityPin = "/setup-security-pin"
	PathResetSecurityPin = "/reset-security-pin"
	PathVault            = "/vault"
	PathUser             = "/user"
	PathSystemConfig     = "/system/config"
	PathKeys             = "/keys"
	PathAudit            = "/audit"
	PathStatistics       = "/statistics"
	PathProfile          = "/profile"
)

// Policy is the access rule attached to a route.
type Policy struct {
	RequiresAuth         bool   `json:"requires_auth"`
	RequiredRole         string `json:"required_role,omitempty"`
	SkipSecurityPinCheck bool   `json:"skip_security_pin_check,omitempty"`
}

// Route is one entry of the route table. A route with RedirectTo is an
// alias and has no view of its own.
type Route struct {
	Path       string `json:"path"`
	Name       string `json:"name,omitempty"`
	Title      string `json:"title,omitempty"`
	Policy     Policy `json:"policy"`
	RedirectTo string `json:"redirect_to,omitempty"`
}

// Special names the routes the guard redirects to.
type Special struct {
	Login      string
	Register   string
	Landing    string
	Enrollment string
}

// DefaultSpecial returns the stock login, register, landing and enrollment
// paths.
func DefaultSpecial() Special {
	return Special{
		Login:      PathLogin,
		Register:   PathRegister,
		Landing:    PathVault,
		Enrollment: PathSetupSecurityPin,
	}
}

// DefaultRoutes returns the client's route table.
func DefaultRoutes() []Route {
	public := Policy{}
	authed := Policy{RequiresAuth: true}
	return []Route{
		{Path: PathLogin, Name: "Login", Title: "Log in", Policy: public},
		{Path: PathRegister, Name: "Register", Title: "Register", Policy: public},
		{Path: PathForgotPassword, Name: "ForgotPassword", Title: "Forgot password", Policy: public},
		{Path: PathResetPassword, Name: "ResetPassword", Title: "Reset password", Policy: public},
		{Path: PathSetupSecurityPin, Name: "SetupSecurityPin", Title: "Set up security PIN",
			Policy: Policy{RequiresAuth: true, SkipSecurityPinCheck: true}},
		{Path: PathResetSecurityPin, Name: "ResetSecurityPin", Title: "Reset security PIN", Policy: public},
		{Path: PathRoot, RedirectTo: PathVault},
		{Path: PathVault, Name: "Vault", Title: "Vault", Policy: authed},
		{Path: PathUser, Name: "User", Title: "Users", Policy: authed},
		{Path: PathSystemConfig, Name: "SystemConfig", Title: "System config",
			Policy: Policy{RequiresAuth: true, RequiredRole: api.RoleAdmin}},
		{Path: PathKeys, Name: "Keys", Title: "Keys", Policy: authed},
		{Path: PathAudit, Name: "Audit", Title: "Audit log", Policy: authed},
		{Path: PathStatistics, Name: "Statistics", Title: "Statistics", Policy: authed},
		{Path: PathProfile, Name: "Profile", Title: "Profile", Policy: authed},
	}
}

// ErrUnknownRoute is returned for paths not in the table.
var ErrUnknownRoute = errors.New("unknown route")

// Table is an immutable route table.
type Table struct {
	routes  []Route
	byPath  map[string]Route
	special Special
}

// NewTable validates routes and the special paths.
func NewTable(routes []Route, special Special) (*Table, error) {
	t := &Table{
		routes:  make([]Route, 0, len(routes)),
		byPath:  make(map[string]Route, len(routes)),
		special: special,
	}
	for _, r := range routes {
		r.Path = Normalize(r.Path)
		if r.RedirectTo != "" {
			r.RedirectTo = Normalize(r.RedirectTo)
		}
		if _, dup := t.byPath[r.Path]; dup {
			return nil, fmt.Errorf("duplicate route %s", r.Path)
		}
		t.byPath[r.Path] = r
		t.routes = append(t.routes, r)
	}
	for _, r := range t.routes {
		if r.RedirectTo != "" {
			if _, ok := t.byPath[r.RedirectTo]; !ok {
				return nil, fmt.Errorf("route %s redirects to unknown %s", r.Path, r.RedirectTo)
			}
		}
	}

	t.special = Special{
		Login:      Normalize(special.Login),
		Landing:    Normalize(special.Landing),
		Enrollment: Normalize(special.Enrollment),
	}
	if special.Register != "" {
		t.special.Register = Normalize(special.Register)
	}
	checks := []struct {
		name string
		path string
	}{
		{"login", t.special.Login},
		{"landing", t.special.Landing},
		{"enrollment", t.special.Enrollment},
	}
	for _, c := range checks {
		r, ok := t.byPath[c.path]
		if !ok {
			return nil, fmt.Errorf("%s route %s is not in the table", c.name, c.path)
		}
		if r.RedirectTo != "" {
			return nil, fmt.Errorf("%s route %s must not be an alias", c.name, c.path)
		}
	}
	if t.byPath[t.special.Login].Policy.RequiresAuth {
		return nil, fmt.Errorf("login route %s must be public", t.special.Login)
	}
	return t, nil
}

// DefaultTable returns the stock table.
func DefaultTable() *Table {
	t, err := NewTable(DefaultRoutes(), DefaultSpecial())
	if err != nil {
		panic(err)
	}
	return t
}

// Normalize trims whitespace and trailing slashes and ensures a leading
// slash. Query strings are dropped.
func Normalize(path string) string {
	path = strings.TrimSpace(path)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}

// Lookup finds the route for path.
func (t *Table) Lookup(path string) (Route, bool) {
	r, ok := t.byPath[Normalize(path)]
	return r, ok
}

// Routes returns the routes in declaration order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Special returns the login, register, landing and enrollment paths.
func (t *Table) Special() Special { return t.special }

// IsAuthEntry reports whether path is the login or registration route.
func (t *Table) IsAuthEntry(path string) bool {
	path = Normalize(path)
	return path == t.special.Login || (t.special.Register != "" && path == t.special.Register)
}
