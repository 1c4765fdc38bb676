// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/vaulthub-tui/internal/app"
	"github.com/jeranaias/vaulthub-tui/internal/router"
)

// view is the screen of one route.
type view interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (view, tea.Cmd)
	View(width, height int) string
	// Typing reports whether key presses belong to a text input.
	Typing() bool
	Help() string
}

// navigateMsg asks the model to navigate through the guard.
type navigateMsg struct {
	Path string
}

func navigateTo(path string) tea.Cmd {
	return func() tea.Msg { return navigateMsg{Path: path} }
}

// deps is what views need to talk to the service.
type deps struct {
	ctx context.Context
	app *app.App
}

// =============================================================================
// FORM
// =============================================================================

// formField describes one input of a form.
type formField struct {
	label       string
	placeholder string
	secret      bool
}

// formDoneMsg carries the outcome of a form submission.
type formDoneMsg struct {
	result string
	err    error
}

// formAction is a secondary operation bound to a key, such as sending a
// verification code for the address typed so far.
type formAction struct {
	help string
	run  func(ctx context.Context, values []string) (string, error)
}

type formActionMsg struct {
	note string
	err  error
}

// formView is a vertical list of inputs submitted together. After a
// successful submission it shows the result text until enter is pressed.
type formView struct {
	title  string
	intro  string
	inputs []textinput.Model
	labels []string
	focus  int

	submit func(ctx context.Context, values []string) (string, error)
	next   string
	back   string
	links   map[string]string // key -> route
	actions map[string]formAction

	d      *deps
	busy   bool
	err    string
	note   string
	result string
	done   bool
}

func newFormView(d *deps, title string, fields []formField, submit func(context.Context, []string) (string, error)) *formView {
	f := &formView{title: title, submit: submit, d: d}
	for _, fl := range fields {
		in := textinput.New()
		in.Placeholder = fl.placeholder
		in.Prompt = ""
		in.CharLimit = 512
		in.Width = 40
		if fl.secret {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		f.inputs = append(f.inputs, in)
		f.labels = append(f.labels, fl.label)
	}
	return f
}

func (f *formView) Init() tea.Cmd {
	if len(f.inputs) == 0 {
		return nil
	}
	return tea.Batch(f.inputs[0].Focus(), textinput.Blink)
}

func (f *formView) Typing() bool { return !f.done }

func (f *formView) Help() string {
	if f.done {
		return "enter continue"
	}
	parts := []string{"tab next field", "enter submit"}
	if f.back != "" {
		parts = append(parts, "esc back")
	}
	for _, key := range sortedKeys(f.actions) {
		parts = append(parts, key+" "+f.actions[key].help)
	}
	for _, key := range sortedKeys(f.links) {
		parts = append(parts, key+" "+f.links[key])
	}
	return strings.Join(parts, " • ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (f *formView) setFocus(i int) tea.Cmd {
	f.inputs[f.focus].Blur()
	f.focus = (i + len(f.inputs)) % len(f.inputs)
	return f.inputs[f.focus].Focus()
}

func (f *formView) values() []string {
	out := make([]string, len(f.inputs))
	for i, in := range f.inputs {
		out[i] = in.Value()
	}
	return out
}

func (f *formView) Update(msg tea.Msg) (view, tea.Cmd) {
	switch msg := msg.(type) {
	case formDoneMsg:
		f.busy = false
		for i := range f.inputs {
			if f.inputs[i].EchoMode == textinput.EchoPassword {
				f.inputs[i].Reset()
			}
		}
		if msg.err != nil {
			f.err = msg.err.Error()
			return f, nil
		}
		f.err = ""
		if msg.result == "" && f.next != "" {
			return f, navigateTo(f.next)
		}
		f.result = msg.result
		f.done = true
		return f, nil

	case formActionMsg:
		f.busy = false
		f.err, f.note = "", msg.note
		if msg.err != nil {
			f.err, f.note = msg.err.Error(), ""
		}
		return f, nil

	case tea.KeyMsg:
		if f.done {
			if msg.String() == "enter" && f.next != "" {
				return f, navigateTo(f.next)
			}
			return f, nil
		}
		if f.busy {
			return f, nil
		}
		if path, ok := f.links[msg.String()]; ok {
			return f, navigateTo(path)
		}
		if a, ok := f.actions[msg.String()]; ok {
			f.busy = true
			values, ctx := f.values(), f.d.ctx
			return f, func() tea.Msg {
				note, err := a.run(ctx, values)
				return formActionMsg{note: note, err: err}
			}
		}
		switch msg.String() {
		case "esc":
			if f.back != "" {
				return f, navigateTo(f.back)
			}
		case "tab", "down":
			return f, f.setFocus(f.focus + 1)
		case "shift+tab", "up":
			return f, f.setFocus(f.focus - 1)
		case "enter":
			if f.focus < len(f.inputs)-1 {
				return f, f.setFocus(f.focus + 1)
			}
			f.busy = true
			f.err = ""
			values := f.values()
			ctx, submit := f.d.ctx, f.submit
			return f, func() tea.Msg {
				res, err := submit(ctx, values)
				return formDoneMsg{result: res, err: err}
			}
		}
	}

	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f *formView) View(width, height int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(f.title))
	b.WriteString("\n")
	if f.intro != "" {
		b.WriteString(hintStyle.Render(f.intro))
		b.WriteString("\n\n")
	}
	if f.done {
		b.WriteString(f.result)
		b.WriteString("\n")
		return panelStyle.Render(b.String())
	}
	for i, in := range f.inputs {
		label := labelStyle.Render(f.labels[i])
		if i == f.focus {
			label = selectedStyle.Width(20).Render(f.labels[i])
		}
		b.WriteString(label + in.View() + "\n")
	}
	if f.busy {
		b.WriteString("\n" + hintStyle.Render("Working..."))
	}
	if f.note != "" {
		b.WriteString("\n" + hintStyle.Render(f.note))
	}
	if f.err != "" {
		b.WriteString("\n" + errorTextStyle.Render(f.err))
	}
	return panelStyle.Render(b.String())
}

// =============================================================================
// DETAIL
// =============================================================================

type detailLoadedMsg struct {
	rows [][2]string
	err  error
}

// detailView shows label/value pairs loaded from the service.
type detailView struct {
	title   string
	load    func(ctx context.Context) ([][2]string, error)
	d       *deps
	rows    [][2]string
	loading bool
	err     string
}

func newDetailView(d *deps, title string, load func(context.Context) ([][2]string, error)) *detailView {
	return &detailView{title: title, load: load, d: d}
}

func (v *detailView) reload() tea.Cmd {
	v.loading = true
	ctx, load := v.d.ctx, v.load
	return func() tea.Msg {
		rows, err := load(ctx)
		return detailLoadedMsg{rows: rows, err: err}
	}
}

func (v *detailView) Init() tea.Cmd { return v.reload() }
func (v *detailView) Typing() bool  { return false }
func (v *detailView) Help() string  { return "r reload" }

func (v *detailView) Update(msg tea.Msg) (view, tea.Cmd) {
	switch msg := msg.(type) {
	case detailLoadedMsg:
		v.loading = false
		v.rows = msg.rows
		v.err = ""
		if msg.err != nil {
			v.err = "Could not load: " + msg.err.Error()
		}
	case tea.KeyMsg:
		if msg.String() == "r" && !v.loading {
			return v, v.reload()
		}
	}
	return v, nil
}

func (v *detailView) View(width, height int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(v.title) + "\n")
	switch {
	case v.loading && v.rows == nil:
		b.WriteString(hintStyle.Render("Loading..."))
	case v.err != "":
		b.WriteString(errorTextStyle.Render(v.err))
	default:
		for _, r := range v.rows {
			b.WriteString(labelStyle.Render(r[0]) + valueStyle.Render(r[1]) + "\n")
		}
	}
	return panelStyle.Render(b.String())
}

// =============================================================================
// TABLE
// =============================================================================

type tableLoadedMsg struct {
	rows []table.Row
	err  error
}

// tableView lists rows loaded from the service.
type tableView struct {
	title string
	load  func(ctx context.Context) ([]table.Row, error)
	d     *deps
	tbl   table.Model

	loading bool
	err     string
}

func newTableView(d *deps, title string, cols []table.Column, load func(context.Context) ([]table.Row, error)) *tableView {
	t := table.New(table.WithColumns(cols), table.WithFocused(true), table.WithHeight(12))
	st := table.DefaultStyles()
	st.Header = st.Header.BorderStyle(lipgloss.NormalBorder()).BorderForeground(Overlay).BorderBottom(true).Bold(true)
	st.Selected = st.Selected.Foreground(TextInverse).Background(Purple).Bold(false)
	t.SetStyles(st)
	return &tableView{title: title, load: load, d: d, tbl: t}
}

func (v *tableView) reload() tea.Cmd {
	v.loading = true
	ctx, load := v.d.ctx, v.load
	return func() tea.Msg {
		rows, err := load(ctx)
		return tableLoadedMsg{rows: rows, err: err}
	}
}

func (v *tableView) Init() tea.Cmd { return v.reload() }
func (v *tableView) Typing() bool  { return false }
func (v *tableView) Help() string  { return "↑/↓ move • r reload" }

func (v *tableView) Update(msg tea.Msg) (view, tea.Cmd) {
	switch msg := msg.(type) {
	case tableLoadedMsg:
		v.loading = false
		v.err = ""
		if msg.err != nil {
			v.err = "Could not load: " + msg.err.Error()
			return v, nil
		}
		v.tbl.SetRows(msg.rows)
		return v, nil
	case tea.KeyMsg:
		if msg.String() == "r" && !v.loading {
			return v, v.reload()
		}
	}
	var cmd tea.Cmd
	v.tbl, cmd = v.tbl.Update(msg)
	return v, cmd
}

// minTableRows keeps a table usable when a panel takes most of the body.
const minTableRows = 3

func (v *tableView) View(width, height int) string {
	if height > 0 {
		v.tbl.SetHeight(max(height-8, minTableRows))
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(v.title) + "\n")
	switch {
	case v.err != "":
		b.WriteString(errorTextStyle.Render(v.err))
	case v.loading && len(v.tbl.Rows()) == 0:
		b.WriteString(hintStyle.Render("Loading..."))
	case len(v.tbl.Rows()) == 0:
		b.WriteString(hintStyle.Render("Nothing here yet."))
	default:
		b.WriteString(v.tbl.View())
	}
	return b.String()
}

// =============================================================================
// MENU
// =============================================================================

// menuEntry is a route or an action offered by the menu.
type menuEntry struct {
	label string
	path  string
}

// logoutEntry is the menu action that ends the session.
const logoutEntry = "logout"

// logoutMsg asks the model to log out.
type logoutMsg struct{}

// menuView lists the protected routes of the table.
type menuView struct {
	entries []menuEntry
	cursor  int
}

func newMenuView(t *router.Table, current string) *menuView {
	m := &menuView{}
	for _, r := range t.Routes() {
		if r.RedirectTo != "" || !r.Policy.RequiresAuth || r.Path == t.Special().Enrollment {
			continue
		}
		title := r.Title
		if r.Policy.RequiredRole != "" {
			title += fmt.Sprintf(" (%s)", r.Policy.RequiredRole)
		}
		if r.Path == current {
			m.cursor = len(m.entries)
		}
		m.entries = append(m.entries, menuEntry{label: title, path: r.Path})
	}
	m.entries = append(m.entries, menuEntry{label: "Log out", path: logoutEntry})
	return m
}

// Update returns a command when an entry was chosen, and closed when the
// menu should disappear.
func (m *menuView) Update(msg tea.KeyMsg) (cmd tea.Cmd, closed bool) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case "esc", "ctrl+n":
		return nil, true
	case "enter":
		e := m.entries[m.cursor]
		if e.path == logoutEntry {
			return func() tea.Msg { return logoutMsg{} }, true
		}
		return navigateTo(e.path), true
	}
	return nil, false
}

func (m *menuView) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Go to") + "\n")
	for i, e := range m.entries {
		line := "  " + e.label
		if i == m.cursor {
			line = selectedStyle.Render("> " + e.label)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + hintStyle.Render("enter open • esc close"))
	return panelStyle.Render(b.String())
}
