// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/vaulthub-tui/internal/app"
	"github.com/jeranaias/vaulthub-tui/internal/notice"
	"github.com/jeranaias/vaulthub-tui/internal/router"
	"github.com/jeranaias/vaulthub-tui/internal/session"
)

// navigatedMsg is the result of a guarded navigation.
type navigatedMsg struct {
	Transition router.Transition
	Err        error
}

// logoutDoneMsg reports a finished logout.
type logoutDoneMsg struct{}

// Model is the root Bubble Tea model. The route is owned by the navigator;
// the model only mirrors it and swaps screens when it changes.
type Model struct {
	ctx   context.Context
	app   *app.App
	deps  *deps
	start string

	route string
	view  view
	menu  *menuView

	toasts  *ToastManager
	idle    *session.IdleTracker
	spinner spinner.Model
	pending int

	width  int
	height int
}

// NewModel returns a model that first navigates to start, or to the root
// route when start is empty.
func NewModel(ctx context.Context, a *app.App, start string) *Model {
	if start == "" {
		start = router.PathRoot
	}
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(Cyan)

	timeout := a.Config.Session.IdleTimeout()
	return &Model{
		ctx:     ctx,
		app:     a,
		deps:    &deps{ctx: ctx, app: a},
		start:   start,
		toasts:  NewToastManager(a.Config.UI.NoticeDuration()),
		idle:    session.NewIdleTracker(timeout, timeout/5),
		spinner: sp,
	}
}

// Route returns the route whose screen is shown.
func (m *Model) Route() string { return m.route }

// Init starts the first navigation and the tickers.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.navigate(m.start),
		toastTickCmd(),
		m.idle.TickCmd(),
		m.spinner.Tick,
	)
}

func (m *Model) navigate(path string) tea.Cmd {
	m.pending++
	ctx, a := m.ctx, m.app
	return func() tea.Msg {
		tr, err := a.Navigate(ctx, path)
		return navigatedMsg{Transition: tr, Err: err}
	}
}

// sync shows the navigator's current route.
func (m *Model) sync() tea.Cmd {
	current := m.app.Navigator.Current()
	if current == "" || (current == m.route && m.view != nil) {
		return nil
	}
	m.route = current
	m.menu = nil
	m.view = viewFor(m.deps, current)
	return m.view.Init()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		m.idle.RecordActivity()
		return m.handleKey(msg)

	case navigateMsg:
		return m, m.navigate(msg.Path)

	case navigatedMsg:
		m.pending--
		if msg.Err != nil {
			if errors.Is(msg.Err, router.ErrSuperseded) || errors.Is(msg.Err, context.Canceled) {
				return m, m.sync()
			}
			m.toasts.Add(notice.LevelError, msg.Err.Error())
			if m.app.Navigator.Current() == "" && router.Normalize(msg.Transition.Requested) != router.PathRoot {
				return m, m.navigate(router.PathRoot)
			}
			return m, m.sync()
		}
		return m, m.sync()

	case routeChangedMsg:
		return m, m.sync()

	case noticeMsg:
		m.toasts.Add(msg.Notice.Level, msg.Notice.Message(m.app.Localizer))
		return m, nil

	case logoutMsg:
		ctx, a := m.ctx, m.app
		return m, func() tea.Msg {
			_ = a.Logout(ctx)
			return logoutDoneMsg{}
		}

	case logoutDoneMsg:
		return m, m.sync()

	case toastTickMsg:
		m.toasts.Tick()
		return m, toastTickCmd()

	case session.IdleTickMsg:
		return m, m.idle.HandleTick()

	case session.IdleWarningMsg:
		if m.app.Session.IsAuthenticated() {
			m.toasts.Add(notice.LevelWarning,
				m.app.Localizer.Sprintf(notice.KeyIdleWarning, session.FormatDuration(msg.Remaining)))
		}
		return m, nil

	case session.IdleTimeoutMsg:
		if !m.app.Session.IsAuthenticated() {
			return m, nil
		}
		ctx, a := m.ctx, m.app
		return m, func() tea.Msg {
			_ = a.IdleLogout(ctx)
			return logoutDoneMsg{}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.view == nil {
		return m, nil
	}
	var cmd tea.Cmd
	m.view, cmd = m.view.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+n":
		if m.app.Session.IsAuthenticated() && m.menu == nil {
			m.menu = newMenuView(m.app.Guard.Table(), m.route)
			return m, nil
		}
	case "ctrl+l":
		if m.app.Session.IsAuthenticated() {
			return m, func() tea.Msg { return logoutMsg{} }
		}
	}

	if m.menu != nil {
		cmd, closed := m.menu.Update(msg)
		if closed {
			m.menu = nil
		}
		return m, cmd
	}

	typing := m.view != nil && m.view.Typing()
	if !typing {
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "x":
			m.toasts.Dismiss()
			return m, nil
		}
	}

	if m.view == nil {
		return m, nil
	}
	var cmd tea.Cmd
	m.view, cmd = m.view.Update(msg)
	return m, cmd
}

// =============================================================================
// RENDERING
// =============================================================================

func (m *Model) View() string {
	header := m.renderHeader()
	status := m.renderStatus()
	toasts := m.toasts.render(m.width)

	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(status)
	if toasts != "" {
		bodyHeight -= lipgloss.Height(toasts)
	}

	var body string
	switch {
	case m.menu != nil:
		body = m.menu.View()
	case m.view != nil:
		body = m.view.View(m.width, bodyHeight)
	default:
		body = hintStyle.Render("Loading...")
	}
	if bodyHeight > 0 {
		body = lipgloss.NewStyle().Height(bodyHeight).MaxHeight(bodyHeight).Render(body)
	}

	parts := []string{header, body}
	if toasts != "" {
		parts = append(parts, toasts)
	}
	parts = append(parts, status)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) renderHeader() string {
	title := m.route
	if r, ok := m.app.Guard.Table().Lookup(m.route); ok && r.Title != "" {
		title = r.Title
	}
	left := headerStyle.Render("VaultHub") + " " + headerRouteStyle.Render(title)

	right := hintStyle.Render(IconLocked + " not logged in")
	if m.app.Session.IsAuthenticated() {
		right = valueStyle.Render("logged in")
		if u := m.app.Session.CurrentUser(); u != nil {
			right = valueStyle.Render(u.Username) + hintStyle.Render(" ("+u.Role+")")
		}
	}
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m *Model) renderStatus() string {
	var parts []string
	if m.pending > 0 {
		parts = append(parts, m.spinner.View())
	}
	if m.view != nil {
		if h := m.view.Help(); h != "" {
			parts = append(parts, h)
		}
	}
	if m.app.Session.IsAuthenticated() {
		parts = append(parts, "ctrl+n menu • ctrl+l log out")
		if m.idle.Enabled() {
			parts = append(parts, "idle "+session.FormatDuration(m.idle.RemainingTime()))
		}
	}
	parts = append(parts, "ctrl+c quit")
	line := strings.Join(parts, " • ")
	if m.width > 0 {
		return statusBarStyle.Width(m.width).Render(line)
	}
	return statusBarStyle.Render(line)
}
