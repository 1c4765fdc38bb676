// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// toast.go - Non-blocking notices shown in the bottom-right corner.
//
// Toasts auto-dismiss so the user can keep working while a notice is shown.

package ui

import (
	"strconv"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/vaulthub-tui/internal/notice"
)

// DefaultToastDuration is the display time of info and success toasts.
const DefaultToastDuration = 4 * time.Second

const maxToasts = 5

// Toast is one visible notice.
type Toast struct {
	ID        int
	Message   string
	Level     notice.Level
	CreatedAt time.Time
	Duration  time.Duration
}

// ToastManager keeps the visible toasts, newest first.
type ToastManager struct {
	mu     sync.Mutex
	toasts []Toast
	nextID int
	base   time.Duration
	now    func() time.Time
}

// NewToastManager returns a manager whose info toasts last base. Warnings
// last half as long again and errors twice as long.
func NewToastManager(base time.Duration) *ToastManager {
	if base <= 0 {
		base = DefaultToastDuration
	}
	return &ToastManager{nextID: 1, base: base, now: time.Now}
}

func (m *ToastManager) durationFor(l notice.Level) time.Duration {
	switch l {
	case notice.LevelError:
		return 2 * m.base
	case notice.LevelWarning:
		return m.base * 3 / 2
	default:
		return m.base
	}
}

// Add shows message and returns its id. A message identical to the newest
// visible toast refreshes that toast instead of stacking a copy.
func (m *ToastManager) Add(level notice.Level, message string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.toasts) > 0 && m.toasts[0].Message == message && m.toasts[0].Level == level {
		m.toasts[0].CreatedAt = m.now()
		return m.toasts[0].ID
	}
	t := Toast{
		ID:        m.nextID,
		Message:   message,
		Level:     level,
		CreatedAt: m.now(),
		Duration:  m.durationFor(level),
	}
	m.nextID++
	m.toasts = append([]Toast{t}, m.toasts...)
	if len(m.toasts) > maxToasts {
		m.toasts = m.toasts[:maxToasts]
	}
	return t.ID
}

// Dismiss removes the newest toast.
func (m *ToastManager) Dismiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.toasts) > 0 {
		m.toasts = m.toasts[1:]
	}
}

// Tick drops expired toasts and returns how many remain.
func (m *ToastManager) Tick() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	active := m.toasts[:0]
	for _, t := range m.toasts {
		if now.Sub(t.CreatedAt) < t.Duration {
			active = append(active, t)
		}
	}
	m.toasts = active
	return len(m.toasts)
}

// Toasts returns a copy of the visible toasts, newest first.
func (m *ToastManager) Toasts() []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Toast(nil), m.toasts...)
}

// =============================================================================
// TOAST MESSAGES
// =============================================================================

// toastTickMsg is sent periodically to expire toasts.
type toastTickMsg struct {
	Time time.Time
}

// toastTickCmd ticks toasts every 250ms.
func toastTickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return toastTickMsg{Time: t}
	})
}

// =============================================================================
// TOAST RENDERING
// =============================================================================

// renderToast renders a single toast.
func renderToast(t Toast, width int, remaining time.Duration) string {
	maxWidth := 60
	if width > 0 && width-8 < maxWidth {
		maxWidth = width - 8
	}
	if maxWidth < 30 {
		maxWidth = 30
	}

	var color lipgloss.AdaptiveColor
	var icon string
	switch t.Level {
	case notice.LevelError:
		color, icon = Rose, IconError
	case notice.LevelWarning:
		color, icon = Amber, IconWarning
	case notice.LevelSuccess:
		color, icon = Emerald, IconSuccess
	default:
		color, icon = Cyan, IconInfo
	}

	iconStyle := lipgloss.NewStyle().Foreground(color).Bold(true)
	msgStyle := lipgloss.NewStyle().Foreground(TextPrimary).Width(maxWidth - 8)
	content := iconStyle.Render(icon+" ") + msgStyle.Render(wrapText(t.Message, maxWidth-10))

	hints := "[x] dismiss"
	if secs := int(remaining.Seconds()); secs > 0 {
		hints += "  " + strconv.Itoa(secs) + "s"
	}
	content += "\n" + hintStyle.Render(hints)

	return lipgloss.NewStyle().
		Background(SurfaceDim).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 2).
		MaxWidth(maxWidth).
		Render(content)
}

// renderToasts stacks the visible toasts, newest at the bottom, aligned
// right.
func (m *ToastManager) render(width int) string {
	toasts := m.Toasts()
	if len(toasts) == 0 {
		return ""
	}
	now := m.now()
	rendered := make([]string, 0, len(toasts))
	for i := len(toasts) - 1; i >= 0; i-- {
		t := toasts[i]
		rendered = append(rendered, renderToast(t, width, t.Duration-now.Sub(t.CreatedAt)))
	}
	stack := lipgloss.JoinVertical(lipgloss.Right, rendered...)
	if width > 0 {
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, stack)
	}
	return stack
}

// wrapText wraps on word boundaries by display width.
func wrapText(text string, maxWidth int) string {
	if maxWidth <= 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if runewidth.StringWidth(line)+1+runewidth.StringWidth(w) <= maxWidth {
			line += " " + w
			continue
		}
		lines = append(lines, line)
		line = w
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}
