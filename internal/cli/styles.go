// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared styling for vaulthub commands.
//
// Colors are disabled for non-TTY output and when NO_COLOR is set.

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/vaulthub-tui/internal/notice"
)

func init() {
	applyColorProfile()
}

func applyColorProfile() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for command titles and headers
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")). // Cyan
			MarginBottom(1)

	// SectionStyle is used for section headers within commands
	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			MarginTop(1)

	// LabelStyle is used for field labels
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(18)

	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")). // Green
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // Red
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // Yellow/Orange

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))

	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("75")) // Blue

	// SecretStyle marks values the user asked to reveal.
	SecretStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("213")).
			Bold(true)
)

// =============================================================================
// HELPER FUNCTIONS FOR COMMON PATTERNS
// =============================================================================

// RenderConditional renders text with style if colors are enabled,
// otherwise returns the text unmodified.
func RenderConditional(style lipgloss.Style, text string) string {
	if !ColorsEnabled() {
		return text
	}
	return style.Render(text)
}

// RenderLabel renders a label with consistent width.
func RenderLabel(label string) string {
	if !ColorsEnabled() {
		return runewidth.FillRight(label, 18)
	}
	return LabelStyle.Render(label)
}

// RenderStatus renders a status indicator with appropriate color.
func RenderStatus(status string) string {
	switch strings.ToLower(status) {
	case "ok", "success", "active", "completed", "allow", "allowed":
		return RenderConditional(SuccessStyle, "["+strings.ToUpper(status)+"]")
	case "error", "fail", "failed", "disabled", "locked", "redirect":
		return RenderConditional(ErrorStyle, "["+strings.ToUpper(status)+"]")
	case "warning", "pending", "in_progress", "running":
		return RenderConditional(WarningStyle, "["+strings.ToUpper(status)+"]")
	default:
		return RenderConditional(DimStyle, "["+strings.ToUpper(status)+"]")
	}
}

// noticeStyle maps a notice level to its style.
func noticeStyle(l notice.Level) (lipgloss.Style, string) {
	switch l {
	case notice.LevelError:
		return ErrorStyle, "[ERROR]"
	case notice.LevelWarning:
		return WarningStyle, "[WARN]"
	case notice.LevelSuccess:
		return SuccessStyle, "[OK]"
	default:
		return InfoStyle, "[INFO]"
	}
}

// maxCellWidth caps table cells so long names do not wrap rows.
const maxCellWidth = 40

// RenderTable renders rows under headers. Cells are truncated by display
// width.
func RenderTable(headers []string, rows [][]string) string {
	t := table.New().Headers(headers...)
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = runewidth.Truncate(c, maxCellWidth, "...")
		}
		t.Row(cells...)
	}
	if ColorsEnabled() {
		t.Border(lipgloss.RoundedBorder()).
			BorderStyle(DimStyle).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return TitleStyle.MarginBottom(0).Padding(0, 1)
				}
				return lipgloss.NewStyle().Padding(0, 1)
			})
	} else {
		t.Border(lipgloss.NormalBorder()).
			StyleFunc(func(row, col int) lipgloss.Style {
				return lipgloss.NewStyle().Padding(0, 1)
			})
	}
	return t.Render()
}
