// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// PALETTE
// =============================================================================
// All colors use AdaptiveColor for automatic light/dark detection.

var (
	// Cyan - Brand color, info, active route
	Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

	// Emerald - Success states, unlocked vault
	Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

	// Rose - Errors, forced logout
	Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

	// Amber - Warnings, idle countdown
	Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

	// Purple - Selections, revealed secrets
	Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

	SurfaceDim    = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}
	Overlay       = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}
	TextPrimary   = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}
	TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}
	TextMuted     = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}
	TextInverse   = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}
)

// Status indicators used in toasts and the status bar.
const (
	IconError   = "✗"
	IconWarning = "!"
	IconSuccess = "✓"
	IconInfo    = "i"
	IconLocked  = "🔒"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextInverse).
			Background(Cyan).
			Padding(0, 1)

	headerRouteStyle = lipgloss.NewStyle().
				Foreground(TextSecondary).
				Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(TextSecondary).
			Background(SurfaceDim).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Cyan).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(TextSecondary).
			Width(20)

	valueStyle = lipgloss.NewStyle().Foreground(TextPrimary)

	hintStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Italic(true)

	errorTextStyle = lipgloss.NewStyle().Foreground(Rose)

	warningTextStyle = lipgloss.NewStyle().Foreground(Amber)

	selectedStyle = lipgloss.NewStyle().
			Foreground(Purple).
			Bold(true)

	secretStyle = lipgloss.NewStyle().
			Foreground(Purple).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Purple).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Overlay).
			Padding(1, 2)
)
