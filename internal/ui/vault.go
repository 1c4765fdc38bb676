// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/vaulthub-tui/internal/api"
)

type vaultLoadedMsg struct {
	secrets []api.Secret
	err     error
}

type secretRevealedMsg struct {
	secret *api.DecryptedSecret
	err    error
}

// vaultView lists the user's secrets and reveals one after the PIN is
// entered. The plaintext is dropped as soon as the panel closes.
type vaultView struct {
	d       *deps
	tbl     *tableView
	secrets []api.Secret

	pin       textinput.Model
	prompting bool
	busy      bool
	err       string
	revealed  *api.DecryptedSecret
}

func newVaultView(d *deps) *vaultView {
	v := &vaultView{d: d}
	v.tbl = newTableView(d, "Vault", []table.Column{
		{Title: "Name", Width: 28},
		{Title: "Type", Width: 14},
		{Title: "Accessed", Width: 9},
		{Title: "Updated", Width: 17},
	}, nil)

	v.pin = textinput.New()
	v.pin.Prompt = "PIN: "
	v.pin.EchoMode = textinput.EchoPassword
	v.pin.EchoCharacter = '•'
	v.pin.CharLimit = 128
	return v
}

func (v *vaultView) load() tea.Cmd {
	v.tbl.loading = true
	ctx, c := v.d.ctx, v.d.app.Client
	return func() tea.Msg {
		res, err := c.ListSecrets(ctx, api.ListSecretsRequest{Page: 1, PageSize: 100})
		if err != nil {
			return vaultLoadedMsg{err: err}
		}
		return vaultLoadedMsg{secrets: res.Secrets}
	}
}

func (v *vaultView) Init() tea.Cmd { return v.load() }

func (v *vaultView) Typing() bool { return v.prompting }

func (v *vaultView) Help() string {
	switch {
	case v.prompting:
		return "enter unlock • esc cancel"
	case v.revealed != nil:
		return "esc hide"
	default:
		return "↑/↓ move • enter reveal • r reload"
	}
}

func (v *vaultView) selected() (api.Secret, bool) {
	i := v.tbl.tbl.Cursor()
	if i < 0 || i >= len(v.secrets) {
		return api.Secret{}, false
	}
	return v.secrets[i], true
}

func (v *vaultView) Update(msg tea.Msg) (view, tea.Cmd) {
	switch msg := msg.(type) {
	case vaultLoadedMsg:
		v.tbl.loading = false
		v.tbl.err = ""
		if msg.err != nil {
			v.tbl.err = "Could not load secrets: " + msg.err.Error()
			return v, nil
		}
		v.secrets = msg.secrets
		rows := make([]table.Row, 0, len(msg.secrets))
		for _, s := range msg.secrets {
			rows = append(rows, table.Row{
				runewidth.Truncate(s.SecretName, 28, "…"),
				s.SecretType,
				formatCount(s.AccessCount),
				s.UpdatedAt.Local().Format("2006-01-02 15:04"),
			})
		}
		v.tbl.tbl.SetRows(rows)
		return v, nil

	case secretRevealedMsg:
		v.busy = false
		v.pin.Reset()
		if msg.err != nil {
			v.err = msg.err.Error()
			return v, nil
		}
		v.prompting = false
		v.pin.Blur()
		v.revealed = msg.secret
		return v, nil

	case tea.KeyMsg:
		switch {
		case v.prompting:
			return v.updatePrompt(msg)
		case v.revealed != nil:
			if msg.String() == "esc" || msg.String() == "enter" {
				v.revealed = nil
			}
			return v, nil
		}
		switch msg.String() {
		case "r":
			if !v.tbl.loading {
				return v, v.load()
			}
			return v, nil
		case "enter":
			if _, ok := v.selected(); ok {
				v.prompting = true
				v.err = ""
				return v, v.pin.Focus()
			}
			return v, nil
		}
	}

	var cmd tea.Cmd
	v.tbl.tbl, cmd = v.tbl.tbl.Update(msg)
	return v, cmd
}

func (v *vaultView) updatePrompt(msg tea.KeyMsg) (view, tea.Cmd) {
	if v.busy {
		return v, nil
	}
	switch msg.String() {
	case "esc":
		v.prompting = false
		v.err = ""
		v.pin.Reset()
		v.pin.Blur()
		return v, nil
	case "enter":
		s, ok := v.selected()
		if !ok || v.pin.Value() == "" {
			return v, nil
		}
		v.busy = true
		ctx, c, pin := v.d.ctx, v.d.app.Client, v.pin.Value()
		return v, func() tea.Msg {
			dec, err := c.DecryptSecret(ctx, s.SecretUUID, pin)
			return secretRevealedMsg{secret: dec, err: err}
		}
	}
	var cmd tea.Cmd
	v.pin, cmd = v.pin.Update(msg)
	return v, cmd
}

func (v *vaultView) View(width, height int) string {
	panel := v.panel(width)
	if panel == "" {
		return v.tbl.View(width, height)
	}
	// The panel must stay visible; the table gives up rows for it.
	return v.tbl.View(width, height-lipgloss.Height(panel)-1) + "\n" + panel
}

func (v *vaultView) panel(width int) string {
	var b strings.Builder
	switch {
	case v.prompting:
		s, _ := v.selected()
		b.WriteString(titleStyle.Render(IconLocked+" "+s.SecretName) + "\n")
		b.WriteString(v.pin.View())
		if v.busy {
			b.WriteString("\n" + hintStyle.Render("Decrypting..."))
		}
		if v.err != "" {
			b.WriteString("\n" + errorTextStyle.Render(v.err))
		}
	case v.revealed != nil:
		w := width - 8
		if w < 20 {
			w = 20
		}
		b.WriteString(titleStyle.Render(v.revealed.SecretName) + "\n")
		b.WriteString(secretStyle.Width(w).Render(v.revealed.PlainData))
	default:
		return ""
	}
	return panelStyle.Render(b.String())
}
