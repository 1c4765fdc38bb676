// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/vaulthub-tui/internal/app"
)

// Options configures Run.
type Options struct {
	In  io.Reader
	Out io.Writer

	// Start is the first route to open. Empty means the root route.
	Start string

	// NoAltScreen keeps the UI in the main terminal buffer.
	NoAltScreen bool
}

// Run shows the interactive client until the user quits or ctx ends. Notices
// and forced redirects raised anywhere in a are delivered to the UI while it
// runs.
func Run(ctx context.Context, a *app.App, opts Options) error {
	bridge := &programBridge{}
	a.SetNotifier(bridge)
	a.Navigator.OnChange(bridge.routeChanged)
	defer bridge.Detach()

	m := NewModel(ctx, a, opts.Start)
	progOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.In != nil {
		progOpts = append(progOpts, tea.WithInput(opts.In))
	}
	if opts.Out != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Out))
	}
	if !opts.NoAltScreen {
		progOpts = append(progOpts, tea.WithAltScreen())
	}
	p := tea.NewProgram(m, progOpts...)

	// Send blocks until the event loop runs, so queued messages are flushed
	// from a separate goroutine.
	go bridge.Attach(p)

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
