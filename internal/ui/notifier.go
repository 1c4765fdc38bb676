// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/vaulthub-tui/internal/notice"
	"github.com/jeranaias/vaulthub-tui/internal/router"
)

// noticeMsg carries a notice into the program.
type noticeMsg struct {
	Notice notice.Notice
}

// routeChangedMsg reports a route committed outside the model, such as the
// forced redirect after the service rejected the credential.
type routeChangedMsg struct {
	Transition router.Transition
}

// sender is the part of *tea.Program the bridge needs.
type sender interface {
	Send(msg tea.Msg)
}

// programBridge forwards notices and route changes into a running program.
// Messages arriving before Attach are queued.
//
// Send blocks until the event loop reads the message, so the model must only
// call into the App from commands, never from Update.
type programBridge struct {
	mu       sync.Mutex
	p        sender
	pending  []tea.Msg
	detached bool
}

// Attach starts delivery to p and flushes queued messages.
func (b *programBridge) Attach(p sender) {
	b.mu.Lock()
	b.p = p
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()
	for _, msg := range pending {
		p.Send(msg)
	}
}

// Detach stops delivery. Later messages are dropped.
func (b *programBridge) Detach() {
	b.mu.Lock()
	b.p = nil
	b.pending = nil
	b.detached = true
	b.mu.Unlock()
}

func (b *programBridge) send(msg tea.Msg) {
	b.mu.Lock()
	p := b.p
	if p == nil && !b.detached {
		b.pending = append(b.pending, msg)
	}
	b.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Notify implements notice.Notifier.
func (b *programBridge) Notify(n notice.Notice) {
	b.send(noticeMsg{Notice: n})
}

// routeChanged is a router.Navigator OnChange hook.
func (b *programBridge) routeChanged(tr router.Transition) {
	b.send(routeChangedMsg{Transition: tr})
}
