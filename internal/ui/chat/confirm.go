// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// confirmRequestMsg asks the view to show a yes/no overlay.
type confirmRequestMsg struct {
	Message string
	reply   chan<- bool
}

// ConfirmBridge implements the controller's Confirmer on top of the running
// program. Confirm blocks the calling goroutine (never the UI loop) until the
// user answers.
type ConfirmBridge struct {
	mu       sync.Mutex
	send     func(tea.Msg)
	detached chan struct{}
}

// NewConfirmBridge creates a bridge with no program attached. Until Attach is
// called every question is answered no.
func NewConfirmBridge() *ConfirmBridge {
	return &ConfirmBridge{}
}

// Attach connects the bridge to a program's Send method. Pass nil to detach.
func (b *ConfirmBridge) Attach(send func(tea.Msg)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.detached != nil {
		close(b.detached)
		b.detached = nil
	}
	b.send = send
	if send != nil {
		b.detached = make(chan struct{})
	}
}

// Confirm shows message and waits for y or n.
func (b *ConfirmBridge) Confirm(message string) bool {
	b.mu.Lock()
	send, detached := b.send, b.detached
	b.mu.Unlock()
	if send == nil {
		return false
	}

	reply := make(chan bool, 1)
	send(confirmRequestMsg{Message: message, reply: reply})
	select {
	case yes := <-reply:
		return yes
	case <-detached:
		// The program exited before the user answered.
		return false
	}
}
