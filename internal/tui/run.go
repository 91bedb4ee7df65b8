// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/parley/internal/chat"
)

// Run shows the chat screen until the user quits or ctx is done.
func Run(ctx context.Context, ctrl *chat.Controller, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := New(ctx, ctrl, opts)
	defer ctrl.SetOnChange(nil)

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
