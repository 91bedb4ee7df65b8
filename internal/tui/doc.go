// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tui provides the full-screen chat built on Bubble Tea.
//
// The model renders a chat.View snapshot. The controller signals changes
// through OnChange, which the model turns into a re-read of the view on its
// own event loop; turns run in tea.Cmd goroutines so the interface keeps
// animating the typing indicator while a request is in flight.
//
// # Layout
//
//	header    model and role
//	viewport  transcript, or the history panel when toggled
//	input     multi-line textarea; Enter sends, Alt+Enter inserts a newline
//	footer    status line and key help
package tui
