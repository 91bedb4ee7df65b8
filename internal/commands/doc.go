// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash commands shared by the REPL and the TUI.
//
// # Key Types
//
//   - Registry: Command registry with all available commands
//   - ArgError: Argument a command cannot take
//   - Result: Handler output for the adapter to display
//   - Completer: Tab completion for commands and arguments
//
// # Built-in Commands
//
//   - /help, /quit
//   - /clear: delete the history
//   - /export [format], /download
//   - /model [name], /role [name]
//   - /history: toggle the history panel
//
// # Usage
//
//	ctx := &commands.Context{Controller: ctrl, Registry: commands.NewRegistry()}
//	if res, ok := commands.Execute(ctx, line); ok {
//	    show(res)
//	} else {
//	    ctrl.Submit(context.Background(), line)
//	}
package commands
