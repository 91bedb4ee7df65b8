// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the parley command line.
//
// The root command starts the full-screen chat; subcommands provide a
// line-oriented chat, single-turn queries, and history, configuration,
// model and role management. Every command wires the same session
// controller through NewApp.
//
// # Commands
//
//   - tui: full-screen chat (default on a terminal)
//   - chat: line-oriented chat with slash commands
//   - ask: one turn, reply printed to stdout
//   - history show|clear|export
//   - config show|init|path
//   - model [id], role [id]
//   - identity
//
// # Exit Codes
//
// Errors map to exit codes through ExitCodeFor: usage errors exit 2,
// configuration errors 3, backend errors 5, storage errors 7.
package cli
