// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash commands shared by the REPL and the TUI.
package commands

import (
	"sort"

	"github.com/jeranaias/parley/internal/chat"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Command represents a slash command that can be executed.
type Command struct {
	// Name is the primary command name (e.g., "/help")
	Name string

	// Aliases are alternative names (e.g., "/h", "/?")
	Aliases []string

	// Description is shown in help and completion
	Description string

	// Usage shows argument syntax (e.g., "/model <name>")
	Usage string

	// Args defines the expected arguments
	Args []ArgDef

	// Handler is the function that executes the command
	Handler func(ctx *Context, args []string) Result

	// Hidden commands don't appear in help
	Hidden bool
}

// ArgDef defines an argument for a command.
type ArgDef struct {
	Name        string
	Type        ArgType
	Description string

	// Values for enum types
	Values []string
}

// ArgType indicates what kind of completion to provide.
type ArgType int

const (
	ArgTypeString ArgType = iota // Free-form string
	ArgTypeModel                 // Model from the catalog
	ArgTypeRole                  // Role from the catalog
	ArgTypeEnum                  // One of predefined values
)

// Context carries what handlers act on.
type Context struct {
	Controller *chat.Controller
	Registry   *Registry
}

// Result is what a handler reports back to the adapter.
type Result struct {
	// Output is text to show the user.
	Output string

	// Quit asks the adapter to exit.
	Quit bool

	// Err is a user-facing failure.
	Err error
}

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds all registered commands.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
}

// NewRegistry creates a new command registry with all built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
	r.registerBuiltins()
	return r
}

// Register adds a command to the registry.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd
	}
}

// Get retrieves a command by name or alias.
func (r *Registry) Get(name string) *Command {
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	if cmd, ok := r.aliases[name]; ok {
		return cmd
	}
	return nil
}

// All returns all visible commands sorted by name.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		if cmd.Hidden {
			continue
		}
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// Names returns every command name and alias.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.commands)+len(r.aliases))
	for name := range r.commands {
		names = append(names, name)
	}
	for alias := range r.aliases {
		names = append(names, alias)
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	r.Register(&Command{
		Name:        "/help",
		Aliases:     []string{"/h", "/?"},
		Description: "Show available commands",
		Handler:     handleHelp,
	})

	r.Register(&Command{
		Name:        "/quit",
		Aliases:     []string{"/q", "/exit"},
		Description: "Exit parley",
		Handler:     handleQuit,
	})

	r.Register(&Command{
		Name:        "/clear",
		Description: "Delete the conversation history",
		Handler:     handleClear,
	})

	r.Register(&Command{
		Name:        "/export",
		Description: "Print the history in a format",
		Usage:       "/export [json|text|markdown|yaml]",
		Args: []ArgDef{
			{
				Name:        "format",
				Type:        ArgTypeEnum,
				Values:      []string{"json", "text", "markdown", "yaml"},
				Description: "Export format",
			},
		},
		Handler: handleExport,
	})

	r.Register(&Command{
		Name:        "/download",
		Aliases:     []string{"/dl"},
		Description: "Save the history as a text file",
		Handler:     handleDownload,
	})

	r.Register(&Command{
		Name:        "/model",
		Aliases:     []string{"/m"},
		Description: "Show or select the model",
		Usage:       "/model [name]",
		Args: []ArgDef{
			{Name: "name", Type: ArgTypeModel, Description: "Model identifier"},
		},
		Handler: handleModel,
	})

	r.Register(&Command{
		Name:        "/role",
		Aliases:     []string{"/r"},
		Description: "Show or select the persona role",
		Usage:       "/role [name]",
		Args: []ArgDef{
			{Name: "name", Type: ArgTypeRole, Description: "Role identifier"},
		},
		Handler: handleRole,
	})

	r.Register(&Command{
		Name:        "/history",
		Description: "Toggle the history panel",
		Handler:     handleHistory,
	})
}
