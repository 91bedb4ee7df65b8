// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"sort"
	"strings"
)

// =============================================================================
// COMPLETER
// =============================================================================

// Completer handles tab completion for commands and arguments.
type Completer struct {
	registry *Registry

	// Callbacks for dynamic completion
	ModelsFn func() []string // Returns selectable models
	RolesFn  func() []string // Returns selectable roles
}

// NewCompleter creates a new completer with the given registry.
func NewCompleter(registry *Registry) *Completer {
	return &Completer{registry: registry}
}

// Complete returns full-line candidates for input. It fits line editors
// that replace the whole line with the chosen candidate.
func (c *Completer) Complete(input string) []string {
	if !strings.HasPrefix(input, "/") {
		return nil
	}

	parts := tokenize(input)
	if len(parts) == 0 {
		return nil
	}

	// Still typing the command name?
	if len(parts) == 1 && !strings.HasSuffix(input, " ") {
		return c.completeCommands(parts[0])
	}

	cmd := c.registry.Get(parts[0])
	if cmd == nil || len(cmd.Args) == 0 {
		return nil
	}

	partial := ""
	if len(parts) > 1 && !strings.HasSuffix(input, " ") {
		partial = parts[len(parts)-1]
	}
	if len(parts) > 2 || (len(parts) == 2 && strings.HasSuffix(input, " ")) {
		// Only the first argument is completed.
		return nil
	}

	var out []string
	for _, v := range c.argValues(cmd.Args[0]) {
		if strings.HasPrefix(strings.ToLower(v), strings.ToLower(partial)) {
			out = append(out, parts[0]+" "+v)
		}
	}
	return out
}

func (c *Completer) completeCommands(prefix string) []string {
	var out []string
	for _, name := range c.registry.Names() {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (c *Completer) argValues(arg ArgDef) []string {
	switch arg.Type {
	case ArgTypeEnum:
		return arg.Values
	case ArgTypeModel:
		if c.ModelsFn != nil {
			return c.ModelsFn()
		}
	case ArgTypeRole:
		if c.RolesFn != nil {
			return c.RolesFn()
		}
	}
	return nil
}
