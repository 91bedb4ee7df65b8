// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrUnknownCommand is returned for a slash command that is not registered.
var ErrUnknownCommand = errors.New("unknown command")

// IsCommand reports whether input is a slash command rather than a message.
func IsCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

// Match returns the command named by the first word of input, or nil.
func (r *Registry) Match(input string) *Command {
	if !IsCommand(input) {
		return nil
	}
	return r.Get(strings.Fields(input)[0])
}

// resolve splits input into a registered command and its arguments and
// checks the arguments against the command's definitions. ok is false when
// input is not a slash command.
func (r *Registry) resolve(input string) (cmd *Command, args []string, ok bool, err error) {
	if !IsCommand(input) {
		return nil, nil, false, nil
	}

	words := tokenize(strings.TrimSpace(input))
	cmd = r.Get(words[0])
	if cmd == nil {
		return nil, nil, true, fmt.Errorf("%w: %s", ErrUnknownCommand, words[0])
	}
	args = words[1:]
	if err := checkArgs(cmd, args); err != nil {
		return nil, nil, true, err
	}
	return cmd, args, true, nil
}

// tokenize splits a command line on spaces. Single or double quotes group
// words, and inside quotes a backslash escapes a quote or a backslash.
func tokenize(line string) []string {
	var (
		words []string
		word  strings.Builder
		quote rune
		open  bool
	)
	flush := func() {
		if open {
			words = append(words, word.String())
			word.Reset()
			open = false
		}
	}

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case quote != 0 && ch == '\\' && i+1 < len(runes) && strings.ContainsRune(`"'\`, runes[i+1]):
			i++
			word.WriteRune(runes[i])
		case quote != 0 && ch == quote:
			quote = 0
		case quote == 0 && (ch == '"' || ch == '\''):
			quote = ch
			open = true
		case quote == 0 && unicode.IsSpace(ch):
			flush()
		default:
			word.WriteRune(ch)
			open = true
		}
	}
	flush()
	return words
}

// ArgError reports an argument a command cannot take.
type ArgError struct {
	Command string
	Arg     string
	Got     string
	Allowed []string
}

func (e *ArgError) Error() string {
	if e.Arg == "" {
		return fmt.Sprintf("%s: unexpected argument %q", e.Command, e.Got)
	}
	return fmt.Sprintf("%s: %s must be one of %s (got %q)",
		e.Command, e.Arg, strings.Join(e.Allowed, ", "), e.Got)
}

func checkArgs(cmd *Command, args []string) error {
	if len(args) > len(cmd.Args) {
		return &ArgError{Command: cmd.Name, Got: args[len(cmd.Args)]}
	}
	for i, arg := range args {
		def := cmd.Args[i]
		if def.Type != ArgTypeEnum || containsFold(def.Values, arg) {
			continue
		}
		return &ArgError{Command: cmd.Name, Arg: def.Name, Got: arg, Allowed: def.Values}
	}
	return nil
}

func containsFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
