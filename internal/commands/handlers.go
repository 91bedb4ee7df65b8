// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/parley/internal/chat"
	"github.com/jeranaias/parley/internal/export"
	"github.com/jeranaias/parley/internal/util"
)

// =============================================================================
// DISPATCH
// =============================================================================

// Execute parses input and runs the matching command. Input that is not a
// slash command returns ok=false and should be submitted as a message.
func Execute(ctx *Context, input string) (res Result, ok bool) {
	cmd, args, ok, err := ctx.Registry.resolve(input)
	if !ok {
		return Result{}, false
	}
	if errors.Is(err, ErrUnknownCommand) {
		return Result{Err: fmt.Errorf("%w (try /help)", err)}, true
	}
	if err != nil {
		return Result{Err: err}, true
	}
	return cmd.Handler(ctx, args), true
}

// =============================================================================
// HANDLERS
// =============================================================================

func handleHelp(ctx *Context, args []string) Result {
	var sb strings.Builder
	sb.WriteString("Commands:\n")
	for _, cmd := range ctx.Registry.All() {
		usage := cmd.Usage
		if usage == "" {
			usage = cmd.Name
		}
		sb.WriteString("  ")
		sb.WriteString(util.PadRight(usage, 36))
		sb.WriteString(cmd.Description)
		sb.WriteString("\n")
	}
	sb.WriteString("\nAnything else is sent to the assistant.")
	return Result{Output: sb.String()}
}

func handleQuit(ctx *Context, args []string) Result {
	return Result{Quit: true}
}

func handleClear(ctx *Context, args []string) Result {
	if err := ctx.Controller.Clear(); err != nil {
		return Result{Err: err}
	}
	return Result{Output: ctx.Controller.Translator().Cleared()}
}

func handleExport(ctx *Context, args []string) Result {
	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		return Result{Err: err}
	}

	data, err := ctx.Controller.Export(format)
	if err != nil {
		return Result{Err: err}
	}
	if format == export.FormatText && len(bytes.TrimSpace(data)) == 0 {
		return Result{Output: ctx.Controller.Translator().EmptyHistory()}
	}
	return Result{Output: strings.TrimRight(string(data), "\n")}
}

func handleDownload(ctx *Context, args []string) Result {
	tr := ctx.Controller.Translator()
	path, err := ctx.Controller.Download()
	if errors.Is(err, chat.ErrNothingToExport) {
		return Result{Output: tr.NothingToExport()}
	}
	if err != nil {
		return Result{Err: err}
	}
	return Result{Output: tr.SavedTo(path)}
}

func handleModel(ctx *Context, args []string) Result {
	c := ctx.Controller
	if len(args) == 0 {
		return Result{Output: formatChoices("Models", c.Catalog().Models, c.Settings().Model)}
	}
	if err := c.SelectModel(args[0]); err != nil {
		return Result{Err: err}
	}
	return Result{Output: "Model: " + c.Settings().Model}
}

func handleRole(ctx *Context, args []string) Result {
	c := ctx.Controller
	if len(args) == 0 {
		return Result{Output: formatChoices("Roles", c.Catalog().Roles, c.Settings().Role)}
	}
	if err := c.SelectRole(args[0]); err != nil {
		return Result{Err: err}
	}
	return Result{Output: "Role: " + c.Settings().Role}
}

func handleHistory(ctx *Context, args []string) Result {
	c := ctx.Controller
	if !c.ToggleHistoryView() {
		return Result{}
	}

	v := c.View()
	tr := c.Translator()
	if len(v.History) == 0 {
		return Result{Output: tr.HistoryTitle() + "\n" + tr.EmptyHistory()}
	}

	opts := export.DefaultOptions()
	opts.Labels = tr.Labels()
	data, err := export.Render(v.History, export.FormatText, opts)
	if err != nil {
		return Result{Err: err}
	}
	return Result{Output: tr.HistoryTitle() + "\n\n" + strings.TrimRight(string(data), "\n")}
}

// formatChoices lists options with the current one marked.
func formatChoices(title string, options []string, current string) string {
	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteString(":")
	for _, opt := range options {
		marker := "  "
		if opt == current {
			marker = "* "
		}
		sb.WriteString("\n  ")
		sb.WriteString(marker)
		sb.WriteString(opt)
	}
	return sb.String()
}
