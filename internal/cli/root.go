// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jeranaias/parley/internal/tui"
)

// Build information, set with -ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Execute runs the root command and exits with a code derived from the error.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		DisplayError(os.Stderr, err)
		os.Exit(ExitCodeFor(err))
	}
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	flags := &GlobalFlags{}

	root := &cobra.Command{
		Use:   "parley",
		Short: "Terminal client for a retrieval-augmented chat backend",
		Long: `parley talks to a chat backend over HTTP and keeps your conversation,
model and role between runs.

Quick Start:
  parley                      # full-screen chat
  parley chat                 # line-oriented chat
  parley ask "question"       # one turn, print the reply
  parley history export -f md # export the conversation`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if IsTTY() && IsStdoutTTY() {
				return runTUI(cmd, flags)
			}
			return runChat(cmd, flags)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.ConfigPath, "config", "", "config file (default ~/.parley/config.toml)")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&flags.StoreDriver, "store-driver", "", "storage driver: file, sqlite or memory")
	pf.StringVar(&flags.StorePath, "store-path", "", "storage directory (file) or database (sqlite)")
	pf.StringVar(&flags.BackendURL, "backend", "", "backend base URL")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(
		newTUICmd(flags),
		newChatCmd(flags),
		newAskCmd(flags),
		newHistoryCmd(flags),
		newConfigCmd(flags),
		newModelCmd(flags),
		newRoleCmd(flags),
		newIdentityCmd(flags),
	)
	return root
}

// withApp wires a session for the duration of fn. Logs go to the command's
// stderr, or to the log file when toFile is set.
func withApp(cmd *cobra.Command, flags *GlobalFlags, toFile bool, fn func(*App) error) error {
	var logOut io.Writer = cmd.ErrOrStderr()
	if toFile {
		logOut = nil
	}
	app, err := NewApp(flags, logOut)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// =============================================================================
// INTERACTIVE COMMANDS
// =============================================================================

func newTUICmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Full-screen chat (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, flags)
		},
	}
}

func runTUI(cmd *cobra.Command, flags *GlobalFlags) error {
	if err := RequiresTTY("run the full-screen chat"); err != nil {
		return err
	}
	return withApp(cmd, flags, true, func(app *App) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		app.WatchConfig(ctx)

		return tui.Run(ctx, app.Controller, tui.Options{
			Logger:   app.Logger,
			Markdown: ColorsEnabled(),
		})
	})
}

func newChatCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Line-oriented chat with slash commands",
		Long: `Start a line-oriented chat session.

Slash commands:
  /help, /clear, /export [json|text|markdown|yaml], /download,
  /model [id], /role [id], /history, /quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, flags)
		},
	}
}

func runChat(cmd *cobra.Command, flags *GlobalFlags) error {
	return withApp(cmd, flags, false, func(app *App) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		app.WatchConfig(ctx)

		interactive := IsTTY()
		session := newREPLSession(app.Controller, cmd.OutOrStdout(), cmd.ErrOrStderr(), ColorsEnabled())

		var in lineReader
		if interactive {
			in = newLinerInput(session.completer())
		} else {
			session.quiet = true
			in = newScannerInput(cmd.InOrStdin())
		}
		defer in.Close()

		return session.run(ctx, in)
	})
}
