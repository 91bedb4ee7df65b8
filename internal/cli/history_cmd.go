// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history_cmd.go - Conversation history commands.
//
// Subcommands:
//   show      Print the stored conversation
//   clear     Delete the stored conversation
//   export    Write the conversation as json, text, markdown or yaml

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/parley/internal/export"
	"github.com/jeranaias/parley/internal/util"
)

func newHistoryCmd(flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show, clear or export the conversation history",
	}
	cmd.AddCommand(
		newHistoryShowCmd(flags),
		newHistoryClearCmd(flags),
		newHistoryExportCmd(flags),
	)
	return cmd
}

func newHistoryShowCmd(flags *GlobalFlags) *cobra.Command {
	var compact bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stored conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, false, func(app *App) error {
				out := cmd.OutOrStdout()
				tr := app.Translator
				msgs := app.Controller.Transcript()

				fmt.Fprintln(out, RenderConditional(TitleStyle, tr.HistoryTitle()))
				if len(msgs) == 0 {
					fmt.Fprintln(out, tr.EmptyHistory())
					return nil
				}

				if compact {
					width := GetTerminalWidth()
					labels := tr.Labels()
					for i, msg := range msgs {
						prefix := fmt.Sprintf("%3d  %s  ", i+1, util.PadRight(labels.For(msg.Author), 10))
						line := util.TruncateWidth(util.SingleLine(msg.Text), width-util.StringWidth(prefix))
						fmt.Fprintln(out, prefix+line)
					}
					return nil
				}

				opts := export.DefaultOptions()
				opts.Labels = tr.Labels()
				data, err := export.Render(msgs, export.FormatText, opts)
				if err != nil {
					return err
				}
				fmt.Fprint(out, string(data))
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&compact, "compact", "c", false, "one truncated line per message")
	return cmd
}

func newHistoryClearCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the stored conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, false, func(app *App) error {
				if err := app.Controller.Clear(); err != nil {
					return NewCommandError("history", "clear", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), RenderConditional(SuccessStyle, app.Translator.Cleared()))
				return nil
			})
		},
	}
}

func newHistoryExportCmd(flags *GlobalFlags) *cobra.Command {
	var formatName, outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the conversation",
		Long: fmt.Sprintf(`Export the conversation to stdout or a file.

Formats: %s`, strings.Join(formatNames(), ", ")),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := export.ParseFormat(formatName)
			if err != nil {
				return err
			}

			return withApp(cmd, flags, false, func(app *App) error {
				data, err := app.Controller.Export(format)
				if err != nil {
					return NewCommandError("history", "export", err)
				}

				if outPath == "" {
					_, err := cmd.OutOrStdout().Write(data)
					return err
				}
				if err := util.AtomicWriteFile(outPath, data, 0644); err != nil {
					return NewCommandError("history", "export", err)
				}
				fmt.Fprintln(cmd.ErrOrStderr(), app.Translator.SavedTo(outPath))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&formatName, "format", "f", string(export.FormatText), "json, text, markdown or yaml")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write to file instead of stdout")
	return cmd
}

func formatNames() []string {
	var names []string
	for _, f := range export.Formats() {
		names = append(names, string(f))
	}
	return names
}
