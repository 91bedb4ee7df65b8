// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single turn command for parley.
//
// Examples:
//   parley ask "What is retrieval augmented generation?"
//   echo "Summarize this" | parley ask
//   parley ask --model mixtral-8x7b-32768 --role concise "Explain RAG"
//
// The turn is recorded in the history like any other.

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/parley/internal/chat"
)

type askOptions struct {
	model string
	role  string
	raw   bool
}

func newAskCmd(flags *GlobalFlags) *cobra.Command {
	opts := &askOptions{}

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Send one message and print the reply",
		Long: `Send one message and print the reply.

The question is read from the arguments, or from stdin when none are given.
--model and --role also become the saved selection.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			if strings.TrimSpace(question) == "" && !IsTTY() {
				data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 1<<20))
				if err != nil {
					return NewCommandError("ask", "read stdin", err)
				}
				question = string(data)
			}

			return withApp(cmd, flags, false, func(app *App) error {
				return runAsk(cmd, app.Controller, question, opts)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "model to use")
	cmd.Flags().StringVarP(&opts.role, "role", "r", "", "persona role to use")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "print the reply without markdown rendering")
	return cmd
}

func runAsk(cmd *cobra.Command, ctrl *chat.Controller, question string, opts *askOptions) error {
	if opts.model != "" {
		if err := ctrl.SelectModel(opts.model); err != nil {
			return err
		}
	}
	if opts.role != "" {
		if err := ctrl.SelectRole(opts.role); err != nil {
			return err
		}
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	if err := ctrl.Submit(ctx, question); err != nil {
		return err
	}

	transcript := ctrl.Transcript()
	reply := transcript[len(transcript)-1]

	out := cmd.OutOrStdout()
	if opts.raw || !IsStdoutTTY() {
		fmt.Fprintln(out, reply.Text)
		if len(reply.Sources) > 0 {
			fmt.Fprintf(out, "\n%s: %s\n", ctrl.Translator().Labels().Sources, strings.Join(reply.Sources, ", "))
		}
		return nil
	}

	tr := ctrl.Translator()
	r := newMessageRenderer(tr.AuthorLabel, tr.Labels().Sources, ColorsEnabled(), GetTerminalWidth()-4)
	fmt.Fprintln(out, r.Render(reply))
	return nil
}
