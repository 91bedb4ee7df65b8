// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// settings_cmd.go - Model, role and identity commands.
//
//   parley model              List models, current one marked
//   parley model <id>         Select a model for the following turns
//   parley role [id]          Same for persona roles
//   parley identity           Print the session identity token

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jeranaias/parley/internal/chat"
)

func newModelCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "model [id]",
		Short: "List or select the backend model",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, false, func(app *App) error {
				ctrl := app.Controller
				out := cmd.OutOrStdout()
				if len(args) == 0 {
					printChoices(out, "Models", ctrl.Catalog().Models, ctrl.Settings().Model)
					return nil
				}
				if err := ctrl.SelectModel(args[0]); err != nil {
					return err
				}
				fmt.Fprintln(out, RenderField("Model", ctrl.Settings().Model))
				return nil
			})
		},
	}
}

func newRoleCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "role [id]",
		Short: "List or select the persona role",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, false, func(app *App) error {
				ctrl := app.Controller
				out := cmd.OutOrStdout()
				if len(args) == 0 {
					printChoices(out, "Roles", ctrl.Catalog().Roles, ctrl.Settings().Role)
					return nil
				}
				if err := ctrl.SelectRole(args[0]); err != nil {
					return err
				}
				fmt.Fprintln(out, RenderField("Role", ctrl.Settings().Role))
				return nil
			})
		},
	}
}

func newIdentityCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "identity",
		Short: "Print the session identity token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, false, func(app *App) error {
				id := app.Controller.Identity()
				if id == "" {
					return chat.ErrNoIdentity
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
}

// printChoices lists options with the current one marked.
func printChoices(w io.Writer, title string, options []string, current string) {
	fmt.Fprintln(w, RenderConditional(TitleStyle, title))
	for _, opt := range options {
		if opt == current {
			fmt.Fprintln(w, RenderConditional(HighlightStyle, "* "+opt))
		} else {
			fmt.Fprintln(w, "  "+opt)
		}
	}
}
