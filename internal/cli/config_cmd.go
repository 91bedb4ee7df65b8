// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeranaias/parley/internal/config"
)

func newConfigCmd(flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the configuration file",
	}
	cmd.AddCommand(
		newConfigShowCmd(flags),
		newConfigInitCmd(flags),
		newConfigPathCmd(flags),
	)
	return cmd
}

func newConfigShowCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig(flags)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, RenderConditional(DimStyle, "# "+path))
			fmt.Fprint(out, cfg.String())
			return nil
		},
	}
}

func newConfigInitCmd(flags *GlobalFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath(flags)
			if err != nil {
				return err
			}

			if _, err := os.Stat(path); err == nil && !force {
				return NewCommandError("config", "init", fmt.Errorf("%s exists (use --force to overwrite)", path))
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return NewCommandError("config", "init", err)
			}

			if err := config.SaveTOML(config.Default(), path); err != nil {
				return NewCommandError("config", "init", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), RenderConditional(SuccessStyle, "Wrote "+path))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigPathCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath(flags)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func resolveConfigPath(flags *GlobalFlags) (string, error) {
	if flags.ConfigPath != "" {
		return flags.ConfigPath, nil
	}
	return config.ConfigPath()
}
