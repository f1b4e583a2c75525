// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invowk/fnpack/internal/config"
)

// maskedSecret replaces store.secret_key in displayed configuration.
const maskedSecret = "********"

// newConfigCommand creates the `fnpack config` command tree.
func newConfigCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage fnpack configuration",
		Long: `Manage fnpack configuration.

Configuration is stored in:
  - Linux: ~/.config/fnpack/config.cue
  - macOS: ~/Library/Application Support/fnpack/config.cue
  - Windows: %APPDATA%\fnpack\config.cue

A config.cue in the working directory is used when the platform file is
absent. Every key can be overridden with an FNPACK_ environment variable,
e.g. FNPACK_STORE_BACKEND=dir.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd, app, rootFlags)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefaultConfig()
			if err != nil {
				return app.fail(cmd, err, rootFlags.verbose)
			}
			fmt.Fprintf(app.stdout, "%s Config file: %s\n", successIcon, CmdStyle.Render(path))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(cmd *cobra.Command, app *App, rootFlags *rootFlagValues) error {
	cfg, err := app.loadConfig(cmd.Context(), rootFlags)
	if err != nil {
		return app.fail(cmd, err, rootFlags.verbose)
	}
	path, err := config.ResolvePath(config.LoadOptions{ConfigFilePath: rootFlags.configPath})
	if err != nil {
		return app.fail(cmd, err, rootFlags.verbose)
	}

	if path == "" {
		fmt.Fprintf(app.stdout, "%s %s\n\n", warningIcon, SubtitleStyle.Render("No config file found, using defaults"))
	} else {
		fmt.Fprintf(app.stdout, "%s %s\n\n", SubtitleStyle.Render("Config file:"), CmdStyle.Render(path))
	}

	shown := *cfg
	if shown.Store.SecretKey != "" {
		shown.Store.SecretKey = maskedSecret
	}
	fmt.Fprint(app.stdout, config.GenerateCUE(&shown))
	return nil
}
