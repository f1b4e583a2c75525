// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/invowk/fnpack/pkg/types"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlagValues holds the persistent flags shared by every subcommand.
type rootFlagValues struct {
	verbose    bool
	configPath string
}

// NewRootCommand builds the fnpack command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	root := &cobra.Command{
		Use:   "fnpack",
		Short: "Package serverless functions into deployment archives",
		Long: TitleStyle.Render("fnpack") + SubtitleStyle.Render(" - Package serverless functions into deployment archives") + `

fnpack reads a function descriptor, copies the project into a fresh build
directory, fetches the stage's .env file from the environment store,
optionally bundles and minifies the handler with esbuild, and writes a
deterministic zip archive below the upload size limit.

` + SubtitleStyle.Render("Examples:") + `
  fnpack validate ./awsm.json
  fnpack package ./awsm.json --bucket jaws-bucket --project acme --stage dev
  fnpack package ./awsm.json --bucket jaws-bucket --project acme --stage dev --watch
  fnpack config show`,
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is $HOME/.config/fnpack/config.cue)")

	root.AddCommand(newPackageCommand(app, flags))
	root.AddCommand(newValidateCommand(app, flags))
	root.AddCommand(newConfigCommand(app, flags))

	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Main runs the CLI and returns the process exit code.
func Main() int {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+err.Error())
		return int(types.ExitFailure)
	}
	return run(context.Background(), NewRootCommand(app))
}

// Execute runs the CLI and exits the process. It is called by main.main().
func Execute() {
	os.Exit(Main())
}

// run executes root with fang styling. Failures rendered by a handler come
// back as *ExitError and keep their code; anything else is a usage error
// reported by cobra or fang.
func run(ctx context.Context, root *cobra.Command) int {
	err := fang.Execute(
		ctx,
		root,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(handleError),
	)
	if err == nil {
		return int(types.ExitSuccess)
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return int(exitErr.Code)
	}
	return int(types.ExitUsage)
}

// handleError prints usage errors through fang. Handler failures were
// already rendered.
func handleError(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}
