// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/invowk/fnpack/pkg/descriptor"
)

// newValidateCommand creates the `fnpack validate` command. It only checks
// the descriptor; no build directory is created and no store is contacted.
func newValidateCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <descriptor>",
		Short: "Validate a function descriptor",
		Long: `Validate a function descriptor without packaging it.

The descriptor must declare a cloudFormation.lambda block with Type and
Properties.Runtime/Properties.Handler. The handler must name a module and
an exported function, e.g. 'index.handler'.

Examples:
  fnpack validate ./awsm.json
  fnpack validate ./fn/awsm.cue`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := descriptor.Open(args[0])
			if err != nil {
				return app.fail(cmd, err, rootFlags.verbose)
			}
			printDescriptor(app.stdout, desc)
			return nil
		},
	}
}

func printDescriptor(w io.Writer, desc *descriptor.Descriptor) {
	fmt.Fprintf(w, "%s %s\n", successIcon, SuccessStyle.Render("Descriptor is valid"))
	fmt.Fprintln(w, renderField("Name", TitleStyle.Render(string(desc.Name))))
	fmt.Fprintln(w, renderField("Path", CmdStyle.Render(desc.Path)))
	fmt.Fprintln(w, renderField("Runtime", desc.Deployment.Runtime))
	fmt.Fprintln(w, renderField("Handler", desc.Deployment.Handler.String()))
	fmt.Fprintln(w, renderField("Optimize", optimizeSummary(desc)))
	if n := len(desc.Package.ExcludePatterns); n > 0 {
		fmt.Fprintln(w, renderField("Excludes", fmt.Sprintf("%d pattern(s)", n)))
	}
	if len(desc.Package.IncludePaths) > 0 {
		fmt.Fprintln(w, renderField("Includes", strings.Join(desc.Package.IncludePaths, ", ")))
	}
}

// optimizeSummary describes the optimization branch, e.g. "bundled (esbuild, minify)".
func optimizeSummary(desc *descriptor.Descriptor) string {
	settings, bundled := desc.Bundled()
	if !bundled {
		return "raw"
	}
	parts := []string{settings.Builder}
	if settings.Minify {
		parts = append(parts, "minify")
	}
	parts = append(parts, settings.Transforms...)
	return "bundled (" + strings.Join(parts, ", ") + ")"
}
