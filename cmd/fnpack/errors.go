// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/invowk/fnpack/internal/envstore"
	"github.com/invowk/fnpack/internal/issue"
	"github.com/invowk/fnpack/pkg/bundler"
	"github.com/invowk/fnpack/pkg/descriptor"
	"github.com/invowk/fnpack/pkg/packager"
	"github.com/invowk/fnpack/pkg/types"
)

// guideStyle is the glamour style used for catalog guides.
const guideStyle = "dark"

// fail renders err to the App's stderr and returns the ExitError that
// carries the failure exit code back to Main.
func (a *App) fail(cmd *cobra.Command, err error, verbose bool) error {
	renderFailure(a.stderr, err, verbose)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return &ExitError{Code: types.ExitFailure, Err: err}
}

// renderFailure writes the actionable form of err. Verbose output adds the
// error chain and the catalog guide.
func renderFailure(w io.Writer, err error, verbose bool) {
	ae := toActionable(err)
	fmt.Fprintf(w, "%s %s\n", errorIcon, ErrorStyle.Render(ae.Format(verbose)))

	if !verbose {
		return
	}
	guide := ae.Guide()
	if guide == nil {
		return
	}
	rendered, renderErr := guide.Render(guideStyle)
	if renderErr != nil {
		rendered = string(guide.MarkdownMsg())
	}
	fmt.Fprintln(w, rendered)
}

// toActionable maps the packaging error taxonomy onto actionable errors
// with remediation hints and a catalog guide.
//
//nolint:gocyclo // one branch per failure kind
func toActionable(err error) *issue.ActionableError {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae
	}

	var (
		missingErr    *descriptor.MissingDeploymentMetadataError
		incompleteErr *descriptor.IncompleteDeploymentMetadataError
		unreadableErr *descriptor.DescriptorUnreadableError
		builderErr    *packager.UnsupportedBuilderError
		excludeErr    *packager.InvalidExcludePatternError
		copyErr       *packager.ProjectCopyFailedError
		fetchErr      *packager.EnvironmentFetchFailedError
		bundleErr     *packager.BundleBuildFailedError
		minifyErr     *packager.MinificationFailedError
		includeErr    *packager.IncludePathNotFoundError
		sizeErr       *packager.ArchiveTooLargeError
	)

	switch {
	case errors.As(err, &unreadableErr):
		return issue.New(issue.DescriptorUnreadableId, "read descriptor").
			Hint("Check that the file exists and is valid JSON, CUE, YAML or TOML").
			Hint("Run 'fnpack validate <descriptor>' to check the document alone").
			Wrap(err)

	case errors.As(err, &missingErr):
		return issue.New(issue.MissingDeploymentMetadataId, "validate descriptor").
			Hint("Add a cloudFormation.lambda block with Type and Properties.Runtime/Handler").
			Wrap(err)

	case errors.As(err, &incompleteErr):
		return issue.New(issue.IncompleteDeploymentMetadataId, "validate descriptor").
			Hint("Set %s in cloudFormation.lambda", strings.Join(incompleteErr.Fields, ", ")).
			Hint("Handler must name a module inside the project and an exported function, e.g. index.handler").
			Wrap(err)

	case errors.Is(err, types.ErrInvalidFunctionName):
		return issue.New(issue.InvalidFunctionNameId, "validate descriptor").
			Hint("Set 'name' to a non-empty value without path separators").
			Wrap(err)

	case errors.As(err, &builderErr):
		return issue.New(issue.UnsupportedBuilderId, "select builder").
			On(builderErr.Builder).
			Hint("Use one of: %s", strings.Join(builderErr.Supported, ", ")).
			Hint("Set package.optimize.builder to null to ship the project unbundled").
			Wrap(err)

	case errors.As(err, &excludeErr):
		return issue.New(issue.InvalidExcludePatternId, "compile exclude pattern").
			Hint(`excludePatterns are regular expressions, not globs: use '\.log$' rather than '*.log'`).
			Wrap(err)

	case errors.As(err, &copyErr):
		return issue.New(issue.ProjectCopyFailedId, "assemble build directory").
			Hint("Check read permissions on the project root").
			Hint("Check free space and permissions of build.temp_dir").
			Wrap(err)

	case errors.As(err, &fetchErr):
		ae := issue.New(issue.EnvironmentFetchFailedId, "fetch environment file").Wrap(err)
		if errors.Is(err, envstore.ErrNotFound) {
			ae.Hint("Upload the .env file for project %q stage %q", fetchErr.Project, fetchErr.Stage)
		} else {
			ae.Hint("Check the store credentials and network access")
		}
		return ae.Hint("Check store.key_template and the --bucket, --project and --stage flags")

	case errors.As(err, &bundleErr):
		ae := issue.New(issue.BundleBuildFailedId, "bundle handler").On(bundleErr.Module).Wrap(err)
		switch {
		case errors.Is(err, bundler.ErrEntryNotFound):
			return ae.Hint("Check that the handler module exists relative to the project root")
		case errors.Is(err, bundler.ErrUnknownTransform):
			return ae.Hint("Use one of the supported transforms: %s", strings.Join(bundler.SupportedTransforms(), ", "))
		default:
			return ae.Hint("Add modules that must stay external to package.optimize.exclude")
		}

	case errors.As(err, &minifyErr):
		return issue.New(issue.MinificationFailedId, "minify bundle").
			On(minifyErr.BundlePath).
			Hint("Inspect the bundled output in the build directory").
			Hint("Set package.optimize.minify to false to ship the unminified bundle").
			Wrap(err)

	case errors.As(err, &includeErr):
		return issue.New(issue.IncludePathNotFoundId, "resolve include path").
			Hint("includePaths are relative to the project root and may not leave it; check for typos").
			Wrap(err)

	case errors.As(err, &sizeErr):
		return issue.New(issue.ArchiveTooLargeId, "write archive").
			Hint("Add excludePatterns for tests, docs and fixtures").
			Hint("Enable package.optimize.minify or bundle with a builder").
			Wrap(err)

	case errors.Is(err, envstore.ErrUnknownBackend),
		errors.Is(err, envstore.ErrMissingEndpoint),
		errors.Is(err, envstore.ErrMissingDir),
		errors.Is(err, envstore.ErrInvalidKeyTemplate):
		return issue.New(issue.ConfigLoadFailedId, "open environment store").
			Hint("Check the store section of the configuration ('fnpack config show')").
			Wrap(err)
	}

	return issue.New(0, "package function").Wrap(err)
}
