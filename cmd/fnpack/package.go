// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/invowk/fnpack/internal/config"
	"github.com/invowk/fnpack/internal/watch"
	"github.com/invowk/fnpack/pkg/descriptor"
	"github.com/invowk/fnpack/pkg/packager"
)

// packageFlagValues holds the flags of `fnpack package`.
type packageFlagValues struct {
	projectRoot string
	region      string
	bucket      string
	project     string
	stage       string
	output      string
	watch       bool
	debounce    time.Duration
}

// newPackageCommand creates the `fnpack package` command.
func newPackageCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &packageFlagValues{}

	cmd := &cobra.Command{
		Use:   "package <descriptor>",
		Short: "Build the deployment archive of a function",
		Long: `Build the deployment archive of a function.

The project root (by default the descriptor's directory) is copied into a
fresh build directory under the temp root, minus entries matching the
descriptor's excludePatterns. The stage's .env file is fetched from the
environment store, the handler is optionally bundled and minified, and the
result is zipped. The archive must stay below 50 MiB.

With --watch, the archive is rebuilt whenever a file under the project root
changes. Excluded paths, the output archive and the build directories are
not watched.

Examples:
  fnpack package ./awsm.json --bucket jaws-bucket --project acme --stage dev
  fnpack package ./fn/awsm.yaml --project-root . --bucket b --project p --stage prod -o dist/fn.zip`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPackage(cmd, app, rootFlags, flags, args[0])
		},
	}

	cmd.Flags().StringVar(&flags.projectRoot, "project-root", "", "directory copied into the build directory (default is the descriptor's directory)")
	cmd.Flags().StringVar(&flags.region, "region", "", "region of the environment store (overrides store.region)")
	cmd.Flags().StringVar(&flags.bucket, "bucket", "", "bucket holding the environment files")
	cmd.Flags().StringVar(&flags.project, "project", "", "project name used in the environment file key")
	cmd.Flags().StringVar(&flags.stage, "stage", "", "deployment stage used in the environment file key")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "archive destination (default is <build dir>/"+config.DefaultArchiveName+")")
	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "rebuild the archive when project files change")
	cmd.Flags().DurationVar(&flags.debounce, "debounce", 500*time.Millisecond, "quiet period before a watch rebuild")

	for _, name := range []string{"bucket", "project", "stage"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func runPackage(cmd *cobra.Command, app *App, rootFlags *rootFlagValues, flags *packageFlagValues, descriptorPath string) error {
	ctx := cmd.Context()

	cfg, err := app.loadConfig(ctx, rootFlags)
	if err != nil {
		return app.fail(cmd, err, rootFlags.verbose)
	}
	verbose := rootFlags.verbose
	logger := app.newLogger(verbose)

	storeCfg := cfg.Store.EnvStore()
	if flags.region != "" {
		storeCfg.Region = flags.region
	}
	store, err := app.OpenStore(ctx, storeCfg)
	if err != nil {
		return app.fail(cmd, err, verbose)
	}

	p, err := packager.New(packager.Options{
		Store:       store,
		TempDir:     cfg.Build.TempDir,
		ArchiveName: cfg.Build.ArchiveName,
		Logger:      logger,
	})
	if err != nil {
		return app.fail(cmd, err, verbose)
	}

	req, err := newPackageRequest(descriptorPath, flags)
	if err != nil {
		return app.fail(cmd, err, verbose)
	}

	if flags.watch {
		return runWatchPackage(cmd, app, p, req, watchOptions{
			tempRoot: cfg.Build.TempDir,
			debounce: flags.debounce,
			verbose:  verbose,
			logger:   logger,
		})
	}

	artifact, err := p.Package(ctx, req)
	if err != nil {
		return app.fail(cmd, err, verbose)
	}
	printArtifact(app.stdout, artifact)
	return nil
}

// newPackageRequest resolves the descriptor, project root and output paths
// of a run.
func newPackageRequest(descriptorPath string, flags *packageFlagValues) (packager.Request, error) {
	absDescriptor, err := filepath.Abs(descriptorPath)
	if err != nil {
		return packager.Request{}, err
	}

	root := flags.projectRoot
	if root == "" {
		root = filepath.Dir(absDescriptor)
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return packager.Request{}, err
	}

	output := flags.output
	if output != "" {
		if output, err = filepath.Abs(output); err != nil {
			return packager.Request{}, err
		}
	}

	return packager.Request{
		DescriptorPath: absDescriptor,
		ProjectRoot:    root,
		Target: packager.Target{
			Region:  flags.region,
			Bucket:  flags.bucket,
			Project: flags.project,
			Stage:   flags.stage,
		},
		Output: output,
	}, nil
}

func printArtifact(w io.Writer, artifact *packager.Artifact) {
	fmt.Fprintf(w, "%s %s\n", successIcon, SuccessStyle.Render("Package created"))
	fmt.Fprintln(w, renderField("Archive", CmdStyle.Render(artifact.ArchivePath)))
	fmt.Fprintln(w, renderField("Size", fmt.Sprintf("%d bytes", artifact.Size)))
	fmt.Fprintln(w, renderField("Entries", fmt.Sprintf("%d", len(artifact.Entries))))
	fmt.Fprintln(w, renderField("Descriptor", artifact.DescriptorPath))
}

// watchOptions carries the settings of a watch session.
type watchOptions struct {
	tempRoot string
	debounce time.Duration
	verbose  bool
	logger   *log.Logger
}

// runWatchPackage packages once, then repackages on every relevant change
// under the project root until the context is canceled. Failed rebuilds are
// rendered and the session continues.
func runWatchPackage(cmd *cobra.Command, app *App, p *packager.Packager, req packager.Request, opts watchOptions) error {
	ctx := cmd.Context()

	desc, err := descriptor.Open(req.DescriptorPath)
	if err != nil {
		return app.fail(cmd, err, opts.verbose)
	}
	matcher, err := packager.NewExclusionMatcher(desc.Package.ExcludePatterns)
	if err != nil {
		return app.fail(cmd, err, opts.verbose)
	}

	tempRoot := opts.tempRoot
	if tempRoot == "" {
		tempRoot = os.TempDir()
	}
	outputRel := ""
	if req.Output != "" {
		outputRel = projectRelative(req.ProjectRoot, req.Output)
	}

	rebuild := func(ctx context.Context) {
		artifact, buildErr := p.Package(ctx, req)
		if buildErr != nil {
			renderFailure(app.stderr, buildErr, opts.verbose)
			return
		}
		printArtifact(app.stdout, artifact)
	}

	fmt.Fprintf(app.stdout, "%s Watch mode: packaging %s\n", arrowIcon, desc.Name)
	rebuild(ctx)

	w, err := watch.New(watch.Config{
		ProjectRoot: req.ProjectRoot,
		Skip: func(rel string) bool {
			if rel == outputRel {
				return true
			}
			_, excluded := matcher.Match(rel)
			return excluded
		},
		SkipDirs: []string{tempRoot},
		Debounce: opts.debounce,
		OnChange: func(ctx context.Context, changed []string) error {
			fmt.Fprintf(app.stdout, "\n%s Detected %d change(s), repackaging...\n", arrowIcon, len(changed))
			rebuild(ctx)
			return nil
		},
		Logger: opts.logger,
	})
	if err != nil {
		return app.fail(cmd, err, opts.verbose)
	}

	fmt.Fprintf(app.stdout, "\n%s Watching %s for changes (Ctrl+C to stop)...\n", arrowIcon, req.ProjectRoot)
	if err := w.Run(ctx); err != nil {
		return app.fail(cmd, err, opts.verbose)
	}
	return nil
}

// projectRelative returns path relative to root with forward slashes, or ""
// when path lies outside root.
func projectRelative(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return filepath.ToSlash(rel)
}
