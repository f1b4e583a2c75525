// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	"slices"

	"github.com/invowk/fnpack/pkg/types"
)

// TransformBabel is the legacy transform enabled by `optimize.babel: true`.
const TransformBabel = "babel"

type (
	// Descriptor is a validated function descriptor. It is produced only by
	// Validate (or Open) and is not modified afterwards.
	Descriptor struct {
		// Name identifies the function and prefixes its build directory.
		Name types.FunctionName
		// Path is the absolute path of the descriptor document.
		Path string
		// Deployment is the runtime metadata of the function.
		Deployment Deployment
		// Package holds the packaging options.
		Package PackageOptions
	}

	// Deployment is the validated cloudFormation.lambda block.
	Deployment struct {
		Type    string
		Runtime string
		Handler types.HandlerRef
	}

	// PackageOptions controls which files are shipped.
	PackageOptions struct {
		// ExcludePatterns are regular expressions matched against paths
		// relative to the project root while the build directory is assembled.
		ExcludePatterns []string
		// IncludePaths are paths relative to the build directory that are
		// added to the archive.
		IncludePaths []string
		// Optimize is either RawSettings or BundledSettings.
		Optimize OptimizeSettings
	}

	// OptimizeSettings selects the optimization branch. The concrete type is
	// RawSettings or BundledSettings.
	OptimizeSettings interface {
		optimizeSettings()
	}

	// RawSettings ships the build directory as-is.
	RawSettings struct{}

	// BundledSettings flattens the handler's module graph into one file.
	BundledSettings struct {
		// Builder is the lower-cased bundler id, e.g. "esbuild".
		Builder string
		// Minify runs the bundle through the minifier.
		Minify bool
		// Transforms are source transforms applied before bundling.
		Transforms []string
		// Exclude lists modules left out of the bundle and required at runtime.
		Exclude []string
		// Ignore lists modules replaced by an empty module.
		Ignore []string
	}
)

func (RawSettings) optimizeSettings()     {}
func (BundledSettings) optimizeSettings() {}

// Bundled returns the bundled settings and true when the descriptor declares a builder.
func (d *Descriptor) Bundled() (BundledSettings, bool) {
	b, ok := d.Package.Optimize.(BundledSettings)
	return b, ok
}

// HasTransform reports whether name is in the transform list.
func (b BundledSettings) HasTransform(name string) bool {
	return slices.Contains(b.Transforms, name)
}
