// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/invowk/fnpack/pkg/bundler"
	"github.com/invowk/fnpack/pkg/descriptor"
)

// Audit files written into the build directory by the bundled path.
const (
	BundleAuditFile   = "bundled.js"
	MetafileAuditFile = "bundled.meta.json"
	MinifiedAuditFile = "minified.js"
)

type (
	// Bundler flattens a module graph into one file.
	Bundler interface {
		Bundle(ctx context.Context, opts bundler.Options) (*bundler.Result, error)
	}

	// Minifier shrinks bundled code.
	Minifier interface {
		Minify(ctx context.Context, code []byte) ([]byte, error)
	}

	// Builder is a bundler that can also minify its output.
	Builder interface {
		Bundler
		Minifier
	}

	// Pipeline produces the compression entries of a build directory, either
	// by shipping the directory as-is or by bundling the handler module.
	Pipeline struct {
		builders map[string]Builder
		includes *IncludeResolver
		logger   *log.Logger
	}
)

// DefaultBuilders returns the builder registry used when none is configured.
// "browserify" is accepted for older descriptors and served by esbuild.
func DefaultBuilders() map[string]Builder {
	esb := bundler.New()
	return map[string]Builder{
		"esbuild":    esb,
		"browserify": esb,
	}
}

// NewPipeline returns a Pipeline using builders keyed by lower-case id.
func NewPipeline(builders map[string]Builder, includes *IncludeResolver, logger *log.Logger) *Pipeline {
	return &Pipeline{builders: builders, includes: includes, logger: orDiscard(logger)}
}

// Run returns the entries to archive for desc, whose build directory is dir.
func (p *Pipeline) Run(ctx context.Context, desc *descriptor.Descriptor, dir string) ([]Entry, error) {
	settings, bundled := desc.Bundled()
	if !bundled {
		p.logger.Debug("no builder declared, shipping build directory as-is")
		return p.includes.Resolve(dir, []string{"."})
	}
	return p.runBundled(ctx, desc, settings, dir)
}

func (p *Pipeline) runBundled(ctx context.Context, desc *descriptor.Descriptor, settings descriptor.BundledSettings, dir string) ([]Entry, error) {
	builder, ok := p.builders[settings.Builder]
	if !ok {
		return nil, &UnsupportedBuilderError{Builder: settings.Builder, Supported: builderNames(p.builders)}
	}

	module := desc.Deployment.Handler.ModulePath()
	p.logger.Info("bundling", "builder", settings.Builder, "module", module,
		"transforms", settings.Transforms, "exclude", settings.Exclude, "ignore", settings.Ignore)

	result, err := builder.Bundle(ctx, bundler.Options{
		Root:       dir,
		Module:     module,
		Exclude:    settings.Exclude,
		Ignore:     settings.Ignore,
		Transforms: settings.Transforms,
	})
	if err != nil {
		return nil, &BundleBuildFailedError{Builder: settings.Builder, Module: module, Err: err}
	}
	for _, w := range result.Warnings {
		p.logger.Warn("bundler", "warning", w)
	}

	bundlePath := filepath.Join(dir, BundleAuditFile)
	if err := os.WriteFile(bundlePath, result.Code, 0o644); err != nil {
		return nil, &BundleBuildFailedError{Builder: settings.Builder, Module: module, Err: fmt.Errorf("write audit file: %w", err)}
	}
	p.logger.Info("bundled file written", "path", bundlePath, "bytes", len(result.Code))

	if len(result.Metafile) > 0 {
		metaPath := filepath.Join(dir, MetafileAuditFile)
		if err := os.WriteFile(metaPath, result.Metafile, 0o644); err != nil {
			return nil, &BundleBuildFailedError{Builder: settings.Builder, Module: module, Err: fmt.Errorf("write metafile: %w", err)}
		}
		p.logger.Debug("bundle metafile written", "path", metaPath)
	}

	code := result.Code
	if settings.Minify {
		p.logger.Debug("minifying", "path", bundlePath)
		minified, err := builder.Minify(ctx, code)
		if err != nil {
			return nil, &MinificationFailedError{BundlePath: bundlePath, Err: err}
		}
		if len(minified) == 0 {
			return nil, &MinificationFailedError{BundlePath: bundlePath, Err: bundler.ErrEmptyOutput}
		}
		minifiedPath := filepath.Join(dir, MinifiedAuditFile)
		if err := os.WriteFile(minifiedPath, minified, 0o644); err != nil {
			return nil, &MinificationFailedError{BundlePath: bundlePath, Err: fmt.Errorf("write audit file: %w", err)}
		}
		p.logger.Info("minified file written", "path", minifiedPath, "bytes", len(minified))
		code = minified
	}

	env, err := os.ReadFile(filepath.Join(dir, EnvFileName))
	if err != nil {
		return nil, &IncludePathNotFoundError{Path: EnvFileName, Err: err}
	}

	entries := []Entry{
		{Name: module + ".js", Data: code},
		{Name: EnvFileName, Data: env},
	}

	extra, err := p.includes.Resolve(dir, desc.Package.IncludePaths)
	if err != nil {
		return nil, err
	}
	return append(entries, extra...), nil
}
