// SPDX-License-Identifier: MPL-2.0

package bundler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	esbuild "github.com/evanw/esbuild/pkg/api"
)

const (
	ignoreNamespace = "fnpack-ignore"
	emptyModule     = "module.exports = {};\n"
)

// EntryExtensions are tried in order when resolving a handler module to a file.
var EntryExtensions = []string{".js", ".mjs", ".cjs", ".ts", ".mts", ".cts", ".jsx", ".tsx"}

// resolveMarker tags nested resolve calls so the fallback plugin does not
// recurse into itself.
type resolveMarker struct{}

type (
	// Options configures a single bundle.
	Options struct {
		// Root is the directory module resolution starts from.
		Root string
		// Module is the entry module path relative to Root, without extension.
		Module string
		// Exclude lists modules left out of the bundle and required at runtime.
		Exclude []string
		// Ignore lists modules replaced by an empty module.
		Ignore []string
		// Transforms are source transforms applied before flattening.
		Transforms []string
		// FailOnMissing aborts the bundle when an import cannot be resolved.
		// When false, unresolved imports are kept as runtime requires.
		FailOnMissing bool
	}

	// Result is the output of a bundle.
	Result struct {
		// Code is the bundled CommonJS module.
		Code []byte
		// Metafile is esbuild's JSON description of inputs and outputs.
		Metafile []byte
		// EntryPoint is the absolute path of the resolved entry file.
		EntryPoint string
		// Warnings are esbuild's warnings, including tolerated missing imports.
		Warnings []string
	}

	// Esbuild bundles and minifies Node.js functions with esbuild.
	Esbuild struct {
		platform esbuild.Platform
		format   esbuild.Format
	}
)

// New returns an esbuild bundler producing CommonJS output for Node.js.
func New() *Esbuild {
	return &Esbuild{
		platform: esbuild.PlatformNode,
		format:   esbuild.FormatCommonJS,
	}
}

// ResolveEntry returns the first existing source file for module under root.
func ResolveEntry(root, module string) (string, error) {
	base := filepath.Join(root, filepath.FromSlash(module))
	candidates := make([]string, 0, len(EntryExtensions))
	for _, ext := range EntryExtensions {
		candidate := base + ext
		candidates = append(candidates, filepath.Base(candidate))
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}
	}
	return "", &EntryNotFoundError{Module: module, Candidates: candidates}
}

// Bundle flattens the module graph rooted at opts.Module into one file.
func (b *Esbuild) Bundle(ctx context.Context, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	settings, err := resolveTransforms(opts.Transforms)
	if err != nil {
		return nil, err
	}

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve bundle root: %w", err)
	}

	entry, err := ResolveEntry(root, opts.Module)
	if err != nil {
		return nil, err
	}

	plugins := make([]esbuild.Plugin, 0, 2)
	if len(opts.Ignore) > 0 {
		plugins = append(plugins, ignorePlugin(opts.Ignore))
	}
	if !opts.FailOnMissing {
		plugins = append(plugins, missingAsExternalPlugin())
	}

	result := esbuild.Build(esbuild.BuildOptions{
		EntryPoints:   []string{entry},
		AbsWorkingDir: root,
		Bundle:        true,
		Write:         false,
		Platform:      b.platform,
		Format:        b.format,
		Target:        settings.target,
		Loader:        settings.loader,
		External:      opts.Exclude,
		Plugins:       plugins,
		Metafile:      true,
		LogLevel:      esbuild.LogLevelSilent,
	})

	if len(result.Errors) > 0 {
		return nil, &BuildError{Entry: relOrAbs(root, entry), Messages: messageTexts(result.Errors)}
	}
	if len(result.OutputFiles) == 0 || len(result.OutputFiles[0].Contents) == 0 {
		return nil, fmt.Errorf("bundling %s: %w", relOrAbs(root, entry), ErrEmptyOutput)
	}

	return &Result{
		Code:       result.OutputFiles[0].Contents,
		Metafile:   []byte(result.Metafile),
		EntryPoint: entry,
		Warnings:   messageTexts(result.Warnings),
	}, nil
}

// Minify shrinks whitespace and renames local identifiers.
func (b *Esbuild) Minify(ctx context.Context, code []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := esbuild.Transform(string(code), esbuild.TransformOptions{
		Loader:            esbuild.LoaderJS,
		Platform:          b.platform,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		LogLevel:          esbuild.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return nil, &BuildError{Entry: "minify", Messages: messageTexts(result.Errors)}
	}
	if len(result.Code) == 0 {
		return nil, fmt.Errorf("minify: %w", ErrEmptyOutput)
	}
	return result.Code, nil
}

// ignorePlugin resolves every listed module to an empty module.
func ignorePlugin(modules []string) esbuild.Plugin {
	quoted := make([]string, len(modules))
	for i, m := range modules {
		quoted[i] = regexp.QuoteMeta(m)
	}
	filter := "^(" + strings.Join(quoted, "|") + ")$"

	return esbuild.Plugin{
		Name: "fnpack-ignore",
		Setup: func(build esbuild.PluginBuild) {
			build.OnResolve(esbuild.OnResolveOptions{Filter: filter},
				func(args esbuild.OnResolveArgs) (esbuild.OnResolveResult, error) {
					return esbuild.OnResolveResult{Path: args.Path, Namespace: ignoreNamespace}, nil
				})
			build.OnLoad(esbuild.OnLoadOptions{Filter: ".*", Namespace: ignoreNamespace},
				func(esbuild.OnLoadArgs) (esbuild.OnLoadResult, error) {
					contents := emptyModule
					return esbuild.OnLoadResult{Contents: &contents, Loader: esbuild.LoaderJS}, nil
				})
		},
	}
}

// missingAsExternalPlugin keeps unresolvable imports as runtime requires
// instead of failing the build.
func missingAsExternalPlugin() esbuild.Plugin {
	return esbuild.Plugin{
		Name: "fnpack-missing-external",
		Setup: func(build esbuild.PluginBuild) {
			build.OnResolve(esbuild.OnResolveOptions{Filter: ".*"},
				func(args esbuild.OnResolveArgs) (esbuild.OnResolveResult, error) {
					if _, nested := args.PluginData.(resolveMarker); nested {
						return esbuild.OnResolveResult{}, nil
					}
					if args.Kind == esbuild.ResolveEntryPoint || args.Namespace != "file" {
						return esbuild.OnResolveResult{}, nil
					}

					resolved := build.Resolve(args.Path, esbuild.ResolveOptions{
						Importer:   args.Importer,
						Namespace:  args.Namespace,
						ResolveDir: args.ResolveDir,
						Kind:       args.Kind,
						PluginData: resolveMarker{},
					})
					if len(resolved.Errors) == 0 {
						return esbuild.OnResolveResult{
							Path:      resolved.Path,
							External:  resolved.External,
							Namespace: resolved.Namespace,
						}, nil
					}

					return esbuild.OnResolveResult{
						Path:     args.Path,
						External: true,
						Warnings: []esbuild.Message{{
							Text: fmt.Sprintf("could not resolve %q from %s, leaving it as a runtime require", args.Path, args.Importer),
						}},
					}, nil
				})
		},
	}
}

func messageTexts(msgs []esbuild.Message) []string {
	texts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Location != nil {
			texts = append(texts, fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text))
			continue
		}
		texts = append(texts, m.Text)
	}
	return texts
}

func relOrAbs(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}
