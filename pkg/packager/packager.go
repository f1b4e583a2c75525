// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"context"
	"errors"
	"io"
	"maps"
	"path/filepath"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/invowk/fnpack/pkg/descriptor"
)

// DefaultArchiveName is the archive file name used when no destination is given.
const DefaultArchiveName = "package.zip"

// ErrNoEnvironmentStore is returned by New when Options.Store is nil.
var ErrNoEnvironmentStore = errors.New("packager: environment store is required")

type (
	// Options configures a Packager.
	Options struct {
		// Store supplies environment files. Required.
		Store EnvironmentStore
		// TempDir is where build directories are created. Defaults to the
		// system temp directory.
		TempDir string
		// ArchiveName is the archive file name inside the build directory
		// when a request has no Output. Defaults to DefaultArchiveName.
		ArchiveName string
		// Builders maps lower-case builder ids to implementations. Defaults
		// to DefaultBuilders().
		Builders map[string]Builder
		// Ignore lists housekeeping globs skipped in included directories.
		// Defaults to DefaultIgnore.
		Ignore []string
		// Logger receives progress output. Nil discards it.
		Logger *log.Logger
	}

	// Request describes one packaging run.
	Request struct {
		// DescriptorPath is the path of the function descriptor document.
		DescriptorPath string
		// ProjectRoot is the directory copied into the build directory.
		ProjectRoot string
		// Target selects the environment file.
		Target Target
		// Output is an optional archive destination.
		Output string
	}

	// Artifact is the result of a successful run.
	Artifact struct {
		// DescriptorPath is the absolute path of the originating descriptor.
		DescriptorPath string
		// ArchivePath is the absolute path of the written archive.
		ArchivePath string
		// BuildDir is the build directory used by the run.
		BuildDir string
		// Size is the archive size in bytes.
		Size int64
		// Entries are the archive entry names in archive order.
		Entries []string
	}

	// Packager runs the packaging pipeline.
	Packager struct {
		store       EnvironmentStore
		tempDir     string
		archiveName string
		builders    map[string]Builder
		ignore      []string
		logger      *log.Logger
		now         func() time.Time
	}
)

// New returns a Packager for opts.
func New(opts Options) (*Packager, error) {
	if opts.Store == nil {
		return nil, ErrNoEnvironmentStore
	}
	p := &Packager{
		store:       opts.Store,
		tempDir:     opts.TempDir,
		archiveName: opts.ArchiveName,
		builders:    opts.Builders,
		ignore:      opts.Ignore,
		logger:      orDiscard(opts.Logger),
		now:         time.Now,
	}
	if p.archiveName == "" {
		p.archiveName = DefaultArchiveName
	}
	if p.builders == nil {
		p.builders = DefaultBuilders()
	}
	if p.ignore == nil {
		p.ignore = DefaultIgnore
	}
	return p, nil
}

// Builders returns the registered builder ids in sorted order.
func (p *Packager) Builders() []string {
	return builderNames(p.builders)
}

// Package loads and validates the descriptor named by req, then packages it.
func (p *Packager) Package(ctx context.Context, req Request) (*Artifact, error) {
	desc, err := descriptor.Open(req.DescriptorPath)
	if err != nil {
		return nil, err
	}
	return p.PackageDescriptor(ctx, desc, req)
}

// PackageDescriptor packages an already validated descriptor. The
// DescriptorPath of req is ignored.
func (p *Packager) PackageDescriptor(ctx context.Context, desc *descriptor.Descriptor, req Request) (*Artifact, error) {
	logger := p.logger.With("run", uuid.NewString(), "function", string(desc.Name))

	if settings, bundled := desc.Bundled(); bundled {
		if _, ok := p.builders[settings.Builder]; !ok {
			return nil, &UnsupportedBuilderError{Builder: settings.Builder, Supported: p.Builders()}
		}
	}

	matcher, err := NewExclusionMatcher(desc.Package.ExcludePatterns)
	if err != nil {
		return nil, err
	}

	logger.Info("packaging", "descriptor", desc.Path, "handler", desc.Deployment.Handler)

	assembler := NewAssembler(p.tempDir, p.store, logger)
	assembler.now = p.now
	dir, err := assembler.Assemble(ctx, desc.Name, req.ProjectRoot, matcher, req.Target)
	if err != nil {
		return nil, err
	}

	includes := NewIncludeResolver(p.ignore, logger)
	entries, err := NewPipeline(p.builders, includes, logger).Run(ctx, desc, dir.Path)
	if err != nil {
		return nil, err
	}

	dest := req.Output
	if dest == "" {
		dest = filepath.Join(dir.Path, p.archiveName)
	}
	dest, err = filepath.Abs(dest)
	if err != nil {
		return nil, err
	}

	archive := NewArchiveBuilder(logger)
	size, err := archive.Write(entries, dest)
	if err != nil {
		return nil, err
	}

	merged, _ := mergeEntries(entries) // names were validated by Write
	names := make([]string, len(merged))
	for i, e := range merged {
		names[i] = e.Name
	}

	return &Artifact{
		DescriptorPath: desc.Path,
		ArchivePath:    dest,
		BuildDir:       dir.Path,
		Size:           size,
		Entries:        names,
	}, nil
}

func builderNames(builders map[string]Builder) []string {
	return slices.Sorted(maps.Keys(builders))
}

func orDiscard(logger *log.Logger) *log.Logger {
	if logger != nil {
		return logger
	}
	return log.New(io.Discard)
}
