// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"errors"
	"fmt"
)

var (
	// ErrProjectCopyFailed is returned when the project tree cannot be copied
	// into the build directory.
	ErrProjectCopyFailed = errors.New("project copy failed")
	// ErrEnvironmentFetchFailed is returned when the environment store returns
	// an error or no object.
	ErrEnvironmentFetchFailed = errors.New("environment fetch failed")
	// ErrBundleBuildFailed is returned when the bundling step fails.
	ErrBundleBuildFailed = errors.New("bundle build failed")
	// ErrMinificationFailed is returned when minification yields no usable output.
	ErrMinificationFailed = errors.New("minification failed")
	// ErrIncludePathNotFound is returned when a declared include path cannot be stat'd.
	ErrIncludePathNotFound = errors.New("include path not found")
	// ErrArchiveTooLarge is returned when the archive reaches the size ceiling.
	ErrArchiveTooLarge = errors.New("archive too large")
	// ErrUnsupportedBuilder is returned for a builder id with no registered bundler.
	ErrUnsupportedBuilder = errors.New("unsupported builder")
	// ErrInvalidExcludePattern is returned when an exclude rule is not a valid
	// regular expression.
	ErrInvalidExcludePattern = errors.New("invalid exclude pattern")
	// ErrInvalidEntryName is returned for a compression entry whose name is
	// absolute or escapes the archive root.
	ErrInvalidEntryName = errors.New("invalid archive entry name")
)

type (
	// ProjectCopyFailedError wraps a filesystem failure during assembly.
	ProjectCopyFailedError struct {
		ProjectRoot string
		BuildDir    string
		Err         error
	}

	// EnvironmentFetchFailedError identifies the store object that could not
	// be retrieved.
	EnvironmentFetchFailedError struct {
		Bucket  string
		Project string
		Stage   string
		Err     error
	}

	// BundleBuildFailedError wraps a bundler failure for the handler module.
	BundleBuildFailedError struct {
		Builder string
		Module  string
		Err     error
	}

	// MinificationFailedError wraps a minifier failure.
	MinificationFailedError struct {
		BundlePath string
		Err        error
	}

	// IncludePathNotFoundError names the declared include path that failed.
	IncludePathNotFoundError struct {
		Path string
		Err  error
	}

	// ArchiveTooLargeError carries the generated size and the ceiling.
	ArchiveTooLargeError struct {
		Size  int64
		Limit int64
	}

	// UnsupportedBuilderError names the builder id and the registered ones.
	UnsupportedBuilderError struct {
		Builder   string
		Supported []string
	}

	// InvalidExcludePatternError names the pattern that failed to compile.
	InvalidExcludePatternError struct {
		Pattern string
		Err     error
	}

	// InvalidEntryNameError names the rejected compression entry.
	InvalidEntryNameError struct {
		Name string
	}
)

// Error implements the error interface.
func (e *ProjectCopyFailedError) Error() string {
	return fmt.Sprintf("copy %s to %s: %v", e.ProjectRoot, e.BuildDir, e.Err)
}

// Unwrap returns ErrProjectCopyFailed and the underlying error.
func (e *ProjectCopyFailedError) Unwrap() []error { return []error{ErrProjectCopyFailed, e.Err} }

// Error implements the error interface.
func (e *EnvironmentFetchFailedError) Error() string {
	return fmt.Sprintf("fetch environment for project %q stage %q from %q: %v", e.Project, e.Stage, e.Bucket, e.Err)
}

// Unwrap returns ErrEnvironmentFetchFailed and the underlying error.
func (e *EnvironmentFetchFailedError) Unwrap() []error {
	return []error{ErrEnvironmentFetchFailed, e.Err}
}

// Error implements the error interface.
func (e *BundleBuildFailedError) Error() string {
	return fmt.Sprintf("%s bundle of %s: %v", e.Builder, e.Module, e.Err)
}

// Unwrap returns ErrBundleBuildFailed and the underlying error.
func (e *BundleBuildFailedError) Unwrap() []error { return []error{ErrBundleBuildFailed, e.Err} }

// Error implements the error interface.
func (e *MinificationFailedError) Error() string {
	return fmt.Sprintf("minify %s: %v", e.BundlePath, e.Err)
}

// Unwrap returns ErrMinificationFailed and the underlying error.
func (e *MinificationFailedError) Unwrap() []error { return []error{ErrMinificationFailed, e.Err} }

// Error implements the error interface.
func (e *IncludePathNotFoundError) Error() string {
	return fmt.Sprintf("include path %q: %v", e.Path, e.Err)
}

// Unwrap returns ErrIncludePathNotFound and the underlying error.
func (e *IncludePathNotFoundError) Unwrap() []error { return []error{ErrIncludePathNotFound, e.Err} }

// Error implements the error interface.
func (e *ArchiveTooLargeError) Error() string {
	return fmt.Sprintf("archive is %d bytes, must be smaller than %d bytes", e.Size, e.Limit)
}

// Unwrap returns ErrArchiveTooLarge for errors.Is() compatibility.
func (e *ArchiveTooLargeError) Unwrap() error { return ErrArchiveTooLarge }

// Error implements the error interface.
func (e *UnsupportedBuilderError) Error() string {
	return fmt.Sprintf("unsupported builder %q (supported: %v)", e.Builder, e.Supported)
}

// Unwrap returns ErrUnsupportedBuilder for errors.Is() compatibility.
func (e *UnsupportedBuilderError) Unwrap() error { return ErrUnsupportedBuilder }

// Error implements the error interface.
func (e *InvalidExcludePatternError) Error() string {
	return fmt.Sprintf("exclude pattern %q: %v", e.Pattern, e.Err)
}

// Unwrap returns ErrInvalidExcludePattern and the underlying error.
func (e *InvalidExcludePatternError) Unwrap() []error {
	return []error{ErrInvalidExcludePattern, e.Err}
}

// Error implements the error interface.
func (e *InvalidEntryNameError) Error() string {
	return fmt.Sprintf("archive entry %q must be a relative path inside the archive", e.Name)
}

// Unwrap returns ErrInvalidEntryName for errors.Is() compatibility.
func (e *InvalidEntryNameError) Unwrap() error { return ErrInvalidEntryName }
