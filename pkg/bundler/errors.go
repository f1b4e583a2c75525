// SPDX-License-Identifier: MPL-2.0

package bundler

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEntryNotFound is returned when no source file exists for the entry module.
	ErrEntryNotFound = errors.New("entry module not found")
	// ErrUnknownTransform is returned for a transform name the bundler does not support.
	ErrUnknownTransform = errors.New("unknown transform")
	// ErrBuild is returned when esbuild reports errors.
	ErrBuild = errors.New("bundle failed")
	// ErrEmptyOutput is returned when a build or minification yields no code.
	ErrEmptyOutput = errors.New("empty output")
)

type (
	// EntryNotFoundError lists the candidate files that were tried for a module.
	EntryNotFoundError struct {
		Module     string
		Candidates []string
	}

	// UnknownTransformError names the unsupported transform.
	UnknownTransformError struct {
		Name string
	}

	// BuildError carries the messages esbuild reported.
	BuildError struct {
		Entry    string
		Messages []string
	}
)

// Error implements the error interface.
func (e *EntryNotFoundError) Error() string {
	return fmt.Sprintf("entry module %q not found (tried %s)", e.Module, strings.Join(e.Candidates, ", "))
}

// Unwrap returns ErrEntryNotFound for errors.Is() compatibility.
func (e *EntryNotFoundError) Unwrap() error { return ErrEntryNotFound }

// Error implements the error interface.
func (e *UnknownTransformError) Error() string {
	return fmt.Sprintf("unknown transform %q (supported: %s)", e.Name, strings.Join(SupportedTransforms(), ", "))
}

// Unwrap returns ErrUnknownTransform for errors.Is() compatibility.
func (e *UnknownTransformError) Unwrap() error { return ErrUnknownTransform }

// Error implements the error interface.
func (e *BuildError) Error() string {
	return fmt.Sprintf("bundling %s: %s", e.Entry, strings.Join(e.Messages, "; "))
}

// Unwrap returns ErrBuild for errors.Is() compatibility.
func (e *BuildError) Unwrap() error { return ErrBuild }
