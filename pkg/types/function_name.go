// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFunctionName is the sentinel error wrapped by InvalidFunctionNameError.
var ErrInvalidFunctionName = errors.New("invalid function name")

type (
	// FunctionName identifies a function within a project. It is used as the
	// prefix of the per-run build directory, so it must be a single path element.
	FunctionName string

	// InvalidFunctionNameError is returned when a FunctionName is empty or
	// cannot be used as a directory name.
	InvalidFunctionNameError struct {
		Value FunctionName
	}
)

// String returns the string representation of the FunctionName.
func (n FunctionName) String() string { return string(n) }

// Validate returns an error if the name is empty, whitespace-only, or
// contains path separators or the build directory delimiter '@'.
func (n FunctionName) Validate() error {
	s := string(n)
	if strings.TrimSpace(s) == "" || s == "." || s == ".." {
		return &InvalidFunctionNameError{Value: n}
	}
	if strings.ContainsAny(s, `/\@`) {
		return &InvalidFunctionNameError{Value: n}
	}
	return nil
}

// Error implements the error interface for InvalidFunctionNameError.
func (e *InvalidFunctionNameError) Error() string {
	return fmt.Sprintf("invalid function name %q: must be a non-empty name without '/', '\\' or '@'", e.Value)
}

// Unwrap returns ErrInvalidFunctionName for errors.Is() compatibility.
func (e *InvalidFunctionNameError) Unwrap() error { return ErrInvalidFunctionName }
