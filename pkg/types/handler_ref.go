// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
)

// ErrInvalidHandlerRef is the sentinel error wrapped by InvalidHandlerRefError.
var ErrInvalidHandlerRef = errors.New("invalid handler reference")

type (
	// HandlerRef is a function entry point in `module.exportedFunction` form,
	// e.g. "users/show/index.handler". The module part is a path relative to
	// the project root without a file extension.
	HandlerRef string

	// InvalidHandlerRefError is returned when a HandlerRef has no module or no
	// exported function name.
	InvalidHandlerRefError struct {
		Value  HandlerRef
		Reason string
	}
)

// String returns the string representation of the HandlerRef.
func (h HandlerRef) String() string { return string(h) }

// Validate returns an error if the reference does not name both a module and
// an exported function.
func (h HandlerRef) Validate() error {
	s := strings.TrimSpace(string(h))
	if s == "" {
		return &InvalidHandlerRefError{Value: h, Reason: "must be non-empty"}
	}
	if path.IsAbs(toSlash(s)) {
		return &InvalidHandlerRefError{Value: h, Reason: "module must be relative to the project root"}
	}
	module, export, ok := h.split()
	if !ok {
		return &InvalidHandlerRefError{Value: h, Reason: "expected module.exportedFunction"}
	}
	if module == "" || strings.HasSuffix(module, "/") {
		return &InvalidHandlerRefError{Value: h, Reason: "module name is empty"}
	}
	if export == "" {
		return &InvalidHandlerRefError{Value: h, Reason: "exported function name is empty"}
	}
	if slices.Contains(strings.Split(module, "/"), "..") {
		return &InvalidHandlerRefError{Value: h, Reason: "module must stay inside the project root"}
	}
	return nil
}

// ModulePath returns the module part of the reference using forward slashes,
// e.g. "users/show/index" for "users/show/index.handler".
func (h HandlerRef) ModulePath() string {
	module, _, _ := h.split()
	return module
}

// ExportName returns the exported function part of the reference.
func (h HandlerRef) ExportName() string {
	_, export, _ := h.split()
	return export
}

// split cuts the reference at the first '.' of its final path element, so
// dotted directory names ("api/v1.2/index.handler") stay part of the module.
func (h HandlerRef) split() (module, export string, ok bool) {
	s := toSlash(strings.TrimSpace(string(h)))
	s = strings.TrimPrefix(s, "./")
	dir := ""
	base := s
	if i := strings.LastIndex(s, "/"); i >= 0 {
		dir, base = s[:i+1], s[i+1:]
	}
	name, export, found := strings.Cut(base, ".")
	if !found {
		return dir + base, "", false
	}
	return dir + name, export, true
}

// Error implements the error interface for InvalidHandlerRefError.
func (e *InvalidHandlerRefError) Error() string {
	return fmt.Sprintf("invalid handler %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidHandlerRef for errors.Is() compatibility.
func (e *InvalidHandlerRefError) Unwrap() error { return ErrInvalidHandlerRef }

func toSlash(s string) string {
	return strings.ReplaceAll(s, `\`, "/")
}
