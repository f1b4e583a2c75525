// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

// ActionableError is a failure the CLI can explain: the step fnpack was
// performing, the path or name it was working on, and what the user can
// change to get past it. IssueId links the catalog guide shown under
// --verbose.
//
//	return issue.New(issue.ConfigLoadFailedId, "load configuration").
//		On(path).
//		Hint("Check that the file contains valid CUE syntax").
//		Wrap(err)
type ActionableError struct {
	Operation string
	Resource  string
	Hints     []string
	Cause     error
	IssueId   Id
}

// New starts an actionable error for operation, a verb phrase such as
// "write archive". A zero id means no catalog guide applies.
func New(id Id, operation string) *ActionableError {
	return &ActionableError{Operation: operation, IssueId: id}
}

// On records the file, directory or name the operation was working on.
func (e *ActionableError) On(resource string) *ActionableError {
	e.Resource = resource
	return e
}

// Hint appends one remediation line. Arguments are formatted with fmt.Sprintf
// when present.
func (e *ActionableError) Hint(format string, args ...any) *ActionableError {
	if len(args) > 0 {
		format = fmt.Sprintf(format, args...)
	}
	e.Hints = append(e.Hints, format)
	return e
}

// Wrap sets the underlying failure.
func (e *ActionableError) Wrap(cause error) *ActionableError {
	e.Cause = cause
	return e
}

// Error reads "failed to <operation>[: <resource>][: <cause>]".
func (e *ActionableError) Error() string {
	parts := []string{"failed to " + e.Operation}
	if e.Resource != "" {
		parts = append(parts, e.Resource)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *ActionableError) Unwrap() error { return e.Cause }

// Format renders the message followed by one "  - " line per hint. Verbose
// output appends the numbered cause chain.
func (e *ActionableError) Format(verbose bool) string {
	var b strings.Builder
	b.WriteString(e.Error())

	if len(e.Hints) > 0 {
		b.WriteByte('\n')
		for _, h := range e.Hints {
			b.WriteString("\n  - ")
			b.WriteString(h)
		}
	}

	if verbose && e.Cause != nil {
		b.WriteString("\n\nError chain:")
		for i, link := range causeChain(e.Cause) {
			fmt.Fprintf(&b, "\n  %d. %s", i+1, link.Error())
		}
	}

	return b.String()
}

// Guide returns the catalog entry for IssueId, or nil when there is none.
func (e *ActionableError) Guide() *Issue {
	if e.IssueId == 0 {
		return nil
	}
	return Get(e.IssueId)
}

// causeChain lists err and everything it wraps. Taxonomy errors unwrap to
// {sentinel, cause}, so for multi-wrapping errors the last branch is the one
// followed.
func causeChain(err error) []error {
	var chain []error
	for err != nil {
		chain = append(chain, err)
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			errs := u.Unwrap()
			if len(errs) == 0 {
				return chain
			}
			err = errs[len(errs)-1]
		default:
			err = errors.Unwrap(err)
		}
	}
	return chain
}
