// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingDeploymentMetadata is returned when a descriptor has no deployment block.
	ErrMissingDeploymentMetadata = errors.New("missing deployment metadata")
	// ErrIncompleteDeploymentMetadata is returned when the deployment block lacks a required attribute.
	ErrIncompleteDeploymentMetadata = errors.New("incomplete deployment metadata")
	// ErrDescriptorUnreadable is returned when a descriptor document cannot be read or parsed.
	ErrDescriptorUnreadable = errors.New("descriptor unreadable")
)

type (
	// MissingDeploymentMetadataError is returned when the descriptor at
	// DescriptorPath has no cloudFormation.lambda block.
	MissingDeploymentMetadataError struct {
		DescriptorPath string
	}

	// IncompleteDeploymentMetadataError names every required deployment
	// attribute that is missing or invalid. Cause is set when an attribute is
	// present but malformed (e.g. a handler without an exported function).
	IncompleteDeploymentMetadataError struct {
		DescriptorPath string
		Fields         []string
		Cause          error
	}

	// DescriptorUnreadableError wraps read and parse failures.
	DescriptorUnreadableError struct {
		DescriptorPath string
		Err            error
	}
)

// Error implements the error interface.
func (e *MissingDeploymentMetadataError) Error() string {
	return fmt.Sprintf("%s: does not have a cloudFormation.lambda block", e.DescriptorPath)
}

// Unwrap returns ErrMissingDeploymentMetadata for errors.Is() compatibility.
func (e *MissingDeploymentMetadataError) Unwrap() error { return ErrMissingDeploymentMetadata }

// Error implements the error interface.
func (e *IncompleteDeploymentMetadataError) Error() string {
	msg := fmt.Sprintf("%s: missing or invalid lambda attribute(s): %s",
		e.DescriptorPath, strings.Join(e.Fields, ", "))
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns ErrIncompleteDeploymentMetadata and the cause, if any.
func (e *IncompleteDeploymentMetadataError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrIncompleteDeploymentMetadata}
	}
	return []error{ErrIncompleteDeploymentMetadata, e.Cause}
}

// Error implements the error interface.
func (e *DescriptorUnreadableError) Error() string {
	return fmt.Sprintf("read descriptor %s: %v", e.DescriptorPath, e.Err)
}

// Unwrap returns ErrDescriptorUnreadable and the underlying error.
func (e *DescriptorUnreadableError) Unwrap() []error {
	return []error{ErrDescriptorUnreadable, e.Err}
}
