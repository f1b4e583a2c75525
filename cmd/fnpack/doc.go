// SPDX-License-Identifier: MPL-2.0

// Package cmd implements the fnpack command line: packaging a function
// descriptor into a deployment archive, validating descriptors, and managing
// the tool configuration.
//
// The command handlers are thin. They load configuration, open the
// environment store, delegate to pkg/packager and render results and
// failures. Failures are rendered as issue.ActionableError values; under
// --verbose the matching guide from the issue catalog is rendered as well.
package cmd
