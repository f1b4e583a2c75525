// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and
// remediation hints. Each packaging failure kind also has a markdown
// guide in the issue catalog, rendered with glamour in verbose mode.
package issue
