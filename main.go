// SPDX-License-Identifier: MPL-2.0

// Package main is the entry point for the fnpack CLI.
package main

import cmd "github.com/invowk/fnpack/cmd/fnpack"

func main() {
	cmd.Execute()
}
