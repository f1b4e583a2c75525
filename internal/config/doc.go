// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/fnpack/config.cue (or XDG equivalent on Linux,
// ~/Library/Application Support/fnpack/config.cue on macOS, %APPDATA%\fnpack\config.cue
// on Windows), falling back to ./config.cue. It selects the environment file store
// backend, the build directory root and the archive name. FNPACK_* environment
// variables override file values (FNPACK_STORE_BACKEND for store.backend).
//
// Configuration files are validated against a CUE schema (config_schema.cue).
package config
