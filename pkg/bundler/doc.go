// SPDX-License-Identifier: MPL-2.0

// Package bundler flattens a Node.js function's module graph into a single
// CommonJS file and minifies it, using esbuild.
//
// The bundler works entirely in memory (esbuild's Write option is off). The
// caller is responsible for persisting the output; the packager stores it in
// the build directory as audit files.
package bundler
