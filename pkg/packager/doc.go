// SPDX-License-Identifier: MPL-2.0

// Package packager turns a function descriptor and a project tree into a
// deployable zip archive.
//
// A run is strictly sequential: the descriptor is validated, a fresh build
// directory is assembled (filtered copy plus the deployment target's
// environment file), the optimization pipeline produces the compression
// entries (raw copy or bundle), and the archive is written once it is known
// to fit under MaxArchiveSize. Every failure is terminal and surfaces as one
// of the package's typed errors; build directories are left in place for
// inspection.
package packager
