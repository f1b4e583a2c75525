// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package watch

import (
	"errors"
	"syscall"
)

// isExhausted reports inotify resource exhaustion, after which no further
// events are delivered: the watch limit (fs.inotify.max_user_watches, ENOSPC)
// or the per-process and system file descriptor limits (EMFILE, ENFILE).
func isExhausted(err error) bool {
	return errors.Is(err, syscall.ENOSPC) ||
		errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE)
}
