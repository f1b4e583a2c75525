// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"runtime"
	"testing"
)

// SetHomeDir points the platform's home directory variable (USERPROFILE on
// Windows, HOME elsewhere) at dir and returns a cleanup function restoring
// the original value. XDG_CONFIG_HOME is cleared for the same duration so
// config lookups fall back to the new home.
//
//	t.Cleanup(testutil.SetHomeDir(t, t.TempDir()))
func SetHomeDir(t testing.TB, dir string) func() {
	t.Helper()

	restoreXDG := MustUnsetenv(t, "XDG_CONFIG_HOME")
	var restoreHome func()
	switch runtime.GOOS {
	case "windows":
		restoreHome = MustSetenv(t, "USERPROFILE", dir)
	default:
		restoreHome = MustSetenv(t, "HOME", dir)
	}
	return func() {
		restoreHome()
		restoreXDG()
	}
}
