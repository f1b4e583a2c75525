// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers shared by fnpack's tests.
//
// Helpers cover environment and working directory changes (MustSetenv,
// MustUnsetenv, MustChdir, SetHomeDir), project fixtures (WriteTree,
// ReadTree), archive inspection (ReadZip), a controllable clock (FakeClock)
// and a process-wide limit on container-backed tests (ContainerSemaphore).
package testutil
