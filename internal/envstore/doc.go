// SPDX-License-Identifier: MPL-2.0

// Package envstore fetches a deployment target's environment file from a
// blob store.
//
// Objects are addressed by bucket and a key rendered from a KeyTemplate
// ("envVars/{project}/{stage}/.env" by default). Three backends exist: AWS S3
// through aws-sdk-go-v2, any S3-compatible server through minio-go, and a
// local directory laid out as <root>/<bucket>/<key> for offline use and
// tests. Every backend reports a missing object with an error wrapping
// ErrNotFound.
package envstore
