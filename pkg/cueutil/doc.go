// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE parsing utilities.
//
// Function descriptors and the fnpack configuration file are both validated
// against embedded CUE schemas before they are decoded into Go structs:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify with schema
//  3. Validate and decode to Go struct
//
// Because CUE is a superset of JSON, the same flow accepts JSON descriptors.
//
// # Usage
//
//	//go:embed descriptor_schema.cue
//	var schemaBytes []byte
//
//	result, err := cueutil.ParseAndDecode[Document](
//	    schemaBytes,
//	    data,
//	    "#Descriptor",
//	    cueutil.WithFilename("awsm.json"),
//	)
//	if err != nil {
//	    return nil, err  // Error includes CUE path for debugging
//	}
//	return result.Value, nil
package cueutil
