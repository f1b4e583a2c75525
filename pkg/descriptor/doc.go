// SPDX-License-Identifier: MPL-2.0

// Package descriptor loads and validates function descriptors.
//
// A descriptor document describes one function: its deployment block
// (cloudFormation.lambda with Type, Properties.Runtime and Properties.Handler)
// and its packaging options (exclude patterns, include paths and optimize
// settings). Documents may be written in JSON, CUE or YAML.
//
// Validation is the gate in front of packaging: a descriptor without a
// complete deployment block never produces a Descriptor value.
package descriptor
