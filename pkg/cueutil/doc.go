// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides the schema-validated CUE decoding shared by the
// configuration store and the project descriptor loader.
//
// Every file format in artifactgen follows the same flow:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify it with the schema definition
//  3. Validate and decode into a Go struct
//
// Errors are reported with JSON-path prefixes (modules[0].dependencies[1].scope)
// so users can find the offending field.
package cueutil
