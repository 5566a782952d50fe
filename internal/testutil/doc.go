// SPDX-License-Identifier: MPL-2.0

// Package testutil provides fixture helpers for tests that fail the test
// immediately on filesystem errors, so test bodies stay focused on behavior.
package testutil
