// SPDX-License-Identifier: MPL-2.0

// Package trigger re-runs artifact assembly when the project changes.
//
// Two events exist: ModuleAdded, published when a reloaded descriptor
// declares modules the previous one did not, and RootsChanged for every
// other change. Both lead to the same outcome, a full assembly pass over
// all configured modules followed by a wait for the queued commits.
package trigger
