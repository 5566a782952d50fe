// SPDX-License-Identifier: MPL-2.0

// Package project models the module graph that artifacts are assembled from:
// modules with ordered dependency edges, project-wide libraries with typed
// content roots, and the registry that resolves both by name.
//
// A Project is normally loaded from a CUE descriptor (project.cue) validated
// against the embedded #Project schema. Relative paths in the descriptor are
// resolved against the descriptor's directory. A Project is immutable once
// built; callers reload it to observe structural changes.
package project
