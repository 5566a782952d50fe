// SPDX-License-Identifier: MPL-2.0

package trigger

import (
	"reflect"
	"slices"

	"github.com/artifactgen/artifactgen/pkg/project"
)

// Diff compares two project snapshots. Modules present in next but not in
// prev yield one ModuleAdded event; any other difference (removed modules,
// changed outputs, dependencies or library roots) yields RootsChanged. A nil
// prev treats every module of next as added. Identical snapshots yield no
// events.
func Diff(prev, next *project.Project) []Event {
	if next == nil {
		return nil
	}

	var events []Event
	var added []string
	for _, name := range next.ModuleNames() {
		if prev == nil {
			added = append(added, name)
			continue
		}
		if _, ok := prev.Module(name); !ok {
			added = append(added, name)
		}
	}
	if len(added) > 0 {
		events = append(events, Event{Kind: ModuleAdded, Modules: added, Project: next})
	}
	if prev != nil && rootsChanged(prev, next) {
		events = append(events, Event{Kind: RootsChanged, Project: next})
	}
	return events
}

func rootsChanged(prev, next *project.Project) bool {
	if prev.Dir != next.Dir {
		return true
	}
	for _, m := range prev.Modules() {
		n, ok := next.Module(m.Name)
		if !ok || !reflect.DeepEqual(m, n) {
			return true
		}
	}
	prevLibs, nextLibs := prev.Libraries(), next.Libraries()
	if len(prevLibs) != len(nextLibs) {
		return true
	}
	return !slices.EqualFunc(prevLibs, nextLibs, func(a, b *project.Library) bool {
		return reflect.DeepEqual(a, b)
	})
}
