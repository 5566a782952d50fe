// SPDX-License-Identifier: MPL-2.0

// Package packaging defines the packaging tree an artifact is made of and
// writes such trees to disk.
//
// A tree is rooted at a Root element. Composite elements (Root, Archive,
// Directory) hold children; leaf elements reference content to copy: a
// module's compiler output, a directory, a single file or a whole library.
// Insertion is add-or-find: adding an element whose identity matches an
// existing child returns the existing child (merging composite children)
// instead of creating a duplicate.
package packaging

import (
	"fmt"
	"slices"
)

const (
	KindRoot          Kind = "root"
	KindArchive       Kind = "archive"
	KindDirectory     Kind = "directory"
	KindModuleOutput  Kind = "module-output"
	KindDirectoryCopy Kind = "directory-copy"
	KindFileCopy      Kind = "file-copy"
	KindLibrary       Kind = "library"
)

type (
	// Kind identifies the type of a packaging element.
	Kind string

	// Element is one node of a packaging tree.
	//
	// Name is the output name for Archive and Directory. Source holds the
	// referenced entity for leaves: a module name for ModuleOutput, a path for
	// DirectoryCopy and FileCopy, a library name for Library.
	Element struct {
		Kind     Kind       `toml:"kind"`
		Name     string     `toml:"name,omitempty"`
		Source   string     `toml:"source,omitempty"`
		Children []*Element `toml:"children,omitempty"`
	}
)

// NewRoot returns an empty Root element.
func NewRoot() *Element { return &Element{Kind: KindRoot} }

// NewArchive returns an empty Archive producing a file called name.
func NewArchive(name string) *Element { return &Element{Kind: KindArchive, Name: name} }

// NewDirectory returns an empty Directory called name.
func NewDirectory(name string) *Element { return &Element{Kind: KindDirectory, Name: name} }

// ModuleOutput references the production compiler output of module.
func ModuleOutput(module string) *Element { return &Element{Kind: KindModuleOutput, Source: module} }

// DirectoryCopy copies the contents of dir recursively.
func DirectoryCopy(dir string) *Element { return &Element{Kind: KindDirectoryCopy, Source: dir} }

// FileCopy copies the single file at path.
func FileCopy(path string) *Element { return &Element{Kind: KindFileCopy, Source: path} }

// LibraryFiles copies every root of the named library.
func LibraryFiles(library string) *Element { return &Element{Kind: KindLibrary, Source: library} }

// IsComposite reports whether the element can hold children.
func (e *Element) IsComposite() bool {
	switch e.Kind {
	case KindRoot, KindArchive, KindDirectory:
		return true
	default:
		return false
	}
}

// Identity is the logical path segment used for add-or-find.
func (e *Element) Identity() string {
	if e.IsComposite() {
		return string(e.Kind) + ":" + e.Name
	}
	return string(e.Kind) + ":" + e.Source
}

// AddOrFind inserts child unless an element with the same identity already
// exists, in which case child's children are merged into the existing one and
// the existing element is returned.
func (e *Element) AddOrFind(child *Element) *Element {
	if !e.IsComposite() {
		panic(fmt.Sprintf("packaging: cannot add children to %s element", e.Kind))
	}
	id := child.Identity()
	for _, existing := range e.Children {
		if existing.Identity() != id {
			continue
		}
		for _, grandchild := range child.Children {
			existing.AddOrFind(grandchild)
		}
		return existing
	}
	e.Children = append(e.Children, child)
	return child
}

// Find returns the direct child of the given kind and name (or source).
func (e *Element) Find(kind Kind, name string) *Element {
	for _, c := range e.Children {
		if c.Kind != kind {
			continue
		}
		if (c.IsComposite() && c.Name == name) || (!c.IsComposite() && c.Source == name) {
			return c
		}
	}
	return nil
}

// Archives returns the direct Archive children.
func (e *Element) Archives() []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.Kind == KindArchive {
			out = append(out, c)
		}
	}
	return out
}

// Walk visits e and every descendant depth-first. depth is 0 for e.
func (e *Element) Walk(fn func(el *Element, depth int) error) error {
	return e.walk(fn, 0)
}

func (e *Element) walk(fn func(*Element, int) error, depth int) error {
	if err := fn(e, depth); err != nil {
		return err
	}
	for _, c := range e.Children {
		if err := c.walk(fn, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// Equal reports whether two trees have the same shape, kinds and names.
func (e *Element) Equal(other *Element) bool {
	if e == nil || other == nil {
		return e == other
	}
	if e.Kind != other.Kind || e.Name != other.Name || e.Source != other.Source {
		return false
	}
	return slices.EqualFunc(e.Children, other.Children, (*Element).Equal)
}

// Clone returns a deep copy of the tree.
func (e *Element) Clone() *Element {
	c := &Element{Kind: e.Kind, Name: e.Name, Source: e.Source}
	for _, child := range e.Children {
		c.Children = append(c.Children, child.Clone())
	}
	return c
}

// Label is a short human-readable description of the element.
func (e *Element) Label() string {
	switch e.Kind {
	case KindRoot:
		return "<output root>"
	case KindArchive, KindDirectory:
		return e.Name
	case KindModuleOutput:
		return fmt.Sprintf("'%s' compile output", e.Source)
	case KindDirectoryCopy:
		return "dir " + e.Source
	case KindFileCopy:
		return "file " + e.Source
	case KindLibrary:
		return "library " + e.Source
	default:
		return string(e.Kind)
	}
}
