// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"slices"
	"testing"
)

func mustGraph(t *testing.T, ids []string, edges [][2]string) *Graph[string] {
	t.Helper()
	g := New[string]()
	for _, id := range ids {
		if err := g.Add(id, id); err != nil {
			t.Fatalf("Add(%q) error = %v", id, err)
		}
	}
	for _, e := range edges {
		if err := g.Before(e[0], e[1]); err != nil {
			t.Fatalf("Before(%q, %q) error = %v", e[0], e[1], err)
		}
	}
	return g
}

func TestOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		ids   []string
		edges [][2]string
		want  []string
	}{
		{"empty", nil, nil, []string{}},
		{"independent keep insertion order", []string{"c", "a", "b"}, nil, []string{"c", "a", "b"}},
		{"chain", []string{"package", "preprocess"}, [][2]string{{"preprocess", "package"}}, []string{"preprocess", "package"}},
		{
			"diamond",
			[]string{"gen", "compile-a", "compile-b", "jar"},
			[][2]string{{"gen", "compile-a"}, {"gen", "compile-b"}, {"compile-a", "jar"}, {"compile-b", "jar"}},
			[]string{"gen", "compile-a", "compile-b", "jar"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := mustGraph(t, tt.ids, tt.edges).Order()
			if err != nil {
				t.Fatalf("Order() error = %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("Order() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrder_Cycle(t *testing.T) {
	t.Parallel()

	g := mustGraph(t, []string{"root", "a", "b", "c"}, [][2]string{{"root", "a"}, {"a", "b"}, {"b", "c"}, {"c", "a"}})
	_, err := g.Order()

	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("Order() error = %v, want *CycleError", err)
	}
	if !errors.Is(err, ErrCycle) {
		t.Error("CycleError should unwrap to ErrCycle")
	}
	c := cycleErr.Cycle
	if len(c) != 4 || c[0] != c[len(c)-1] {
		t.Fatalf("Cycle = %v, want a closed path of 3 nodes", c)
	}
	if slices.Contains(c, "root") {
		t.Errorf("Cycle = %v should not include the acyclic prefix", c)
	}
	for i := range len(c) - 1 {
		if !slices.Contains(g.targets[c[i]], c[i+1]) {
			t.Errorf("Cycle step %s -> %s is not an edge", c[i], c[i+1])
		}
	}
}

func TestOrder_SelfLoop(t *testing.T) {
	t.Parallel()

	_, err := mustGraph(t, []string{"x"}, [][2]string{{"x", "x"}}).Order()
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) || !slices.Equal(cycleErr.Cycle, []string{"x", "x"}) {
		t.Errorf("Order() error = %v, want cycle x -> x", err)
	}
}

func TestAddAndBeforeErrors(t *testing.T) {
	t.Parallel()

	g := New[int]()
	if err := g.Add("a", 1); err != nil {
		t.Fatal(err)
	}
	if err := g.Add("a", 2); !errors.Is(err, ErrDuplicateNode) {
		t.Errorf("duplicate Add() error = %v", err)
	}
	if err := g.Before("a", "missing"); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("Before() error = %v, want ErrUnknownNode", err)
	}
	if g.Len() != 1 {
		t.Errorf("Len() = %d", g.Len())
	}
}
