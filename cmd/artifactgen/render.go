// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/artifactgen/artifactgen/internal/issue"
	"github.com/artifactgen/artifactgen/internal/preprocess"
	"github.com/artifactgen/artifactgen/pkg/packaging"

	"github.com/charmbracelet/lipgloss/tree"
)

// renderError prints err and, when it is linked to a catalog issue, the
// rendered issue text.
func renderError(w io.Writer, err error, verbose bool) {
	var ae *issue.ActionableError
	var msg string
	if errors.As(err, &ae) {
		msg = ae.Format(verbose)
	} else {
		msg = err.Error()
	}
	fmt.Fprintln(w, ErrorStyle.Render("Error:")+" "+msg)

	if preprocess.IsStopBuild(err) {
		return
	}
	if is := issue.IssueOf(err); is != nil {
		if rendered, renderErr := is.Render("notty"); renderErr == nil {
			fmt.Fprint(w, rendered)
		}
	}
}

// renderTree draws a packaging tree.
func renderTree(root *packaging.Element) string {
	return elementTree(root).
		Enumerator(tree.RoundedEnumerator).
		RootStyle(treeRootStyle).
		EnumeratorStyle(treeEnumeratorStyle).
		String()
}

func elementTree(el *packaging.Element) *tree.Tree {
	t := tree.Root(el.Label())
	for _, child := range el.Children {
		if child.IsComposite() {
			t.Child(elementTree(child))
			continue
		}
		t.Child(child.Label())
	}
	return t
}
