// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/artifactgen/artifactgen/cmd/artifactgen"

func main() {
	cmd.Execute()
}
