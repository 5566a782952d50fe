// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

const (
	ConfigLoadFailedId Id = iota + 1
	ProjectLoadFailedId
	ModuleNotFoundId
	OutputUnresolvableId
	ShellNotFoundId
	PreprocessingFailedId
	DependencyCycleId
	ArtifactNotFoundId
)

type (
	Id int

	MarkdownMsg string

	HttpLink string

	Issue struct {
		id       Id          // ID used to lookup the issue
		mdMsg    MarkdownMsg // Markdown text that will be rendered
		docLinks []HttpLink
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// Render renders the issue with a glamour style ("dark", "light", "notty"...).
func (i *Issue) Render(stylePath string) (string, error) {
	md := string(i.mdMsg)
	if len(i.docLinks) > 0 {
		md += "\n\n## See also:\n"
		for _, link := range i.docLinks {
			md += "- <" + string(link) + ">\n"
		}
	}
	return render(md, stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The artifactgen configuration file could not be read or does not match the schema.

## Things you can try:
- Print the effective configuration:
~~~
$ artifactgen config show
~~~
- Write a fresh default file and edit it:
~~~
$ artifactgen config init
~~~

## Example artifactgen.cue:
~~~cue
enabled: true
modules: [
  {name: "app", exclude: ["legacy.jar"]},
]
preprocessing: [
  {name: "codegen", cmd: "./gen.sh"},
]
~~~`,
	}

	projectLoadFailedIssue = &Issue{
		id: ProjectLoadFailedId,
		mdMsg: `
# Failed to load the project descriptor!

The module graph is read from a CUE descriptor (project.cue by default).

## Things you can try:
- Check that every dependency names exactly one of module, library or sdk
- Check that every referenced module and library is declared
- Point the config at another descriptor with the 'project' field`,
	}

	moduleNotFoundIssue = &Issue{
		id: ModuleNotFoundId,
		mdMsg: `
# Module not found!

The requested module is not declared in the project descriptor.

## Things you can try:
- List the modules artifactgen sees:
~~~
$ artifactgen closure <module>
~~~
- Fix the module name in artifactgen.cue or project.cue`,
	}

	outputUnresolvableIssue = &Issue{
		id: OutputUnresolvableId,
		mdMsg: `
# No output directory for the artifact!

An artifact needs either an explicit 'output' in its module entry or a module
with a compiler 'output' directory. Without both, the module is skipped.

## Things you can try:
- Add 'output: "out/artifacts/app"' to the module entry in artifactgen.cue
- Declare the module's compiler output in project.cue`,
	}

	shellNotFoundIssue = &Issue{
		id: ShellNotFoundId,
		mdMsg: `
# Shell not found!

Preprocessing commands run through a shell ('bash -c', falling back to 'sh').

## Things you can try:
- Install bash or make sure it is on PATH
- Set an explicit shell in artifactgen.cue:
~~~cue
shell: {path: "/usr/local/bin/bash"}
~~~
- Use the embedded interpreter instead:
~~~cue
shell: {runtime: "virtual"}
~~~`,
	}

	preprocessingFailedIssue = &Issue{
		id: PreprocessingFailedId,
		mdMsg: `
# Preprocessing command failed!

The command registered for a module exited with a non-zero status, so packaging
was stopped for this artifact.

## Things you can try:
- Run the command on its own to see its output:
~~~
$ artifactgen preprocess <module>
~~~
- Check the captured stdout and stderr printed above`,
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Build task cycle detected!

The build tasks of an artifact depend on each other in a loop and cannot be ordered.

## Things you can try:
- Re-run with --verbose to print the task graph`,
	}

	artifactNotFoundIssue = &Issue{
		id: ArtifactNotFoundId,
		mdMsg: `
# Artifact not found!

No artifact with this name is registered.

## Things you can try:
- Run an assembly pass first:
~~~
$ artifactgen assemble
~~~
- List the registered artifacts:
~~~
$ artifactgen artifacts list
~~~`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():    configLoadFailedIssue,
		projectLoadFailedIssue.Id():   projectLoadFailedIssue,
		moduleNotFoundIssue.Id():      moduleNotFoundIssue,
		outputUnresolvableIssue.Id():  outputUnresolvableIssue,
		shellNotFoundIssue.Id():       shellNotFoundIssue,
		preprocessingFailedIssue.Id(): preprocessingFailedIssue,
		dependencyCycleIssue.Id():     dependencyCycleIssue,
		artifactNotFoundIssue.Id():    artifactNotFoundIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
