// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	ConfigLoadFailedId Id = iota + 1
	ConfigInvalidId
	DuplicateInputId
	DependencyCycleId
	MergeFailedId
	RewriteFailedId
	ToolNotFoundId
	ModuleUnreadableId
)

const (
	ecmaLink     HttpLink = "https://www.ecma-international.org/publications-and-standards/standards/ecma-335/"
	ilrepackLink HttpLink = "https://github.com/gluck/il-repack"
)

type (
	Id int

	MarkdownMsg string

	HttpLink string

	Issue struct {
		id       Id          // ID used to lookup the issue
		title    string      // one-line summary used in listings
		mdMsg    MarkdownMsg // Markdown text that will be rendered
		extLinks []HttpLink  // external links that might be useful for the user
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) Title() string {
	return i.title
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue as terminal Markdown. stylePath is a glamour style
// name ("dark", "light", "notty") or a path to a JSON style file.
func (i *Issue) Render(stylePath string) (string, error) {
	md := string(i.mdMsg)
	if len(i.extLinks) > 0 {
		var sb strings.Builder
		sb.WriteString("\n\n## See also\n")
		for _, link := range i.extLinks {
			sb.WriteString("- <" + string(link) + ">\n")
		}
		md += sb.String()
	}
	return render(md, stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id:    ConfigLoadFailedId,
		title: "settings file could not be loaded",
		mdMsg: `
# Failed to load mrepack settings

The settings file exists but could not be read or does not match the schema.

## Things you can try:
- Print the file mrepack is reading:
~~~
$ mrepack config path
~~~
- Compare it with the defaults:
~~~
$ mrepack config show
~~~
- Check MREPACK_* environment variables; they override the file.`,
	}

	configInvalidIssue = &Issue{
		id:    ConfigInvalidId,
		title: "repack document is invalid",
		mdMsg: `
# Invalid repack document

The repack document was rejected before any merge started. Nothing on disk was changed.

## Requirements:
- at least one group
- every group lists at least one input assembly and an output assembly
- no two groups write the same output (compared case-insensitively)

## Things you can try:
~~~
$ mrepack config validate repack.cue
$ mrepack config dump repack.cue
~~~`,
	}

	duplicateInputIssue = &Issue{
		id:    DuplicateInputId,
		title: "an input assembly is listed in more than one group",
		mdMsg: `
# Input assembly listed in several groups

An assembly can be absorbed by exactly one output. Listing it in two groups would
produce two outputs that both define its types.

## Things you can try:
- Remove the assembly from all but one group.
- If both outputs need it, leave it in one group and let the other output reference it.`,
	}

	dependencyCycleIssue = &Issue{
		id:    DependencyCycleId,
		title: "groups depend on each other in a cycle",
		mdMsg: `
# Circular dependency between groups

Every group must be merged after the groups it references. The groups named in
the error reference each other, so no such order exists.

## Things you can try:
- Print the detected order and references:
~~~
$ mrepack order repack.cue
$ mrepack refs path/to/Module.dll
~~~
- Move the assemblies that close the cycle into a single group.`,
	}

	mergeFailedIssue = &Issue{
		id:    MergeFailedId,
		title: "the merge engine failed for a group",
		mdMsg: `
# Merge failed

The merge engine reported an error for one group. Groups merged before it are
left on disk; later groups were not processed.

## Things you can try:
- Re-run with ` + "`--verbose`" + ` to see the engine output.
- Make sure every referenced assembly can be found in the search directories.`,
		extLinks: []HttpLink{ilrepackLink},
	}

	rewriteFailedIssue = &Issue{
		id:    RewriteFailedId,
		title: "references in a merged output could not be patched",
		mdMsg: `
# Reference rewrite failed

A merged output was produced but its references to earlier outputs could not be
patched. The output on disk is the unpatched merge result.

## Things you can try:
- Check that the output file is writable and not locked by another process.
- Inspect its references:
~~~
$ mrepack refs path/to/Output.dll
~~~`,
		extLinks: []HttpLink{ecmaLink},
	}

	toolNotFoundIssue = &Issue{
		id:    ToolNotFoundId,
		title: "merge tool executable not found",
		mdMsg: `
# Merge tool not found

mrepack drives an ILRepack-compatible executable for each group and could not find one.

## Things you can try:
- Pass it explicitly: ` + "`mrepack run --tool /path/to/ILRepack repack.cue`" + `
- Set ` + "`tool.path`" + ` in the settings file or ` + "`MREPACK_TOOL_PATH`" + ` in the environment.
- Put ` + "`ILRepack`" + ` on your PATH.`,
		extLinks: []HttpLink{ilrepackLink},
	}

	moduleUnreadableIssue = &Issue{
		id:    ModuleUnreadableId,
		title: "a file is not a managed module",
		mdMsg: `
# Module could not be read

The file is missing, is not a PE image, or carries no CLI metadata. During graph
building such inputs are skipped with a warning.`,
		extLinks: []HttpLink{ecmaLink},
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id(): configLoadFailedIssue,
		configInvalidIssue.Id():    configInvalidIssue,
		duplicateInputIssue.Id():   duplicateInputIssue,
		dependencyCycleIssue.Id():  dependencyCycleIssue,
		mergeFailedIssue.Id():      mergeFailedIssue,
		rewriteFailedIssue.Id():    rewriteFailedIssue,
		toolNotFoundIssue.Id():     toolNotFoundIssue,
		moduleUnreadableIssue.Id(): moduleUnreadableIssue,
	}
)

// Values returns every catalog entry ordered by id.
func Values() []*Issue {
	vals := maps.Values(issues)
	slices.SortFunc(vals, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return vals
}

func Get(id Id) *Issue {
	return issues[id]
}
