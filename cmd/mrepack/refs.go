// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/mrepack/mrepack/internal/issue"
	"github.com/mrepack/mrepack/pkg/metadata"

	"github.com/spf13/cobra"
)

func newRefsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "refs <module>...",
		Short: "List the identity and assembly references of modules",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for i, path := range args {
				if i > 0 {
					fmt.Fprintln(app.stdout)
				}
				if err := app.printReferences(path); err != nil {
					return newExitError(err)
				}
			}
			return nil
		},
	}
}

func (a *App) printReferences(path string) error {
	m, err := metadata.Open(path)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("read module").
			WithResource(path).
			WithIssue(issue.ModuleUnreadableId).
			Wrap(err).
			BuildError()
	}
	id, err := m.Identity()
	if err != nil {
		return issue.WrapWithContext(err, "read assembly identity", path)
	}
	refs, err := m.References()
	if err != nil {
		return issue.WrapWithContext(err, "read assembly references", path)
	}

	signed := ""
	if m.StrongNameSigned() {
		signed = SubtitleStyle.Render(" (strong-name signed)")
	}
	fmt.Fprintf(a.stdout, "%s %s%s\n", NameStyle.Render(id.Name), id.Version, signed)
	if len(refs) == 0 {
		fmt.Fprintf(a.stdout, "  %s\n", SubtitleStyle.Render("(no references)"))
		return nil
	}
	for _, ref := range refs {
		fmt.Fprintf(a.stdout, "  %s\n", formatReference(ref))
	}
	return nil
}

// formatReference renders a reference the way display names are written.
func formatReference(ref metadata.AssemblyRef) string {
	culture := ref.Culture
	if culture == "" {
		culture = "neutral"
	}
	token := "null"
	if len(ref.PublicKeyOrToken) > 0 {
		token = hex.EncodeToString(ref.PublicKeyOrToken)
	}
	return fmt.Sprintf("%s, Version=%s, Culture=%s, PublicKeyToken=%s", ref.Name, ref.Version, culture, token)
}
