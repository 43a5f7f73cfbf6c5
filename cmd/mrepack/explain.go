// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strconv"

	"github.com/mrepack/mrepack/internal/config"
	"github.com/mrepack/mrepack/internal/issue"

	"github.com/spf13/cobra"
)

func newExplainCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "explain [issue-id]",
		Short: "List known problems or explain one in detail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				for _, entry := range issue.Values() {
					fmt.Fprintf(app.stdout, "%3d  %s\n", int(entry.Id()), entry.Title())
				}
				return nil
			}
			n, err := strconv.Atoi(args[0])
			if err != nil || issue.Get(issue.Id(n)) == nil {
				return newExitError(fmt.Errorf("unknown issue %q; run 'mrepack explain' for the list", args[0]))
			}
			rendered, err := issue.Get(issue.Id(n)).Render(glamourStyle(config.ColorSchemeAuto))
			if err != nil {
				return newExitError(err)
			}
			fmt.Fprint(app.stdout, rendered)
			return nil
		},
	}
}
