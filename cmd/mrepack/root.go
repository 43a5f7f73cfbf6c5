// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mrepack/mrepack/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the mrepack command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "mrepack",
		Short: "Merge groups of .NET assemblies in dependency order",
		Long: TitleStyle.Render("mrepack") + SubtitleStyle.Render(" - merge groups of .NET assemblies in dependency order") + `

mrepack reads a repack document listing groups of input assemblies and the
output each group is merged into. It discovers which groups reference each
other, merges producers before consumers, and patches every output so it
references the merged outputs instead of the original inputs.

` + SubtitleStyle.Render("Examples:") + `
  mrepack order repack.cue          Show the processing order
  mrepack run repack.cue            Merge every group
  mrepack run --dry-run repack.cue  Show what would be merged
  mrepack refs out/App.dll          List the references of a module`,
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "settings file (default is $HOME/.config/mrepack/config.cue)")

	root.AddCommand(
		newRunCommand(app, flags),
		newOrderCommand(app, flags),
		newRefsCommand(app),
		newConfigCommand(app, flags),
		newExplainCommand(app),
	)
	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits with the code matching the outcome.
// This is called by main.main().
func Execute() {
	root := NewRootCommand(NewApp(Dependencies{}))
	// fang overrides root.Version, so the version goes through WithVersion.
	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(int(exitCodeFor(err)))
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
