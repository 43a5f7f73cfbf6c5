// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/mrepack/mrepack/internal/config"
	"github.com/mrepack/mrepack/internal/orchestrator"
	"github.com/mrepack/mrepack/pkg/repackfile"

	"github.com/spf13/cobra"
)

type runFlags struct {
	tool   string
	dryRun bool
}

func newRunCommand(app *App, flags *globalFlags) *cobra.Command {
	rf := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run <repack-file>",
		Short: "Merge every group of a repack document",
		Long: `Merge every group of a repack document in dependency order.

Groups are merged one at a time. After each merge the output is patched so it
references the outputs of earlier groups instead of their original inputs. The
first failure stops the run; outputs written before it stay on disk.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd.Context(), flags, rf, args[0])
		},
	}
	cmd.Flags().StringVar(&rf.tool, "tool", "", "merge tool executable (overrides tool.path)")
	cmd.Flags().BoolVar(&rf.dryRun, "dry-run", false, "print the plan without merging")
	return cmd
}

func (a *App) run(ctx context.Context, flags *globalFlags, rf *runFlags, path string) error {
	cfg, err := loadRepackFile(path)
	if err != nil {
		return newExitError(err)
	}
	orch, settings, err := a.newOrchestrator(ctx, flags, rf.tool)
	if err != nil {
		return newExitError(err)
	}

	if rf.dryRun {
		plan, err := orch.Plan(ctx, cfg)
		if err != nil {
			return a.fail(err, flags, settings)
		}
		a.printPlan(plan)
		return nil
	}

	report, err := orch.Repack(ctx, cfg)
	if err != nil {
		// Plain per-group states go to stderr so they survive redirection.
		if report != nil && !report.Succeeded() {
			fmt.Fprint(a.stderr, report.Summary())
		}
		return a.fail(err, flags, settings)
	}
	a.printReport(report)
	fmt.Fprintln(a.stdout, SuccessStyle.Render(fmt.Sprintf("Merged %d group(s)", len(report.Order))))
	return nil
}

// fail renders the catalog entry for err in verbose mode and attaches the exit code.
func (a *App) fail(err error, flags *globalFlags, settings *config.Config) error {
	if flags.verbose || settings.UI.Verbose {
		a.renderIssue(err, settings.UI.ColorScheme)
	}
	return newExitError(err)
}

func (a *App) printPlan(plan *orchestrator.Plan) {
	fmt.Fprintln(a.stdout, TitleStyle.Render("Repack plan"))
	for step, g := range plan.Order {
		group := &plan.Config.Groups[g]
		settings := plan.Config.SettingsFor(g)
		fmt.Fprintf(a.stdout, "%d. %s -> %s\n", step+1, NameStyle.Render(group.Label()), group.OutputAssembly)
		for _, in := range plan.Index.Inputs(g) {
			fmt.Fprintf(a.stdout, "     %s\n", in)
		}
		if deps := plan.DependenciesOf(g); len(deps) > 0 {
			names := make([]string, len(deps))
			for i, d := range deps {
				names[i] = plan.Config.Groups[d].Label()
			}
			fmt.Fprintf(a.stdout, "   %s %s\n", SubtitleStyle.Render("after:"), strings.Join(names, ", "))
		}
		if summary := settingsSummary(settings); summary != "" {
			fmt.Fprintf(a.stdout, "   %s %s\n", SubtitleStyle.Render("options:"), summary)
		}
	}
}

func (a *App) printReport(report *orchestrator.Report) {
	for _, g := range report.Order {
		gr := report.Groups[g]
		style := stateStyle(gr.State == orchestrator.StateDone, gr.State == orchestrator.StateFailed)
		fmt.Fprintf(a.stdout, "%s %s (%d merged, %d reference(s) rewritten)\n",
			NameStyle.Render(gr.Label), style.Render(gr.State.String()), len(gr.Merged), len(gr.Rewritten))
		for _, rr := range gr.Rewritten {
			fmt.Fprintf(a.stdout, "    %s -> %s\n", rr.From, rr.To)
		}
	}
}

// settingsSummary lists the non-default settings of a group.
func settingsSummary(s repackfile.Settings) string {
	var parts []string
	flag := func(on bool, name string) {
		if on {
			parts = append(parts, name)
		}
	}
	flag(s.Internalize, "internalize")
	flag(!s.DebugInfo, "no-debug")
	flag(s.CopyAttributes, "copy-attributes")
	flag(s.Union, "union")
	flag(s.Parallel, "parallel")
	flag(s.Wildcards, "wildcards")
	if s.TargetKind != "" {
		parts = append(parts, "target="+string(s.TargetKind))
	}
	if s.TargetPlatformVersion != "" {
		parts = append(parts, "platform="+s.TargetPlatformVersion)
	}
	if s.Version != "" {
		parts = append(parts, "version="+s.Version)
	}
	return strings.Join(parts, ", ")
}

func newOrderCommand(app *App, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "order <repack-file>",
		Short: "Print the order groups would be merged in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRepackFile(args[0])
			if err != nil {
				return newExitError(err)
			}
			orch, settings, err := app.newOrchestrator(cmd.Context(), flags, "")
			if err != nil {
				return newExitError(err)
			}
			groups, err := orch.DetermineProcessingOrder(cmd.Context(), cfg)
			if err != nil {
				return app.fail(err, flags, settings)
			}
			for i, g := range groups {
				fmt.Fprintf(app.stdout, "%d. %s\n", i+1, g.Label())
			}
			return nil
		},
	}
}
