// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mrepack/mrepack/internal/config"
	"github.com/mrepack/mrepack/internal/issue"
	"github.com/mrepack/mrepack/pkg/repackfile"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `mrepack config` command tree. It covers both
// repack documents (validate, dump) and the application settings (show,
// path, init).
func newConfigCommand(app *App, flags *globalFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Check repack documents and manage mrepack settings",
		Long: `Check repack documents and manage mrepack settings.

Settings are stored in:
  - Linux: ~/.config/mrepack/config.cue
  - macOS: ~/Library/Application Support/mrepack/config.cue
  - Windows: %APPDATA%\mrepack\config.cue`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "validate <repack-file>",
		Short: "Validate a repack document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRepackFile(args[0])
			if err != nil {
				return newExitError(err)
			}
			inputs := 0
			for _, g := range cfg.Groups {
				inputs += len(g.InputAssemblies)
			}
			fmt.Fprintln(app.stdout, SuccessStyle.Render(
				fmt.Sprintf("%s is valid: %d group(s), %d input(s)", args[0], len(cfg.Groups), inputs)))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump <repack-file>",
		Short: "Print a repack document as normalized CUE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRepackFile(args[0])
			if err != nil {
				return newExitError(err)
			}
			fmt.Fprint(app.stdout, repackfile.GenerateCUE(cfg))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.showConfig(cmd.Context(), flags)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the settings file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ResolvePath(config.LoadOptions{ConfigFilePath: flags.configPath})
			if err != nil {
				return newExitError(err)
			}
			if path == "" {
				dir, dirErr := config.ConfigDir()
				if dirErr != nil {
					return newExitError(dirErr)
				}
				fmt.Fprintf(app.stdout, "%s %s\n", filepath.Join(dir, config.SettingsFile),
					SubtitleStyle.Render("(not created yet)"))
				return nil
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default settings file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefaultConfig()
			if err != nil {
				return newExitError(issue.WrapWithContext(err, "create settings file", ""))
			}
			fmt.Fprintln(app.stdout, SuccessStyle.Render("Settings file: ")+path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump-settings",
		Short: "Output the effective settings as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config.Load(cmd.Context(), config.LoadOptions{ConfigFilePath: flags.configPath})
			if err != nil {
				return newExitError(err)
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func (a *App) showConfig(ctx context.Context, flags *globalFlags) error {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.configPath})
	if err != nil {
		a.renderIssue(issue.NewErrorContext().WithOperation("load settings").WithIssue(issue.ConfigLoadFailedId).Wrap(err).BuildError(), config.ColorSchemeDark)
		return newExitError(err)
	}

	keyStyle := NameStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(a.stdout, TitleStyle.Render("Current Settings"))
	fmt.Fprintln(a.stdout)

	path, pathErr := config.ResolvePath(config.LoadOptions{ConfigFilePath: flags.configPath})
	if pathErr == nil && path != "" {
		fmt.Fprintf(a.stdout, "%s: %s\n", keyStyle.Render("Settings file"), path)
	} else {
		fmt.Fprintf(a.stdout, "%s: %s\n", keyStyle.Render("Settings file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(a.stdout)

	fmt.Fprintf(a.stdout, "%s:\n", keyStyle.Render("tool"))
	tool := cfg.Tool.Path.String()
	if tool == "" {
		tool = SubtitleStyle.Render("(search PATH for " + config.DefaultToolName + ")")
	}
	fmt.Fprintf(a.stdout, "  path: %s\n", valueStyle.Render(tool))
	if len(cfg.Tool.ExtraArgs) > 0 {
		fmt.Fprintf(a.stdout, "  extra_args: %s\n", valueStyle.Render(strings.Join(cfg.Tool.ExtraArgs, " ")))
	}

	fmt.Fprintln(a.stdout)
	fmt.Fprintf(a.stdout, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(a.stdout, "  color_scheme: %s\n", valueStyle.Render(cfg.UI.ColorScheme.String()))
	fmt.Fprintf(a.stdout, "  verbose: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.UI.Verbose)))

	fmt.Fprintln(a.stdout)
	fmt.Fprintf(a.stdout, "%s:\n", keyStyle.Render("log"))
	fmt.Fprintf(a.stdout, "  timestamps: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.Log.Timestamps)))
	return nil
}
