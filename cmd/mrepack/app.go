// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mrepack/mrepack/internal/config"
	"github.com/mrepack/mrepack/internal/engine"
	"github.com/mrepack/mrepack/internal/issue"
	"github.com/mrepack/mrepack/internal/logging"
	"github.com/mrepack/mrepack/internal/orchestrator"
	"github.com/mrepack/mrepack/pkg/repackfile"
)

type (
	// EngineFactory builds the merge engine for one invocation. toolOverride
	// is the --tool flag value and wins over the settings when non-empty.
	EngineFactory func(settings *config.Config, logger logging.Logger, toolOverride string) engine.Engine

	// App wires CLI services and shared dependencies. All command handlers
	// receive an App and write through its streams.
	App struct {
		Config    config.Provider
		NewEngine EngineFactory
		stdout    io.Writer
		stderr    io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config    config.Provider
		NewEngine EngineFactory
		Stdout    io.Writer
		Stderr    io.Writer
	}

	// globalFlags are the persistent flags shared by every command.
	globalFlags struct {
		verbose    bool
		configPath string
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.NewEngine == nil {
		deps.NewEngine = newToolEngine
	}
	return &App{
		Config:    deps.Config,
		NewEngine: deps.NewEngine,
		stdout:    deps.Stdout,
		stderr:    deps.Stderr,
	}
}

func newToolEngine(settings *config.Config, logger logging.Logger, toolOverride string) engine.Engine {
	tool := settings.Tool.ToolExecutable()
	if toolOverride != "" {
		tool = toolOverride
	}
	return engine.NewToolEngine(tool,
		engine.WithExtraArgs(settings.Tool.ExtraArgs...),
		engine.WithLogger(logger))
}

// loadSettings loads the application settings. An explicit --config file
// must load; a broken default file only produces a warning and defaults.
func (a *App) loadSettings(ctx context.Context, flags *globalFlags) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.configPath})
	if err == nil {
		applyColorScheme(cfg.UI.ColorScheme)
		return cfg, nil
	}
	if flags.configPath != "" {
		return nil, err
	}
	fmt.Fprintln(a.stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, flags.verbose))
	return config.DefaultConfig(), nil
}

// newLogger builds the run logger from flags and settings.
func (a *App) newLogger(flags *globalFlags, settings *config.Config) logging.Logger {
	return logging.New(a.stderr, logging.Options{
		Prefix:     config.AppName,
		Verbose:    flags.verbose || settings.UI.Verbose,
		Timestamps: settings.Log.Timestamps,
	})
}

// loadRepackFile loads a repack document, attaching guidance to failures.
func loadRepackFile(path string) (*repackfile.Configuration, error) {
	cfg, err := repackfile.Load(path)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load repack document").
			WithResource(path).
			WithIssue(issue.ConfigInvalidId).
			WithSuggestion(fmt.Sprintf("Run 'mrepack config validate %s' to see every problem", path)).
			Wrap(err).
			BuildError()
	}
	return cfg, nil
}

// newOrchestrator builds an orchestrator for one run.
func (a *App) newOrchestrator(ctx context.Context, flags *globalFlags, toolOverride string) (*orchestrator.Orchestrator, *config.Config, error) {
	settings, err := a.loadSettings(ctx, flags)
	if err != nil {
		return nil, nil, err
	}
	logger := a.newLogger(flags, settings)
	eng := a.NewEngine(settings, logger, toolOverride)
	return orchestrator.New(eng, orchestrator.WithLogger(logger)), settings, nil
}

// renderIssue prints the catalog entry explaining err when there is one.
func (a *App) renderIssue(err error, scheme config.ColorScheme) {
	id := issueFor(err)
	if id == 0 {
		return
	}
	entry := issue.Get(id)
	if entry == nil {
		return
	}
	rendered, renderErr := entry.Render(glamourStyle(scheme))
	if renderErr != nil {
		return
	}
	fmt.Fprint(a.stderr, rendered)
}

// glamourStyle maps the color scheme setting to a glamour style name.
func glamourStyle(scheme config.ColorScheme) string {
	if scheme == config.ColorSchemeLight {
		return "light"
	}
	return "dark"
}
