// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mrepack/mrepack/internal/issue"
	"github.com/mrepack/mrepack/pkg/cueutil"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides: MREPACK_TOOL_PATH sets tool.path.
const EnvPrefix = "MREPACK"

//go:embed config_schema.cue
var configSchema string

type (
	// LoadOptions selects where settings come from.
	LoadOptions struct {
		// ConfigFilePath, when set, must name an existing file.
		ConfigFilePath string
		// ConfigDirPath replaces the per-user settings directory.
		ConfigDirPath string
	}

	// Provider loads application settings.
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (*Config, error)
	}

	fileProvider struct{}
)

// NewProvider returns the Provider backed by the settings file and the
// MREPACK_* environment.
func NewProvider() Provider {
	return fileProvider{}
}

func (fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, _, err := loadWithOptions(ctx, opts)
	return cfg, err
}

// loadWithOptions layers defaults, the settings file and the environment, in
// increasing precedence, and returns the result with the file it read.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", fmt.Errorf("load config canceled: %w", err)
	}

	v := newViper(DefaultConfig())

	path, err := ResolvePath(opts)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		if err := mergeSettingsFile(v, path); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load settings").
				WithResource(path).
				WithIssue(issue.ConfigInvalidId).
				WithSuggestions(
					"Fix the CUE error reported above",
					"Compare with the output of 'mrepack config dump-settings'",
				).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to decode settings: %w", err)
	}

	// Environment values never pass through the CUE schema.
	if ok, errs := cfg.IsValid(); !ok {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate settings").
			WithIssue(issue.ConfigInvalidId).
			WithSuggestions(
				"Check MREPACK_* environment variables for typos",
				"ui.color_scheme accepts auto, dark or light",
			).
			Wrap(errors.Join(errs...)).
			BuildError()
	}
	return &cfg, path, nil
}

func newViper(defaults *Config) *viper.Viper {
	v := viper.New()
	for key, value := range map[string]any{
		"tool.path":       string(defaults.Tool.Path),
		"tool.extra_args": defaults.Tool.ExtraArgs,
		"ui.color_scheme": string(defaults.UI.ColorScheme),
		"ui.verbose":      defaults.UI.Verbose,
		"log.timestamps":  defaults.Log.Timestamps,
	} {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// mergeSettingsFile checks path against #Config and merges it over the
// defaults. Every field is optional, so the document need not be concrete.
func mergeSettingsFile(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read settings file: %w", err)
	}
	opts := []cueutil.Option{cueutil.WithFilename(path), cueutil.WithConcrete(false)}
	doc, err := cueutil.DecodeDocument(data, opts...)
	if err != nil {
		return err
	}
	result, err := cueutil.Validate[map[string]any](configSchema, doc, "#Config", opts...)
	if err != nil {
		return err
	}
	return v.MergeConfigMap(*result.Value)
}
