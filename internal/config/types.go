// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ColorSchemeAuto lets lipgloss detect the terminal background.
	ColorSchemeAuto  ColorScheme = "auto"
	ColorSchemeDark  ColorScheme = "dark"
	ColorSchemeLight ColorScheme = "light"

	// DefaultToolName is the executable looked up on PATH when tool.path is empty.
	DefaultToolName = "ILRepack"
)

var (
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	ErrInvalidToolPath    = errors.New("invalid tool path")

	// ErrInvalidConfig matches every InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme picks the palette for styled output and rendered issues.
	ColorScheme string

	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// ToolPath locates the merge tool. Empty means DefaultToolName on PATH.
	ToolPath string

	InvalidToolPathError struct {
		Value ToolPath
	}

	// InvalidConfigError collects every field error found in a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config is the per-user application settings, as opposed to the
	// per-project repack document.
	Config struct {
		Tool ToolConfig `json:"tool" mapstructure:"tool"`
		UI   UIConfig   `json:"ui" mapstructure:"ui"`
		Log  LogConfig  `json:"log" mapstructure:"log"`
	}

	// ToolConfig locates the merge tool and adds arguments to every invocation.
	ToolConfig struct {
		Path      ToolPath `json:"path" mapstructure:"path"`
		ExtraArgs []string `json:"extra_args" mapstructure:"extra_args"`
	}

	UIConfig struct {
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`

		// Verbose turns on per-reference log lines and issue rendering.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}

	LogConfig struct {
		Timestamps bool `json:"timestamps" mapstructure:"timestamps"`
	}
)

// DefaultConfig returns the settings used when no file or override exists.
func DefaultConfig() *Config {
	return &Config{
		Tool: ToolConfig{ExtraArgs: []string{}},
		UI:   UIConfig{ColorScheme: ColorSchemeAuto},
	}
}

// ToolExecutable returns the configured tool path, or DefaultToolName.
func (c ToolConfig) ToolExecutable() string {
	if c.Path == "" {
		return DefaultToolName
	}
	return string(c.Path)
}

func (c ColorScheme) String() string { return string(c) }

func (c ColorScheme) IsValid() (bool, []error) {
	switch c {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: c}}
	}
}

func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

func (p ToolPath) String() string { return string(p) }

// IsValid rejects a path made only of whitespace.
func (p ToolPath) IsValid() (bool, []error) {
	if p == "" {
		return true, nil
	}
	if strings.TrimSpace(string(p)) == "" {
		return false, []error{&InvalidToolPathError{Value: p}}
	}
	return true, nil
}

func (e *InvalidToolPathError) Error() string {
	return fmt.Sprintf("invalid tool path %q: non-empty value must not be whitespace-only", e.Value)
}

func (e *InvalidToolPathError) Unwrap() error { return ErrInvalidToolPath }

// IsValid checks the tool path and color scheme; the remaining fields are
// booleans or free-form arguments.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Tool.Path.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig followed by the field errors, so errors.Is
// matches both the config sentinel and each field's sentinel.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}
