// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/mrepack/mrepack/internal/issue"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, SettingsFile)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Tool.Path != "" {
		t.Errorf("Tool.Path = %q, want empty", cfg.Tool.Path)
	}
	if cfg.Tool.ToolExecutable() != DefaultToolName {
		t.Errorf("ToolExecutable() = %q, want %q", cfg.Tool.ToolExecutable(), DefaultToolName)
	}
	if cfg.UI.ColorScheme != ColorSchemeAuto {
		t.Errorf("UI.ColorScheme = %q, want %q", cfg.UI.ColorScheme, ColorSchemeAuto)
	}
	if cfg.UI.Verbose || cfg.Log.Timestamps {
		t.Error("verbose output and timestamps should be off by default")
	}
	if valid, errs := cfg.IsValid(); !valid {
		t.Errorf("default config is invalid: %v", errs)
	}
}

func TestConfigDir(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME is only honored on Linux")
	}

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() returned error: %v", err)
	}
	if want := filepath.Join(xdg, AppName); dir != want {
		t.Errorf("ConfigDir() = %s, want %s", dir, want)
	}
}

func TestConfigDirOverride(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	got, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() returned error: %v", err)
	}
	if got != dir {
		t.Errorf("ConfigDir() = %s, want override %s", got, dir)
	}
}

func TestLoad_ReturnsDefaultsWhenNoConfigFile(t *testing.T) {
	t.Parallel()

	cfg, path, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("loadWithOptions() error: %v", err)
	}
	if path != "" {
		t.Errorf("resolved path = %q, want empty", path)
	}
	if cfg.UI.ColorScheme != ColorSchemeAuto {
		t.Errorf("UI.ColorScheme = %q, want default", cfg.UI.ColorScheme)
	}
}

func TestLoad_FromConfigDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, `
tool: {
	path: "/opt/ilrepack/ILRepack"
	extra_args: ["/log:merge.log"]
}
ui: verbose: true
`)

	cfg, path, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("loadWithOptions() error: %v", err)
	}
	if path != cfgPath {
		t.Errorf("resolved path = %q, want %q", path, cfgPath)
	}
	if cfg.Tool.Path != "/opt/ilrepack/ILRepack" {
		t.Errorf("Tool.Path = %q", cfg.Tool.Path)
	}
	if len(cfg.Tool.ExtraArgs) != 1 || cfg.Tool.ExtraArgs[0] != "/log:merge.log" {
		t.Errorf("Tool.ExtraArgs = %v", cfg.Tool.ExtraArgs)
	}
	if !cfg.UI.Verbose {
		t.Error("UI.Verbose should be true")
	}
	// Unset keys keep their defaults.
	if cfg.UI.ColorScheme != ColorSchemeAuto {
		t.Errorf("UI.ColorScheme = %q, want default", cfg.UI.ColorScheme)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `ui: color_scheme: "dark"`)
	t.Setenv("MREPACK_UI_COLOR_SCHEME", "light")
	t.Setenv("MREPACK_LOG_TIMESTAMPS", "true")

	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("loadWithOptions() error: %v", err)
	}
	if cfg.UI.ColorScheme != ColorSchemeLight {
		t.Errorf("UI.ColorScheme = %q, want %q", cfg.UI.ColorScheme, ColorSchemeLight)
	}
	if !cfg.Log.Timestamps {
		t.Error("Log.Timestamps should come from the environment")
	}
}

func TestLoad_InvalidEnvironmentValue(t *testing.T) {
	t.Setenv("MREPACK_UI_COLOR_SCHEME", "neon")

	_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err == nil {
		t.Fatal("expected an error for an unknown color scheme")
	}
	if !errors.Is(err, ErrInvalidColorScheme) {
		t.Errorf("error should wrap ErrInvalidColorScheme, got: %v", err)
	}
}

func TestLoad_ActionableErrorFormat(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, `ui: color_scheme: 123`)

	_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err == nil {
		t.Fatal("expected an error for a schema violation")
	}

	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("error should be *issue.ActionableError, got %T", err)
	}
	if !ae.HasSuggestions() {
		t.Error("actionable error should carry suggestions")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "load settings") {
		t.Errorf("error should contain operation, got: %s", errStr)
	}
	if !strings.Contains(errStr, cfgPath) {
		t.Errorf("error should contain resource path, got: %s", errStr)
	}
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, `tool: engine: "podman"`)

	if _, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir}); err == nil {
		t.Fatal("expected closed schema to reject an unknown key")
	}
}

func TestLoad_CustomPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	custom := filepath.Join(dir, "custom.cue")
	if err := os.WriteFile(custom, []byte(`log: timestamps: true`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, path, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: custom})
	if err != nil {
		t.Fatalf("loadWithOptions() error: %v", err)
	}
	if path != custom {
		t.Errorf("resolved path = %q, want %q", path, custom)
	}
	if !cfg.Log.Timestamps {
		t.Error("Log.Timestamps should be true")
	}
}

func TestLoad_CustomPath_NotFound(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "missing.cue")
	_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: missing})
	if err == nil {
		t.Fatal("expected an error for a missing config file")
	}
	if !strings.Contains(err.Error(), missing) {
		t.Errorf("error should mention the path, got: %v", err)
	}
}

func TestLoad_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := loadWithOptions(ctx, LoadOptions{ConfigDirPath: t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), AppName)
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	path, err := CreateDefaultConfig()
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error: %v", err)
	}
	if want := filepath.Join(dir, SettingsFile); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	// The generated file must load cleanly and round-trip to the defaults.
	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if cfg.UI.ColorScheme != ColorSchemeAuto || cfg.UI.Verbose {
		t.Errorf("generated config differs from defaults: %+v", cfg.UI)
	}

	// A second call keeps the existing file.
	if err := os.WriteFile(path, []byte(`ui: verbose: true`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := CreateDefaultConfig(); err != nil {
		t.Fatalf("second CreateDefaultConfig() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `ui: verbose: true` {
		t.Error("CreateDefaultConfig() overwrote an existing file")
	}
}

func TestGenerateCUE(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Tool.Path = "/usr/local/bin/ILRepack"
	cfg.Tool.ExtraArgs = []string{"/log", "/xmldocs"}

	out := GenerateCUE(cfg)
	for _, want := range []string{
		`path: "/usr/local/bin/ILRepack"`,
		`extra_args: ["/log", "/xmldocs"]`,
		`color_scheme: "auto"`,
		`timestamps: false`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("GenerateCUE() output missing %q:\n%s", want, out)
		}
	}
}
