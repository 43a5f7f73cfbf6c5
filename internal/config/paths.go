// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/mrepack/mrepack/internal/issue"
)

const (
	// AppName names the settings directory.
	AppName = "mrepack"
	// ConfigFileName is the settings file name without extension.
	ConfigFileName = "config"
	// ConfigFileExt is the settings file extension.
	ConfigFileExt = "cue"
)

// SettingsFile is the base name of the settings file, "config.cue".
const SettingsFile = ConfigFileName + "." + ConfigFileExt

// ConfigDir returns the per-user settings directory: %APPDATA%\mrepack on
// Windows, ~/Library/Application Support/mrepack on macOS and
// $XDG_CONFIG_HOME/mrepack (or ~/.config/mrepack) elsewhere.
//
//nolint:revive // config.Dir would read ambiguously at call sites
func ConfigDir() (string, error) {
	if dir, ok := overriddenConfigDir(); ok {
		return dir, nil
	}
	base, err := userConfigBase()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, AppName), nil
}

func userConfigBase() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return appData, nil
		}
		return filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming"), nil
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, "Library", "Application Support"), nil
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return xdg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config"), nil
}

// ResolvePath reports which settings file Load would read. Lookup order is
// the explicit file, then the settings directory, then the working directory.
// An empty path with a nil error means defaults apply.
func ResolvePath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !isRegularFile(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load settings").
				WithResource(opts.ConfigFilePath).
				WithIssue(issue.ConfigLoadFailedId).
				WithSuggestions(
					"Check the path passed to --config",
					"Run 'mrepack config init' to create a settings file in the default location",
				).
				Wrap(fmt.Errorf("settings file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	dir := opts.ConfigDirPath
	if dir == "" {
		var err error
		if dir, err = ConfigDir(); err != nil {
			return "", err
		}
	}
	for _, candidate := range []string{filepath.Join(dir, SettingsFile), SettingsFile} {
		if isRegularFile(candidate) {
			return candidate, nil
		}
	}
	return "", nil
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
