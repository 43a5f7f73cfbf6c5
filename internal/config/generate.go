// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// CreateDefaultConfig writes the default settings to the settings directory
// unless a file is already there, and returns its path.
func CreateDefaultConfig() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	path := filepath.Join(dir, SettingsFile)
	if isRegularFile(path) {
		return path, nil
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return path, nil
}

// GenerateCUE renders cfg as a settings file that satisfies #Config.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder
	sb.WriteString("// mrepack settings\n")
	sb.WriteString("// MREPACK_<SECTION>_<KEY> environment variables override these values.\n")

	block := func(name string, fields ...string) {
		fmt.Fprintf(&sb, "\n%s: {\n", name)
		for _, f := range fields {
			fmt.Fprintf(&sb, "\t%s\n", f)
		}
		sb.WriteString("}\n")
	}

	tool := []string{"path: " + strconv.Quote(string(cfg.Tool.Path))}
	if len(cfg.Tool.ExtraArgs) > 0 {
		quoted := make([]string, len(cfg.Tool.ExtraArgs))
		for i, arg := range cfg.Tool.ExtraArgs {
			quoted[i] = strconv.Quote(arg)
		}
		tool = append(tool, "extra_args: ["+strings.Join(quoted, ", ")+"]")
	}
	block("tool", tool...)
	block("ui",
		"color_scheme: "+strconv.Quote(string(cfg.UI.ColorScheme)),
		"verbose: "+strconv.FormatBool(cfg.UI.Verbose),
	)
	block("log", "timestamps: "+strconv.FormatBool(cfg.Log.Timestamps))
	return sb.String()
}
