// SPDX-License-Identifier: MPL-2.0

package repackfile

import (
	"path/filepath"
	"strings"
)

const (
	// TargetLibrary produces a class library.
	TargetLibrary TargetKind = "library"
	// TargetExe produces a console executable.
	TargetExe TargetKind = "exe"
	// TargetWinExe produces a windowed executable.
	TargetWinExe TargetKind = "winexe"
)

// Supported target platform versions.
var targetPlatforms = []string{"v1", "v1.1", "v2", "v4"}

type (
	// TargetKind selects the kind of module the merge engine writes.
	TargetKind string

	// Configuration is a validated repack document. It owns its groups.
	Configuration struct {
		Groups        []Group `json:"groups"`
		GlobalOptions Options `json:"globalOptions"`

		// Path is the file the configuration was loaded from, if any.
		Path string `json:"-"`
		// BaseDir is the directory relative paths were resolved against.
		BaseDir string `json:"-"`
	}

	// Group is one unit of merge work: inputs merged into one output.
	Group struct {
		Name            string   `json:"name,omitempty"`
		InputAssemblies []string `json:"inputAssemblies"`
		OutputAssembly  string   `json:"outputAssembly"`
		Options         Options  `json:"options"`
	}

	// Options is a sparse option set. Nil fields are unset, so a group's
	// options can be layered over the global ones.
	Options struct {
		Internalize             *bool       `json:"internalize,omitempty"`
		InternalizeExclude      *string     `json:"internalizeExclude,omitempty"`
		CopyAttributes          *bool       `json:"copyAttributes,omitempty"`
		AllowMultipleAttributes *bool       `json:"allowMultipleAttributes,omitempty"`
		DebugInfo               *bool       `json:"debugInfo,omitempty"`
		Parallel                *bool       `json:"parallel,omitempty"`
		Union                   *bool       `json:"union,omitempty"`
		Wildcards               *bool       `json:"wildcards,omitempty"`
		ZeroPeKind              *bool       `json:"zeroPeKind,omitempty"`
		AllowDuplicateResources *bool       `json:"allowDuplicateResources,omitempty"`
		TargetKind              *TargetKind `json:"targetKind,omitempty"`
		TargetPlatformVersion   *string     `json:"targetPlatformVersion,omitempty"`
		TargetPlatformDirectory *string     `json:"targetPlatformDirectory,omitempty"`
		Version                 *string     `json:"version,omitempty"`
		AttributeFile           *string     `json:"attributeFile,omitempty"`
		SearchDirectories       []string    `json:"searchDirectories,omitempty"`
		Verbose                 *bool       `json:"verbose,omitempty"`
	}

	// Settings is a fully resolved option set handed to the merge engine.
	Settings struct {
		Internalize             bool
		InternalizeExclude      string
		CopyAttributes          bool
		AllowMultipleAttributes bool
		DebugInfo               bool
		Parallel                bool
		Union                   bool
		Wildcards               bool
		ZeroPeKind              bool
		AllowDuplicateResources bool
		TargetKind              TargetKind
		TargetPlatformVersion   string
		TargetPlatformDirectory string
		Version                 string
		AttributeFile           string
		SearchDirectories       []string
		Verbose                 bool
	}
)

// IsValid reports whether k is a known target kind. The empty kind means
// "same as the primary input".
func (k TargetKind) IsValid() bool {
	switch k {
	case "", TargetLibrary, TargetExe, TargetWinExe:
		return true
	}
	return false
}

// Label returns the group's display name, falling back to its output path.
func (g *Group) Label() string {
	if g.Name != "" {
		return g.Name
	}
	return g.OutputAssembly
}

// Key returns the stable identifier of the group: its cleaned, lower-cased
// output path. Validation guarantees keys are unique within a configuration.
func (g *Group) Key() string {
	return OutputKey(g.OutputAssembly)
}

// OutputKey normalises an output path for case-insensitive comparison.
func OutputKey(path string) string {
	return strings.ToLower(filepath.Clean(path))
}

// SettingsFor resolves the effective settings of group i: global options
// with the group's overrides layered on top.
func (c *Configuration) SettingsFor(i int) Settings {
	return c.GlobalOptions.Overlay(c.Groups[i].Options).Settings()
}

// Bool returns a pointer to v, for building Options literals.
func Bool(v bool) *bool { return &v }

// String returns a pointer to v, for building Options literals.
func String(v string) *string { return &v }
