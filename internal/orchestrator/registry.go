// SPDX-License-Identifier: MPL-2.0

package orchestrator

import (
	"path/filepath"

	"github.com/mrepack/mrepack/pkg/metadata"
	"github.com/mrepack/mrepack/pkg/repackfile"
)

type (
	// RegistryEntry is one produced output.
	RegistryEntry struct {
		Path     string
		Identity metadata.AssemblyIdentity
	}

	// Registry accumulates the outputs produced so far. It stores paths and
	// identities only; modules are reopened on demand so no file stays open
	// between groups.
	Registry struct {
		entries []RegistryEntry
		byKey   map[string]int
	}
)

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]int)}
}

// Add registers the output at path. Its identity is read from the module;
// when that fails the file name stands in for the assembly name. Adding a
// path twice replaces the earlier entry.
func (r *Registry) Add(path string) RegistryEntry {
	id, err := metadata.ReadIdentity(path)
	if err != nil || id.Name == "" {
		id = metadata.AssemblyIdentity{Name: metadata.NameFromPath(path)}
	}
	e := RegistryEntry{Path: path, Identity: id}
	key := repackfile.OutputKey(path)
	if i, ok := r.byKey[key]; ok {
		r.entries[i] = e
		return e
	}
	r.byKey[key] = len(r.entries)
	r.entries = append(r.entries, e)
	return e
}

// Lookup finds the entry for an output path (case-insensitive).
func (r *Registry) Lookup(path string) (RegistryEntry, bool) {
	i, ok := r.byKey[repackfile.OutputKey(path)]
	if !ok {
		return RegistryEntry{}, false
	}
	return r.entries[i], true
}

// NameFor returns the assembly name of the output at path, falling back to
// the file name when the output is not registered.
func (r *Registry) NameFor(path string) string {
	if e, ok := r.Lookup(path); ok {
		return e.Identity.Name
	}
	return metadata.NameFromPath(path)
}

// Len returns the number of registered outputs.
func (r *Registry) Len() int { return len(r.entries) }

// Entries returns the outputs in registration order.
func (r *Registry) Entries() []RegistryEntry {
	out := make([]RegistryEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Directories returns the distinct directories holding registered outputs,
// in registration order.
func (r *Registry) Directories() []string {
	var dirs []string
	seen := make(map[string]bool)
	for _, e := range r.entries {
		dir := filepath.Dir(e.Path)
		if key := repackfile.OutputKey(dir); !seen[key] {
			seen[key] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}
