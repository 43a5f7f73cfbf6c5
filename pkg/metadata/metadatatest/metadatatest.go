// SPDX-License-Identifier: MPL-2.0

// Package metadatatest writes synthetic managed modules for tests.
package metadatatest

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/mrepack/mrepack/pkg/metadata"
)

// Write composes a module from spec and writes it to dir as spec.ModuleName
// (or Name + ".dll"). It returns the written path.
func Write(t testing.TB, dir string, spec metadata.ModuleSpec) string {
	t.Helper()

	data, err := metadata.Compose(spec)
	if err != nil {
		t.Fatalf("Compose(%q): %v", spec.Name, err)
	}
	name := spec.ModuleName
	if name == "" {
		name = spec.Name + ".dll"
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

// Refs builds AssemblyRef values for the given names at version 1.0.0.0.
func Refs(names ...string) []metadata.AssemblyRef {
	refs := make([]metadata.AssemblyRef, len(names))
	for i, n := range names {
		refs[i] = metadata.AssemblyRef{Name: n, Version: metadata.Version{Major: 1}}
	}
	return refs
}

// Library writes a module named name that references refs.
func Library(t testing.TB, dir, name string, refs ...string) string {
	t.Helper()
	return Write(t, dir, metadata.ModuleSpec{
		Name:       name,
		Version:    metadata.Version{Major: 1},
		References: Refs(refs...),
	})
}

// CompilerLibrary is Library with the three-section layout C# compilers
// emit, whose section table has no free slot.
func CompilerLibrary(t testing.TB, dir, name string, refs ...string) string {
	t.Helper()
	return Write(t, dir, metadata.ModuleSpec{
		Name:             name,
		Version:          metadata.Version{Major: 1},
		References:       Refs(refs...),
		CompilerSections: true,
	})
}

// Native writes a PE image named name with an empty CLI header directory, the
// way a native DLL placed among managed inputs looks to the reader.
func Native(t testing.TB, dir, name string) string {
	t.Helper()
	data, err := metadata.Compose(metadata.ModuleSpec{Name: name})
	if err != nil {
		t.Fatalf("Compose(%q): %v", name, err)
	}
	// PE32 optional header: data directories start at +96, CLI header is entry 14.
	cli := int(binary.LittleEndian.Uint32(data[0x3C:])) + 24 + 96 + 14*8
	clear(data[cli : cli+8])
	path := filepath.Join(dir, name+".dll")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}
