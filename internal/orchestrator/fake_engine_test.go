// SPDX-License-Identifier: MPL-2.0

package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/mrepack/mrepack/internal/engine"
	"github.com/mrepack/mrepack/pkg/metadata"
	"github.com/mrepack/mrepack/pkg/metadata/metadatatest"
	"github.com/mrepack/mrepack/pkg/repackfile"
)

// fakeEngine stands in for the merge tool. The output it writes is named
// after the output file and keeps every reference of its inputs that points
// outside the group, as a real merge does.
type fakeEngine struct {
	mu       sync.Mutex
	requests []engine.Request
	// fail maps output keys to the error Merge returns for them.
	fail map[string]error
	// corrupt lists output keys written as garbage.
	corrupt map[string]bool
	// compilerSections writes outputs with a full section table.
	compilerSections bool
}

func (f *fakeEngine) Merge(_ context.Context, req engine.Request) (engine.Result, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	key := repackfile.OutputKey(req.Output)
	if err := f.fail[key]; err != nil {
		return engine.Result{}, err
	}
	if err := os.MkdirAll(filepath.Dir(req.Output), 0o755); err != nil {
		return engine.Result{}, err
	}
	if f.corrupt[key] {
		return engine.Result{MergedIdentities: engine.MergedIdentities(req.Inputs)},
			os.WriteFile(req.Output, []byte("not a module"), 0o644)
	}

	absorbed := make(map[string]bool, len(req.Inputs))
	for _, in := range req.Inputs {
		absorbed[strings.ToLower(metadata.NameFromPath(in))] = true
	}
	var refs []string
	seen := make(map[string]bool)
	for _, in := range req.Inputs {
		names, err := metadata.ReadReferenceNames(in)
		if err != nil {
			continue
		}
		for _, n := range names {
			lower := strings.ToLower(n)
			if absorbed[lower] || seen[lower] {
				continue
			}
			seen[lower] = true
			refs = append(refs, n)
		}
	}

	data, err := metadata.Compose(metadata.ModuleSpec{
		Name:             metadata.NameFromPath(req.Output),
		Version:          metadata.Version{Major: 1},
		References:       metadatatest.Refs(refs...),
		CompilerSections: f.compilerSections,
	})
	if err != nil {
		return engine.Result{}, err
	}
	if err := os.WriteFile(req.Output, data, 0o644); err != nil {
		return engine.Result{}, err
	}
	return engine.Result{MergedIdentities: engine.MergedIdentities(req.Inputs)}, nil
}

func (f *fakeEngine) outputs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	outs := make([]string, len(f.requests))
	for i, r := range f.requests {
		outs[i] = metadata.NameFromPath(r.Output)
	}
	return outs
}

// newGroup builds a group writing outDir/<name>.dll.
func newGroup(name, outDir string, inputs ...string) repackfile.Group {
	return repackfile.Group{
		Name:            name,
		InputAssemblies: inputs,
		OutputAssembly:  filepath.Join(outDir, name+".dll"),
	}
}

func newConfig(groups ...repackfile.Group) *repackfile.Configuration {
	return &repackfile.Configuration{Groups: groups}
}

func labels(groups []*repackfile.Group) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Label()
	}
	return out
}

func referenceNames(t *testing.T, path string) []string {
	t.Helper()
	names, err := metadata.ReadReferenceNames(path)
	if err != nil {
		t.Fatalf("reading references of %s: %v", path, err)
	}
	return names
}
