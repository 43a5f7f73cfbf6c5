// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/mrepack/mrepack/internal/config"
	"github.com/mrepack/mrepack/internal/engine"
	"github.com/mrepack/mrepack/internal/logging"
	"github.com/mrepack/mrepack/pkg/metadata"
	"github.com/mrepack/mrepack/pkg/metadata/metadatatest"
)

type (
	staticProvider struct {
		cfg *config.Config
		err error
	}

	// recordingEngine writes an output named after the output file that
	// keeps the external references of its inputs.
	recordingEngine struct {
		mu      sync.Mutex
		outputs []string
		err     error
	}

	testCLI struct {
		app    *App
		stdout *bytes.Buffer
		stderr *bytes.Buffer
		engine *recordingEngine
		tool   string
	}
)

func (p staticProvider) Load(context.Context, config.LoadOptions) (*config.Config, error) {
	if p.err != nil {
		return nil, p.err
	}
	if p.cfg != nil {
		return p.cfg, nil
	}
	return config.DefaultConfig(), nil
}

func (e *recordingEngine) Merge(_ context.Context, req engine.Request) (engine.Result, error) {
	e.mu.Lock()
	e.outputs = append(e.outputs, metadata.NameFromPath(req.Output))
	e.mu.Unlock()
	if e.err != nil {
		return engine.Result{}, e.err
	}

	inGroup := make(map[string]bool)
	for _, in := range req.Inputs {
		inGroup[strings.ToLower(metadata.NameFromPath(in))] = true
	}
	var refs []string
	for _, in := range req.Inputs {
		names, _ := metadata.ReadReferenceNames(in)
		for _, n := range names {
			if !inGroup[strings.ToLower(n)] {
				refs = append(refs, n)
			}
		}
	}
	data, err := metadata.Compose(metadata.ModuleSpec{
		Name:       metadata.NameFromPath(req.Output),
		References: metadatatest.Refs(refs...),
	})
	if err != nil {
		return engine.Result{}, err
	}
	if err := os.MkdirAll(filepath.Dir(req.Output), 0o755); err != nil {
		return engine.Result{}, err
	}
	if err := os.WriteFile(req.Output, data, 0o644); err != nil {
		return engine.Result{}, err
	}
	return engine.Result{MergedIdentities: engine.MergedIdentities(req.Inputs)}, nil
}

func newTestCLI(t *testing.T) *testCLI {
	t.Helper()
	c := &testCLI{
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		engine: &recordingEngine{},
	}
	c.app = NewApp(Dependencies{
		Config: staticProvider{},
		NewEngine: func(_ *config.Config, _ logging.Logger, toolOverride string) engine.Engine {
			c.tool = toolOverride
			return c.engine
		},
		Stdout: c.stdout,
		Stderr: c.stderr,
	})
	return c
}

func (c *testCLI) execute(t *testing.T, args ...string) error {
	t.Helper()
	root := NewRootCommand(c.app)
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(t.Context())
}

// writeChain writes inputs for groups A, B and C (C uses B, B uses A) and a
// repack document listing them in reverse. It returns the document path and
// the output directory.
func writeChain(t *testing.T) (doc, out string) {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "bin")
	out = filepath.Join(dir, "out")
	if err := os.Mkdir(in, 0o755); err != nil {
		t.Fatal(err)
	}
	metadatatest.Library(t, in, "A1", "System.Runtime")
	metadatatest.Library(t, in, "B1", "A1")
	metadatatest.Library(t, in, "C1", "B1")

	doc = filepath.Join(dir, "repack.cue")
	writeFile(t, doc, `
groups: [
	{name: "C", inputAssemblies: ["bin/C1.dll"], outputAssembly: "out/C.dll"},
	{name: "B", inputAssemblies: ["bin/B1.dll"], outputAssembly: "out/B.dll"},
	{name: "A", inputAssemblies: ["bin/A1.dll"], outputAssembly: "out/A.dll"},
]
`)
	return doc, out
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeCycle(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	metadatatest.Library(t, dir, "Alpha1", "Beta1")
	metadatatest.Library(t, dir, "Beta1", "Alpha1")
	doc := filepath.Join(dir, "repack.cue")
	writeFile(t, doc, fmt.Sprintf(`
groups: [
	{name: "Alpha", inputAssemblies: [%q], outputAssembly: "out/Alpha.dll"},
	{name: "Beta", inputAssemblies: [%q], outputAssembly: "out/Beta.dll"},
]
`, filepath.Join(dir, "Alpha1.dll"), filepath.Join(dir, "Beta1.dll")))
	return doc
}
