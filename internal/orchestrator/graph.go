// SPDX-License-Identifier: MPL-2.0

package orchestrator

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mrepack/mrepack/internal/dag"
	"github.com/mrepack/mrepack/internal/logging"
	"github.com/mrepack/mrepack/pkg/metadata"
	"github.com/mrepack/mrepack/pkg/repackfile"
)

type (
	// ReferenceReader returns the names of the assemblies a module references.
	ReferenceReader func(path string) ([]string, error)

	// Index maps module names (case-insensitive) to the group that owns them
	// and keeps each group's deduplicated, expanded input list.
	Index struct {
		owner  map[string]int
		inputs [][]string
	}

	readResult struct {
		refs []string
		err  error
	}
)

// ModuleKey is the case-insensitive index key of a module path.
func ModuleKey(path string) string {
	return strings.ToLower(metadata.NameFromPath(path))
}

// BuildIndex assigns every input module to its group. A module listed twice
// in one group is kept once and reported through DuplicateIgnored; a module
// listed in two groups is a *DuplicateInputError. Glob patterns are expanded
// for groups whose settings enable wildcards.
func BuildIndex(cfg *repackfile.Configuration, logger logging.Logger) (*Index, error) {
	ix := &Index{
		owner:  make(map[string]int),
		inputs: make([][]string, len(cfg.Groups)),
	}
	for g := range cfg.Groups {
		group := &cfg.Groups[g]
		inputs := group.InputAssemblies
		if cfg.SettingsFor(g).Wildcards {
			inputs = expandInputs(inputs, logger)
		}
		for _, in := range inputs {
			key := ModuleKey(in)
			if owner, ok := ix.owner[key]; ok {
				if owner == g {
					logger.DuplicateIgnored("assembly", metadata.NameFromPath(in))
					continue
				}
				return nil, &DuplicateInputError{
					Module:      metadata.NameFromPath(in),
					FirstGroup:  cfg.Groups[owner].Label(),
					SecondGroup: group.Label(),
				}
			}
			ix.owner[key] = g
			ix.inputs[g] = append(ix.inputs[g], in)
		}
	}
	return ix, nil
}

// Owner returns the group index owning module name.
func (ix *Index) Owner(name string) (int, bool) {
	g, ok := ix.owner[strings.ToLower(name)]
	return g, ok
}

// Inputs returns group g's resolved inputs, primary first.
func (ix *Index) Inputs(g int) []string { return ix.inputs[g] }

// Len returns the number of indexed modules.
func (ix *Index) Len() int { return len(ix.owner) }

// expandInputs replaces glob patterns with their sorted matches. Patterns
// without matches are dropped with a warning.
func expandInputs(inputs []string, logger logging.Logger) []string {
	out := make([]string, 0, len(inputs))
	for _, in := range inputs {
		if !strings.ContainsAny(in, "*?[") {
			out = append(out, in)
			continue
		}
		matches, err := filepath.Glob(in)
		if err != nil || len(matches) == 0 {
			logger.Warn("input pattern matched nothing", "pattern", in)
			continue
		}
		out = append(out, matches...)
	}
	return out
}

// BuildGraph records, for every group, the other groups owning a module that
// one of its inputs references. Nodes are keyed by Group.Key and added in
// configuration order. Modules that cannot be read are skipped with a warning.
func BuildGraph(ctx context.Context, cfg *repackfile.Configuration, ix *Index, read ReferenceReader, logger logging.Logger) (*dag.Graph, error) {
	type job struct{ group, input int }
	var jobs []job
	for g := range cfg.Groups {
		for i := range ix.Inputs(g) {
			jobs = append(jobs, job{g, i})
		}
	}

	results := make([]readResult, len(jobs))
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for n, j := range jobs {
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}
			refs, err := read(ix.Inputs(j.group)[j.input])
			results[n] = readResult{refs: refs, err: err}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	graph := dag.New()
	for g := range cfg.Groups {
		graph.AddNode(cfg.Groups[g].Key())
	}
	for n, j := range jobs {
		path := ix.Inputs(j.group)[j.input]
		res := results[n]
		if res.err != nil {
			if metadata.IsNotManaged(res.err) {
				logger.Warn("skipping native module", "path", path)
			} else {
				logger.Warn("skipping unreadable module", "path", path, "error", res.err)
			}
			continue
		}
		for _, ref := range res.refs {
			owner, ok := ix.Owner(ref)
			if !ok || owner == j.group {
				continue
			}
			logger.Verbose("dependency found",
				"group", cfg.Groups[j.group].Label(),
				"module", metadata.NameFromPath(path),
				"references", ref,
				"owner", cfg.Groups[owner].Label())
			graph.AddDependency(cfg.Groups[j.group].Key(), cfg.Groups[owner].Key())
		}
	}
	return graph, nil
}
