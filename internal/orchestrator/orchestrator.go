// SPDX-License-Identifier: MPL-2.0

package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/mrepack/mrepack/internal/dag"
	"github.com/mrepack/mrepack/internal/engine"
	"github.com/mrepack/mrepack/internal/logging"
	"github.com/mrepack/mrepack/pkg/metadata"
	"github.com/mrepack/mrepack/pkg/repackfile"
)

const (
	// StatePending is the state of a group nothing has happened to yet.
	StatePending State = iota
	// StateSequenced means the group has a place in the processing order.
	StateSequenced
	// StateMerged means the engine wrote the group's output.
	StateMerged
	// StateReferencesRewritten means the output's references were patched.
	StateReferencesRewritten
	// StateDone means the output is registered for later groups.
	StateDone
	// StateFailed is terminal and reachable from every other state.
	StateFailed
)

type (
	// State is the processing state of one group.
	State int

	// Option configures an Orchestrator.
	Option func(*Orchestrator)

	// Orchestrator merges every group of a configuration in dependency order
	// and keeps the produced outputs pointing at each other.
	Orchestrator struct {
		engine   engine.Engine
		logger   logging.Logger
		readRefs ReferenceReader
	}

	// Plan is the outcome of analysing a configuration without merging.
	Plan struct {
		Config *repackfile.Configuration
		Index  *Index
		Graph  *dag.Graph
		// Order lists group indexes in processing order.
		Order []int
	}

	// GroupReport is the per-group part of a Report.
	GroupReport struct {
		Label     string
		Output    string
		State     State
		Merged    []string
		Rewritten []RewrittenReference
		Err       error
	}

	// Report describes a Repack run. Groups follow configuration order.
	Report struct {
		Order    []int
		Groups   []GroupReport
		Mapping  *OutputMapping
		Registry *Registry
	}
)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logging.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithReferenceReader replaces the metadata reader used to discover
// dependencies between groups.
func WithReferenceReader(read ReferenceReader) Option {
	return func(o *Orchestrator) { o.readRefs = read }
}

// New creates an Orchestrator merging groups with eng.
func New(eng engine.Engine, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		engine:   eng,
		logger:   logging.Nop{},
		readRefs: metadata.ReadReferenceNames,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSequenced:
		return "sequenced"
	case StateMerged:
		return "merged"
	case StateReferencesRewritten:
		return "references-rewritten"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Plan indexes the inputs of cfg, builds the dependency graph and sequences
// the groups. It only reads module metadata.
func (o *Orchestrator) Plan(ctx context.Context, cfg *repackfile.Configuration) (*Plan, error) {
	ix, err := BuildIndex(cfg, o.logger)
	if err != nil {
		return nil, err
	}
	graph, err := BuildGraph(ctx, cfg, ix, o.readRefs, o.logger)
	if err != nil {
		return nil, err
	}
	order, err := Sequence(cfg, graph)
	if err != nil {
		return nil, err
	}
	return &Plan{Config: cfg, Index: ix, Graph: graph, Order: order}, nil
}

// Groups returns the groups in processing order.
func (p *Plan) Groups() []*repackfile.Group {
	groups := make([]*repackfile.Group, len(p.Order))
	for i, g := range p.Order {
		groups[i] = &p.Config.Groups[g]
	}
	return groups
}

// DependenciesOf returns the indexes of the groups group g depends on.
func (p *Plan) DependenciesOf(g int) []int {
	byKey := make(map[string]int, len(p.Config.Groups))
	for i := range p.Config.Groups {
		byKey[p.Config.Groups[i].Key()] = i
	}
	var deps []int
	for _, key := range p.Graph.Dependencies(p.Config.Groups[g].Key()) {
		deps = append(deps, byKey[key])
	}
	return deps
}

// DetermineProcessingOrder returns every group exactly once, each after the
// groups it depends on.
func (o *Orchestrator) DetermineProcessingOrder(ctx context.Context, cfg *repackfile.Configuration) ([]*repackfile.Group, error) {
	plan, err := o.Plan(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return plan.Groups(), nil
}

// Repack merges every group in processing order. Groups run one at a time:
// a group may need the outputs written before it. The first failure aborts
// the run; outputs already written stay on disk. The returned report is
// non-nil whenever cfg is.
func (o *Orchestrator) Repack(ctx context.Context, cfg *repackfile.Configuration) (*Report, error) {
	report := &Report{
		Groups:   make([]GroupReport, len(cfg.Groups)),
		Mapping:  NewOutputMapping(),
		Registry: NewRegistry(),
	}
	for i := range cfg.Groups {
		report.Groups[i] = GroupReport{Label: cfg.Groups[i].Label(), Output: cfg.Groups[i].OutputAssembly}
	}

	plan, err := o.Plan(ctx, cfg)
	if err != nil {
		for i := range report.Groups {
			report.Groups[i].State = StateFailed
			report.Groups[i].Err = err
		}
		o.logger.Error("repack aborted", "error", err)
		return report, err
	}
	report.Order = plan.Order
	for _, g := range plan.Order {
		report.Groups[g].State = StateSequenced
	}

	rewriter := NewRewriter(o.logger)
	for step, g := range plan.Order {
		gr := &report.Groups[g]
		if err := ctx.Err(); err != nil {
			return report, o.fail(gr, fmt.Errorf("repack canceled before group %s: %w", gr.Label, err))
		}
		if err := o.processGroup(ctx, plan, g, step, rewriter, report); err != nil {
			return report, o.fail(gr, err)
		}
	}
	o.logger.Info("repack complete", "groups", len(plan.Order), "mapped", report.Mapping.Len())
	return report, nil
}

func (o *Orchestrator) processGroup(ctx context.Context, plan *Plan, g, step int, rewriter *Rewriter, report *Report) error {
	cfg := plan.Config
	group := &cfg.Groups[g]
	gr := &report.Groups[g]
	settings := cfg.SettingsFor(g)
	inputs := plan.Index.Inputs(g)

	o.logger.Info("merging group", "group", gr.Label, "inputs", len(inputs), "output", group.OutputAssembly)
	res, err := o.engine.Merge(ctx, engine.Request{
		Inputs:            inputs,
		Output:            group.OutputAssembly,
		SearchDirectories: searchDirectories(settings.SearchDirectories, report.Registry.Directories()),
		Settings:          settings,
	})
	if err != nil {
		return &MergeError{Group: gr.Label, Err: err}
	}
	gr.State = StateMerged
	gr.Merged = res.MergedIdentities

	for _, name := range res.MergedIdentities {
		if !report.Mapping.Record(name, group.OutputAssembly) {
			prev, _ := report.Mapping.Lookup(name)
			o.logger.Warn("module already mapped to another output", "module", name, "output", prev)
		}
	}

	if step > 0 {
		rr, err := rewriter.Rewrite(group.OutputAssembly, report.Mapping, report.Registry)
		if err != nil {
			return &RewriteError{Group: gr.Label, Output: group.OutputAssembly, Err: err}
		}
		gr.Rewritten = rr.Rewritten
		gr.State = StateReferencesRewritten
	}

	report.Registry.Add(group.OutputAssembly)
	gr.State = StateDone
	o.logger.Verbose("group done", "group", gr.Label, "merged", len(gr.Merged), "rewritten", len(gr.Rewritten))
	return nil
}

func (o *Orchestrator) fail(gr *GroupReport, err error) error {
	gr.State = StateFailed
	gr.Err = err
	o.logger.Error("repack aborted", "group", gr.Label, "error", err)
	return err
}

// searchDirectories appends the registry directories to the configured ones,
// dropping repeats.
func searchDirectories(configured, produced []string) []string {
	seen := make(map[string]bool, len(configured)+len(produced))
	var dirs []string
	for _, list := range [][]string{configured, produced} {
		for _, d := range list {
			key := repackfile.OutputKey(d)
			if seen[key] {
				continue
			}
			seen[key] = true
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// Succeeded reports whether every group reached StateDone.
func (r *Report) Succeeded() bool {
	for _, g := range r.Groups {
		if g.State != StateDone {
			return false
		}
	}
	return true
}

// Summary renders one line per group in processing order.
func (r *Report) Summary() string {
	var sb strings.Builder
	for _, g := range r.Order {
		gr := r.Groups[g]
		fmt.Fprintf(&sb, "%s: %s (%d merged, %d rewritten)\n", gr.Label, gr.State, len(gr.Merged), len(gr.Rewritten))
	}
	return sb.String()
}
