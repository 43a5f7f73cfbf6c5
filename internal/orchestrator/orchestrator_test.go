// SPDX-License-Identifier: MPL-2.0

package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/mrepack/mrepack/internal/logging"
	"github.com/mrepack/mrepack/pkg/metadata"
	"github.com/mrepack/mrepack/pkg/metadata/metadatatest"
	"github.com/mrepack/mrepack/pkg/repackfile"
)

// chainFixture writes inputs for groups A, B and C where C references B and
// B references A.
func chainFixture(t *testing.T) (in, out string, a, b, c repackfile.Group) {
	t.Helper()
	in, out = t.TempDir(), t.TempDir()
	a = newGroup("A", out, metadatatest.Library(t, in, "A1", "System.Runtime"))
	b = newGroup("B", out, metadatatest.Library(t, in, "B1", "A1"))
	c = newGroup("C", out, metadatatest.Library(t, in, "C1", "B1"))
	return in, out, a, b, c
}

func TestDetermineProcessingOrder_ChainIgnoresListingOrder(t *testing.T) {
	t.Parallel()
	_, _, a, b, c := chainFixture(t)

	perms := [][]repackfile.Group{
		{a, b, c}, {a, c, b}, {b, a, c},
		{b, c, a}, {c, a, b}, {c, b, a},
	}
	o := New(&fakeEngine{})
	for _, perm := range perms {
		groups, err := o.DetermineProcessingOrder(t.Context(), newConfig(perm...))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got, want := labels(groups), []string{"A", "B", "C"}; !slices.Equal(got, want) {
			t.Errorf("listed as %v: expected %v, got %v", labels([]*repackfile.Group{&perm[0], &perm[1], &perm[2]}), want, got)
		}
	}
}

func TestDetermineProcessingOrder_IndependentGroups(t *testing.T) {
	t.Parallel()
	in, out := t.TempDir(), t.TempDir()
	cfg := newConfig(
		newGroup("Left", out, metadatatest.Library(t, in, "L1", "System.Runtime")),
		newGroup("Right", out, metadatatest.Library(t, in, "R1", "System.Runtime")),
	)

	groups, err := New(&fakeEngine{}).DetermineProcessingOrder(t.Context(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := labels(groups)
	slices.Sort(got)
	if want := []string{"Left", "Right"}; !slices.Equal(got, want) {
		t.Errorf("expected both groups once, got %v", got)
	}
}

func TestDetermineProcessingOrder_DependenciesPrecedeDependents(t *testing.T) {
	t.Parallel()
	in, out := t.TempDir(), t.TempDir()

	// Top references Left and Right, both of which reference Base.
	cfg := newConfig(
		newGroup("Top", out, metadatatest.Library(t, in, "T1", "L1", "R1")),
		newGroup("Left", out, metadatatest.Library(t, in, "L1", "B1")),
		newGroup("Right", out, metadatatest.Library(t, in, "R1", "B1")),
		newGroup("Base", out, metadatatest.Library(t, in, "B1")),
	)
	o := New(&fakeEngine{})
	plan, err := o.Plan(t.Context(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Order) != len(cfg.Groups) {
		t.Fatalf("expected %d groups, got %v", len(cfg.Groups), plan.Order)
	}
	pos := make(map[int]int)
	for i, g := range plan.Order {
		if _, dup := pos[g]; dup {
			t.Fatalf("group %d appears twice in %v", g, plan.Order)
		}
		pos[g] = i
	}
	for g := range cfg.Groups {
		for _, dep := range plan.DependenciesOf(g) {
			if pos[dep] >= pos[g] {
				t.Errorf("%s must follow %s in %v", cfg.Groups[g].Label(), cfg.Groups[dep].Label(), plan.Order)
			}
		}
	}
	if deps := plan.DependenciesOf(0); len(deps) != 2 {
		t.Errorf("expected Top to depend on two groups, got %v", deps)
	}
}

func TestRepack_CycleFails(t *testing.T) {
	t.Parallel()
	in, out := t.TempDir(), t.TempDir()
	cfg := newConfig(
		newGroup("Alpha", out, metadatatest.Library(t, in, "Alpha1", "Beta1")),
		newGroup("Beta", out, metadatatest.Library(t, in, "Beta1", "Alpha1")),
	)
	eng := &fakeEngine{}

	report, err := New(eng).Repack(t.Context(), cfg)
	if !errors.Is(err, ErrCircularDependency) {
		t.Fatalf("expected ErrCircularDependency, got %v", err)
	}
	for _, name := range []string{"Alpha", "Beta"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("expected %q in %q", name, err.Error())
		}
	}
	if len(eng.requests) != 0 {
		t.Errorf("expected no merges, got %v", eng.outputs())
	}
	for _, g := range report.Groups {
		if g.State != StateFailed {
			t.Errorf("group %s: expected failed, got %s", g.Label, g.State)
		}
	}
}

func TestRepack_DuplicateInputAcrossGroups(t *testing.T) {
	t.Parallel()
	in, out := t.TempDir(), t.TempDir()
	shared := metadatatest.Library(t, in, "Shared")
	cfg := newConfig(
		newGroup("A", out, metadatatest.Library(t, in, "A1"), shared),
		newGroup("B", out, metadatatest.Library(t, in, "B1"), shared),
	)

	_, err := New(&fakeEngine{}).Repack(t.Context(), cfg)
	if !errors.Is(err, ErrDuplicateInput) {
		t.Fatalf("expected ErrDuplicateInput, got %v", err)
	}
	if !strings.Contains(err.Error(), "appears in multiple groups") || !strings.Contains(err.Error(), "Shared") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestRepack_DuplicateWithinGroupIsIgnored(t *testing.T) {
	t.Parallel()
	in, out := t.TempDir(), t.TempDir()
	a1 := metadatatest.Library(t, in, "A1")
	cfg := newConfig(newGroup("A", out, a1, metadatatest.Library(t, in, "A2"), a1))
	eng := &fakeEngine{}
	rec := &logging.Recorder{}

	if _, err := New(eng, WithLogger(rec)).Repack(t.Context(), cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rec.Duplicates("assembly"); !slices.Equal(got, []string{"A1"}) {
		t.Errorf("expected A1 reported once, got %v", got)
	}
	if n := len(eng.requests[0].Inputs); n != 2 {
		t.Errorf("expected 2 inputs passed to the engine, got %d", n)
	}
}

func TestRepack_ChainRewritesReferencesToOutputs(t *testing.T) {
	t.Parallel()
	in, out := t.TempDir(), t.TempDir()
	a := newGroup("A", out,
		metadatatest.Library(t, in, "A1", "System.Runtime"),
		metadatatest.Library(t, in, "A2", "A1"))
	b := newGroup("B", out, metadatatest.Library(t, in, "B1", "A1", "A2", "System.Runtime"))
	eng := &fakeEngine{}

	report, err := New(eng).Repack(t.Context(), newConfig(b, a))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := eng.outputs(); !slices.Equal(got, []string{"A", "B"}) {
		t.Fatalf("expected A merged before B, got %v", got)
	}

	refs := referenceNames(t, b.OutputAssembly)
	if !slices.Contains(refs, "A") {
		t.Errorf("expected B to reference A, got %v", refs)
	}
	for _, stale := range []string{"A1", "A2"} {
		if slices.Contains(refs, stale) {
			t.Errorf("B still references absorbed module %s: %v", stale, refs)
		}
	}
	if !slices.Contains(refs, "System.Runtime") {
		t.Errorf("unrelated reference dropped: %v", refs)
	}

	// The second merge can resolve modules written by the first.
	if dirs := eng.requests[1].SearchDirectories; !slices.Contains(dirs, filepath.Dir(a.OutputAssembly)) {
		t.Errorf("expected %s in search directories %v", filepath.Dir(a.OutputAssembly), dirs)
	}

	if !report.Succeeded() {
		t.Errorf("expected success, got:\n%s", report.Summary())
	}
	gb := report.Groups[0]
	if len(gb.Rewritten) != 2 {
		t.Errorf("expected 2 rewritten references, got %+v", gb.Rewritten)
	}
	if report.Registry.Len() != 2 {
		t.Errorf("expected 2 registered outputs, got %d", report.Registry.Len())
	}
	if got := report.Mapping.Len(); got != 3 {
		t.Errorf("expected 3 mapped modules, got %d", got)
	}
}

func TestRepack_ChainRewritesCompilerLayoutOutputs(t *testing.T) {
	t.Parallel()
	in, out := t.TempDir(), t.TempDir()
	a := newGroup("A", out, metadatatest.CompilerLibrary(t, in, "A.Impl", "System.Runtime"))
	b := newGroup("B", out, metadatatest.CompilerLibrary(t, in, "B.Impl", "A.Impl"))
	c := newGroup("C", out, metadatatest.CompilerLibrary(t, in, "C.Impl", "B.Impl", "A.Impl"))
	eng := &fakeEngine{compilerSections: true}

	report, err := New(eng).Repack(t.Context(), newConfig(c, b, a))
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, report.Summary())
	}
	if got := eng.outputs(); !slices.Equal(got, []string{"A", "B", "C"}) {
		t.Fatalf("expected order A, B, C, got %v", got)
	}
	if refs := referenceNames(t, b.OutputAssembly); !slices.Equal(refs, []string{"A"}) {
		t.Errorf("B references = %v, want [A]", refs)
	}
	if refs := referenceNames(t, c.OutputAssembly); !slices.Equal(refs, []string{"B", "A"}) {
		t.Errorf("C references = %v, want [B A]", refs)
	}
	for _, path := range []string{b.OutputAssembly, c.OutputAssembly} {
		m, err := metadata.Open(path)
		if err != nil {
			t.Fatalf("Open(%s): %v", path, err)
		}
		if _, err := m.Identity(); err != nil {
			t.Errorf("Identity(%s): %v", path, err)
		}
	}
}

func TestRepack_MappingHasOneEntryPerMergedIdentity(t *testing.T) {
	t.Parallel()
	in, out := t.TempDir(), t.TempDir()
	g := newGroup("All", out,
		metadatatest.Library(t, in, "One"),
		metadatatest.Library(t, in, "Two"),
		metadatatest.Library(t, in, "Three"))

	report, err := New(&fakeEngine{}).Repack(t.Context(), newConfig(g))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entries := report.Mapping.EntriesFor(g.OutputAssembly)
	if len(entries) != 3 || report.Mapping.Len() != 3 {
		t.Fatalf("expected 3 entries for %s, got %+v", g.OutputAssembly, report.Mapping.Entries())
	}
	for _, e := range entries {
		if e.Output != g.OutputAssembly {
			t.Errorf("entry %s maps to %s", e.Name, e.Output)
		}
	}
	if got := report.Groups[0].Merged; !slices.Equal(got, []string{"One", "Two", "Three"}) {
		t.Errorf("unexpected merged identities %v", got)
	}
}

func TestRepack_FirstGroupIsNotRewritten(t *testing.T) {
	t.Parallel()
	_, _, a, _, _ := chainFixture(t)

	report, err := New(&fakeEngine{}).Repack(t.Context(), newConfig(a))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Groups[0].State != StateDone || report.Groups[0].Rewritten != nil {
		t.Errorf("unexpected report %+v", report.Groups[0])
	}
}

func TestRepack_UnreadableModuleIsAWarning(t *testing.T) {
	t.Parallel()
	in, out := t.TempDir(), t.TempDir()
	junk := filepath.Join(in, "Junk.dll")
	if err := os.WriteFile(junk, []byte("not a module"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := newConfig(
		newGroup("A", out, metadatatest.Library(t, in, "A1")),
		newGroup("B", out, metadatatest.Library(t, in, "B1", "A1"), junk),
	)
	rec := &logging.Recorder{}

	report, err := New(&fakeEngine{}, WithLogger(rec)).Repack(t.Context(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rec.Contains(logging.LevelWarn, "skipping unreadable module") {
		t.Errorf("expected a warning, got %+v", rec.Entries())
	}
	if got := report.Groups[1].Merged; !slices.Contains(got, "Junk") {
		t.Errorf("expected file name fallback for unreadable input, got %v", got)
	}
}

func TestRepack_NativeModuleIsNotReportedAsCorrupt(t *testing.T) {
	t.Parallel()
	in, out := t.TempDir(), t.TempDir()
	native := metadatatest.Native(t, in, "Interop")
	cfg := newConfig(
		newGroup("A", out, metadatatest.Library(t, in, "A1")),
		newGroup("B", out, metadatatest.Library(t, in, "B1", "A1"), native),
	)
	rec := &logging.Recorder{}

	if _, err := New(&fakeEngine{}, WithLogger(rec)).Repack(t.Context(), cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rec.Contains(logging.LevelWarn, "skipping native module") {
		t.Errorf("expected a native module warning, got %+v", rec.Entries())
	}
	if rec.Contains(logging.LevelWarn, "skipping unreadable module") {
		t.Errorf("native module reported as unreadable: %+v", rec.Entries())
	}
}

func TestRepack_MergeFailureAbortsRemainingGroups(t *testing.T) {
	t.Parallel()
	_, _, a, b, c := chainFixture(t)
	boom := errors.New("boom")
	eng := &fakeEngine{fail: map[string]error{b.Key(): boom}}
	rec := &logging.Recorder{}

	report, err := New(eng, WithLogger(rec)).Repack(t.Context(), newConfig(c, b, a))
	if !errors.Is(err, ErrMergeFailed) || !errors.Is(err, boom) {
		t.Fatalf("expected merge failure wrapping boom, got %v", err)
	}
	var me *MergeError
	if !errors.As(err, &me) || me.Group != "B" {
		t.Errorf("expected *MergeError for B, got %#v", err)
	}
	if _, statErr := os.Stat(a.OutputAssembly); statErr != nil {
		t.Errorf("expected A's output to stay on disk: %v", statErr)
	}
	if got := eng.outputs(); !slices.Equal(got, []string{"A", "B"}) {
		t.Errorf("expected C never merged, got %v", got)
	}
	want := map[string]State{"A": StateDone, "B": StateFailed, "C": StateSequenced}
	for _, g := range report.Groups {
		if g.State != want[g.Label] {
			t.Errorf("group %s: expected %s, got %s", g.Label, want[g.Label], g.State)
		}
	}
	if !rec.Contains(logging.LevelError, "repack aborted") {
		t.Error("expected the failure to be logged")
	}
}

func TestRepack_RewriteFailure(t *testing.T) {
	t.Parallel()
	_, _, a, b, _ := chainFixture(t)
	eng := &fakeEngine{corrupt: map[string]bool{b.Key(): true}}

	report, err := New(eng).Repack(t.Context(), newConfig(a, b))
	if !errors.Is(err, ErrRewriteFailed) {
		t.Fatalf("expected ErrRewriteFailed, got %v", err)
	}
	var re *RewriteError
	if !errors.As(err, &re) || re.Output != b.OutputAssembly {
		t.Errorf("expected *RewriteError for %s, got %#v", b.OutputAssembly, err)
	}
	if report.Groups[1].State != StateFailed {
		t.Errorf("expected B failed, got %s", report.Groups[1].State)
	}
	if report.Registry.Len() != 1 {
		t.Errorf("expected only A registered, got %d", report.Registry.Len())
	}
}

func TestRepack_WildcardInputs(t *testing.T) {
	t.Parallel()
	in, out := t.TempDir(), t.TempDir()
	lib := filepath.Join(in, "lib")
	if err := os.Mkdir(lib, 0o755); err != nil {
		t.Fatal(err)
	}
	p1 := metadatatest.Library(t, lib, "P1")
	p2 := metadatatest.Library(t, lib, "P2")
	cfg := newConfig(newGroup("Plugins", out, filepath.Join(lib, "*.dll"), filepath.Join(in, "missing", "*.dll")))
	cfg.GlobalOptions.Wildcards = repackfile.Bool(true)
	eng := &fakeEngine{}
	rec := &logging.Recorder{}

	if _, err := New(eng, WithLogger(rec)).Repack(t.Context(), cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := eng.requests[0].Inputs; !slices.Equal(got, []string{p1, p2}) {
		t.Errorf("expected expanded inputs, got %v", got)
	}
	if !rec.Contains(logging.LevelWarn, "matched nothing") {
		t.Error("expected a warning for the empty pattern")
	}
}

func TestRepack_CanceledContext(t *testing.T) {
	t.Parallel()
	_, _, a, b, _ := chainFixture(t)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	eng := &fakeEngine{}

	_, err := New(eng).Repack(ctx, newConfig(a, b))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(eng.requests) != 0 {
		t.Errorf("expected no merges, got %v", eng.outputs())
	}
}

func TestRepack_RewriteIsIdempotent(t *testing.T) {
	t.Parallel()
	_, _, a, b, _ := chainFixture(t)
	report, err := New(&fakeEngine{}).Repack(t.Context(), newConfig(a, b))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before, err := os.ReadFile(b.OutputAssembly)
	if err != nil {
		t.Fatal(err)
	}

	rr, err := NewRewriter(logging.Nop{}).Rewrite(b.OutputAssembly, report.Mapping, report.Registry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rr.Saved || len(rr.Rewritten) != 0 {
		t.Errorf("expected no changes, got %+v", rr)
	}
	after, err := os.ReadFile(b.OutputAssembly)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Error("second rewrite changed the file")
	}
}

func TestState_String(t *testing.T) {
	t.Parallel()
	tests := map[State]string{
		StatePending:             "pending",
		StateSequenced:           "sequenced",
		StateMerged:              "merged",
		StateReferencesRewritten: "references-rewritten",
		StateDone:                "done",
		StateFailed:              "failed",
		State(42):                "state(42)",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}

func TestSearchDirectories(t *testing.T) {
	t.Parallel()
	got := searchDirectories([]string{"/lib", "/Out"}, []string{"/out", "/other"})
	if want := []string{"/lib", "/Out", "/other"}; !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestReport_Summary(t *testing.T) {
	t.Parallel()
	r := &Report{
		Order: []int{1, 0},
		Groups: []GroupReport{
			{Label: "B", State: StateDone, Merged: []string{"B1"}, Rewritten: []RewrittenReference{{From: "A1", To: "A"}}},
			{Label: "A", State: StateDone, Merged: []string{"A1", "A2"}},
		},
	}
	want := "A: done (2 merged, 0 rewritten)\nB: done (1 merged, 1 rewritten)\n"
	if got := r.Summary(); got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
	if !r.Succeeded() {
		t.Error("expected success")
	}
}

// Keeps the fixture reader honest: the composed inputs carry what the
// tests assume.
func TestChainFixture_References(t *testing.T) {
	t.Parallel()
	_, _, _, b, _ := chainFixture(t)
	if got := referenceNames(t, b.InputAssemblies[0]); !slices.Equal(got, []string{"A1"}) {
		t.Errorf("expected [A1], got %v", got)
	}
	if got := metadata.NameFromPath(b.OutputAssembly); got != "B" {
		t.Errorf("expected output name B, got %s", got)
	}
}
