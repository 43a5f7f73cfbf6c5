// SPDX-License-Identifier: MPL-2.0

package logging

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func TestCharmLogger_VerboseGating(t *testing.T) {
	t.Parallel()

	var quiet bytes.Buffer
	New(&quiet, Options{Prefix: "mrepack"}).Verbose("hidden detail")
	if quiet.Len() != 0 {
		t.Errorf("verbose message written without verbose mode: %q", quiet.String())
	}

	var loud bytes.Buffer
	New(&loud, Options{Verbose: true}).Verbose("shown detail", "group", "core")
	if !strings.Contains(loud.String(), "shown detail") || !strings.Contains(loud.String(), "group=core") {
		t.Errorf("verbose output = %q", loud.String())
	}
}

func TestCharmLogger_PrefixAndDuplicates(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := New(&buf, Options{Prefix: "mrepack"})
	l.Info("merging")
	l.DuplicateIgnored("assembly", "Shared")

	out := buf.String()
	for _, want := range []string{"mrepack", "merging", "duplicate ignored", "kind=assembly", "name=Shared"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	r := &Recorder{}
	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Warn("unreadable", "index", i)
		}()
	}
	wg.Wait()
	r.Info("done")
	r.DuplicateIgnored("assembly", "Util")
	r.DuplicateIgnored("type", "Util.Helper")

	if got := len(r.Filter(LevelWarn)); got != 12 {
		t.Errorf("warn entries = %d, want 12", got)
	}
	if !r.Contains(LevelInfo, "done") {
		t.Error("info entry not recorded")
	}
	if got := r.Duplicates("assembly"); len(got) != 1 || got[0] != "Util" {
		t.Errorf("Duplicates(assembly) = %v", got)
	}
	if r.Contains(LevelError, "") {
		t.Error("no error entries were recorded")
	}
}

func TestEntryValue(t *testing.T) {
	t.Parallel()

	e := Entry{Keyvals: []any{"path", "a.dll", "dangling"}}
	if e.Value("path") != "a.dll" {
		t.Errorf("Value(path) = %v", e.Value("path"))
	}
	if e.Value("dangling") != nil {
		t.Error("a key without a value should yield nil")
	}
	if LevelWarn.String() != "warn" {
		t.Errorf("LevelWarn.String() = %q", LevelWarn.String())
	}
}

func TestNopSatisfiesLogger(t *testing.T) {
	t.Parallel()

	var l Logger = Nop{}
	l.Info("x")
	l.DuplicateIgnored("assembly", "x")
}
