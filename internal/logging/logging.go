// SPDX-License-Identifier: MPL-2.0

// Package logging defines the logger the repack pipeline reports through and
// its implementations: a charmbracelet/log adapter for the CLI, a no-op logger
// and an in-memory recorder for tests.
package logging

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

const (
	LevelVerbose Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

type (
	// Level orders log severities; verbose is the least severe.
	Level int

	// Logger receives progress and diagnostics. Keyvals alternate keys and
	// values the way charmbracelet/log expects. Implementations must be safe
	// for concurrent use.
	Logger interface {
		Info(msg string, keyvals ...any)
		Warn(msg string, keyvals ...any)
		Error(msg string, keyvals ...any)
		// Verbose is shown only when verbose output is enabled.
		Verbose(msg string, keyvals ...any)
		// DuplicateIgnored reports that a duplicate of kind ("assembly", "type",
		// "resource") named name was dropped.
		DuplicateIgnored(kind, name string)
	}

	// Options configures the charmbracelet/log adapter.
	Options struct {
		Prefix     string
		Verbose    bool
		Timestamps bool
	}

	// CharmLogger writes through a charmbracelet/log logger.
	CharmLogger struct {
		l *log.Logger
	}

	// Nop discards everything.
	Nop struct{}

	// Entry is one recorded log call.
	Entry struct {
		Level   Level
		Message string
		Keyvals []any
	}

	// Recorder keeps every call in memory.
	Recorder struct {
		mu      sync.Mutex
		entries []Entry
	}
)

// New creates a logger writing to w.
func New(w io.Writer, opts Options) *CharmLogger {
	l := log.NewWithOptions(w, log.Options{
		Prefix:          opts.Prefix,
		ReportTimestamp: opts.Timestamps,
	})
	if opts.Verbose {
		l.SetLevel(log.DebugLevel)
	}
	return &CharmLogger{l: l}
}

func (c *CharmLogger) Info(msg string, keyvals ...any) { c.l.Info(msg, keyvals...) }
func (c *CharmLogger) Warn(msg string, keyvals ...any) { c.l.Warn(msg, keyvals...) }
func (c *CharmLogger) Error(msg string, keyvals ...any) { c.l.Error(msg, keyvals...) }
func (c *CharmLogger) Verbose(msg string, keyvals ...any) { c.l.Debug(msg, keyvals...) }

func (c *CharmLogger) DuplicateIgnored(kind, name string) {
	c.l.Warn("duplicate ignored", "kind", kind, "name", name)
}

func (Nop) Info(string, ...any) {}
func (Nop) Warn(string, ...any) {}
func (Nop) Error(string, ...any) {}
func (Nop) Verbose(string, ...any) {}
func (Nop) DuplicateIgnored(string, string) {}

// String renders the level name.
func (l Level) String() string {
	switch l {
	case LevelVerbose:
		return "verbose"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

func (r *Recorder) record(level Level, msg string, keyvals []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Level: level, Message: msg, Keyvals: slices.Clone(keyvals)})
}

func (r *Recorder) Info(msg string, keyvals ...any) { r.record(LevelInfo, msg, keyvals) }
func (r *Recorder) Warn(msg string, keyvals ...any) { r.record(LevelWarn, msg, keyvals) }
func (r *Recorder) Error(msg string, keyvals ...any) { r.record(LevelError, msg, keyvals) }
func (r *Recorder) Verbose(msg string, keyvals ...any) { r.record(LevelVerbose, msg, keyvals) }

func (r *Recorder) DuplicateIgnored(kind, name string) {
	r.record(LevelWarn, "duplicate ignored", []any{"kind", kind, "name", name})
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.entries)
}

// Filter returns the entries at level.
func (r *Recorder) Filter(level Level) []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// Duplicates returns the names reported through DuplicateIgnored for kind.
func (r *Recorder) Duplicates(kind string) []string {
	var names []string
	for _, e := range r.Entries() {
		if e.Message == "duplicate ignored" && e.Value("kind") == kind {
			names = append(names, fmt.Sprint(e.Value("name")))
		}
	}
	return names
}

// Contains reports whether any entry at level has a message containing substr.
func (r *Recorder) Contains(level Level, substr string) bool {
	for _, e := range r.Filter(level) {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// Value returns the value recorded for key, or nil.
func (e Entry) Value(key string) any {
	for i := 0; i+1 < len(e.Keyvals); i += 2 {
		if k, ok := e.Keyvals[i].(string); ok && k == key {
			return e.Keyvals[i+1]
		}
	}
	return nil
}
