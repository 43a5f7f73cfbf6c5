// SPDX-License-Identifier: MPL-2.0

package orchestrator

import "strings"

type (
	// MappingEntry records that module Name was absorbed into Output.
	MappingEntry struct {
		Name   string
		Output string
	}

	// OutputMapping maps absorbed module names (case-insensitive) to the
	// output that absorbed them. It is append-only: the first record wins.
	OutputMapping struct {
		byName  map[string]int
		entries []MappingEntry
	}
)

// NewOutputMapping returns an empty mapping.
func NewOutputMapping() *OutputMapping {
	return &OutputMapping{byName: make(map[string]int)}
}

// Record maps name to output. It returns false, leaving the mapping
// unchanged, when name is already mapped.
func (m *OutputMapping) Record(name, output string) bool {
	key := strings.ToLower(name)
	if _, ok := m.byName[key]; ok {
		return false
	}
	m.byName[key] = len(m.entries)
	m.entries = append(m.entries, MappingEntry{Name: name, Output: output})
	return true
}

// Lookup returns the output that absorbed name.
func (m *OutputMapping) Lookup(name string) (string, bool) {
	i, ok := m.byName[strings.ToLower(name)]
	if !ok {
		return "", false
	}
	return m.entries[i].Output, true
}

// Len returns the number of mapped modules.
func (m *OutputMapping) Len() int { return len(m.entries) }

// Entries returns the mapping in recording order.
func (m *OutputMapping) Entries() []MappingEntry {
	out := make([]MappingEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// EntriesFor returns the modules mapped to output.
func (m *OutputMapping) EntriesFor(output string) []MappingEntry {
	var out []MappingEntry
	for _, e := range m.entries {
		if e.Output == output {
			out = append(out, e)
		}
	}
	return out
}
