// SPDX-License-Identifier: MPL-2.0

package metadata

// RenameReference points AssemblyRef row i at name. Version, culture, flags
// and key columns are kept, as is the row position, so TypeRef and
// ExportedType scopes stay valid. Renaming to the current name is a no-op and
// leaves the module unmodified.
func (m *Module) RenameReference(i int, name string) error {
	cur, err := m.reference(i)
	if err != nil {
		return err
	}
	if cur.Name == name {
		return nil
	}
	row := m.tables.rows[tableAssemblyRef][i]
	row[colRefName] = m.internString(name)
	m.modified = true
	return nil
}

// internString returns a #Strings offset for s, appending it when absent.
func (m *Module) internString(s string) uint32 {
	heap := m.root.heap(streamStrings)
	if off, ok := findString(heap, s); ok {
		return off
	}
	heap, off := appendString(heap, s)
	m.root.setHeap(streamStrings, heap)
	return off
}

// encodeMetadata re-serialises the metadata root with the current tables.
func (m *Module) encodeMetadata() []byte {
	ts := m.root.tableStream()
	ts.data = m.tables.encode(
		len(m.root.heap(streamStrings)),
		len(m.root.heap(streamGUID)),
		len(m.root.heap(streamBlob)),
	)
	return m.root.encode()
}
