// SPDX-License-Identifier: MPL-2.0

package metadata

import (
	"bytes"
	"debug/pe"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	dirCLIHeader = 14
	cliHeaderLen = 72

	// CLI header flag set when the image carries a strong-name signature.
	cliFlagStrongNameSigned = 0x00000008
)

type (
	// Version is a four-part assembly version.
	Version struct {
		Major    uint16
		Minor    uint16
		Build    uint16
		Revision uint16
	}

	// AssemblyIdentity is the decoded Assembly row of a module.
	AssemblyIdentity struct {
		Name          string
		Version       Version
		Culture       string
		PublicKey     []byte
		Flags         uint32
		HashAlgorithm uint32
	}

	// AssemblyRef is one decoded AssemblyRef row.
	AssemblyRef struct {
		Name             string
		Version          Version
		Culture          string
		PublicKeyOrToken []byte
		Flags            uint32
		HashValue        []byte
	}

	// Module is a managed PE image held in memory together with its decoded
	// metadata. A Module is not safe for concurrent mutation.
	Module struct {
		path string
		raw  []byte

		layout     peLayout
		cliOffset  int
		metaOffset int
		metaSize   uint32

		root   *metadataRoot
		tables *tableStream

		modified bool
	}

	// peLayout keeps the header geometry needed to patch the image.
	peLayout struct {
		optOffset     int
		optSize       int
		sectionTable  int
		numSections   int
		sectionAlign  uint32
		fileAlign     uint32
		sizeOfHeaders uint32
		sections      []pe.SectionHeader
	}
)

// String renders the version as a.b.c.d.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
}

// ParseVersion parses a dotted version with one to four components.
func ParseVersion(s string) (Version, error) {
	var parts [4]uint16
	fields := strings.Split(strings.TrimSpace(s), ".")
	if len(fields) == 0 || len(fields) > 4 || fields[0] == "" {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}
	for i, f := range fields {
		n, err := strconv.ParseUint(f, 10, 16)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: component %q", s, f)
		}
		parts[i] = uint16(n)
	}
	return Version{Major: parts[0], Minor: parts[1], Build: parts[2], Revision: parts[3]}, nil
}

// Open reads the module at path into memory and decodes its metadata.
// No file handle is retained after Open returns.
func Open(path string) (*Module, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.path = path
	return m, nil
}

// Parse decodes a managed PE image held in memory. The slice is owned by the
// returned Module afterwards.
func Parse(raw []byte) (*Module, error) {
	f, err := pe.NewFile(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotPE, err)
	}
	defer f.Close()

	m := &Module{raw: raw}
	if err := m.readLayout(f); err != nil {
		return nil, err
	}

	var cli pe.DataDirectory
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		if oh.NumberOfRvaAndSizes > dirCLIHeader {
			cli = oh.DataDirectory[dirCLIHeader]
		}
	case *pe.OptionalHeader64:
		if oh.NumberOfRvaAndSizes > dirCLIHeader {
			cli = oh.DataDirectory[dirCLIHeader]
		}
	default:
		return nil, ErrNotManaged
	}
	if cli.VirtualAddress == 0 || cli.Size < cliHeaderLen {
		return nil, ErrNotManaged
	}

	cliOffset, ok := m.rvaToOffset(cli.VirtualAddress)
	if !ok || cliOffset+cliHeaderLen > len(raw) {
		return nil, malformed("CLI header RVA %#x is not mapped by any section", cli.VirtualAddress)
	}
	m.cliOffset = cliOffset

	metaRVA := le.Uint32(raw[cliOffset+8:])
	m.metaSize = le.Uint32(raw[cliOffset+12:])
	metaOffset, ok := m.rvaToOffset(metaRVA)
	if !ok || uint64(metaOffset)+uint64(m.metaSize) > uint64(len(raw)) {
		return nil, malformed("metadata RVA %#x (%d bytes) is not mapped by any section", metaRVA, m.metaSize)
	}
	m.metaOffset = metaOffset

	m.root, err = parseRoot(raw[metaOffset : metaOffset+int(m.metaSize)])
	if err != nil {
		return nil, err
	}
	ts := m.root.tableStream()
	if ts == nil {
		return nil, malformed("metadata has no table stream")
	}
	m.tables, err = parseTables(ts.data)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Module) readLayout(f *pe.File) error {
	raw := m.raw
	if len(raw) < 0x40 {
		return ErrNotPE
	}
	lfanew := int(le.Uint32(raw[0x3C:]))
	l := peLayout{
		optOffset:   lfanew + 24,
		optSize:     int(f.FileHeader.SizeOfOptionalHeader),
		numSections: int(f.FileHeader.NumberOfSections),
	}
	l.sectionTable = l.optOffset + l.optSize

	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		l.sectionAlign = oh.SectionAlignment
		l.fileAlign = oh.FileAlignment
		l.sizeOfHeaders = oh.SizeOfHeaders
	case *pe.OptionalHeader64:
		l.sectionAlign = oh.SectionAlignment
		l.fileAlign = oh.FileAlignment
		l.sizeOfHeaders = oh.SizeOfHeaders
	default:
		return ErrNotManaged
	}
	for _, s := range f.Sections {
		l.sections = append(l.sections, s.SectionHeader)
	}
	m.layout = l
	return nil
}

func (m *Module) rvaToOffset(rva uint32) (int, bool) {
	for _, s := range m.layout.sections {
		extent := max(s.VirtualSize, s.Size)
		if rva >= s.VirtualAddress && rva < s.VirtualAddress+extent {
			delta := rva - s.VirtualAddress
			if delta >= s.Size {
				return 0, false
			}
			return int(s.Offset + delta), true
		}
	}
	return 0, false
}

// Path returns the file the module was opened from, if any.
func (m *Module) Path() string { return m.path }

// Modified reports whether any row was changed since the module was loaded.
func (m *Module) Modified() bool { return m.modified }

// StrongNameSigned reports whether the CLI header flags a strong-name signature.
func (m *Module) StrongNameSigned() bool {
	return le.Uint32(m.raw[m.cliOffset+16:])&cliFlagStrongNameSigned != 0
}

// ModuleName returns the name recorded in the Module table (usually the file name).
func (m *Module) ModuleName() (string, error) {
	rows := m.tables.rows[tableModule]
	if len(rows) == 0 {
		return "", malformed("module table is empty")
	}
	return readString(m.root.heap(streamStrings), rows[0][colModuleName])
}

// MVID returns the module version identifier from the #GUID heap.
func (m *Module) MVID() ([16]byte, error) {
	rows := m.tables.rows[tableModule]
	if len(rows) == 0 {
		return [16]byte{}, malformed("module table is empty")
	}
	return readGUID(m.root.heap(streamGUID), rows[0][2])
}

// Identity decodes the Assembly row. Modules without an Assembly row (netmodules)
// yield an error wrapping ErrNotManaged.
func (m *Module) Identity() (AssemblyIdentity, error) {
	rows := m.tables.rows[tableAssembly]
	if len(rows) == 0 {
		return AssemblyIdentity{}, fmt.Errorf("%w: module has no assembly manifest", ErrNotManaged)
	}
	row := rows[0]
	strs := m.root.heap(streamStrings)
	blobs := m.root.heap(streamBlob)

	name, err := readString(strs, row[colAssemblyName])
	if err != nil {
		return AssemblyIdentity{}, err
	}
	culture, err := readString(strs, row[colAssemblyCulture])
	if err != nil {
		return AssemblyIdentity{}, err
	}
	key, err := readBlob(blobs, row[colAssemblyKey])
	if err != nil {
		return AssemblyIdentity{}, err
	}
	return AssemblyIdentity{
		Name:          name,
		Version:       versionAt(row, colAssemblyMajor),
		Culture:       culture,
		PublicKey:     key,
		Flags:         row[colAssemblyFlags],
		HashAlgorithm: row[colAssemblyHashAlg],
	}, nil
}

// References decodes every AssemblyRef row in table order.
func (m *Module) References() ([]AssemblyRef, error) {
	rows := m.tables.rows[tableAssemblyRef]
	refs := make([]AssemblyRef, 0, len(rows))
	for i := range rows {
		ref, err := m.reference(i)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (m *Module) reference(i int) (AssemblyRef, error) {
	rows := m.tables.rows[tableAssemblyRef]
	if i < 0 || i >= len(rows) {
		return AssemblyRef{}, fmt.Errorf("%w: %d (have %d)", ErrReferenceIndex, i, len(rows))
	}
	row := rows[i]
	strs := m.root.heap(streamStrings)
	blobs := m.root.heap(streamBlob)

	name, err := readString(strs, row[colRefName])
	if err != nil {
		return AssemblyRef{}, err
	}
	culture, err := readString(strs, row[colRefCulture])
	if err != nil {
		return AssemblyRef{}, err
	}
	key, err := readBlob(blobs, row[colRefKey])
	if err != nil {
		return AssemblyRef{}, err
	}
	hash, err := readBlob(blobs, row[colRefHash])
	if err != nil {
		return AssemblyRef{}, err
	}
	return AssemblyRef{
		Name:             name,
		Version:          versionAt(row, colRefMajor),
		Culture:          culture,
		PublicKeyOrToken: key,
		Flags:            row[colRefFlags],
		HashValue:        hash,
	}, nil
}

func versionAt(row []uint32, first int) Version {
	return Version{
		Major:    uint16(row[first]),
		Minor:    uint16(row[first+1]),
		Build:    uint16(row[first+2]),
		Revision: uint16(row[first+3]),
	}
}

// ReadReferenceNames opens path and returns the names of the assemblies it references.
func ReadReferenceNames(path string) ([]string, error) {
	m, err := Open(path)
	if err != nil {
		return nil, err
	}
	refs, err := m.References()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = ref.Name
	}
	return names, nil
}

// ReadIdentity opens path and returns its assembly identity.
func ReadIdentity(path string) (AssemblyIdentity, error) {
	m, err := Open(path)
	if err != nil {
		return AssemblyIdentity{}, err
	}
	id, err := m.Identity()
	if err != nil {
		return AssemblyIdentity{}, fmt.Errorf("%s: %w", path, err)
	}
	return id, nil
}

// NameFromPath derives a module name from a file path: the base name without
// its extension.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsNotManaged reports whether err means the file is a PE image without CLI metadata.
func IsNotManaged(err error) bool {
	return errors.Is(err, ErrNotManaged)
}
