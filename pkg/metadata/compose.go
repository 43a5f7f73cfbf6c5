// SPDX-License-Identifier: MPL-2.0

package metadata

import (
	"crypto/sha256"
	"errors"
)

const (
	composeLfanew       = 0x80
	composeSectionRVA   = 0x2000
	composeSectionAlign = 0x2000
	composeFileAlign    = 0x200
	composeImageBase    = 0x10000000

	hashAlgSHA1        = 0x8004
	assemblyFlagPubKey = 0x0001
	cliFlagILOnly      = 0x00000001

	runtimeVersion = "v4.0.30319"

	// Bit mask of the tables the CLR expects sorted; copied into every composed image.
	sortedTablesMask = 0x000016003301FA00
)

// ModuleSpec describes a minimal managed library image for Compose.
type ModuleSpec struct {
	// Name is the assembly name; it also seeds the module version id.
	Name string
	// ModuleName defaults to Name + ".dll".
	ModuleName string
	Version    Version
	Culture    string
	PublicKey  []byte
	// References become AssemblyRef rows in order. Each gets a TypeRef scoped to it.
	References []AssemblyRef
	// Signed sets the strong-name-signed CLI header flag.
	Signed bool
	// CompilerSections follows .text with .rsrc and .reloc sections the way C#
	// compilers lay out a library, which fills the section table up to
	// SizeOfHeaders.
	CompilerSections bool
}

// Compose builds a PE32 library image whose metadata carries a Module,
// Assembly and AssemblyRef rows as described by spec. The image has no IL
// and exists to exercise readers and rewriters without a compiler.
func Compose(spec ModuleSpec) ([]byte, error) {
	if spec.Name == "" {
		return nil, errors.New("compose: assembly name is required")
	}
	moduleName := spec.ModuleName
	if moduleName == "" {
		moduleName = spec.Name + ".dll"
	}

	b := &heapBuilder{strings: []byte{0}, blobs: []byte{0}}
	mvid := sha256.Sum256([]byte(spec.Name + "\x00" + moduleName))

	ts := &tableStream{major: 2, reserved2: 1, sorted: sortedTablesMask}
	ts.rows[tableModule] = [][]uint32{{0, b.str(moduleName), 1, 0, 0}}
	for i, ref := range spec.References {
		ts.rows[tableTypeRef] = append(ts.rows[tableTypeRef], []uint32{
			ciResolutionScope.encode(tableAssemblyRef, uint32(i+1)),
			b.str("Marker"),
			b.str(ref.Name),
		})
	}
	ts.rows[tableTypeDef] = [][]uint32{{0, b.str("<Module>"), 0, 0, 1, 1}}

	var asmFlags uint32
	if len(spec.PublicKey) > 0 {
		asmFlags |= assemblyFlagPubKey
	}
	ts.rows[tableAssembly] = [][]uint32{{
		hashAlgSHA1,
		uint32(spec.Version.Major), uint32(spec.Version.Minor),
		uint32(spec.Version.Build), uint32(spec.Version.Revision),
		asmFlags,
		b.blob(spec.PublicKey),
		b.str(spec.Name),
		b.str(spec.Culture),
	}}
	for _, ref := range spec.References {
		ts.rows[tableAssemblyRef] = append(ts.rows[tableAssemblyRef], []uint32{
			uint32(ref.Version.Major), uint32(ref.Version.Minor),
			uint32(ref.Version.Build), uint32(ref.Version.Revision),
			ref.Flags,
			b.blob(ref.PublicKeyOrToken),
			b.str(ref.Name),
			b.str(ref.Culture),
			b.blob(ref.HashValue),
		})
	}

	guids := mvid[:16]
	root := &metadataRoot{
		major:   1,
		minor:   1,
		version: pad4(append([]byte(runtimeVersion), 0)),
		streams: []*stream{
			{name: streamTables, data: ts.encode(len(b.strings), len(guids), len(b.blobs))},
			{name: streamStrings, data: b.strings},
			{name: streamUserStrings, data: []byte{0}},
			{name: streamGUID, data: guids},
			{name: streamBlob, data: b.blobs},
		},
	}
	meta := root.encode()

	cliFlags := uint32(cliFlagILOnly)
	if spec.Signed {
		cliFlags |= cliFlagStrongNameSigned
	}
	text := make([]byte, cliHeaderLen, cliHeaderLen+len(meta))
	le.PutUint32(text[0:], cliHeaderLen)
	le.PutUint16(text[4:], 2)
	le.PutUint16(text[6:], 5)
	le.PutUint32(text[8:], composeSectionRVA+cliHeaderLen)
	le.PutUint32(text[12:], uint32(len(meta)))
	le.PutUint32(text[16:], cliFlags)
	text = append(text, meta...)

	return composeImage(text, spec.CompilerSections), nil
}

// composeImage wraps text in a PE32 DLL with the CLI header at the start of
// .text. With extra set, .rsrc and .reloc sections follow it.
func composeImage(text []byte, extra bool) []byte {
	type section struct {
		name            string
		data            []byte
		virtualSize     uint32
		characteristics uint32
	}
	sections := []section{{".text", text, uint32(len(text)), 0x60000020}} // code, execute, read
	if extra {
		sections = append(sections,
			section{".rsrc", make([]byte, 0x58), 0x58, 0x40000040},  // initialized data, read
			section{".reloc", make([]byte, 0x0C), 0x0C, 0x42000040}, // initialized data, discardable, read
		)
	}

	headers := uint32(composeFileAlign)
	fileSize, va := headers, uint32(composeSectionRVA)
	type placed struct {
		offset, rva, rawSize uint32
	}
	places := make([]placed, len(sections))
	var initData uint32
	for i, sec := range sections {
		raw := align(uint32(len(sec.data)), composeFileAlign)
		places[i] = placed{offset: fileSize, rva: va, rawSize: raw}
		fileSize += raw
		va = align(va+sec.virtualSize, composeSectionAlign)
		if i > 0 {
			initData += raw
		}
	}
	out := make([]byte, fileSize)

	out[0], out[1] = 'M', 'Z'
	le.PutUint32(out[0x3C:], composeLfanew)
	copy(out[composeLfanew:], "PE\x00\x00")

	coff := composeLfanew + 4
	le.PutUint16(out[coff:], 0x14C) // i386
	le.PutUint16(out[coff+2:], uint16(len(sections)))
	le.PutUint16(out[coff+16:], 224)
	le.PutUint16(out[coff+18:], 0x2102) // executable, 32-bit, DLL

	opt := coff + 20
	le.PutUint16(out[opt:], 0x10B)
	out[opt+2] = 8
	le.PutUint32(out[opt+4:], places[0].rawSize)
	le.PutUint32(out[opt+8:], initData)
	le.PutUint32(out[opt+20:], composeSectionRVA)
	le.PutUint32(out[opt+28:], composeImageBase)
	le.PutUint32(out[opt+32:], composeSectionAlign)
	le.PutUint32(out[opt+36:], composeFileAlign)
	le.PutUint16(out[opt+40:], 4)
	le.PutUint16(out[opt+48:], 4)
	le.PutUint32(out[opt+56:], va)
	le.PutUint32(out[opt+60:], headers)
	le.PutUint16(out[opt+68:], 3) // console subsystem
	le.PutUint16(out[opt+70:], 0x8540)
	le.PutUint32(out[opt+72:], 0x100000)
	le.PutUint32(out[opt+76:], 0x1000)
	le.PutUint32(out[opt+80:], 0x100000)
	le.PutUint32(out[opt+84:], 0x1000)
	le.PutUint32(out[opt+92:], 16)
	dir := opt + 96 + dirCLIHeader*8
	le.PutUint32(out[dir:], composeSectionRVA)
	le.PutUint32(out[dir+4:], cliHeaderLen)

	for i, sec := range sections {
		hdr := opt + 224 + i*sectionHeaderLen
		copy(out[hdr:hdr+8], sec.name)
		le.PutUint32(out[hdr+8:], sec.virtualSize)
		le.PutUint32(out[hdr+12:], places[i].rva)
		le.PutUint32(out[hdr+16:], places[i].rawSize)
		le.PutUint32(out[hdr+20:], places[i].offset)
		le.PutUint32(out[hdr+36:], sec.characteristics)
		copy(out[places[i].offset:], sec.data)
	}
	return out
}

// heapBuilder interns strings and blobs while composing an image.
type heapBuilder struct {
	strings []byte
	blobs   []byte
}

func (b *heapBuilder) str(s string) uint32 {
	if off, ok := findString(b.strings, s); ok {
		return off
	}
	var off uint32
	b.strings, off = appendString(b.strings, s)
	return off
}

func (b *heapBuilder) blob(v []byte) uint32 {
	if off, ok := findBlob(b.blobs, v); ok {
		return off
	}
	var off uint32
	b.blobs, off = appendBlob(b.blobs, v)
	return off
}
