// SPDX-License-Identifier: MPL-2.0

package metadata

import (
	"bytes"
	"errors"
	"fmt"
	"os"
)

const (
	sectionHeaderLen = 40

	// IMAGE_SCN_CNT_INITIALIZED_DATA | IMAGE_SCN_MEM_READ
	metaSectionCharacteristics = 0x40000040
	scnMemDiscardable          = 0x02000000
)

var metaSectionName = [8]byte{'.', 'm', 'e', 't', 'a'}

// Bytes returns the image with the current metadata serialised into it.
// Metadata that still fits its original extent is written in place and
// zero-padded. Larger metadata moves to a new trailing section, or to the
// end of the last section when the header has no free section slot.
func (m *Module) Bytes() ([]byte, error) {
	meta := m.encodeMetadata()
	out := bytes.Clone(m.raw)

	if uint32(len(meta)) <= m.metaSize {
		copy(out[m.metaOffset:], meta)
		clear(out[m.metaOffset+len(meta) : m.metaOffset+int(m.metaSize)])
		le.PutUint32(out[m.cliOffset+12:], uint32(len(meta)))
	} else {
		grown, err := m.appendMetaSection(out, meta)
		if errors.Is(err, ErrNoSectionSpace) {
			grown, err = m.growLastSection(out, meta)
		}
		if err != nil {
			return nil, err
		}
		out = grown
	}

	if le.Uint32(out[m.layout.optOffset+64:]) != 0 {
		le.PutUint32(out[m.layout.optOffset+64:], peChecksum(out, m.layout.optOffset+64))
	}
	return out, nil
}

func (m *Module) appendMetaSection(out, meta []byte) ([]byte, error) {
	l := m.layout
	slot := l.sectionTable + l.numSections*sectionHeaderLen
	limit := int(l.sizeOfHeaders)
	for _, s := range l.sections {
		if s.Size > 0 && int(s.Offset) < limit {
			limit = int(s.Offset)
		}
	}
	if slot+sectionHeaderLen > limit || slot+sectionHeaderLen > len(out) {
		return nil, ErrNoSectionSpace
	}
	for _, b := range out[slot : slot+sectionHeaderLen] {
		if b != 0 {
			return nil, ErrNoSectionSpace
		}
	}

	var va uint32
	for _, s := range l.sections {
		end := align(s.VirtualAddress+max(s.VirtualSize, s.Size), l.sectionAlign)
		va = max(va, end)
	}
	fileOffset := align(uint32(len(out)), l.fileAlign)
	rawSize := align(uint32(len(meta)), l.fileAlign)

	out = append(out, make([]byte, int(fileOffset)-len(out))...)
	out = append(out, meta...)
	out = append(out, make([]byte, int(rawSize)-len(meta))...)

	hdr := out[slot : slot+sectionHeaderLen]
	copy(hdr[0:8], metaSectionName[:])
	le.PutUint32(hdr[8:], uint32(len(meta)))
	le.PutUint32(hdr[12:], va)
	le.PutUint32(hdr[16:], rawSize)
	le.PutUint32(hdr[20:], fileOffset)
	le.PutUint32(hdr[36:], metaSectionCharacteristics)

	coff := l.optOffset - 20
	le.PutUint16(out[coff+2:], uint16(l.numSections+1))
	le.PutUint32(out[l.optOffset+8:], le.Uint32(out[l.optOffset+8:])+rawSize)
	le.PutUint32(out[l.optOffset+56:], align(va+uint32(len(meta)), l.sectionAlign))

	le.PutUint32(out[m.cliOffset+8:], va)
	le.PutUint32(out[m.cliOffset+12:], uint32(len(meta)))
	return out, nil
}

// growLastSection appends meta to the section with the highest RVA and
// points the CLI header at it. The section must end the file; trailing data
// such as an Authenticode certificate would otherwise be overwritten.
func (m *Module) growLastSection(out, meta []byte) ([]byte, error) {
	l := m.layout
	if len(l.sections) == 0 {
		return nil, ErrNoSectionSpace
	}
	last := 0
	for i, s := range l.sections {
		if s.VirtualAddress > l.sections[last].VirtualAddress {
			last = i
		}
	}
	s := l.sections[last]
	if s.Size == 0 || int(s.Offset+s.Size) != len(out) {
		return nil, ErrNoSectionSpace
	}

	// File and virtual offsets inside a section move together, so the new
	// data starts past both the raw and the virtual extent.
	delta := align(max(s.VirtualSize, s.Size), 4)
	virtualSize := delta + uint32(len(meta))
	rawSize := align(virtualSize, l.fileAlign)

	out = append(out, make([]byte, int(s.Offset+delta)-len(out))...)
	out = append(out, meta...)
	out = append(out, make([]byte, int(s.Offset+rawSize)-len(out))...)

	hdr := out[l.sectionTable+last*sectionHeaderLen:]
	le.PutUint32(hdr[8:], virtualSize)
	le.PutUint32(hdr[16:], rawSize)
	chars := le.Uint32(hdr[36:])
	le.PutUint32(hdr[36:], chars&^scnMemDiscardable|metaSectionCharacteristics)

	le.PutUint32(out[l.optOffset+8:], le.Uint32(out[l.optOffset+8:])+rawSize-s.Size)
	le.PutUint32(out[l.optOffset+56:], align(s.VirtualAddress+virtualSize, l.sectionAlign))

	le.PutUint32(out[m.cliOffset+8:], s.VirtualAddress+delta)
	le.PutUint32(out[m.cliOffset+12:], uint32(len(meta)))
	return out, nil
}

// peChecksum computes the PE image checksum with the checksum field itself
// treated as zero.
func peChecksum(b []byte, checksumOffset int) uint32 {
	var sum uint64
	for i := 0; i < len(b); i += 2 {
		if i == checksumOffset || i == checksumOffset+2 {
			continue
		}
		var w uint64
		if i+1 < len(b) {
			w = uint64(le.Uint16(b[i:]))
		} else {
			w = uint64(b[i])
		}
		sum += w
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	sum = (sum & 0xFFFF) + (sum >> 16)
	return uint32(sum) + uint32(len(b))
}

// Save writes the module to path through a temporary file and rename. The
// destination keeps its file mode when it already exists. After a successful
// save the module reflects the written image and reports itself unmodified.
func (m *Module) Save(path string) error {
	out, err := m.Bytes()
	if err != nil {
		return err
	}
	fresh, err := Parse(out)
	if err != nil {
		return fmt.Errorf("re-reading patched image: %w", err)
	}

	mode := os.FileMode(0o644)
	if fi, statErr := os.Stat(path); statErr == nil {
		mode = fi.Mode().Perm()
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, out, mode); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath) // Best-effort cleanup
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	fresh.path = path
	*m = *fresh
	return nil
}
