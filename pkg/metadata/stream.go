// SPDX-License-Identifier: MPL-2.0

package metadata

import (
	"bytes"
	"math/bits"
)

const (
	metadataSignature = 0x424A5342 // "BSJB"

	streamTables      = "#~"
	streamTablesUnopt = "#-"
	streamStrings     = "#Strings"
	streamUserStrings = "#US"
	streamGUID        = "#GUID"
	streamBlob        = "#Blob"
)

type (
	// metadataRoot is the decoded metadata root (II.24.2.1). Stream payloads
	// are private copies so heaps can grow without touching the source image.
	metadataRoot struct {
		major    uint16
		minor    uint16
		reserved uint32
		version  []byte // length-padded version string as stored
		flags    uint16
		streams  []*stream
	}

	stream struct {
		name string
		data []byte
	}

	// tableStream is the decoded #~ (or #-) stream (II.24.2.6).
	tableStream struct {
		reserved  uint32
		major     uint8
		minor     uint8
		heapSizes uint8
		reserved2 uint8
		valid     uint64
		sorted    uint64
		extra     uint32
		rows      [numTables][][]uint32
	}
)

func parseRoot(b []byte) (*metadataRoot, error) {
	if len(b) < 20 {
		return nil, malformed("metadata root truncated (%d bytes)", len(b))
	}
	if le.Uint32(b) != metadataSignature {
		return nil, malformed("bad metadata signature %#x", le.Uint32(b))
	}
	r := &metadataRoot{
		major:    le.Uint16(b[4:]),
		minor:    le.Uint16(b[6:]),
		reserved: le.Uint32(b[8:]),
	}
	vlen := int(le.Uint32(b[12:]))
	pos := 16 + vlen
	if vlen < 0 || pos+4 > len(b) {
		return nil, malformed("metadata version string overruns root")
	}
	r.version = append([]byte(nil), b[16:pos]...)
	r.flags = le.Uint16(b[pos:])
	count := int(le.Uint16(b[pos+2:]))
	pos += 4

	for range count {
		if pos+8 > len(b) {
			return nil, malformed("stream header truncated")
		}
		off := le.Uint32(b[pos:])
		size := le.Uint32(b[pos+4:])
		pos += 8
		end := bytes.IndexByte(b[pos:], 0)
		if end < 0 || end > 32 {
			return nil, malformed("stream name unterminated")
		}
		name := string(b[pos : pos+end])
		pos += int(align(uint32(end+1), 4))
		if uint64(off)+uint64(size) > uint64(len(b)) {
			return nil, malformed("stream %s overruns metadata (%d+%d > %d)", name, off, size, len(b))
		}
		r.streams = append(r.streams, &stream{
			name: name,
			data: append([]byte(nil), b[off:off+size]...),
		})
	}
	return r, nil
}

// stream returns the named stream, or nil.
func (r *metadataRoot) stream(name string) *stream {
	for _, s := range r.streams {
		if s.name == name {
			return s
		}
	}
	return nil
}

// tableStream returns the compressed or uncompressed table stream.
func (r *metadataRoot) tableStream() *stream {
	if s := r.stream(streamTables); s != nil {
		return s
	}
	return r.stream(streamTablesUnopt)
}

// heap returns the payload of the named heap; missing heaps are empty.
func (r *metadataRoot) heap(name string) []byte {
	if s := r.stream(name); s != nil {
		return s.data
	}
	return nil
}

// setHeap replaces the payload of the named heap, adding the stream if needed.
func (r *metadataRoot) setHeap(name string, data []byte) {
	if s := r.stream(name); s != nil {
		s.data = data
		return
	}
	r.streams = append(r.streams, &stream{name: name, data: data})
}

// encode serialises the root with every stream payload padded to four bytes.
func (r *metadataRoot) encode() []byte {
	headerLen := 16 + len(r.version) + 4
	for _, s := range r.streams {
		headerLen += 8 + int(align(uint32(len(s.name)+1), 4))
	}

	out := make([]byte, 0, headerLen+r.payloadLen())
	out = le.AppendUint32(out, metadataSignature)
	out = le.AppendUint16(out, r.major)
	out = le.AppendUint16(out, r.minor)
	out = le.AppendUint32(out, r.reserved)
	out = le.AppendUint32(out, uint32(len(r.version)))
	out = append(out, r.version...)
	out = le.AppendUint16(out, r.flags)
	out = le.AppendUint16(out, uint16(len(r.streams)))

	offset := uint32(headerLen)
	for _, s := range r.streams {
		size := align(uint32(len(s.data)), 4)
		out = le.AppendUint32(out, offset)
		out = le.AppendUint32(out, size)
		name := append([]byte(s.name), 0)
		out = append(out, pad4(name)...)
		offset += size
	}
	for _, s := range r.streams {
		out = append(out, pad4(append([]byte(nil), s.data...))...)
	}
	return out
}

func (r *metadataRoot) payloadLen() int {
	n := 0
	for _, s := range r.streams {
		n += int(align(uint32(len(s.data)), 4))
	}
	return n
}

func parseTables(b []byte) (*tableStream, error) {
	if len(b) < 24 {
		return nil, malformed("table stream header truncated")
	}
	ts := &tableStream{
		reserved:  le.Uint32(b),
		major:     b[4],
		minor:     b[5],
		heapSizes: b[6],
		reserved2: b[7],
		valid:     le.Uint64(b[8:]),
		sorted:    le.Uint64(b[16:]),
	}
	if ts.valid>>numTables != 0 {
		return nil, malformed("unsupported metadata tables present (valid mask %#x)", ts.valid)
	}

	sizes := indexSizes{heapSizes: ts.heapSizes}
	pos := 24
	for t := range tableID(numTables) {
		if ts.valid&(1<<t) == 0 {
			continue
		}
		if pos+4 > len(b) {
			return nil, malformed("row counts truncated")
		}
		sizes.rows[t] = le.Uint32(b[pos:])
		pos += 4
	}
	if ts.heapSizes&heapExtraData != 0 {
		if pos+4 > len(b) {
			return nil, malformed("extra data truncated")
		}
		ts.extra = le.Uint32(b[pos:])
		pos += 4
	}

	for t := range tableID(numTables) {
		n := sizes.rows[t]
		if n == 0 {
			continue
		}
		rowSize := sizes.rowSize(t)
		if uint64(pos)+uint64(n)*uint64(rowSize) > uint64(len(b)) {
			return nil, malformed("table %#x overruns table stream", uint8(t))
		}
		rows := make([][]uint32, n)
		for i := range rows {
			row := make([]uint32, len(schema[t]))
			for c, col := range schema[t] {
				if sizes.size(col) == 2 {
					row[c] = uint32(le.Uint16(b[pos:]))
					pos += 2
				} else {
					row[c] = le.Uint32(b[pos:])
					pos += 4
				}
			}
			rows[i] = row
		}
		ts.rows[t] = rows
	}
	return ts, nil
}

// encode serialises the table stream. Heap index widths are widened when the
// supplied heap lengths require it and are never narrowed.
func (ts *tableStream) encode(stringsLen, guidLen, blobLen int) []byte {
	if stringsLen >= 1<<16 {
		ts.heapSizes |= heapStringsWide
	}
	if guidLen/16 >= 1<<16 {
		ts.heapSizes |= heapGUIDWide
	}
	if blobLen >= 1<<16 {
		ts.heapSizes |= heapBlobWide
	}

	sizes := indexSizes{heapSizes: ts.heapSizes}
	for t := range tableID(numTables) {
		sizes.rows[t] = uint32(len(ts.rows[t]))
		if len(ts.rows[t]) > 0 {
			ts.valid |= 1 << t
		}
	}

	out := make([]byte, 0, 24+4*bits.OnesCount64(ts.valid))
	out = le.AppendUint32(out, ts.reserved)
	out = append(out, ts.major, ts.minor, ts.heapSizes, ts.reserved2)
	out = le.AppendUint64(out, ts.valid)
	out = le.AppendUint64(out, ts.sorted)
	for t := range tableID(numTables) {
		if ts.valid&(1<<t) != 0 {
			out = le.AppendUint32(out, sizes.rows[t])
		}
	}
	if ts.heapSizes&heapExtraData != 0 {
		out = le.AppendUint32(out, ts.extra)
	}
	for t := range tableID(numTables) {
		for _, row := range ts.rows[t] {
			for c, col := range schema[t] {
				if sizes.size(col) == 2 {
					out = le.AppendUint16(out, uint16(row[c]))
				} else {
					out = le.AppendUint32(out, row[c])
				}
			}
		}
	}
	return pad4(out)
}
