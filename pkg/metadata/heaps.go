// SPDX-License-Identifier: MPL-2.0

package metadata

import (
	"bytes"
	"encoding/binary"
)

// readString returns the NUL-terminated UTF-8 string at offset in the #Strings heap.
func readString(heap []byte, offset uint32) (string, error) {
	if offset == 0 {
		return "", nil
	}
	if int(offset) >= len(heap) {
		return "", malformed("string offset %#x outside #Strings heap (%d bytes)", offset, len(heap))
	}
	end := bytes.IndexByte(heap[offset:], 0)
	if end < 0 {
		return "", malformed("unterminated string at offset %#x", offset)
	}
	return string(heap[offset : int(offset)+end]), nil
}

// findString returns an offset in heap whose NUL-terminated content equals s.
// Suffix matches are valid; metadata writers share string tails routinely.
func findString(heap []byte, s string) (uint32, bool) {
	if s == "" {
		return 0, true
	}
	needle := make([]byte, 0, len(s)+1)
	needle = append(needle, s...)
	needle = append(needle, 0)
	pos := bytes.Index(heap, needle)
	if pos <= 0 {
		return 0, false
	}
	return uint32(pos), true
}

// readBlob returns the blob at offset in the #Blob heap.
func readBlob(heap []byte, offset uint32) ([]byte, error) {
	if offset == 0 {
		return nil, nil
	}
	if int(offset) >= len(heap) {
		return nil, malformed("blob offset %#x outside #Blob heap (%d bytes)", offset, len(heap))
	}
	n, hdr, err := decodeCompressed(heap[offset:])
	if err != nil {
		return nil, err
	}
	start := int(offset) + hdr
	end := start + int(n)
	if end > len(heap) {
		return nil, malformed("blob at offset %#x overruns #Blob heap", offset)
	}
	out := make([]byte, n)
	copy(out, heap[start:end])
	return out, nil
}

// findBlob returns an offset in heap holding a blob equal to b.
func findBlob(heap, b []byte) (uint32, bool) {
	if len(b) == 0 {
		return 0, true
	}
	for off := 1; off < len(heap); {
		n, hdr, err := decodeCompressed(heap[off:])
		if err != nil {
			return 0, false
		}
		end := off + hdr + int(n)
		if end > len(heap) {
			return 0, false
		}
		if bytes.Equal(heap[off+hdr:end], b) {
			return uint32(off), true
		}
		off = end
	}
	return 0, false
}

// readGUID returns the 1-based GUID entry of the #GUID heap.
func readGUID(heap []byte, index uint32) ([16]byte, error) {
	var g [16]byte
	if index == 0 {
		return g, nil
	}
	start := int(index-1) * 16
	if start+16 > len(heap) {
		return g, malformed("GUID index %d outside #GUID heap", index)
	}
	copy(g[:], heap[start:start+16])
	return g, nil
}

// decodeCompressed decodes an ECMA-335 compressed unsigned integer (II.23.2).
func decodeCompressed(b []byte) (value uint32, size int, err error) {
	if len(b) == 0 {
		return 0, 0, malformed("truncated compressed integer")
	}
	switch {
	case b[0]&0x80 == 0:
		return uint32(b[0]), 1, nil
	case b[0]&0xC0 == 0x80:
		if len(b) < 2 {
			return 0, 0, malformed("truncated compressed integer")
		}
		return uint32(b[0]&0x3F)<<8 | uint32(b[1]), 2, nil
	case b[0]&0xE0 == 0xC0:
		if len(b) < 4 {
			return 0, 0, malformed("truncated compressed integer")
		}
		return uint32(b[0]&0x1F)<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), 4, nil
	}
	return 0, 0, malformed("invalid compressed integer lead byte %#x", b[0])
}

// appendCompressed appends v as an ECMA-335 compressed unsigned integer.
func appendCompressed(dst []byte, v uint32) []byte {
	switch {
	case v < 0x80:
		return append(dst, byte(v))
	case v < 0x4000:
		return append(dst, byte(v>>8)|0x80, byte(v))
	default:
		return append(dst, byte(v>>24)|0xC0, byte(v>>16), byte(v>>8), byte(v))
	}
}

// appendString appends s to a #Strings heap, returning the grown heap and the
// new offset. Existing bytes, padding included, are never reused because rows
// may point at any of them.
func appendString(heap []byte, s string) ([]byte, uint32) {
	if len(heap) == 0 {
		heap = []byte{0}
	}
	off := uint32(len(heap))
	heap = append(heap, s...)
	heap = append(heap, 0)
	return heap, off
}

// appendBlob appends b to a #Blob heap, returning the grown heap and the new offset.
func appendBlob(heap, b []byte) ([]byte, uint32) {
	if len(heap) == 0 {
		heap = []byte{0}
	}
	off := uint32(len(heap))
	heap = appendCompressed(heap, uint32(len(b)))
	heap = append(heap, b...)
	return heap, off
}

// pad4 returns b zero-padded to a multiple of four bytes.
func pad4(b []byte) []byte {
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}

// align rounds v up to a multiple of a (a power of two).
func align(v, a uint32) uint32 {
	if a == 0 {
		return v
	}
	return (v + a - 1) &^ (a - 1)
}

var le = binary.LittleEndian
