package ivm

import "encoding/binary"

// PointerWidth is the encoded width of a memory index, little endian
// throughout. It governs how wide every operand index, length, and extern
// call id is in a compiled program.
type PointerWidth byte

const (
	// X32b is a 4-byte pointer width. Programs using it can address at most
	// 4 GiB of memory pool and produce smaller bytecode.
	X32b PointerWidth = iota
	// X64b is an 8-byte pointer width.
	X64b
)

// Span returns the number of bytes this pointer width occupies on the wire.
func (p PointerWidth) Span() int {
	switch p {
	case X32b:
		return 4
	case X64b:
		return 8
	default:
		panic("ivm: unrecognized pointer width")
	}
}

// Fit little-endian encodes index, truncated to Span() bytes. Callers must
// ensure index fits in Span() bytes; the emitter passes instruction operands
// through unchecked, so this applies to its callers too.
func (p PointerWidth) Fit(index uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, index)
	return buf[:p.Span()]
}

// Extract little-endian decodes Span() bytes from pool starting at offset.
// Panics if the slice would run out of bounds, matching the rest of the
// engine's "structural faults are fatal" posture for malformed bytecode.
func (p PointerWidth) Extract(offset int, pool []byte) uint64 {
	span := p.Span()
	buf := pool[offset : offset+span]
	switch p {
	case X32b:
		return uint64(binary.LittleEndian.Uint32(buf))
	case X64b:
		return binary.LittleEndian.Uint64(buf)
	default:
		panic("ivm: unrecognized pointer width")
	}
}

// ByteID is this pointer width's single-byte header tag: 0 for X32b, 1 for
// X64b.
func (p PointerWidth) ByteID() byte {
	return byte(p)
}

// PointerWidthFromByteID maps a header tag back to a PointerWidth. Any byte
// other than 0 or 1 is an UnrecognizedValue header error.
func PointerWidthFromByteID(b byte) (PointerWidth, bool) {
	switch b {
	case 0:
		return X32b, true
	case 1:
		return X64b, true
	default:
		return 0, false
	}
}

func (p PointerWidth) String() string {
	switch p {
	case X32b:
		return "x32b"
	case X64b:
		return "x64b"
	default:
		return "?unknown?"
	}
}
