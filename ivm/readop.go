package ivm

// readOpTag identifies which ReadOperation variant follows in the bytecode
// stream.
type readOpTag byte

const (
	rdopLocal readOpTag = 0
	rdopPoint readOpTag = 1
)

// ReadOperation describes where an instruction's operand bytes come from:
// either inlined directly in the bytecode stream (Local), or read out of the
// memory pool at a given index (Point).
type ReadOperation struct {
	// isPoint distinguishes Local from Point without an exported tag field;
	// use NewLocalRead / NewPointRead to construct one.
	isPoint bool
	local   []byte
	length  uint64
	index   uint64
}

// NewLocalRead builds a ReadOperation that resolves to raw, inline bytes.
func NewLocalRead(raw []byte) ReadOperation {
	return ReadOperation{local: raw}
}

// NewPointRead builds a ReadOperation that resolves to mem_pool[idx : idx+length].
func NewPointRead(length, index uint64) ReadOperation {
	return ReadOperation{isPoint: true, length: length, index: index}
}

// encode writes this read-operation's tag and operand bytes to dest, using
// ptrLen for every length and index field.
func (r ReadOperation) encode(dest []byte, ptrLen PointerWidth) []byte {
	if r.isPoint {
		dest = append(dest, byte(rdopPoint))
		dest = append(dest, ptrLen.Fit(r.length)...)
		dest = append(dest, ptrLen.Fit(r.index)...)
		return dest
	}
	dest = append(dest, byte(rdopLocal))
	dest = append(dest, ptrLen.Fit(uint64(len(r.local)))...)
	dest = append(dest, r.local...)
	return dest
}

// encodedLen returns exactly how many bytes encode would append, without
// allocating.
func (r ReadOperation) encodedLen(ptrLen PointerWidth) int {
	span := ptrLen.Span()
	if r.isPoint {
		return 1 + 2*span
	}
	return 1 + span + len(r.local)
}

// resolveReadOperation decodes a ReadOperation starting at offset in pool
// and returns the resolved bytes along with the number of bytes consumed
// from the stream, so callers can advance their own index by exactly that
// much.
//
// The returned slice aliases pool for Point reads and is a fresh copy for
// Local reads (the inline bytes live in the instruction stream itself, which
// is also pool-backed, so aliasing would be just as safe, but callers are
// entitled to assume a Local's bytes remain stable even if the pool is later
// mutated at that address).
func resolveReadOperation(pool []byte, offset int, ptrLen PointerWidth) (data []byte, consumed int, err error) {
	if offset >= len(pool) {
		return nil, 0, errOutOfBounds
	}

	tag := readOpTag(pool[offset])
	span := ptrLen.Span()

	switch tag {
	case rdopLocal:
		lenOff := offset + 1
		if lenOff+span > len(pool) {
			return nil, 0, errOutOfBounds
		}
		length := int(ptrLen.Extract(lenOff, pool))

		dataOff := lenOff + span
		if dataOff+length > len(pool) {
			return nil, 0, errOutOfBounds
		}

		raw := make([]byte, length)
		copy(raw, pool[dataOff:dataOff+length])
		return raw, 1 + span + length, nil

	case rdopPoint:
		lenOff := offset + 1
		idxOff := lenOff + span
		if idxOff+span > len(pool) {
			return nil, 0, errOutOfBounds
		}
		length := int(ptrLen.Extract(lenOff, pool))
		index := int(ptrLen.Extract(idxOff, pool))

		if index+length > len(pool) || index < 0 {
			return nil, 0, errOutOfBounds
		}

		return pool[index : index+length], 1 + 2*span, nil

	default:
		return nil, 0, errUnknownReadOp
	}
}
