package ivm

import (
	"fmt"
	"strings"
)

// DisassembleBody renders every instruction in pool starting at offset as
// one line of text per instruction, in the form:
//
//	<offset>: <mnemonic> <operands>
//
// It stops at the end of pool or at the first decode error, ending the
// listing in the latter case with a line whose operands read
// "<decode error: <err>>" (or "<unrecognized opcode N>") rather than
// returning an error itself — a disassembly is diagnostic output, and a
// partial listing followed by the failure point is more useful than
// nothing.
func DisassembleBody(pool []byte, offset int, ptrLen PointerWidth) string {
	var b strings.Builder
	span := ptrLen.Span()

	for offset < len(pool) {
		start := offset
		op := Opcode(pool[offset])
		offset++

		fmt.Fprintf(&b, "%06d: ", start)

		switch op {
		case IJump:
			target, err := readPtrAt(pool, offset, span, ptrLen)
			if err != nil {
				fmt.Fprintf(&b, "jump <decode error: %v>\n", err)
				return b.String()
			}
			fmt.Fprintf(&b, "jump %d\n", target)
			offset += span

		case IPush, IMutate, ILoadA:
			var dest uint64
			hasDest := op == IMutate
			if hasDest {
				var err error
				dest, err = readPtrAt(pool, offset, span, ptrLen)
				if err != nil {
					fmt.Fprintf(&b, "%s <decode error: %v>\n", op, err)
					return b.String()
				}
				offset += span
			}

			rd, consumed, err := resolveReadOperation(pool, offset, ptrLen)
			if err != nil {
				fmt.Fprintf(&b, "%s <decode error: %v>\n", op, err)
				return b.String()
			}
			offset += consumed

			if hasDest {
				fmt.Fprintf(&b, "mutate %d <- %s\n", dest, formatReadOpBytes(rd))
			} else {
				fmt.Fprintf(&b, "%s %s\n", op, formatReadOpBytes(rd))
			}

		case IExternCall:
			id, err := readPtrAt(pool, offset, span, ptrLen)
			if err != nil {
				fmt.Fprintf(&b, "extern_call <decode error: %v>\n", err)
				return b.String()
			}
			fmt.Fprintf(&b, "extern_call %d\n", id)
			offset += span

		case IReturn:
			fmt.Fprintf(&b, "return\n")

		case ICall:
			target, err := readPtrAt(pool, offset, span, ptrLen)
			if err != nil {
				fmt.Fprintf(&b, "call <decode error: %v>\n", err)
				return b.String()
			}
			fmt.Fprintf(&b, "call %d\n", target)
			offset += span

		default:
			fmt.Fprintf(&b, "<unrecognized opcode %d>\n", op)
			return b.String()
		}
	}

	return b.String()
}

// readPtrAt is disasm's own bounds-checked pointer read, independent of
// VmInstance so a disassembler can run over an arbitrary byte slice without
// constructing a VM.
func readPtrAt(pool []byte, offset, span int, ptrLen PointerWidth) (uint64, error) {
	if offset+span > len(pool) {
		return 0, errOutOfBounds
	}
	return ptrLen.Extract(offset, pool), nil
}

// formatReadOpBytes renders a resolved read-operation's bytes for display,
// truncating long runs so one instruction never dominates the listing.
func formatReadOpBytes(data []byte) string {
	const maxShown = 16
	if len(data) <= maxShown {
		return fmt.Sprintf("%x", data)
	}
	return fmt.Sprintf("%x...(%d bytes)", data[:maxShown], len(data))
}
