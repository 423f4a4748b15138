package ivm

// Compile serializes a single instruction, appending its bytes to dest and
// returning the extended slice. Every instruction is written as
// [opcode] ‖ encoded_operands.
func Compile(instr Instruction, options ProgramOptions, dest []byte) []byte {
	ptrLen := options.PtrLen()
	dest = append(dest, byte(instr.op))

	switch instr.op {
	case IJump:
		dest = append(dest, ptrLen.Fit(instr.ptrArg)...)
	case IPush:
		dest = instr.readOp.encode(dest, ptrLen)
	case IMutate:
		dest = append(dest, ptrLen.Fit(instr.mutateDest)...)
		dest = instr.readOp.encode(dest, ptrLen)
	case IExternCall:
		dest = append(dest, ptrLen.Fit(instr.ptrArg)...)
	case IReturn:
		// no operands
	case ICall:
		dest = append(dest, ptrLen.Fit(instr.ptrArg)...)
	case ILoadA:
		dest = instr.readOp.encode(dest, ptrLen)
	default:
		panic("ivm: unrecognized opcode during compile")
	}

	return dest
}

// CompileAll concatenates the per-instruction encoding of every instruction
// in instrs. It does not emit a header — callers wanting a complete program
// blob prepend EncodeHeader's output themselves (see WriteProgram).
func CompileAll(instrs []Instruction, options ProgramOptions) []byte {
	var out []byte
	for _, instr := range instrs {
		out = Compile(instr, options, out)
	}
	return out
}

// EncodedLen returns exactly how many bytes Compile would append for instr,
// without allocating. Used by tests asserting the fetch invariant (skip
// accounting matches emission).
func EncodedLen(instr Instruction, ptrLen PointerWidth) int {
	span := ptrLen.Span()
	switch instr.op {
	case IJump, IExternCall, ICall:
		return 1 + span
	case IReturn:
		return 1
	case IPush, ILoadA:
		return 1 + instr.readOp.encodedLen(ptrLen)
	case IMutate:
		return 1 + span + instr.readOp.encodedLen(ptrLen)
	default:
		panic("ivm: unrecognized opcode during length accounting")
	}
}

// WriteProgram prepends a CFV1 header to a compiled instruction body,
// producing a complete loadable program. entryOffset is where the body
// begins within the eventual memory pool (typically len(header), but
// callers loading into a pool with a reserved register region at the front,
// like ivm_ext_x32, pass a larger offset).
func WriteProgram(instrs []Instruction, options ProgramOptions, entryOffset uint64) []byte {
	body := CompileAll(instrs, options)
	header := EncodeHeader(options, entryOffset)
	return append(header, body...)
}
