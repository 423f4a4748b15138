package ivm

import "testing"

// TestEncodedLenMatchesCompile is the fetch-invariant check: the number of
// bytes Compile appends for an instruction must equal what Step would skip
// over while decoding it, which EncodedLen computes independently.
func TestEncodedLenMatchesCompile(t *testing.T) {
	opts := DefaultProgramOptions()
	instrs := []Instruction{
		Jump(10),
		Push(NewLocalRead([]byte("abc"))),
		Mutate(5, NewPointRead(4, 0)),
		ExternCall(2),
		Return(),
		Call(20),
		LoadA(NewLocalRead([]byte("xy"))),
	}

	for _, instr := range instrs {
		got := Compile(instr, opts, nil)
		want := EncodedLen(instr, opts.PtrLen())
		assert(t, len(got) == want, "opcode %s: Compile emitted %d bytes, EncodedLen predicted %d", instr.Op(), len(got), want)
	}
}

func TestCompileAllConcatenates(t *testing.T) {
	opts := DefaultProgramOptions()
	instrs := []Instruction{Return(), Return(), Return()}
	out := CompileAll(instrs, opts)
	assert(t, len(out) == 3, "expected 3 single-byte Return encodings, got %d bytes", len(out))
	for _, b := range out {
		assert(t, Opcode(b) == IReturn, "expected every byte to be IReturn")
	}
}

func TestWriteProgramPrependsHeader(t *testing.T) {
	opts := DefaultProgramOptions()
	instrs := []Instruction{Return()}
	blob := WriteProgram(instrs, opts, uint64(cfv1HeaderLen))

	adapter, err := GetProgramOptions(blob)
	assert(t, err == nil, "unexpected header decode error: %v", err)
	assert(t, adapter.EntryOffset == uint64(cfv1HeaderLen), "expected entry offset %d, got %d", cfv1HeaderLen, adapter.EntryOffset)
	assert(t, Opcode(blob[adapter.EntryOffset]) == IReturn, "expected body to start with IReturn")
}
