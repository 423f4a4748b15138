package ivm

import "encoding/binary"

// cfv1HeaderLen is the header size of compile-feature version 1:
//
//	[0..4)  cfv          : u32 little-endian
//	[4]     ptr_len_tag  : u8
//	[5..13) entry_offset : u64 little-endian
const cfv1HeaderLen = 13

// HeaderAdapter is the result of successfully decoding a bytecode header:
// the ProgramOptions it describes, the number of bytes the header occupied,
// and the execution index the first instruction starts at.
type HeaderAdapter struct {
	Options     ProgramOptions
	HeaderLen   int
	EntryOffset uint64
}

// tryRetrieveCFV1 decodes a CFV 1 header from the front of bytes.
func tryRetrieveCFV1(bytes []byte) (HeaderAdapter, error) {
	if len(bytes) < cfv1HeaderLen {
		return HeaderAdapter{}, newHeaderError(FormatNotFulfilled, "header input too short")
	}

	cfv := binary.LittleEndian.Uint32(bytes[0:4])

	ptrLen, ok := PointerWidthFromByteID(bytes[4])
	if !ok {
		return HeaderAdapter{}, newHeaderError(UnrecognizedValue, "unrecognized memory pointer length")
	}

	entryOffset := binary.LittleEndian.Uint64(bytes[5:13])

	return HeaderAdapter{
		Options:     NewProgramOptions(cfv, ptrLen),
		HeaderLen:   cfv1HeaderLen,
		EntryOffset: entryOffset,
	}, nil
}

// GetProgramOptions decodes the header at the front of bytes, dispatching on
// the leading compile-feature version. CFV 1 is supported indefinitely; any
// other version is an UnrecognizedValue error. This function is the only
// place that needs to grow a case when a new CFV is introduced.
func GetProgramOptions(bytes []byte) (HeaderAdapter, error) {
	if len(bytes) < 4 {
		return HeaderAdapter{}, newHeaderError(FormatNotFulfilled, "header input too short")
	}
	switch binary.LittleEndian.Uint32(bytes[0:4]) {
	case 1:
		return tryRetrieveCFV1(bytes)
	default:
		return HeaderAdapter{}, newHeaderError(UnrecognizedValue, "unrecognized compile-feature version")
	}
}

// EncodeHeader serializes options plus an entry offset into the CFV 1 header
// format. Programs with a non-default entry offset (e.g. ivm_ext_x32's
// reserved register region) pass it explicitly.
func EncodeHeader(options ProgramOptions, entryOffset uint64) []byte {
	header := make([]byte, cfv1HeaderLen)
	binary.LittleEndian.PutUint32(header[0:4], options.cfv)
	header[4] = options.ptrLen.ByteID()
	binary.LittleEndian.PutUint64(header[5:13], entryOffset)
	return header
}
