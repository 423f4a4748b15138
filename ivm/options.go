package ivm

import "fmt"

// CCFV is the current compile-feature version of this build.
//
// The compile-feature version is incremented whenever a new feature is
// added to the bytecode format, or an existing encoding changes. The VM is
// backwards compatible between CFV changes, but forward compatibility is
// never guaranteed.
const CCFV uint32 = 1

// ProgramOptions is the header record every IVM program starts with: a
// compile-feature version and the pointer width operands are encoded with.
type ProgramOptions struct {
	cfv    uint32
	ptrLen PointerWidth
}

// NewProgramOptions builds a ProgramOptions from an explicit cfv and pointer
// width. Most callers compiling fresh programs want DefaultProgramOptions
// instead.
func NewProgramOptions(cfv uint32, ptrLen PointerWidth) ProgramOptions {
	return ProgramOptions{cfv: cfv, ptrLen: ptrLen}
}

// DefaultProgramOptions returns CCFV paired with a 32-bit pointer width.
func DefaultProgramOptions() ProgramOptions {
	return NewProgramOptions(CCFV, X32b)
}

// CFV returns the compile-feature version this program was compiled on.
func (o ProgramOptions) CFV() uint32 { return o.cfv }

// PtrLen returns the pointer width this program's operands are encoded
// with.
func (o ProgramOptions) PtrLen() PointerWidth { return o.ptrLen }

// HeaderCause distinguishes the two ways a bytecode header can fail to
// decode.
type HeaderCause int

const (
	// FormatNotFulfilled means the input was too short to contain a full
	// header.
	FormatNotFulfilled HeaderCause = iota
	// UnrecognizedValue means a header field's value isn't one this build
	// understands, e.g. an unknown pointer-width tag.
	UnrecognizedValue
)

func (c HeaderCause) String() string {
	switch c {
	case FormatNotFulfilled:
		return "the header format was not fulfilled"
	case UnrecognizedValue:
		return "an unrecognized value was encountered"
	default:
		return "unknown header cause"
	}
}

// Help returns human-readable hints to attach to an InvalidHeaderError of
// this cause.
func (c HeaderCause) Help() []string {
	const docHelp = "see the CFV1 header layout documented on cfv1HeaderLen in header.go"
	switch c {
	case UnrecognizedValue:
		return []string{"this bytecode input may have been compiled by a later version of ivm", docHelp}
	default:
		return []string{docHelp}
	}
}

// InvalidHeaderError is returned when a bytecode input's header does not
// meet the official IVM header format. It is a structured error (cause +
// message), not a panic: header decoding is the one stage of loading a
// program where a malformed input is expected to be handled gracefully by
// the host.
type InvalidHeaderError struct {
	Cause   HeaderCause
	Message string
}

func (e *InvalidHeaderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Cause, e.Message)
}

func newHeaderError(cause HeaderCause, message string) *InvalidHeaderError {
	return &InvalidHeaderError{Cause: cause, Message: message}
}
