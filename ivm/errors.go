package ivm

import "errors"

// Execution-time structural faults. The reference implementation treats
// these as guest-program bugs: fatal to the run, but surfaced as an error
// return from ContinueExecution rather than a panic, per the more
// defensive posture of returning rather than panicking. Compare with errors.Is.
var (
	errUnknownOpcode = errors.New("ivm: unrecognized opcode")
	errUnknownReadOp = errors.New("ivm: unrecognized read-operation tag")
	errOutOfBounds   = errors.New("ivm: out of bounds memory pool access")
)

// ErrUnknownOpcode is returned when the fetch/decode loop encounters a byte
// that isn't one of the defined opcodes.
var ErrUnknownOpcode = errUnknownOpcode

// ErrUnknownReadOp is returned when a ReadOperation's tag byte is neither
// Local (0) nor Point (1).
var ErrUnknownReadOp = errUnknownReadOp

// ErrOutOfBounds is returned when resolving a read-operation, a mutate
// destination, or a pointer operand would read or write past the memory
// pool's bounds.
var ErrOutOfBounds = errOutOfBounds
