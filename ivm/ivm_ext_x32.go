package ivm

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"syscall"
)

// Reference ivm_ext_x32 extern call ids.
const (
	// EXTCStdoutWrite writes ctx.ExtA (the most recently loaded slice) to
	// stdout, recording the outcome in the error register.
	EXTCStdoutWrite uint64 = 0
	// EXTCStdoutFlush flushes stdout, recording the outcome in the error
	// register.
	EXTCStdoutFlush uint64 = 1
	// EXTCJumpOverflow sets the VM's execution index to the length of the
	// memory pool, terminating ContinueExecution without touching the call
	// stack or the host container around it.
	EXTCJumpOverflow uint64 = 2
)

// RegError is the offset, within the reserved register region, of the
// 4-byte error register: 0 on success, the OS error code (or -1 if none) on
// failure.
const RegError = 0

// RegisterReserved is how many bytes the VM should reserve purely for
// registers at the front of the memory pool when running under
// ivm_ext_x32.
const RegisterReserved = 4

// writeRegister copies data into the memory pool at reg.
func writeRegister(reg int, data []byte, pool []byte) {
	copy(pool[reg:reg+len(data)], data)
}

// writeIOErrRegister records the outcome of an I/O operation into the error
// register: 0 on success, the OS error code (or -1 if unavailable) on
// failure.
func writeIOErrRegister(pool []byte, err error) {
	var code int32
	if err != nil {
		code = -1
		var errno syscall.Errno
		if errors.As(err, &errno) {
			code = int32(errno)
		}
	}
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(code))
	writeRegister(RegError, buf, pool)
}

// IvmExtX32 is the reference ExternMap: stdout write/flush and a
// jump-overflow termination call, using the error-register convention
// documented on RegError.
//
// Stdout is buffered through a *bufio.Writer so repeated small writes under
// a guest loop don't each pay a syscall.
type IvmExtX32 struct {
	stdout *bufio.Writer
}

// NewIvmExtX32 builds the reference extern map writing to os.Stdout.
func NewIvmExtX32() *IvmExtX32 {
	return &IvmExtX32{stdout: bufio.NewWriter(os.Stdout)}
}

// NewIvmExtX32To builds the reference extern map writing to an arbitrary
// io.Writer, for tests that want to capture output.
func NewIvmExtX32To(w io.Writer) *IvmExtX32 {
	return &IvmExtX32{stdout: bufio.NewWriter(w)}
}

// Handle implements ExternMap.
func (e *IvmExtX32) Handle(ctx *ExecutionContext, callID uint64, vm *VmInstance) {
	switch callID {
	case EXTCStdoutWrite:
		if ctx.ExtA == nil {
			panic("ivm: call to ivm_ext_x32@STDOUT_WRITE with no slice loaded into ext_a")
		}
		_, err := e.stdout.Write(ctx.ExtA)
		e.recordIOResult(ctx, vm.MemPool, err)

	case EXTCStdoutFlush:
		err := e.stdout.Flush()
		e.recordIOResult(ctx, vm.MemPool, err)

	case EXTCJumpOverflow:
		vm.ExecutionIndex = len(vm.MemPool)

	default:
		panic("ivm: unrecognized ivm_ext_x32 call id")
	}
}

// recordIOResult applies the error-register write-elision optimization: on
// success the register is only rewritten if Ext1 was previously false (the
// first success after a failure); on failure the register is always
// rewritten. Either way Ext1 is updated to reflect this call's outcome.
func (e *IvmExtX32) recordIOResult(ctx *ExecutionContext, pool []byte, err error) {
	if err == nil {
		if !ctx.Ext1 {
			writeIOErrRegister(pool, nil)
		}
		ctx.Ext1 = true
		return
	}
	writeIOErrRegister(pool, err)
	ctx.Ext1 = false
}

// ReserveIvmExtX32 constructs a VM with the memory pool initialized to
// RegisterReserved zero bytes followed by program's compiled body (no
// header), with the execution index set to RegisterReserved — so
// instructions introduced by program begin right after the register region.
func ReserveIvmExtX32(options ProgramOptions, program []Instruction) *VmInstance {
	body := CompileAll(program, options)
	pool := make([]byte, RegisterReserved+len(body))
	copy(pool[RegisterReserved:], body)
	return NewVmInstance(options, pool, RegisterReserved)
}
