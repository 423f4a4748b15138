package ivm

import (
	"bytes"
	"os"
	"syscall"
	"testing"
)

// failingWriter always fails with a *os.PathError wrapping a syscall.Errno,
// the way a real fd write failure (e.g. EPIPE, ENOSPC) surfaces from the os
// package.
type failingWriter struct {
	errno syscall.Errno
}

func (w failingWriter) Write(p []byte) (int, error) {
	return 0, &os.PathError{Op: "write", Path: "stdout", Err: w.errno}
}

func TestIvmExtX32StdoutWrite(t *testing.T) {
	var out bytes.Buffer
	ext := NewIvmExtX32To(&out)

	instrs := []Instruction{
		LoadA(NewLocalRead([]byte("hello\n"))),
		ExternCall(EXTCStdoutWrite),
		ExternCall(EXTCStdoutFlush),
		Return(),
	}
	vm := ReserveIvmExtX32(DefaultProgramOptions(), instrs)
	env := NewExecutionEnvironment(ext)

	assert(t, vm.ContinueExecution(env) == nil, "unexpected run error")
	assert(t, out.String() == "hello\n", "expected stdout to contain hello, got %q", out.String())

	errReg := vm.MemPool[RegError : RegError+4]
	assert(t, bytes.Equal(errReg, []byte{0, 0, 0, 0}), "expected error register to read success, got %v", errReg)
}

func TestIvmExtX32StdoutWritePanicsWithoutALoad(t *testing.T) {
	var out bytes.Buffer
	ext := NewIvmExtX32To(&out)

	instrs := []Instruction{ExternCall(EXTCStdoutWrite), Return()}
	vm := ReserveIvmExtX32(DefaultProgramOptions(), instrs)
	env := NewExecutionEnvironment(ext)

	defer func() {
		r := recover()
		assert(t, r != nil, "expected panic on stdout-write with nothing loaded into ext_a")
	}()
	_ = vm.ContinueExecution(env)
}

func TestIvmExtX32StdoutWriteRecordsRealErrno(t *testing.T) {
	ext := NewIvmExtX32To(failingWriter{errno: syscall.ENOSPC})

	// Stdout is buffered, so the failing underlying write surfaces on flush.
	instrs := []Instruction{
		LoadA(NewLocalRead([]byte("hello\n"))),
		ExternCall(EXTCStdoutWrite),
		ExternCall(EXTCStdoutFlush),
		Return(),
	}
	vm := ReserveIvmExtX32(DefaultProgramOptions(), instrs)
	env := NewExecutionEnvironment(ext)

	assert(t, vm.ContinueExecution(env) == nil, "unexpected run error")

	errReg := vm.MemPool[RegError : RegError+4]
	gotCode := int32(uint32(errReg[0]) | uint32(errReg[1])<<8 | uint32(errReg[2])<<16 | uint32(errReg[3])<<24)
	assert(t, gotCode == int32(syscall.ENOSPC), "expected error register to hold the real errno %d, got %d", int32(syscall.ENOSPC), gotCode)
}

func TestIvmExtX32JumpOverflowHalts(t *testing.T) {
	instrs := []Instruction{ExternCall(EXTCJumpOverflow), Return()}
	vm := ReserveIvmExtX32(DefaultProgramOptions(), instrs)
	env := NewExecutionEnvironment(NewIvmExtX32To(new(bytes.Buffer)))

	assert(t, vm.ContinueExecution(env) == nil, "unexpected run error")
	assert(t, vm.ExecutionIndex == len(vm.MemPool), "expected execution index to land at pool length, got %d/%d", vm.ExecutionIndex, len(vm.MemPool))
}

func TestIvmExtX32ReservesRegisterRegion(t *testing.T) {
	instrs := []Instruction{Return()}
	vm := ReserveIvmExtX32(DefaultProgramOptions(), instrs)
	assert(t, vm.ExecutionIndex == RegisterReserved, "expected entry offset past register region, got %d", vm.ExecutionIndex)
	assert(t, Opcode(vm.MemPool[RegisterReserved]) == IReturn, "expected program body to start right after the register region")
}
