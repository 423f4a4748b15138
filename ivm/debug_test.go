package ivm

import (
	"strconv"
	"strings"
	"testing"
)

func TestDebuggerRunToCompletion(t *testing.T) {
	vm := buildVM(t, []Instruction{Push(NewLocalRead([]byte("x"))), Return()}, DefaultProgramOptions())
	dbg := NewDebugger(vm, NewExecutionEnvironment(nil))

	var out strings.Builder
	dbg.RunREPL(strings.NewReader("run\n"), &out)

	assert(t, strings.Contains(out.String(), "halted"), "expected run to reach halted, got %q", out.String())
	assert(t, len(vm.DataStack) == 1, "expected the push to have executed before halting")
}

func TestDebuggerBreakpointStopsRun(t *testing.T) {
	opts := DefaultProgramOptions()
	pushLen := EncodedLen(Push(NewLocalRead([]byte("x"))), opts.PtrLen())
	breakAt := cfv1HeaderLen + pushLen

	vm := buildVM(t, []Instruction{
		Push(NewLocalRead([]byte("x"))),
		Push(NewLocalRead([]byte("y"))),
		Return(),
	}, opts)
	dbg := NewDebugger(vm, NewExecutionEnvironment(nil))

	var out strings.Builder
	dbg.RunREPL(strings.NewReader("break "+strconv.Itoa(breakAt)+"\nrun\n"), &out)

	assert(t, strings.Contains(out.String(), "breakpoint"), "expected breakpoint to fire, got %q", out.String())
	assert(t, len(vm.DataStack) == 1, "expected exactly one push before the breakpoint, got %d", len(vm.DataStack))
}

func TestDebuggerPrintsDisassemblyOfNextInstruction(t *testing.T) {
	vm := buildVM(t, []Instruction{Push(NewLocalRead([]byte("x"))), Return()}, DefaultProgramOptions())
	dbg := NewDebugger(vm, NewExecutionEnvironment(nil))

	var out strings.Builder
	dbg.RunREPL(strings.NewReader(""), &out)

	assert(t, strings.Contains(out.String(), "next:"), "expected initial state to include a disassembled next instruction, got %q", out.String())
	assert(t, strings.Contains(out.String(), "push"), "expected the disassembled line to show the pending push, got %q", out.String())
}
