package ivm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Debugger drives a VmInstance one instruction at a time, printing state
// between steps and honoring breakpoints on ExecutionIndex. It is the
// interactive counterpart to ContinueExecution.
type Debugger struct {
	Vm  *VmInstance
	Env *ExecutionEnvironment

	breakpoints map[int]struct{}
}

// NewDebugger builds a Debugger over vm/env with no breakpoints set.
func NewDebugger(vm *VmInstance, env *ExecutionEnvironment) *Debugger {
	return &Debugger{Vm: vm, Env: env, breakpoints: make(map[int]struct{})}
}

// ToggleBreakpoint adds offset as a breakpoint, or removes it if already
// present.
func (d *Debugger) ToggleBreakpoint(offset int) {
	if _, ok := d.breakpoints[offset]; ok {
		delete(d.breakpoints, offset)
		return
	}
	d.breakpoints[offset] = struct{}{}
}

// AtBreakpoint reports whether the debugger's current execution index is a
// breakpoint.
func (d *Debugger) AtBreakpoint() bool {
	_, ok := d.breakpoints[d.Vm.ExecutionIndex]
	return ok
}

// stepRecover runs one Step, converting any extern-map panic into a
// diagnostic string instead of propagating it, the way a host REPL wants to
// keep running after a guest fault instead of crashing itself.
func (d *Debugger) stepRecover() (halted bool, stepErr error, panicMsg string) {
	defer func() {
		if r := recover(); r != nil {
			panicMsg = fmt.Sprintf("panic at execution index %d: %v", d.Vm.ExecutionIndex, r)
		}
	}()
	halted, stepErr = d.Vm.Step(d.Env)
	return
}

// RunREPL drives an interactive session reading commands from in and
// writing output to out: "n"/"next" steps one instruction, "r"/"run" runs
// to completion or the next breakpoint, "b <offset>"/"break <offset>"
// toggles a breakpoint, anything else is treated as "next".
func (d *Debugger) RunREPL(in io.Reader, out io.Writer) {
	reader := bufio.NewReader(in)
	d.printState(out)

	for {
		fmt.Fprint(out, "\n-> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.ToLower(strings.TrimSpace(line))
		fields := strings.Fields(line)
		if len(fields) == 0 {
			fields = []string{"n"}
		}

		switch fields[0] {
		case "b", "break":
			if len(fields) < 2 {
				continue
			}
			offset, err := strconv.Atoi(fields[1])
			if err != nil {
				fmt.Fprintf(out, "not a number: %s\n", fields[1])
				continue
			}
			d.ToggleBreakpoint(offset)

		case "r", "run":
			for {
				halted, stepErr, panicMsg := d.stepRecover()
				if panicMsg != "" {
					fmt.Fprintln(out, panicMsg)
					return
				}
				if stepErr != nil {
					fmt.Fprintf(out, "execution fault: %v\n", stepErr)
					return
				}
				if halted {
					fmt.Fprintln(out, "halted")
					return
				}
				if d.AtBreakpoint() {
					fmt.Fprintln(out, "breakpoint")
					break
				}
			}
			d.printState(out)

		default: // "n", "next", or anything unrecognized
			halted, stepErr, panicMsg := d.stepRecover()
			if panicMsg != "" {
				fmt.Fprintln(out, panicMsg)
				return
			}
			if stepErr != nil {
				fmt.Fprintf(out, "execution fault: %v\n", stepErr)
				return
			}
			d.printState(out)
			if halted {
				fmt.Fprintln(out, "halted")
				return
			}
		}
	}
}

func (d *Debugger) printState(out io.Writer) {
	fmt.Fprintf(out, "execution_index=%d data_stack_depth=%d call_stack_depth=%d\n",
		d.Vm.ExecutionIndex, len(d.Vm.DataStack), len(d.Vm.CallStack))
	if d.Vm.ExecutionIndex < len(d.Vm.MemPool) {
		listing := DisassembleBody(d.Vm.MemPool, d.Vm.ExecutionIndex, d.Vm.Options().PtrLen())
		fmt.Fprint(out, "next: "+firstLine(listing)+"\n")
	}
}

// firstLine returns listing up to (not including) its first newline, so
// printState shows only the next instruction rather than the whole
// remaining disassembly.
func firstLine(listing string) string {
	if idx := strings.IndexByte(listing, '\n'); idx >= 0 {
		return listing[:idx]
	}
	return listing
}
