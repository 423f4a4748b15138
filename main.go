package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ivm/internal/log"
	"ivm/ivm"
)

var (
	verbose    bool
	disasm     bool
	ptrWidth32 bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ivm",
		Short: "Run and inspect IVM bytecode programs",
		Long: `ivm loads and executes IVM bytecode: a flat byte-addressable memory
pool, a byte-slice data stack, a return-address call stack, and a
pluggable extern-call table for everything the guest program can't do
on its own.

Compiling guest source into bytecode is out of scope for this tool;
use the IR emitter that produced your .ivm file.`,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose debug logging")

	runCmd := &cobra.Command{
		Use:   "run <program.ivm>",
		Short: "Execute a bytecode program against the reference extern table",
		Args:  cobra.ExactArgs(1),
		RunE:  runProgram,
	}
	runCmd.Flags().BoolVar(&disasm, "disasm", false, "print a disassembly before running")
	runCmd.Flags().BoolVar(&ptrWidth32, "x32", true, "assume 32-bit pointer width when disassembling headerless blobs")
	rootCmd.AddCommand(runCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "compile <source>",
		Short: "Compile guest source into bytecode (not supported by this tool)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(os.Stderr, "ivm: compiling guest source is handled by a separate IR emitter, not this tool")
			os.Exit(1)
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "debug <program.ivm>",
		Short: "Step through a bytecode program interactively",
		Args:  cobra.ExactArgs(1),
		RunE:  debugProgram,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "guard-check <policy.yaml> <program.ivm>",
		Short: "Report which extern calls a program would make and whether a policy allows them",
		Args:  cobra.ExactArgs(2),
		RunE:  guardCheck,
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRunLogger() (*log.Logger, string) {
	log.Init(verbose)
	runID := uuid.New().String()
	return log.L.WithRun(runID), runID
}

func runProgram(cmd *cobra.Command, args []string) error {
	l, runID := newRunLogger()
	path := args[0]

	blob, err := os.ReadFile(path)
	if err != nil {
		l.Error("read program", zap.String("path", path), zap.Error(err))
		return err
	}

	if disasm {
		ptrLen := ivm.X32b
		if !ptrWidth32 {
			ptrLen = ivm.X64b
		}
		start := 0
		adapter, herr := ivm.GetProgramOptions(blob)
		if herr == nil {
			ptrLen = adapter.Options.PtrLen()
			if adapter.EntryOffset <= uint64(len(blob)) {
				start = int(adapter.EntryOffset)
			}
		}
		fmt.Print(ivm.DisassembleBody(blob, start, ptrLen))
	}

	var vm *ivm.VmInstance
	env := ivm.NewExecutionEnvironment(ivm.NewIvmExtX32())

	steps := map[string]func() error{
		"decode_header": func() error {
			loaded, loadErr := ivm.LoadProgram(blob)
			if loadErr != nil {
				return loadErr
			}
			vm = loaded
			return nil
		},
		"execute": func() error {
			return vm.ContinueExecution(env)
		},
	}
	results := log.RunSteps(l, steps, []string{"decode_header", "execute"})
	for _, r := range results {
		if r.Err != nil {
			l.Error("run step failed", zap.String("step", r.Step), zap.Error(r.Err), zap.String("run", runID))
			return r.Err
		}
	}

	l.Debug("run complete", log.MemIndex(vm.ExecutionIndex))
	return nil
}

func debugProgram(cmd *cobra.Command, args []string) error {
	l, _ := newRunLogger()
	blob, err := os.ReadFile(args[0])
	if err != nil {
		l.Error("read program", zap.Error(err))
		return err
	}

	vm, err := ivm.LoadProgram(blob)
	if err != nil {
		l.Error("load program", zap.Error(err))
		return err
	}

	env := ivm.NewExecutionEnvironment(ivm.NewIvmExtX32())
	dbg := ivm.NewDebugger(vm, env)
	fmt.Println("commands: n/next, r/run, b/break <offset>")
	dbg.RunREPL(os.Stdin, os.Stdout)
	return nil
}

func guardCheck(cmd *cobra.Command, args []string) error {
	l, runID := newRunLogger()
	policyPath, programPath := args[0], args[1]

	rawPolicy, err := os.ReadFile(policyPath)
	if err != nil {
		return err
	}
	doc, err := ivm.ParsePolicyDocument(rawPolicy)
	if err != nil {
		return err
	}

	blob, err := os.ReadFile(programPath)
	if err != nil {
		return err
	}
	adapter, err := ivm.GetProgramOptions(blob)
	if err != nil {
		return err
	}

	_, mgr := doc.Build(ivm.NewIvmExtX32())

	offset := int(adapter.EntryOffset)
	ptrLen := adapter.Options.PtrLen()
	span := ptrLen.Span()

	for offset < len(blob) {
		op := ivm.Opcode(blob[offset])
		offset++
		if op != ivm.IExternCall {
			offset = advancePastOperand(blob, offset, op, ptrLen)
			if offset < 0 {
				break
			}
			continue
		}
		if offset+span > len(blob) {
			break
		}
		id := ptrLen.Extract(offset, blob)
		allowed := mgr.IsAllowed(ivm.ExternCallRequest(id))
		fmt.Printf("%06d: extern_call %d -> allowed=%v\n", offset-1, id, allowed)
		offset += span
	}

	l.Debug("guard-check complete", zap.String("run", runID))
	return nil
}

// advancePastOperand skips the instruction-specific operand bytes following
// a non-extern-call opcode, for guard-check's scan (which never needs to
// resolve read-operation payloads, only to step over them). Returns -1 on
// truncated input.
func advancePastOperand(blob []byte, offset int, op ivm.Opcode, ptrLen ivm.PointerWidth) int {
	span := ptrLen.Span()
	switch op {
	case ivm.IJump, ivm.ICall:
		if offset+span > len(blob) {
			return -1
		}
		return offset + span
	case ivm.IReturn:
		return offset
	case ivm.IMutate:
		if offset+span > len(blob) {
			return -1
		}
		offset += span
		return skipReadOp(blob, offset, ptrLen)
	case ivm.IPush, ivm.ILoadA:
		return skipReadOp(blob, offset, ptrLen)
	default:
		return -1
	}
}

func skipReadOp(blob []byte, offset int, ptrLen ivm.PointerWidth) int {
	if offset >= len(blob) {
		return -1
	}
	span := ptrLen.Span()
	tag := blob[offset]
	switch tag {
	case 0: // local
		lenOff := offset + 1
		if lenOff+span > len(blob) {
			return -1
		}
		length := int(ptrLen.Extract(lenOff, blob))
		dataOff := lenOff + span
		if dataOff+length > len(blob) {
			return -1
		}
		return dataOff + length
	case 1: // point
		lenOff := offset + 1
		idxOff := lenOff + span
		if idxOff+span > len(blob) {
			return -1
		}
		return idxOff + span
	default:
		return -1
	}
}
