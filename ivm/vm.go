package ivm

// VmInstance owns the memory pool, execution index, data stack, and call
// stack for one running IVM program. It exclusively owns all of this state;
// an ExternMap handler receives a mutable view of it for the duration of
// one extern call (see context.go).
type VmInstance struct {
	options ProgramOptions

	// MemPool is the flat byte-addressable memory pool: both code and data
	// memory. Instructions are fetched from it; I_MUTATE and I_PUSH/Point
	// reads operate against it.
	MemPool []byte

	// ExecutionIndex is the offset of the next opcode to fetch. The loop
	// terminates when it reaches len(MemPool).
	ExecutionIndex int

	// DataStack holds operand byte-slices in push order (index 0 is the
	// bottom). Pushing appends; popping removes from the end. Implemented
	// as owned byte copies rather than
	// (offset, length, generation) tuples into the pool: simpler, and this
	// VM never relocates MemPool mid-run so the zero-copy variant would buy
	// nothing here.
	DataStack [][]byte

	// CallStack holds return addresses (execution-index values) in push
	// order.
	CallStack []int
}

// NewVmInstance creates a VM over a pre-built memory pool. entryOffset is
// where execution begins; pool is typically header ‖ body, or — when a
// caller reserves a register region, e.g. ReserveIvmExtX32 — registers ‖
// body with entryOffset pointing past the registers.
func NewVmInstance(options ProgramOptions, pool []byte, entryOffset int) *VmInstance {
	return &VmInstance{
		options:        options,
		MemPool:        pool,
		ExecutionIndex: entryOffset,
	}
}

// LoadProgram decodes a complete program blob (header ‖ body) and returns a
// VmInstance ready to run it, with the memory pool set to exactly the
// program's bytes and the execution index set to the header's entry offset.
func LoadProgram(blob []byte) (*VmInstance, error) {
	adapter, err := GetProgramOptions(blob)
	if err != nil {
		return nil, err
	}
	return NewVmInstance(adapter.Options, blob, int(adapter.EntryOffset)), nil
}

// Options returns the ProgramOptions this VM was constructed with.
func (vm *VmInstance) Options() ProgramOptions { return vm.options }

// pushData pushes a data-stack entry.
func (vm *VmInstance) pushData(bytes []byte) {
	vm.DataStack = append(vm.DataStack, bytes)
}

// popData pops and returns the top data-stack entry. Returns false if the
// stack is empty.
func (vm *VmInstance) popData() ([]byte, bool) {
	n := len(vm.DataStack)
	if n == 0 {
		return nil, false
	}
	top := vm.DataStack[n-1]
	vm.DataStack = vm.DataStack[:n-1]
	return top, true
}

// PopData pops and returns the top data-stack entry for use by ExternMap
// handlers. ok is false if the stack is empty; TimerExternMap panics in
// that case, but other ExternMap implementations are free to handle it
// differently.
func (vm *VmInstance) PopData() (data []byte, ok bool) { return vm.popData() }

// PushData pushes onto the data stack, for use by ExternMap handlers that
// synthesize a result.
func (vm *VmInstance) PushData(data []byte) { vm.pushData(data) }

// extractPtr reads ptrLen-width bytes at offset without advancing
// ExecutionIndex.
func (vm *VmInstance) extractPtr(offset int) (uint64, error) {
	span := vm.options.PtrLen().Span()
	if offset+span > len(vm.MemPool) {
		return 0, errOutOfBounds
	}
	return vm.options.PtrLen().Extract(offset, vm.MemPool), nil
}

// extractPtrSkip reads ptrLen-width bytes at ExecutionIndex and advances
// past them.
func (vm *VmInstance) extractPtrSkip() (uint64, error) {
	v, err := vm.extractPtr(vm.ExecutionIndex)
	if err != nil {
		return 0, err
	}
	vm.ExecutionIndex += vm.options.PtrLen().Span()
	return v, nil
}

// Step executes exactly one instruction and returns. Returns an error for
// unknown opcodes, unknown read-operation tags, or out-of-bounds pool
// access — all of them guest-program structural faults. A
// nil ExternMap is valid as long as the program never executes
// I_EXTERN_CALL.
//
// halted is true once ExecutionIndex has reached the end of the pool or an
// empty-stack I_RETURN ran; Step does not fetch past that point.
func (vm *VmInstance) Step(env *ExecutionEnvironment) (halted bool, err error) {
	if vm.ExecutionIndex >= len(vm.MemPool) {
		return true, nil
	}

	opcode := Opcode(vm.MemPool[vm.ExecutionIndex])
	vm.ExecutionIndex++

	switch opcode {
	case IJump:
		// Reads its operand without skipping past it first: the jump
		// target is definitional, the post-operand index is unreachable.
		target, err := vm.extractPtr(vm.ExecutionIndex)
		if err != nil {
			return false, err
		}
		vm.ExecutionIndex = int(target)

	case IPush:
		data, skip, err := resolveReadOperation(vm.MemPool, vm.ExecutionIndex, vm.options.PtrLen())
		if err != nil {
			return false, err
		}
		vm.ExecutionIndex += skip
		// Point reads alias the pool; copy so the entry keeps its push-time bytes.
		vm.pushData(append([]byte(nil), data...))

	case IMutate:
		dest, err := vm.extractPtrSkip()
		if err != nil {
			return false, err
		}
		data, skip, err := resolveReadOperation(vm.MemPool, vm.ExecutionIndex, vm.options.PtrLen())
		if err != nil {
			return false, err
		}
		vm.ExecutionIndex += skip

		destIdx := int(dest)
		if destIdx+len(data) > len(vm.MemPool) || destIdx < 0 {
			return false, errOutOfBounds
		}
		copy(vm.MemPool[destIdx:destIdx+len(data)], data)

	case IExternCall:
		id, err := vm.extractPtrSkip()
		if err != nil {
			return false, err
		}
		if env == nil {
			return false, errUnknownOpcode
		}
		env.callExtern(id, vm)

	case IReturn:
		n := len(vm.CallStack)
		if n == 0 {
			return true, nil
		}
		vm.ExecutionIndex = vm.CallStack[n-1]
		vm.CallStack = vm.CallStack[:n-1]

	case ICall:
		target, err := vm.extractPtrSkip()
		if err != nil {
			return false, err
		}
		vm.CallStack = append(vm.CallStack, vm.ExecutionIndex)
		vm.ExecutionIndex = int(target)

	case ILoadA:
		data, skip, err := resolveReadOperation(vm.MemPool, vm.ExecutionIndex, vm.options.PtrLen())
		if err != nil {
			return false, err
		}
		vm.ExecutionIndex += skip
		if env == nil {
			return false, errUnknownOpcode
		}
		env.ctx.ExtA = data

	default:
		return false, errUnknownOpcode
	}

	return false, nil
}

// ContinueExecution runs instructions until the memory pool is exhausted, an
// empty-stack I_RETURN halts the run, an extern call forces termination
// (e.g. EXTC_JUMP_OVERFLOW), or a structural fault occurs.
func (vm *VmInstance) ContinueExecution(env *ExecutionEnvironment) error {
	for {
		halted, err := vm.Step(env)
		if err != nil {
			return err
		}
		if halted {
			return nil
		}
	}
}
