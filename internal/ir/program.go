package ir

// ProgramContext is the snapshot summary a Program is built against: how
// many nodes/connections the harness has pre-established, and the base
// mock timestamp generators should perturb from.
type ProgramContext struct {
	Nodes       int
	Connections int
	Timestamp   uint64
}

// Program is a finalised, statically-valid sequence of instructions together
// with the context it was built against. It is produced exclusively by
// ProgramBuilder.Finalize or builder.FromProgram.
type Program struct {
	Context      ProgramContext
	Instructions []Instruction
}

// VariableCount returns the total number of SSA variable-table slots this
// program's instructions produce (regular plus inner outputs).
func (p *Program) VariableCount() int {
	n := 0
	for _, instr := range p.Instructions {
		n += instr.Operation.NumOutputs() + instr.Operation.NumInnerOutputs()
	}
	return n
}

// ContextsByInstruction replays the scope stack and returns, for each
// instruction, the InstructionContext active immediately before that
// instruction executes — the same value the builder records at append-time
// (§4.2 step 5) and that context-aware generators match against.
func (p *Program) ContextsByInstruction() []InstructionContext {
	out := make([]InstructionContext, len(p.Instructions))
	stack := []InstructionContext{ContextGlobal}
	for i, instr := range p.Instructions {
		out[i] = stack[len(stack)-1]
		if instr.Operation.IsBlockEnd() {
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		} else if ctx, ok := instr.EnteredContextAfterExecution(); ok {
			stack = append(stack, ctx)
		}
	}
	return out
}

// RandomInstructionIndexFrom returns the index of a uniformly random
// instruction at or after from whose active context equals want, or -1 if
// none exists. intn must behave like math/rand.Rand.Intn.
func (p *Program) RandomInstructionIndexFrom(intn func(int) int, want InstructionContext, from int) int {
	ctxs := p.ContextsByInstruction()
	var candidates []int
	for i := from; i < len(ctxs); i++ {
		if ctxs[i] == want {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return -1
	}
	return candidates[intn(len(candidates))]
}

// RandomInstructionIndex is RandomInstructionIndexFrom starting at 0.
func (p *Program) RandomInstructionIndex(intn func(int) int, want InstructionContext) int {
	return p.RandomInstructionIndexFrom(intn, want, 0)
}

// RemoveNops compacts the program by dropping every Nop instruction and
// renumbering surviving variable indices. Inputs are remapped through a
// table keyed on pre-removal indices; Nop outputs never appear as a later
// instruction's input in a statically-valid program, so they need no entry.
func (p *Program) RemoveNops() *Program {
	mapping := make(map[int]int, p.VariableCount())
	out := make([]Instruction, 0, len(p.Instructions))

	oldIdx, newIdx := 0, 0
	for _, instr := range p.Instructions {
		total := instr.Operation.NumOutputs() + instr.Operation.NumInnerOutputs()

		if instr.Operation.Kind == OpNop {
			oldIdx += total
			continue
		}

		newInputs := make([]int, len(instr.Inputs))
		for k, in := range instr.Inputs {
			newInputs[k] = mapping[in]
		}
		for k := 0; k < total; k++ {
			mapping[oldIdx+k] = newIdx + k
		}
		newIdx += total
		oldIdx += total

		out = append(out, Instruction{Inputs: newInputs, Operation: instr.Operation})
	}

	return &Program{Context: p.Context, Instructions: out}
}

// Clone returns a deep-enough copy safe for independent mutation: the
// instruction slice and each instruction's input slice are copied, but
// Operation payloads (e.g. Bytes) are shared since mutators always replace
// the whole Operation value rather than editing it in place.
func (p *Program) Clone() *Program {
	out := &Program{Context: p.Context, Instructions: make([]Instruction, len(p.Instructions))}
	for i, instr := range p.Instructions {
		ins := make([]int, len(instr.Inputs))
		copy(ins, instr.Inputs)
		out.Instructions[i] = Instruction{Inputs: ins, Operation: instr.Operation}
	}
	return out
}
