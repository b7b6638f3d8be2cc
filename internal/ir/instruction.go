package ir

// Instruction is one IR program statement: an ordered list of input variable
// indices into the program's variable table, plus the Operation it invokes.
// Invariant: len(Inputs) == Operation.NumInputs().
type Instruction struct {
	Inputs    []int
	Operation Operation
}

// IsInputMutable reports whether InputMutator may retarget one of this
// instruction's input slots.
func (i Instruction) IsInputMutable() bool {
	return i.Operation.IsInputMutable(len(i.Inputs))
}

// IsOperationMutable reports whether OperationMutator may resample this
// instruction's operation parameters or opcode.
func (i Instruction) IsOperationMutable() bool {
	return i.Operation.IsOperationMutable()
}

// IsNoppable reports whether NoppingMinimizer may rewrite this instruction.
func (i Instruction) IsNoppable() bool {
	return i.Operation.IsNoppable()
}

// EnteredContextAfterExecution returns the context a block-begin instruction
// pushes the builder into.
func (i Instruction) EnteredContextAfterExecution() (InstructionContext, bool) {
	return i.Operation.EnteredContextAfterExecution()
}

// Nop rewrites the instruction in place into a placeholder that preserves
// its original output arity, so downstream variable indices stay stable
// across minimization edits.
func (i *Instruction) Nop() {
	outputs := len(i.Operation.OutputTypes())
	inner := i.Operation.NumInnerOutputs()
	i.Inputs = nil
	i.Operation = Operation{Kind: OpNop, NopOutputs: outputs, NopInnerOutputs: inner}
}
