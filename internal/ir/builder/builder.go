package builder

import (
	"math/rand"
	"sort"

	"github.com/fuzzamoto/ir-engine/internal/ir"
)

// ProgramBuilder is the single construction/validation engine for Programs.
// It owns a transient super-set of the variable table while constructing;
// Finalize converts it into an immutable Program.
type ProgramBuilder struct {
	context      ir.ProgramContext
	instructions []ir.Instruction
	variables    []scopedVariable
	scopeStack   []*scope
	active       map[int]bool
	nextScopeID  int
}

// New creates a builder with its outer global scope already open.
func New(ctx ir.ProgramContext) *ProgramBuilder {
	b := &ProgramBuilder{
		context:     ctx,
		active:      map[int]bool{globalScopeID: true},
		nextScopeID: globalScopeID + 1,
	}
	b.scopeStack = []*scope{{id: globalScopeID, context: ir.ContextGlobal}}
	return b
}

// FromProgram replays p's instructions through a fresh builder and
// finalizes it, rejecting p if it is not statically valid.
func FromProgram(p *ir.Program) (*ir.Program, error) {
	b := New(p.Context)
	if err := b.AppendAll(p.Instructions); err != nil {
		return nil, err
	}
	return b.Finalize()
}

// Context returns the program context the builder was constructed against.
func (b *ProgramBuilder) Context() ir.ProgramContext { return b.context }

// CurrentScope returns the innermost open scope.
func (b *ProgramBuilder) CurrentScope() *scope { return b.scopeStack[len(b.scopeStack)-1] }

// IsScopeActive reports whether a scope id is currently in the active set.
func (b *ProgramBuilder) IsScopeActive(id int) bool { return b.active[id] }

// IsVariableInScope reports whether index is a valid, currently-reachable
// variable-table entry.
func (b *ProgramBuilder) IsVariableInScope(index int) bool {
	if index < 0 || index >= len(b.variables) {
		return false
	}
	return b.IsScopeActive(b.variables[index].scope)
}

func (b *ProgramBuilder) enterScope(ctx ir.InstructionContext, beginOp ir.OpKind, beginIndex int) *scope {
	s := &scope{id: b.nextScopeID, context: ctx, beginOp: beginOp, beginIndex: beginIndex, hasBeginOp: true}
	b.nextScopeID++
	b.scopeStack = append(b.scopeStack, s)
	b.active[s.id] = true
	return s
}

func (b *ProgramBuilder) exitScope() *scope {
	if len(b.scopeStack) <= 1 {
		return nil
	}
	top := b.scopeStack[len(b.scopeStack)-1]
	b.scopeStack = b.scopeStack[:len(b.scopeStack)-1]
	delete(b.active, top.id)
	return top
}

// Append validates and appends a single instruction following an
// eight-step contract.
func (b *ProgramBuilder) Append(instr ir.Instruction) ([]IndexedVariable, error) {
	op := instr.Operation

	// 1. Arity check.
	if len(instr.Inputs) != op.NumInputs() {
		return nil, &ir.ErrInvalidNumberOfInputs{Is: len(instr.Inputs), Expected: op.NumInputs()}
	}

	// 2. Resolve inputs against the variable table / active scopes.
	actualTypes := make([]ir.Variable, len(instr.Inputs))
	for i, idx := range instr.Inputs {
		if !b.IsVariableInScope(idx) {
			return nil, &ir.ErrVariableNotDefined{Index: idx}
		}
		actualTypes[i] = b.variables[idx].typ
	}

	// 3. Type-check.
	if err := op.CheckInputTypes(actualTypes); err != nil {
		return nil, err
	}

	// 4. Context-dependent numeric parameter checks.
	switch op.Kind {
	case ir.OpLoadNode:
		if int(op.NodeIndex) >= b.context.Nodes {
			return nil, &ir.ErrNodeNotFound{Index: int(op.NodeIndex)}
		}
	case ir.OpLoadConnection:
		if int(op.ConnIndex) >= b.context.Connections {
			return nil, &ir.ErrConnectionNotFound{Index: int(op.ConnIndex)}
		}
	case ir.OpLoadConnectionType:
		if op.ConnType != ir.ConnectionInbound && op.ConnType != ir.ConnectionOutbound {
			return nil, &ir.ErrInvalidConnectionType{Value: op.ConnType.String()}
		}
	}

	// 5. The pre-execution active context is b.CurrentScope().context; exposed
	// to callers via Program.ContextsByInstruction after finalize, and to the
	// builder's own context-aware queries below while under construction.

	instrIndex := len(b.instructions)

	// 6. Block-end: pop the scope and verify it matches.
	if op.IsBlockEnd() {
		popped := b.exitScope()
		if popped == nil || !popped.hasBeginOp || !op.IsMatchingBlockBegin(popped.beginOp) {
			var beginKind ir.OpKind
			if popped != nil {
				beginKind = popped.beginOp
			}
			return nil, &ir.ErrInvalidBlockEnd{Begin: beginKind, End: op.Kind}
		}
	}

	// 7. Append regular outputs, owned by the (possibly just-popped-to)
	// current scope. Nop outputs are owned by the dead scope.
	owner := b.CurrentScope().id
	if op.Kind == ir.OpNop {
		owner = deadScopeID
	}
	var out []IndexedVariable
	for _, t := range op.OutputTypes() {
		idx := len(b.variables)
		b.variables = append(b.variables, scopedVariable{typ: t, scope: owner})
		out = append(out, IndexedVariable{Index: idx, Type: t})
	}

	// 8. Block-begin: push a new scope, then append inner outputs owned by it.
	if op.IsBlockBegin() {
		ctx, _ := op.EnteredContextAfterExecution()
		s := b.enterScope(ctx, op.Kind, instrIndex)
		for _, t := range op.InnerOutputTypes() {
			idx := len(b.variables)
			b.variables = append(b.variables, scopedVariable{typ: t, scope: s.id})
			out = append(out, IndexedVariable{Index: idx, Type: t})
		}
	}

	b.instructions = append(b.instructions, instr)
	return out, nil
}

// AppendAll appends a sequence of instructions, stopping at the first error.
func (b *ProgramBuilder) AppendAll(instrs []ir.Instruction) error {
	for _, instr := range instrs {
		if _, err := b.Append(instr); err != nil {
			return err
		}
	}
	return nil
}

// ForceAppend appends an instruction known by the caller to be valid by
// construction (generators build well-typed sequences); it panics if that
// assumption is violated, matching the Rust source's
// "force_append should never fail for this operation" assertions.
func (b *ProgramBuilder) ForceAppend(inputs []int, op ir.Operation) {
	if _, err := b.Append(ir.Instruction{Inputs: inputs, Operation: op}); err != nil {
		panic("builder: force_append should never fail for this operation: " + err.Error())
	}
}

// ForceAppendExpectOutput is ForceAppend for an operation known to produce
// exactly one addressable (regular or inner) output, returning it directly.
func (b *ProgramBuilder) ForceAppendExpectOutput(inputs []int, op ir.Operation) IndexedVariable {
	out, err := b.Append(ir.Instruction{Inputs: inputs, Operation: op})
	if err != nil || len(out) == 0 {
		panic("builder: force_append_expect_output should always produce a variable")
	}
	return out[0]
}

// Finalize succeeds only when exactly the outer global scope remains open.
func (b *ProgramBuilder) Finalize() (*ir.Program, error) {
	if len(b.scopeStack) != 1 {
		return nil, &ir.ErrScopeStillOpen{}
	}
	return &ir.Program{Context: b.context, Instructions: b.instructions}, nil
}

// AppendProgramWithoutThreshold appends sub's instructions verbatim, adding
// offset to every input index. Used when the whole of sub is known to
// reference only variables local to itself (ConcatMutator).
func (b *ProgramBuilder) AppendProgramWithoutThreshold(sub *ir.Program, offset int) error {
	return b.AppendProgram(sub, 0, offset)
}

// AppendProgram grafts sub onto the builder: every input index >=
// threshold is shifted by offset before the instruction is
// appended, so indices referencing sub's own locally-produced variables land
// past whatever the builder already holds, while indices below threshold
// (referencing the builder's existing prefix) are copied verbatim.
func (b *ProgramBuilder) AppendProgram(sub *ir.Program, threshold, offset int) error {
	for _, instr := range sub.Instructions {
		remapped := make([]int, len(instr.Inputs))
		for i, idx := range instr.Inputs {
			if idx >= threshold {
				remapped[i] = idx + offset
			} else {
				remapped[i] = idx
			}
		}
		if _, err := b.Append(ir.Instruction{Inputs: remapped, Operation: instr.Operation}); err != nil {
			return err
		}
	}
	return nil
}

// GetVariable returns the variable at index if it is defined and in scope.
func (b *ProgramBuilder) GetVariable(index int) (IndexedVariable, bool) {
	if !b.IsVariableInScope(index) {
		return IndexedVariable{}, false
	}
	return IndexedVariable{Index: index, Type: b.variables[index].typ}, true
}

// GetAllVariable returns every in-scope variable of the given type, in
// index order.
func (b *ProgramBuilder) GetAllVariable(want ir.Variable) []IndexedVariable {
	var out []IndexedVariable
	for i, v := range b.variables {
		if v.typ == want && b.IsScopeActive(v.scope) {
			out = append(out, IndexedVariable{Index: i, Type: want})
		}
	}
	return out
}

// GetNearestVariable returns the highest-index in-scope variable of the
// given type (a reverse scan), or false if none exists.
func (b *ProgramBuilder) GetNearestVariable(want ir.Variable) (IndexedVariable, bool) {
	for i := len(b.variables) - 1; i >= 0; i-- {
		v := b.variables[i]
		if v.typ == want && b.IsScopeActive(v.scope) {
			return IndexedVariable{Index: i, Type: want}, true
		}
	}
	return IndexedVariable{}, false
}

// GetRandomVariable returns a uniformly random in-scope variable of the
// given type.
func (b *ProgramBuilder) GetRandomVariable(rng *rand.Rand, want ir.Variable) (IndexedVariable, bool) {
	all := b.GetAllVariable(want)
	if len(all) == 0 {
		return IndexedVariable{}, false
	}
	return all[rng.Intn(len(all))], true
}

// GetRandomVariables returns a random, non-empty, index-sorted subset of the
// in-scope variables of the given type (possibly all of them).
func (b *ProgramBuilder) GetRandomVariables(rng *rand.Rand, want ir.Variable) []IndexedVariable {
	all := b.GetAllVariable(want)
	if len(all) == 0 {
		return nil
	}
	n := rng.Intn(len(all)) + 1
	rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	chosen := append([]IndexedVariable(nil), all[:n]...)
	sort.Slice(chosen, func(i, j int) bool { return chosen[i].Index < chosen[j].Index })
	return chosen
}

// GetOrCreateRandomConnection returns a random in-scope Connection variable,
// synthesising a LoadConnection against a random valid connection index if
// none currently exist.
func (b *ProgramBuilder) GetOrCreateRandomConnection(rng *rand.Rand) IndexedVariable {
	if v, ok := b.GetRandomVariable(rng, ir.VarConnection); ok {
		return v
	}
	n := b.context.Connections
	if n <= 0 {
		n = 1
	}
	return b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadConnection, ConnIndex: uint32(rng.Intn(n))})
}

// GetNearestSentHeader returns the most recently sent-but-not-yet-built
// Header variable: a reverse scan for SendHeader finds its header input,
// provided no BuildBlock has since produced a fresher Header from it.
func (b *ProgramBuilder) GetNearestSentHeader() (IndexedVariable, bool) {
	built := map[int]bool{}
	for i := len(b.instructions) - 1; i >= 0; i-- {
		instr := b.instructions[i]
		switch instr.Operation.Kind {
		case ir.OpBuildBlock:
			built[instr.Inputs[1]] = true
		case ir.OpSendHeader:
			idx := instr.Inputs[1]
			if !built[idx] && b.IsVariableInScope(idx) {
				return IndexedVariable{Index: idx, Type: ir.VarHeader}, true
			}
		}
	}
	return IndexedVariable{}, false
}

// GetRandomUtxos scans the instruction stream for Txo variables that have
// not yet been consumed by AddTxInput/TakeTxo, returning a random in-scope
// subset that is still spendable.
func (b *ProgramBuilder) GetRandomUtxos(rng *rand.Rand) []IndexedVariable {
	spent := map[int]bool{}
	for _, instr := range b.instructions {
		switch instr.Operation.Kind {
		case ir.OpAddTxInput:
			spent[instr.Inputs[1]] = true
		case ir.OpTakeTxo:
			spent[instr.Inputs[0]] = true
		}
	}
	all := b.GetAllVariable(ir.VarTxo)
	var unspent []IndexedVariable
	for _, v := range all {
		if !spent[v.Index] {
			unspent = append(unspent, v)
		}
	}
	if len(unspent) == 0 {
		return nil
	}
	n := rng.Intn(len(unspent)) + 1
	rng.Shuffle(len(unspent), func(i, j int) { unspent[i], unspent[j] = unspent[j], unspent[i] })
	chosen := append([]IndexedVariable(nil), unspent[:n]...)
	sort.Slice(chosen, func(i, j int) bool { return chosen[i].Index < chosen[j].Index })
	return chosen
}
