package builder

import (
	"math/rand"
	"testing"

	"github.com/fuzzamoto/ir-engine/internal/ir"
)

func TestAppendBuildsAValidProgram(t *testing.T) {
	b := New(ir.ProgramContext{Nodes: 1, Connections: 2, Timestamp: 1000})

	conn := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadConnection, ConnIndex: 0})
	msgType := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadMsgType, MsgType: [12]byte{'v', 'e', 'r', 's', 'i', 'o', 'n'}})
	payload := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadBytes, Bytes: []byte{1, 2, 3}})
	b.ForceAppend([]int{conn.Index, msgType.Index, payload.Index}, ir.Operation{Kind: ir.OpSendRawMessage})

	p, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(p.Instructions) != 4 {
		t.Fatalf("expected 4 instructions, got %d", len(p.Instructions))
	}
	if p.VariableCount() != 3 {
		t.Fatalf("expected 3 variables (SendRawMessage has no output), got %d", p.VariableCount())
	}
}

func TestAppendRejectsWrongArity(t *testing.T) {
	b := New(ir.ProgramContext{Nodes: 1, Connections: 1})
	conn := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadConnection, ConnIndex: 0})

	_, err := b.Append(ir.Instruction{Inputs: []int{conn.Index}, Operation: ir.Operation{Kind: ir.OpSendRawMessage}})
	if err == nil {
		t.Fatalf("expected an arity error, got nil")
	}
	if _, ok := err.(*ir.ErrInvalidNumberOfInputs); !ok {
		t.Fatalf("expected ErrInvalidNumberOfInputs, got %T: %v", err, err)
	}
}

func TestAppendRejectsWrongInputType(t *testing.T) {
	b := New(ir.ProgramContext{Nodes: 1, Connections: 1})
	msgType := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadMsgType})
	bytesVar := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadBytes})

	// SendRawMessage wants (Connection, MsgType, Bytes); feeding a MsgType
	// variable where Connection belongs must fail type-checking.
	_, err := b.Append(ir.Instruction{
		Inputs:    []int{msgType.Index, msgType.Index, bytesVar.Index},
		Operation: ir.Operation{Kind: ir.OpSendRawMessage},
	})
	if err == nil {
		t.Fatalf("expected a type error, got nil")
	}
	if _, ok := err.(*ir.ErrInvalidVariableType); !ok {
		t.Fatalf("expected ErrInvalidVariableType, got %T: %v", err, err)
	}
}

func TestAppendRejectsOutOfScopeVariable(t *testing.T) {
	b := New(ir.ProgramContext{Nodes: 1, Connections: 1})
	_, err := b.Append(ir.Instruction{
		Inputs:    []int{0},
		Operation: ir.Operation{Kind: ir.OpSetTime},
	})
	if err == nil {
		t.Fatalf("expected a variable-not-defined error, got nil")
	}
	if _, ok := err.(*ir.ErrVariableNotDefined); !ok {
		t.Fatalf("expected ErrVariableNotDefined, got %T: %v", err, err)
	}
}

func TestAppendRejectsOutOfRangeNodeAndConnection(t *testing.T) {
	b := New(ir.ProgramContext{Nodes: 1, Connections: 1})
	if _, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadNode, NodeIndex: 5}}); err == nil {
		t.Fatalf("expected ErrNodeNotFound, got nil")
	} else if _, ok := err.(*ir.ErrNodeNotFound); !ok {
		t.Fatalf("expected ErrNodeNotFound, got %T: %v", err, err)
	}
	if _, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadConnection, ConnIndex: 5}}); err == nil {
		t.Fatalf("expected ErrConnectionNotFound, got nil")
	} else if _, ok := err.(*ir.ErrConnectionNotFound); !ok {
		t.Fatalf("expected ErrConnectionNotFound, got %T: %v", err, err)
	}
}

func TestFinalizeRejectsUnclosedScope(t *testing.T) {
	b := New(ir.ProgramContext{Nodes: 1, Connections: 1})
	b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpBeginWitnessStack})

	if _, err := b.Finalize(); err == nil {
		t.Fatalf("expected ErrScopeStillOpen, got nil")
	} else if _, ok := err.(*ir.ErrScopeStillOpen); !ok {
		t.Fatalf("expected ErrScopeStillOpen, got %T: %v", err, err)
	}
}

func TestAppendRejectsMismatchedBlockEnd(t *testing.T) {
	b := New(ir.ProgramContext{Nodes: 1, Connections: 1})
	tx := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpBeginBuildTx})
	inputs := b.ForceAppendExpectOutput([]int{tx.Index}, ir.Operation{Kind: ir.OpBeginBuildTxInputs})
	b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpBeginWitnessStack})

	// The MutTxInputs input is in scope and well-typed, so the only fault left
	// is that the innermost open scope is the witness stack, not the inputs.
	_, err := b.Append(ir.Instruction{Inputs: []int{inputs.Index}, Operation: ir.Operation{Kind: ir.OpEndBuildTxInputs}})
	if err == nil {
		t.Fatalf("expected ErrInvalidBlockEnd, got nil")
	}
	if _, ok := err.(*ir.ErrInvalidBlockEnd); !ok {
		t.Fatalf("expected ErrInvalidBlockEnd, got %T: %v", err, err)
	}
}

func TestScopedVariablesLeaveScopeAfterBlockEnd(t *testing.T) {
	b := New(ir.ProgramContext{Nodes: 1, Connections: 1})
	stack := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpBeginWitnessStack})
	elem := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadBytes, Bytes: []byte{1}})
	b.ForceAppend([]int{stack.Index, elem.Index}, ir.Operation{Kind: ir.OpAddWitness})

	if len(b.GetAllVariable(ir.VarConstWitnessStack)) != 0 {
		t.Fatalf("ConstWitnessStack should not exist before EndWitnessStack produces it")
	}

	b.ForceAppendExpectOutput([]int{stack.Index}, ir.Operation{Kind: ir.OpEndWitnessStack})

	if b.IsVariableInScope(stack.Index) {
		t.Fatalf("MutWitnessStack should have left scope once its owning block closed")
	}
	if len(b.GetAllVariable(ir.VarConstWitnessStack)) != 1 {
		t.Fatalf("expected exactly one ConstWitnessStack variable in global scope after close")
	}
}

func TestFromProgramRoundTripsAValidProgram(t *testing.T) {
	b := New(ir.ProgramContext{Nodes: 1, Connections: 1, Timestamp: 42})
	conn := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadConnection, ConnIndex: 0})
	msgType := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadMsgType})
	payload := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadBytes, Bytes: []byte{9}})
	b.ForceAppend([]int{conn.Index, msgType.Index, payload.Index}, ir.Operation{Kind: ir.OpSendRawMessage})
	p, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	p2, err := FromProgram(p)
	if err != nil {
		t.Fatalf("FromProgram rejected a program its own builder produced: %v", err)
	}
	if len(p2.Instructions) != len(p.Instructions) {
		t.Fatalf("instruction count changed across FromProgram round-trip")
	}
}

func TestFromProgramRejectsDanglingReference(t *testing.T) {
	p := &ir.Program{
		Context: ir.ProgramContext{Nodes: 1, Connections: 1},
		Instructions: []ir.Instruction{
			{Inputs: []int{7}, Operation: ir.Operation{Kind: ir.OpSetTime}},
		},
	}
	if _, err := FromProgram(p); err == nil {
		t.Fatalf("expected FromProgram to reject a program referencing an undefined variable")
	}
}

func TestAppendProgramShiftsOnlyIndicesAtOrAboveThreshold(t *testing.T) {
	b := New(ir.ProgramContext{Nodes: 1, Connections: 2})
	prefixConn := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadConnection, ConnIndex: 0})
	// Ten variables standing in for an earlier splice, occupying indices 1..10
	// between the prefix and sub.
	for i := 0; i < 10; i++ {
		b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadBytes, Bytes: []byte{byte(i)}})
	}

	sub := &ir.Program{
		Context: ir.ProgramContext{Nodes: 1, Connections: 2},
		Instructions: []ir.Instruction{
			// References prefixConn.Index (0, below threshold, stays put) and
			// produces its own MsgType/Bytes locally (indices 1, 2 — shifted).
			{Operation: ir.Operation{Kind: ir.OpLoadMsgType}},
			{Operation: ir.Operation{Kind: ir.OpLoadBytes, Bytes: []byte{5}}},
			{Inputs: []int{0, 1, 2}, Operation: ir.Operation{Kind: ir.OpSendRawMessage}},
		},
	}

	if err := b.AppendProgram(sub, 1, 10); err != nil {
		t.Fatalf("AppendProgram: %v", err)
	}
	p, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	send := p.Instructions[len(p.Instructions)-1]
	if send.Inputs[0] != prefixConn.Index {
		t.Fatalf("expected the below-threshold input to stay at %d, got %d", prefixConn.Index, send.Inputs[0])
	}
	if send.Inputs[1] != 11 || send.Inputs[2] != 12 {
		t.Fatalf("expected shifted inputs [11 12], got %v", send.Inputs[1:])
	}
}

func TestGetRandomVariablesReturnsNonEmptySortedSubset(t *testing.T) {
	b := New(ir.ProgramContext{Nodes: 1, Connections: 3})
	var conns []int
	for i := 0; i < 3; i++ {
		v := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadConnection, ConnIndex: uint32(i)})
		conns = append(conns, v.Index)
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		got := b.GetRandomVariables(rng, ir.VarConnection)
		if len(got) == 0 || len(got) > len(conns) {
			t.Fatalf("expected a non-empty subset of size <= %d, got %d", len(conns), len(got))
		}
		for i := 1; i < len(got); i++ {
			if got[i-1].Index >= got[i].Index {
				t.Fatalf("expected index-sorted output, got %v", got)
			}
		}
	}
}

func TestGetOrCreateRandomConnectionSynthesizesWhenNoneExist(t *testing.T) {
	b := New(ir.ProgramContext{Nodes: 1, Connections: 4})
	rng := rand.New(rand.NewSource(2))

	v := b.GetOrCreateRandomConnection(rng)
	if !b.IsVariableInScope(v.Index) {
		t.Fatalf("synthesized connection variable must be in scope")
	}
	if v.Type != ir.VarConnection {
		t.Fatalf("expected VarConnection, got %s", v.Type)
	}

	// A second call must reuse the now-existing connection rather than
	// synthesizing another LoadConnection.
	before := len(b.instructions)
	b.GetOrCreateRandomConnection(rng)
	if len(b.instructions) != before {
		t.Fatalf("expected GetOrCreateRandomConnection to reuse an existing connection, instruction count grew")
	}
}
