package ir

import (
	"strings"
	"testing"
)

func simpleSendProgram() *Program {
	return &Program{
		Context: ProgramContext{Nodes: 1, Connections: 1, Timestamp: 1000},
		Instructions: []Instruction{
			{Operation: Operation{Kind: OpLoadConnection, ConnIndex: 0}},
			{Operation: Operation{Kind: OpLoadMsgType}},
			{Operation: Operation{Kind: OpLoadBytes, Bytes: []byte{1, 2}}},
			{Inputs: []int{0, 1, 2}, Operation: Operation{Kind: OpSendRawMessage}},
		},
	}
}

func TestVariableCountSumsOutputsAndInnerOutputs(t *testing.T) {
	p := simpleSendProgram()
	// Three Load* instructions each produce one output; SendRawMessage
	// produces none.
	if got := p.VariableCount(); got != 3 {
		t.Fatalf("expected 3 variables, got %d", got)
	}
}

func TestVariableCountCountsBlockInnerOutputs(t *testing.T) {
	p := &Program{
		Context: ProgramContext{Nodes: 1, Connections: 1},
		Instructions: []Instruction{
			{Operation: Operation{Kind: OpBeginWitnessStack}},
			{Inputs: []int{0}, Operation: Operation{Kind: OpEndWitnessStack}},
		},
	}
	// BeginWitnessStack: 1 inner output (MutWitnessStack). EndWitnessStack: 1
	// regular output (ConstWitnessStack).
	if got := p.VariableCount(); got != 2 {
		t.Fatalf("expected 2 variables, got %d", got)
	}
}

func TestContextsByInstructionTracksBlockNesting(t *testing.T) {
	p := &Program{
		Context: ProgramContext{Nodes: 1, Connections: 1},
		Instructions: []Instruction{
			{Operation: Operation{Kind: OpBeginWitnessStack}},
			{Inputs: []int{0}, Operation: Operation{Kind: OpEndWitnessStack}},
			{Operation: Operation{Kind: OpLoadConnection, ConnIndex: 0}},
		},
	}
	ctxs := p.ContextsByInstruction()
	if ctxs[0] != ContextGlobal {
		t.Fatalf("BeginWitnessStack itself executes in the enclosing context, got %s", ctxs[0])
	}
	if ctxs[1] != ContextWitnessStack {
		t.Fatalf("EndWitnessStack should execute inside the scope it closes, got %s", ctxs[1])
	}
	if ctxs[2] != ContextGlobal {
		t.Fatalf("instruction after the closed block should be back in global context, got %s", ctxs[2])
	}
}

func TestRandomInstructionIndexOnlyMatchesWantedContext(t *testing.T) {
	p := &Program{
		Context: ProgramContext{Nodes: 1, Connections: 1},
		Instructions: []Instruction{
			{Operation: Operation{Kind: OpLoadConnection, ConnIndex: 0}}, // global, idx 0
			{Operation: Operation{Kind: OpBeginWitnessStack}},            // global, idx 1
			{Inputs: []int{1}, Operation: Operation{Kind: OpEndWitnessStack}}, // witness-stack ctx, idx 2
		},
	}
	always0 := func(int) int { return 0 }
	idx := p.RandomInstructionIndex(always0, ContextWitnessStack)
	if idx != 2 {
		t.Fatalf("expected the only witness-stack-context instruction at index 2, got %d", idx)
	}
	if none := p.RandomInstructionIndex(always0, ContextBuildTx); none != -1 {
		t.Fatalf("expected -1 for an absent context, got %d", none)
	}
}

func TestRemoveNopsCompactsAndRemapsInputs(t *testing.T) {
	p := &Program{
		Context: ProgramContext{Nodes: 1, Connections: 1},
		Instructions: []Instruction{
			{Operation: Operation{Kind: OpLoadConnection, ConnIndex: 0}},    // v0, used
			{Operation: Operation{Kind: OpLoadBytes, Bytes: []byte{1}}},     // v1, unused — about to be nopped
			{Operation: Operation{Kind: OpLoadMsgType}},                     // v2, used
			{Operation: Operation{Kind: OpLoadBytes, Bytes: []byte{9}}},     // v3, used
			{Inputs: []int{0, 2, 3}, Operation: Operation{Kind: OpSendRawMessage}},
		},
	}
	p.Instructions[1].Nop()

	out := p.RemoveNops()
	if len(out.Instructions) != 4 {
		t.Fatalf("expected the nopped instruction to be dropped, got %d instructions", len(out.Instructions))
	}
	send := out.Instructions[len(out.Instructions)-1]
	if send.Inputs[0] != 0 {
		t.Fatalf("expected the surviving connection variable to keep index 0, got %d", send.Inputs[0])
	}
	if send.Inputs[1] != 1 || send.Inputs[2] != 2 {
		t.Fatalf("expected the surviving variables renumbered to [1 2] after the nop's output slot was dropped, got %v", send.Inputs[1:])
	}
}

func TestCloneDeepCopiesInputsButSharesOperationValues(t *testing.T) {
	p := simpleSendProgram()
	clone := p.Clone()

	clone.Instructions[3].Inputs[0] = 99
	if p.Instructions[3].Inputs[0] == 99 {
		t.Fatalf("Clone must deep-copy the Inputs slice, mutation leaked into the original")
	}

	clone.Instructions[2].Operation.Bytes[0] = 0xFF
	if p.Instructions[2].Operation.Bytes[0] != 0xFF {
		t.Fatalf("expected Clone to share the original Bytes backing array (documented shallow-share contract)")
	}
}

func TestProgramStringRendersHeaderAndIndentsByBlockDepth(t *testing.T) {
	p := &Program{
		Context: ProgramContext{Nodes: 1, Connections: 1, Timestamp: 5},
		Instructions: []Instruction{
			{Operation: Operation{Kind: OpBeginWitnessStack}},
			{Inputs: []int{0}, Operation: Operation{Kind: OpEndWitnessStack}},
		},
	}
	text := p.String()
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if !strings.HasPrefix(lines[0], "// Context: nodes=1 connections=1 timestamp=5") {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "v0 <- BeginWitnessStack") {
		t.Fatalf("unexpected begin line: %q", lines[1])
	}
	if strings.HasPrefix(lines[2], "  ") {
		t.Fatalf("EndWitnessStack must be printed at the outer depth, not indented: %q", lines[2])
	}
}
