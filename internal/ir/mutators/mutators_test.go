package mutators

import (
	"math/rand"
	"testing"

	"github.com/fuzzamoto/ir-engine/internal/ir"
	"github.com/fuzzamoto/ir-engine/internal/ir/builder"
	"github.com/fuzzamoto/ir-engine/internal/ir/metadata"
)

// buildTwoConnProgram builds a program with two connections and a
// SendRawMessage on the first, giving InputMutator something to retarget
// (conn0 -> conn1) and OperationMutator a LoadBytes payload to perturb.
func buildTwoConnProgram(t *testing.T) *ir.Program {
	t.Helper()
	b := builder.New(ir.ProgramContext{Nodes: 2, Connections: 2, Timestamp: 1000})
	b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadConnection, ConnIndex: 0})
	conn1 := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadConnection, ConnIndex: 1})
	msgType := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadMsgType, MsgType: [12]byte{'t', 'x'}})
	payload := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadBytes, Bytes: []byte{1, 2, 3}})
	b.ForceAppend([]int{conn1.Index, msgType.Index, payload.Index}, ir.Operation{Kind: ir.OpSendRawMessage})

	p, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return p
}

func TestInputMutatorRetargetsToDifferentVariable(t *testing.T) {
	p := buildTwoConnProgram(t)
	rng := rand.New(rand.NewSource(42))

	out, ok := (InputMutator{}).Mutate(p, rng)
	if !ok {
		t.Fatalf("expected InputMutator to find a mutable input")
	}
	if _, err := builder.FromProgram(out); err != nil {
		t.Fatalf("mutated program no longer validates: %v", err)
	}

	changed := false
	for i, instr := range out.Instructions {
		for j, in := range instr.Inputs {
			if in != p.Instructions[i].Inputs[j] {
				changed = true
			}
		}
	}
	if !changed {
		t.Fatalf("expected at least one input index to change")
	}
}

func TestOperationMutatorPerturbsSomething(t *testing.T) {
	p := buildTwoConnProgram(t)
	rng := rand.New(rand.NewSource(7))

	out, ok := (OperationMutator{}).Mutate(p, rng)
	if !ok {
		t.Fatalf("expected OperationMutator to find a mutable operation")
	}
	if _, err := builder.FromProgram(out); err != nil {
		t.Fatalf("mutated program no longer validates: %v", err)
	}
	if len(out.Instructions) != len(p.Instructions) {
		t.Fatalf("OperationMutator must not change instruction count: before=%d after=%d", len(p.Instructions), len(out.Instructions))
	}
}

func TestResamplePrivateKeyAlwaysValid(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	var zero [32]byte
	for i := 0; i < 50; i++ {
		got := resamplePrivateKey(rng, zero, havocMutateBytes)
		if !isValidPrivKeyScalar(got) {
			t.Fatalf("resamplePrivateKey produced an invalid scalar: %x", got)
		}
	}
}

func TestConcatMutatorAppendsAndShiftsOffset(t *testing.T) {
	a := buildTwoConnProgram(t)
	bProg := buildTwoConnProgram(t)

	out, err := ConcatMutator(a, bProg)
	if err != nil {
		t.Fatalf("ConcatMutator: %v", err)
	}
	if len(out.Instructions) != len(a.Instructions)+len(bProg.Instructions) {
		t.Fatalf("expected %d instructions, got %d", len(a.Instructions)+len(bProg.Instructions), len(out.Instructions))
	}
	for i, instr := range out.Instructions[:len(a.Instructions)] {
		if len(instr.Inputs) != len(a.Instructions[i].Inputs) {
			t.Fatalf("prefix instruction %d shape changed", i)
		}
		for j, in := range instr.Inputs {
			if in != a.Instructions[i].Inputs[j] {
				t.Fatalf("prefix instruction %d input %d changed: %d vs %d", i, j, in, a.Instructions[i].Inputs[j])
			}
		}
	}
	if _, err := builder.FromProgram(out); err != nil {
		t.Fatalf("concatenated program no longer validates: %v", err)
	}
}

func TestCombineMutatorInsertsAtGlobalPoint(t *testing.T) {
	a := buildTwoConnProgram(t)
	bProg := buildTwoConnProgram(t)
	rng := rand.New(rand.NewSource(5))

	out, err := CombineMutator(a, bProg, rng)
	if err != nil {
		t.Fatalf("CombineMutator: %v", err)
	}
	if len(out.Instructions) != len(a.Instructions)+len(bProg.Instructions) {
		t.Fatalf("expected %d instructions, got %d", len(a.Instructions)+len(bProg.Instructions), len(out.Instructions))
	}
	if _, err := builder.FromProgram(out); err != nil {
		t.Fatalf("combined program no longer validates: %v", err)
	}
}

func TestBlockTxnMutatorAnswersRecordedRequest(t *testing.T) {
	b := builder.New(ir.ProgramContext{Nodes: 1, Connections: 1, Timestamp: 1000})
	conn := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadConnection, ConnIndex: 0})

	var priv [32]byte
	priv[31] = 1
	privVar := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadPrivateKey, PrivateKey: priv})
	scripts := b.ForceAppendExpectOutput([]int{privVar.Index}, ir.Operation{Kind: ir.OpBuildPayToPubKeyHash})

	var txid [32]byte
	txid[0] = 0x42
	txo := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadTxo, Txo: ir.TxoLiteral{Txid: txid, Vout: 0, Amount: 50_000, ScriptKind: "p2pkh"}})

	txInner := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpBeginBuildTx})
	inputsInner := b.ForceAppendExpectOutput([]int{txInner.Index}, ir.Operation{Kind: ir.OpBeginBuildTxInputs})
	b.ForceAppend([]int{inputsInner.Index, txo.Index}, ir.Operation{Kind: ir.OpAddTxInput})
	b.ForceAppendExpectOutput([]int{inputsInner.Index}, ir.Operation{Kind: ir.OpEndBuildTxInputs})
	outputsInner := b.ForceAppendExpectOutput([]int{txInner.Index}, ir.Operation{Kind: ir.OpBeginBuildTxOutputs})
	b.ForceAppend([]int{outputsInner.Index, scripts.Index}, ir.Operation{Kind: ir.OpAddTxOutput})
	b.ForceAppendExpectOutput([]int{outputsInner.Index}, ir.Operation{Kind: ir.OpEndBuildTxOutputs})
	b.ForceAppendExpectOutput([]int{txInner.Index}, ir.Operation{Kind: ir.OpEndBuildTx})

	cmpct := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadBytes, Bytes: []byte{0xAA}})
	b.ForceAppend([]int{conn.Index, cmpct.Index}, ir.Operation{Kind: ir.OpSendCompactBlock})

	p, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	triggerInstr := -1
	for i, instr := range p.Instructions {
		if instr.Operation.Kind == ir.OpSendCompactBlock {
			triggerInstr = i
		}
	}
	if triggerInstr < 0 {
		t.Fatalf("did not find SendCompactBlock in built program")
	}

	meta := &metadata.PerTestcaseMetadata{
		BlockTxnRequests: []metadata.GetBlockTxnRequest{
			{TriggeringInstruction: triggerInstr, ConnectionVar: conn.Index},
		},
	}
	rng := rand.New(rand.NewSource(11))

	out, ok := BlockTxnMutator(p, meta, rng)
	if !ok {
		t.Fatalf("expected BlockTxnMutator to splice a response")
	}
	if len(out.Instructions) <= len(p.Instructions) {
		t.Fatalf("expected the spliced program to grow")
	}
	if _, err := builder.FromProgram(out); err != nil {
		t.Fatalf("spliced program no longer validates: %v", err)
	}

	found := false
	for _, instr := range out.Instructions {
		if instr.Operation.Kind == ir.OpSendBlockTxn {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a SendBlockTxn in the spliced program")
	}
}
