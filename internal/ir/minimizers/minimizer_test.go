package minimizers

import (
	"testing"

	"github.com/fuzzamoto/ir-engine/internal/ir"
	"github.com/fuzzamoto/ir-engine/internal/ir/builder"
)

// buildLoadHeavyProgram builds: conn, three independent LoadBytes/SendRawMessage
// pairs on the same connection, of which only the middle one matters to the
// (fake) oracle below. Everything else should shrink away.
func buildLoadHeavyProgram(t *testing.T) *ir.Program {
	t.Helper()
	b := builder.New(ir.ProgramContext{Nodes: 1, Connections: 1, Timestamp: 100})
	conn := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadConnection, ConnIndex: 0})

	send := func(tag byte) {
		msgType := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadMsgType, MsgType: [12]byte{'t', 'x'}})
		payload := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadBytes, Bytes: []byte{tag}})
		b.ForceAppend([]int{conn.Index, msgType.Index, payload.Index}, ir.Operation{Kind: ir.OpSendRawMessage})
	}
	send(0xAA)
	send(0xBB) // the "interesting" one: keep predicate watches for this byte
	send(0xCC)

	p, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return p
}

// hasPayloadByte reports whether any LoadBytes literal in p carries want,
// standing in for a real crash oracle.
func hasPayloadByte(p *ir.Program, want byte) bool {
	for _, instr := range p.Instructions {
		if instr.Operation.Kind == ir.OpLoadBytes {
			for _, b := range instr.Operation.Bytes {
				if b == want {
					return true
				}
			}
		}
	}
	return false
}

func TestNoppingMinimizerDropsUnneededSends(t *testing.T) {
	p := buildLoadHeavyProgram(t)
	before := len(p.Instructions)

	keep := func(candidate *ir.Program) bool { return hasPayloadByte(candidate, 0xBB) }
	shrunk := NoppingMinimizer(p, keep)

	if len(shrunk.Instructions) >= before {
		t.Fatalf("expected NoppingMinimizer to shrink the program: before=%d after=%d", before, len(shrunk.Instructions))
	}
	if _, err := builder.FromProgram(shrunk); err != nil {
		t.Fatalf("shrunk program no longer validates: %v", err)
	}
}

func TestCuttingMinimizerShrinksFaster(t *testing.T) {
	p := buildLoadHeavyProgram(t)
	keep := func(candidate *ir.Program) bool { return hasPayloadByte(candidate, 0xBB) }

	shrunk := CuttingMinimizer(p, keep)
	if len(shrunk.Instructions) >= len(p.Instructions) {
		t.Fatalf("expected CuttingMinimizer to shrink the program")
	}
	if _, err := builder.FromProgram(shrunk); err != nil {
		t.Fatalf("shrunk program no longer validates: %v", err)
	}
}

func TestBlockMinimizerRemovesWholeScope(t *testing.T) {
	b := builder.New(ir.ProgramContext{Nodes: 1, Connections: 1, Timestamp: 100})
	conn := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadConnection, ConnIndex: 0})

	// An inventory scope whose contents are never sent anywhere: entirely
	// removable as a unit since BeginBuildInventory/EndBuildInventory are not
	// individually noppable.
	invInner := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpBeginBuildInventory})
	b.ForceAppendExpectOutput([]int{invInner.Index}, ir.Operation{Kind: ir.OpEndBuildInventory})
	_ = conn

	p, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	before := len(p.Instructions)

	always := func(*ir.Program) bool { return true }
	shrunk := BlockMinimizer(p, always)

	if len(shrunk.Instructions) >= before {
		t.Fatalf("expected BlockMinimizer to remove the unused inventory scope: before=%d after=%d", before, len(shrunk.Instructions))
	}
	if _, err := builder.FromProgram(shrunk); err != nil {
		t.Fatalf("shrunk program no longer validates: %v", err)
	}
}
