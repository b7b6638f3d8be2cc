package codec

import (
	"testing"

	"github.com/fuzzamoto/ir-engine/internal/ir"
	"github.com/fuzzamoto/ir-engine/internal/ir/builder"
)

func buildSampleProgram(t *testing.T) *ir.Program {
	t.Helper()
	b := builder.New(ir.ProgramContext{Nodes: 2, Connections: 2, Timestamp: 123456})

	conn := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadConnection, ConnIndex: 1})
	msgType := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadMsgType, MsgType: [12]byte{'t', 'x'}})
	payload := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadBytes, Bytes: []byte{0xDE, 0xAD, 0xBE, 0xEF}})
	b.ForceAppend([]int{conn.Index, msgType.Index, payload.Index}, ir.Operation{Kind: ir.OpSendRawMessage})

	var priv [32]byte
	priv[31] = 7
	b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadPrivateKey, PrivateKey: priv})

	var txid [32]byte
	txid[0] = 0x11
	b.ForceAppendExpectOutput(nil, ir.Operation{
		Kind: ir.OpLoadTxo,
		Txo:  ir.TxoLiteral{Txid: txid, Vout: 3, Amount: 50_000, ScriptKind: "p2wpkh"},
	})

	stack := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpBeginWitnessStack})
	elem := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadBytes, Bytes: []byte{1, 2, 3}})
	b.ForceAppend([]int{stack.Index, elem.Index}, ir.Operation{Kind: ir.OpAddWitness})
	b.ForceAppendExpectOutput([]int{stack.Index}, ir.Operation{Kind: ir.OpEndWitnessStack})

	p, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return p
}

func assertProgramsEqual(t *testing.T, want, got *ir.Program) {
	t.Helper()
	if got.Context != want.Context {
		t.Fatalf("context mismatch: want %+v, got %+v", want.Context, got.Context)
	}
	if len(got.Instructions) != len(want.Instructions) {
		t.Fatalf("instruction count mismatch: want %d, got %d", len(want.Instructions), len(got.Instructions))
	}
	for i := range want.Instructions {
		w, g := want.Instructions[i], got.Instructions[i]
		if len(w.Inputs) != len(g.Inputs) {
			t.Fatalf("instruction %d: input count mismatch: want %v, got %v", i, w.Inputs, g.Inputs)
		}
		for j := range w.Inputs {
			if w.Inputs[j] != g.Inputs[j] {
				t.Fatalf("instruction %d input %d mismatch: want %d, got %d", i, j, w.Inputs[j], g.Inputs[j])
			}
		}
		if w.Operation.Kind != g.Operation.Kind {
			t.Fatalf("instruction %d: operation kind mismatch: want %v, got %v", i, w.Operation.Kind, g.Operation.Kind)
		}
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	p := buildSampleProgram(t)
	data := EncodeBinary(p)

	got, err := DecodeBinary(data)
	if err != nil {
		t.Fatalf("DecodeBinary: %v", err)
	}
	assertProgramsEqual(t, p, got)
}

func TestJSONRoundTrip(t *testing.T) {
	p := buildSampleProgram(t)
	data, err := EncodeJSON(p)
	if err != nil {
		t.Fatalf("EncodeJSON: %v", err)
	}

	got, err := DecodeJSON(data)
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	assertProgramsEqual(t, p, got)
}

func TestBinaryRoundTripPreservesLiteralPayloads(t *testing.T) {
	p := buildSampleProgram(t)
	got, err := DecodeBinary(EncodeBinary(p))
	if err != nil {
		t.Fatalf("DecodeBinary: %v", err)
	}

	var txo *ir.Operation
	for i := range got.Instructions {
		if got.Instructions[i].Operation.Kind == ir.OpLoadTxo {
			txo = &got.Instructions[i].Operation
		}
	}
	if txo == nil {
		t.Fatalf("expected a decoded LoadTxo instruction")
	}
	if txo.Txo.Vout != 3 || txo.Txo.Amount != 50_000 || txo.Txo.ScriptKind != "p2wpkh" {
		t.Fatalf("LoadTxo literal did not round-trip: %+v", txo.Txo)
	}
	if txo.Txo.Txid[0] != 0x11 {
		t.Fatalf("LoadTxo txid did not round-trip: %x", txo.Txo.Txid)
	}
}

func TestDecodeBinaryRejectsTruncatedInput(t *testing.T) {
	p := buildSampleProgram(t)
	data := EncodeBinary(p)
	if _, err := DecodeBinary(data[:len(data)-5]); err == nil {
		t.Fatalf("expected DecodeBinary to reject truncated input")
	}
}
