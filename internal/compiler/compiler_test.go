package compiler

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/wire"

	"github.com/fuzzamoto/ir-engine/internal/ir"
	"github.com/fuzzamoto/ir-engine/internal/ir/builder"
	"github.com/fuzzamoto/ir-engine/internal/ir/metadata"
)

func TestCompileSendRawMessageEmitsConnectThenSend(t *testing.T) {
	b := builder.New(ir.ProgramContext{Nodes: 1, Connections: 2, Timestamp: 1000})
	conn := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadConnection, ConnIndex: 1})
	msgType := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadMsgType, MsgType: [12]byte{'p', 'i', 'n', 'g'}})
	payload := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadBytes, Bytes: []byte{1, 2, 3, 4}})
	b.ForceAppend([]int{conn.Index, msgType.Index, payload.Index}, ir.Operation{Kind: ir.OpSendRawMessage})

	p, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	compiled, err := Compile(p, &metadata.PerTestcaseMetadata{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(compiled.Actions) != 2 {
		t.Fatalf("expected 2 actions (dial + send), got %d", len(compiled.Actions))
	}
	if compiled.Actions[0].Kind != ActionConnect || compiled.Actions[0].Connection != 1 {
		t.Fatalf("expected a Connect action to connection 1 first, got %+v", compiled.Actions[0])
	}
	send := compiled.Actions[1]
	if send.Kind != ActionSendRawMessage || send.Command != "ping" {
		t.Fatalf("expected a SendRawMessage action with command \"ping\", got %+v", send)
	}
	if string(send.Payload) != string([]byte{1, 2, 3, 4}) {
		t.Fatalf("expected the literal payload to pass through unchanged, got %x", send.Payload)
	}
}

func TestCompileDialsEachConnectionOnlyOnce(t *testing.T) {
	b := builder.New(ir.ProgramContext{Nodes: 1, Connections: 1, Timestamp: 1000})
	conn := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadConnection, ConnIndex: 0})
	msgType := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadMsgType})
	payload := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadBytes})
	b.ForceAppend([]int{conn.Index, msgType.Index, payload.Index}, ir.Operation{Kind: ir.OpSendRawMessage})
	b.ForceAppend([]int{conn.Index, msgType.Index, payload.Index}, ir.Operation{Kind: ir.OpSendRawMessage})

	p, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	compiled, err := Compile(p, &metadata.PerTestcaseMetadata{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	connects := 0
	for _, a := range compiled.Actions {
		if a.Kind == ActionConnect {
			connects++
		}
	}
	if connects != 1 {
		t.Fatalf("expected exactly one Connect action for the one connection used, got %d", connects)
	}
	if len(compiled.Actions) != 3 {
		t.Fatalf("expected 1 connect + 2 sends, got %d actions", len(compiled.Actions))
	}
}

func TestCompileSetTimeEmitsAction(t *testing.T) {
	b := builder.New(ir.ProgramContext{Nodes: 1, Connections: 1, Timestamp: 1000})
	tm := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadTime, Time: 5000})
	b.ForceAppend([]int{tm.Index}, ir.Operation{Kind: ir.OpSetTime})

	p, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	compiled, err := Compile(p, &metadata.PerTestcaseMetadata{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(compiled.Actions) != 1 || compiled.Actions[0].Kind != ActionSetTime {
		t.Fatalf("expected a single SetTime action, got %+v", compiled.Actions)
	}
	if compiled.Actions[0].Seconds != 5000 {
		t.Fatalf("expected Seconds=5000, got %d", compiled.Actions[0].Seconds)
	}
}

// buildSpendingTxProgram builds: one pre-seeded, anyone-can-spend Txo spent
// into a single raw-script output, then sent as a tx over a connection.
func buildSpendingTxProgram(t *testing.T, inputAmount int64) *ir.Program {
	t.Helper()
	b := builder.New(ir.ProgramContext{Nodes: 1, Connections: 1, Timestamp: 1000})

	var txid [32]byte
	txid[0] = 0xAB
	txo := b.ForceAppendExpectOutput(nil, ir.Operation{
		Kind: ir.OpLoadTxo,
		Txo:  ir.TxoLiteral{Txid: txid, Vout: 0, Amount: inputAmount},
	})
	scripts := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpBuildRawScripts, Bytes: []byte{0x51}})

	tx := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpBeginBuildTx})
	txIns := b.ForceAppendExpectOutput([]int{tx.Index}, ir.Operation{Kind: ir.OpBeginBuildTxInputs})
	b.ForceAppend([]int{txIns.Index, txo.Index}, ir.Operation{Kind: ir.OpAddTxInput})
	b.ForceAppendExpectOutput([]int{txIns.Index}, ir.Operation{Kind: ir.OpEndBuildTxInputs})

	txOuts := b.ForceAppendExpectOutput([]int{tx.Index}, ir.Operation{Kind: ir.OpBeginBuildTxOutputs})
	b.ForceAppend([]int{txOuts.Index, scripts.Index}, ir.Operation{Kind: ir.OpAddTxOutput})
	b.ForceAppendExpectOutput([]int{txOuts.Index}, ir.Operation{Kind: ir.OpEndBuildTxOutputs})

	constTx := b.ForceAppendExpectOutput([]int{tx.Index}, ir.Operation{Kind: ir.OpEndBuildTx})

	conn := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadConnection, ConnIndex: 0})
	b.ForceAppend([]int{conn.Index, constTx.Index}, ir.Operation{Kind: ir.OpSendTx})

	p, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return p
}

func TestCompileBuildsAndSendsASpendingTransaction(t *testing.T) {
	p := buildSpendingTxProgram(t, 50_000)

	compiled, err := Compile(p, &metadata.PerTestcaseMetadata{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(compiled.Actions) != 2 {
		t.Fatalf("expected connect + send, got %d actions", len(compiled.Actions))
	}
	send := compiled.Actions[1]
	if send.Kind != ActionSendRawMessage || send.Command != wire.CmdTx {
		t.Fatalf("expected a tx message, got %+v", send)
	}

	msg := wire.MsgTx{}
	if err := msg.BtcDecode(bytes.NewReader(send.Payload), wire.ProtocolVersion, wire.WitnessEncoding); err != nil {
		t.Fatalf("decoding compiled tx payload: %v", err)
	}
	if len(msg.TxIn) != 1 || len(msg.TxOut) != 1 {
		t.Fatalf("expected 1 input and 1 output, got %d/%d", len(msg.TxIn), len(msg.TxOut))
	}
	if msg.TxIn[0].PreviousOutPoint.Index != 0 || msg.TxIn[0].PreviousOutPoint.Hash[0] != 0xAB {
		t.Fatalf("unexpected previous outpoint: %+v", msg.TxIn[0].PreviousOutPoint)
	}
	// The anyone-can-spend pre-seeded Txo has no Spender, so no signature is
	// attached; the fee-capping policy should still have credited the whole
	// available amount (less txFeeSats) to the one output.
	if want := inputAmount50kMinusFee; msg.TxOut[0].Value != want {
		t.Fatalf("expected output value %d, got %d", want, msg.TxOut[0].Value)
	}
}

const inputAmount50kMinusFee = 50_000 - txFeeSats

func TestCompileRejectsOversizedCompiledProgram(t *testing.T) {
	b := builder.New(ir.ProgramContext{Nodes: 1, Connections: 1, Timestamp: 1000})
	conn := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadConnection, ConnIndex: 0})
	msgType := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadMsgType})
	huge := make([]byte, MaxCompiledSize+1)
	payload := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadBytes, Bytes: huge})
	b.ForceAppend([]int{conn.Index, msgType.Index, payload.Index}, ir.Operation{Kind: ir.OpSendRawMessage})

	p, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if _, err := Compile(p, &metadata.PerTestcaseMetadata{}); err == nil {
		t.Fatalf("expected Compile to reject a payload over MaxCompiledSize")
	} else if ce, ok := err.(*CompilerError); !ok || ce.Kind != ErrPayloadTooLarge {
		t.Fatalf("expected ErrPayloadTooLarge, got %T: %v", err, err)
	}
}

func TestCompileRejectsDanglingVariableReference(t *testing.T) {
	// The compiler trusts its input is builder-validated; feeding it a raw
	// Program that references a never-produced variable must still fail
	// cleanly rather than panic.
	p := &ir.Program{
		Context: ir.ProgramContext{Nodes: 1, Connections: 1},
		Instructions: []ir.Instruction{
			{Inputs: []int{0, 1, 2}, Operation: ir.Operation{Kind: ir.OpSendRawMessage}},
		},
	}
	_, err := Compile(p, &metadata.PerTestcaseMetadata{})
	if err == nil {
		t.Fatalf("expected Compile to reject a dangling variable reference")
	}
	if ce, ok := err.(*CompilerError); !ok || ce.Kind != ErrVariableNotFound {
		t.Fatalf("expected ErrVariableNotFound, got %T: %v", err, err)
	}
}

func TestCompileBuildBlockRecordsTheBlockInMetadata(t *testing.T) {
	b := builder.New(ir.ProgramContext{Nodes: 1, Connections: 1, Timestamp: 1000})

	height := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadBlockHeight, BlockHeight: 1})
	b.ForceAppendExpectOutput([]int{height.Index}, ir.Operation{Kind: ir.OpBuildCoinbaseTxInput})

	cb := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpBeginBuildCoinbaseTx})
	cbOuts := b.ForceAppendExpectOutput([]int{cb.Index}, ir.Operation{Kind: ir.OpBeginBuildCoinbaseTxOutputs})
	scripts := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpBuildRawScripts, Bytes: []byte{0x51}})
	b.ForceAppend([]int{cbOuts.Index, scripts.Index}, ir.Operation{Kind: ir.OpAddCoinbaseTxOutput})
	b.ForceAppendExpectOutput([]int{cbOuts.Index}, ir.Operation{Kind: ir.OpEndBuildCoinbaseTxOutputs})
	coinbaseTx := b.ForceAppendExpectOutput([]int{cb.Index}, ir.Operation{Kind: ir.OpEndBuildCoinbaseTx})

	txns := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpBeginBlockTransactions})
	blockTxns := b.ForceAppendExpectOutput([]int{txns.Index}, ir.Operation{Kind: ir.OpEndBlockTransactions})

	var genesisPrev [32]byte
	prevHeader := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadHeader, Header: ir.HeaderLiteral{
		Prev: genesisPrev, Time: 999, Bits: 0x207fffff, Version: 1, Height: 0,
	}})
	tm := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadTime, Time: 1000})
	blockVer := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadBlockVersion, BlockVersion: 1})

	b.ForceAppend([]int{coinbaseTx.Index, prevHeader.Index, tm.Index, blockVer.Index, blockTxns.Index},
		ir.Operation{Kind: ir.OpBuildBlock})

	p, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	meta := &metadata.PerTestcaseMetadata{}
	compiled, err := Compile(p, meta)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(compiled.Actions) != 0 {
		t.Fatalf("BuildBlock alone should not emit any wire action, got %d", len(compiled.Actions))
	}
	if len(meta.RecentBlocks) != 1 {
		t.Fatalf("expected BuildBlock to record exactly one recent block, got %d", len(meta.RecentBlocks))
	}
	wantIdx := len(p.Instructions) - 1
	if meta.RecentBlocks[0].DefiningBlock == nil || meta.RecentBlocks[0].DefiningBlock.InstructionIndex != wantIdx {
		t.Fatalf("expected the recorded block's defining instruction to be the last (BuildBlock) instruction at %d, got %+v",
			wantIdx, meta.RecentBlocks[0].DefiningBlock)
	}
}
