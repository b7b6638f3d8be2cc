package mutators

import (
	"math/rand"

	"github.com/fuzzamoto/ir-engine/internal/ir"
	"github.com/fuzzamoto/ir-engine/internal/ir/metadata"
)

// BlockTxnMutator answers a recorded getblocktxn (triggered by an earlier
// SendCompactBlock) by splicing a BeginBuildBlockTxn/AddTxToBlockTxn*/
// EndBuildBlockTxn/SendBlockTxn sequence immediately after the trigger
// instruction, drawing the transactions to include from whatever ConstTx
// variables are in scope at that point.
func BlockTxnMutator(program *ir.Program, meta *metadata.PerTestcaseMetadata, rng *rand.Rand) (*ir.Program, bool) {
	if meta == nil || len(meta.BlockTxnRequests) == 0 {
		return program, false
	}
	req := meta.BlockTxnRequests[rng.Intn(len(meta.BlockTxnRequests))]
	insertAt := req.TriggeringInstruction + 1
	if insertAt < 0 || insertAt > len(program.Instructions) {
		return program, false
	}

	b, err := rebuildPrefix(program, insertAt)
	if err != nil {
		return program, false
	}
	if !b.IsVariableInScope(req.ConnectionVar) {
		return program, false
	}
	txs := b.GetRandomVariables(rng, ir.VarConstTx)
	if len(txs) == 0 {
		return program, false
	}

	prefixVarCount := (&ir.Program{Context: program.Context, Instructions: program.Instructions[:insertAt]}).VariableCount()

	inner := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpBeginBuildBlockTxn})
	for _, tx := range txs {
		b.ForceAppend([]int{inner.Index, tx.Index}, ir.Operation{Kind: ir.OpAddTxToBlockTxn})
	}
	constBlockTxn := b.ForceAppendExpectOutput([]int{inner.Index}, ir.Operation{Kind: ir.OpEndBuildBlockTxn})
	b.ForceAppend([]int{req.ConnectionVar, constBlockTxn.Index}, ir.Operation{Kind: ir.OpSendBlockTxn})

	insertedVarCount := constBlockTxn.Index + 1 - prefixVarCount

	suffix := &ir.Program{Context: program.Context, Instructions: program.Instructions[insertAt:]}
	if err := b.AppendProgram(suffix, prefixVarCount, insertedVarCount); err != nil {
		return program, false
	}

	p, err := b.Finalize()
	if err != nil || len(p.Instructions) > maxProgramInstructions {
		return program, false
	}
	return p, true
}
