package generators

import (
	"math/rand"

	"github.com/fuzzamoto/ir-engine/internal/ir"
	"github.com/fuzzamoto/ir-engine/internal/ir/builder"
	"github.com/fuzzamoto/ir-engine/internal/ir/metadata"
)

// txInvKinds and blockInvKinds are the AddXInv operations usable inside a
// BuildInventory scope, split by whether they key off a ConstTx or a Block.
var txInvKinds = []ir.OpKind{ir.OpAddTxidInv, ir.OpAddWtxidInv, ir.OpAddTxidWithWitnessInv}
var blockInvKinds = []ir.OpKind{ir.OpAddBlockInv, ir.OpAddBlockWithWitnessInv, ir.OpAddCompactBlockInv, ir.OpAddFilteredBlockInv}

// buildInventory opens a BuildInventory scope and fills it with a random mix
// of tx and block entries drawn from whatever ConstTx/Block variables are
// already in scope, loading a fresh Txo-backed tx if none exist yet.
func buildInventory(b *builder.ProgramBuilder, rng *rand.Rand, meta *metadata.PerTestcaseMetadata, count int) builder.IndexedVariable {
	inner := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpBeginBuildInventory})

	for i := 0; i < count; i++ {
		if rng.Intn(2) == 0 {
			tx, ok := b.GetRandomVariable(rng, ir.VarConstTx)
			if !ok {
				txo := loadRandomTxo(b, rng, meta)
				tx = buildTxSpending(b, rng, []builder.IndexedVariable{txo}, 1)
			}
			kind := txInvKinds[rng.Intn(len(txInvKinds))]
			b.ForceAppend([]int{inner.Index, tx.Index}, ir.Operation{Kind: kind})
		} else {
			blk, ok := b.GetRandomVariable(rng, ir.VarBlock)
			if !ok {
				continue // building a whole block just to fill an inv slot is wasteful; skip
			}
			kind := blockInvKinds[rng.Intn(len(blockInvKinds))]
			b.ForceAppend([]int{inner.Index, blk.Index}, ir.Operation{Kind: kind})
		}
	}

	return b.ForceAppendExpectOutput([]int{inner.Index}, ir.Operation{Kind: ir.OpEndBuildInventory})
}

// InventoryGenerator builds an inventory list and announces it with inv.
type InventoryGenerator struct{}

func (InventoryGenerator) Name() string                           { return "Inventory" }
func (InventoryGenerator) RequestedContext() ir.InstructionContext { return ir.ContextGlobal }
func (InventoryGenerator) Generate(b *builder.ProgramBuilder, rng *rand.Rand, meta *metadata.PerTestcaseMetadata) error {
	inv := buildInventory(b, rng, meta, 1+rng.Intn(4))
	conn := randConnOrNew(b, rng)
	b.ForceAppend([]int{conn.Index, inv.Index}, ir.Operation{Kind: ir.OpSendInv})
	return nil
}

// GetDataGenerator builds an inventory list and requests it with getdata,
// the node-facing half of a real inv/getdata exchange.
type GetDataGenerator struct{}

func (GetDataGenerator) Name() string                           { return "GetData" }
func (GetDataGenerator) RequestedContext() ir.InstructionContext { return ir.ContextGlobal }
func (GetDataGenerator) Generate(b *builder.ProgramBuilder, rng *rand.Rand, meta *metadata.PerTestcaseMetadata) error {
	inv := buildInventory(b, rng, meta, 1+rng.Intn(4))
	conn := randConnOrNew(b, rng)
	b.ForceAppend([]int{conn.Index, inv.Index}, ir.Operation{Kind: ir.OpSendGetData})
	return nil
}

// SendBlockGenerator relays the nearest in-scope Block directly (not via
// inv/getdata), occasionally stripping witness data to probe a node's
// pre-segwit relay path.
type SendBlockGenerator struct{}

func (SendBlockGenerator) Name() string                           { return "SendBlock" }
func (SendBlockGenerator) RequestedContext() ir.InstructionContext { return ir.ContextGlobal }
func (SendBlockGenerator) Generate(b *builder.ProgramBuilder, rng *rand.Rand, meta *metadata.PerTestcaseMetadata) error {
	block, ok := b.GetNearestVariable(ir.VarBlock)
	if !ok {
		if err := (BlockGenerator{}).Generate(b, rng, meta); err != nil {
			return err
		}
		block, ok = b.GetNearestVariable(ir.VarBlock)
		if !ok {
			panic("generators: BlockGenerator did not produce a Block")
		}
	}
	conn := randConnOrNew(b, rng)
	kind := ir.OpSendBlock
	if rng.Intn(5) == 0 {
		kind = ir.OpSendBlockNoWit
	}
	b.ForceAppend([]int{conn.Index, block.Index}, ir.Operation{Kind: kind})
	return nil
}
