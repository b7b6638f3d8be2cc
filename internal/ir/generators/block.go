package generators

import (
	"math/rand"

	"github.com/fuzzamoto/ir-engine/internal/ir"
	"github.com/fuzzamoto/ir-engine/internal/ir/builder"
	"github.com/fuzzamoto/ir-engine/internal/ir/metadata"
)

func randHeaderLiteral(rng *rand.Rand, b *builder.ProgramBuilder) ir.HeaderLiteral {
	var prev, merkle [32]byte
	rng.Read(prev[:])
	rng.Read(merkle[:])
	return ir.HeaderLiteral{
		Prev: prev, MerkleRoot: merkle,
		Bits: 0x207fffff, // regtest-style minimal difficulty target
		Time: uint32(b.Context().Timestamp),
		Version: 1,
		Height: uint32(rng.Intn(1000)),
	}
}

// HeaderGenerator loads a standalone Header literal, a building block both
// SendHeader and BlockGenerator's "previous block" input reach for.
type HeaderGenerator struct{}

func (HeaderGenerator) Name() string                           { return "Header" }
func (HeaderGenerator) RequestedContext() ir.InstructionContext { return ir.ContextGlobal }
func (HeaderGenerator) Generate(b *builder.ProgramBuilder, rng *rand.Rand, _ *metadata.PerTestcaseMetadata) error {
	b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadHeader, Header: randHeaderLiteral(rng, b)})
	return nil
}

// parentHeader picks the Header a new block should extend: an in-scope
// Header variable if one exists (likely the previous BuildBlock's own
// output), otherwise a freshly loaded literal.
func parentHeader(b *builder.ProgramBuilder, rng *rand.Rand) builder.IndexedVariable {
	if v, ok := b.GetNearestVariable(ir.VarHeader); ok {
		return v
	}
	return b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadHeader, Header: randHeaderLiteral(rng, b)})
}

// buildEmptyBlockTxns opens and immediately closes a BlockTransactions
// scope, the minimal valid input BuildBlock needs when no non-coinbase
// transactions are being included.
func buildEmptyBlockTxns(b *builder.ProgramBuilder) builder.IndexedVariable {
	inner := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpBeginBlockTransactions})
	return b.ForceAppendExpectOutput([]int{inner.Index}, ir.Operation{Kind: ir.OpEndBlockTransactions})
}

// buildBlockTxnsWith opens a BlockTransactions scope, folds in every
// already-built ConstTx the builder currently has in scope (up to max), and
// closes it.
func buildBlockTxnsWith(b *builder.ProgramBuilder, max int) builder.IndexedVariable {
	inner := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpBeginBlockTransactions})
	for i, v := range b.GetAllVariable(ir.VarConstTx) {
		if i >= max {
			break
		}
		b.ForceAppend([]int{inner.Index, v.Index}, ir.Operation{Kind: ir.OpAddTx})
	}
	return b.ForceAppendExpectOutput([]int{inner.Index}, ir.Operation{Kind: ir.OpEndBlockTransactions})
}

func buildTimeVar(b *builder.ProgramBuilder) builder.IndexedVariable {
	if v, ok := b.GetNearestVariable(ir.VarTime); ok {
		return v
	}
	return b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadTime, Time: uint32(b.Context().Timestamp)})
}

// BlockGenerator assembles a full BuildBlock call: a fresh coinbase, an
// optional handful of already-built transactions folded into the block, the
// current mock-time clock, and a block version, then optionally relays the
// result to a connection.
type BlockGenerator struct{}

func (BlockGenerator) Name() string                           { return "Block" }
func (BlockGenerator) RequestedContext() ir.InstructionContext { return ir.ContextGlobal }
func (BlockGenerator) Generate(b *builder.ProgramBuilder, rng *rand.Rand, meta *metadata.PerTestcaseMetadata) error {
	if err := (CoinbaseTxGenerator{}).Generate(b, rng, meta); err != nil {
		return err
	}
	coinbase, ok := b.GetNearestVariable(ir.VarConstCoinbaseTx)
	if !ok {
		panic("generators: CoinbaseTxGenerator did not produce a ConstCoinbaseTx")
	}
	prev := parentHeader(b, rng)
	timeVar := buildTimeVar(b)
	ver := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadBlockVersion, BlockVersion: 536870912})

	var txns builder.IndexedVariable
	if rng.Intn(2) == 0 {
		txns = buildEmptyBlockTxns(b)
	} else {
		txns = buildBlockTxnsWith(b, 1+rng.Intn(4))
	}

	b.ForceAppend([]int{coinbase.Index, prev.Index, timeVar.Index, ver.Index, txns.Index}, ir.Operation{Kind: ir.OpBuildBlock})

	if rng.Intn(3) != 0 {
		conn := randConnOrNew(b, rng)
		header, _ := b.GetNearestVariable(ir.VarHeader)
		b.ForceAppend([]int{conn.Index, header.Index}, ir.Operation{Kind: ir.OpSendHeader})
	}
	return nil
}

// TipBlockGenerator builds a block extending the harness's most recently
// observed tip (select_header_nth over metadata.RecentBlocks) rather than
// an arbitrary fresh header, so it actually connects to the
// node's live chain instead of forking from nothing.
type TipBlockGenerator struct{}

func (TipBlockGenerator) Name() string                           { return "TipBlock" }
func (TipBlockGenerator) RequestedContext() ir.InstructionContext { return ir.ContextGlobal }
func (TipBlockGenerator) Generate(b *builder.ProgramBuilder, rng *rand.Rand, meta *metadata.PerTestcaseMetadata) error {
	if err := (CoinbaseTxGenerator{}).Generate(b, rng, meta); err != nil {
		return err
	}
	coinbase, ok := b.GetNearestVariable(ir.VarConstCoinbaseTx)
	if !ok {
		panic("generators: CoinbaseTxGenerator did not produce a ConstCoinbaseTx")
	}

	var prev builder.IndexedVariable
	if meta != nil {
		if tip, ok := meta.NthMostRecentBlock(0); ok {
			prev = b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadHeader, Header: ir.HeaderLiteral{
				Prev: tip.Hash, Bits: 0x207fffff, Time: uint32(b.Context().Timestamp), Version: 1,
			}})
		}
	}
	if prev.Type == ir.VarNop {
		prev = parentHeader(b, rng)
	}

	timeVar := buildTimeVar(b)
	ver := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadBlockVersion, BlockVersion: 536870912})
	txns := buildBlockTxnsWith(b, 1+rng.Intn(4))

	b.ForceAppend([]int{coinbase.Index, prev.Index, timeVar.Index, ver.Index, txns.Index}, ir.Operation{Kind: ir.OpBuildBlock})
	return nil
}

// AddTxToBlockGenerator folds a random already-built ConstTx into the
// currently-open BlockTransactions scope. It is only legal to run while the
// builder's current scope is ContextBlockTransactions (an already-open
// BeginBlockTransactions), unlike every generator above that operates at
// global scope.
type AddTxToBlockGenerator struct{}

func (AddTxToBlockGenerator) Name() string                           { return "AddTxToBlock" }
func (AddTxToBlockGenerator) RequestedContext() ir.InstructionContext { return ir.ContextBlockTransactions }
func (AddTxToBlockGenerator) Generate(b *builder.ProgramBuilder, rng *rand.Rand, _ *metadata.PerTestcaseMetadata) error {
	container, ok := b.GetNearestVariable(ir.VarMutBlockTransactions)
	if !ok {
		return nil // no open block-transactions scope to append into
	}
	tx, ok := b.GetRandomVariable(rng, ir.VarConstTx)
	if !ok {
		return nil
	}
	b.ForceAppend([]int{container.Index, tx.Index}, ir.Operation{Kind: ir.OpAddTx})
	return nil
}

// CompactBlockGenerator turns the nearest in-scope Block into its BIP152
// compact form and relays it.
type CompactBlockGenerator struct{}

func (CompactBlockGenerator) Name() string                           { return "CompactBlock" }
func (CompactBlockGenerator) RequestedContext() ir.InstructionContext { return ir.ContextGlobal }
func (CompactBlockGenerator) Generate(b *builder.ProgramBuilder, rng *rand.Rand, meta *metadata.PerTestcaseMetadata) error {
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
	nonce := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadNonce, Nonce: rng.Uint32()})
	cmpct := b.ForceAppendExpectOutput([]int{block.Index, nonce.Index}, ir.Operation{Kind: ir.OpBuildCompactBlock})

	conn := randConnOrNew(b, rng)
	b.ForceAppend([]int{conn.Index, cmpct.Index}, ir.Operation{Kind: ir.OpSendCompactBlock})
	return nil
}

// BlockTxnGenerator sends a blocktxn built from a random subset of the
// in-scope ConstTx variables (empty when there are none) to a random
// connection, once some Block is in scope. It does not read
// metadata.BlockTxnRequests, so the blocktxn it sends does not answer a
// recorded getblocktxn request.
type BlockTxnGenerator struct{}

func (BlockTxnGenerator) Name() string                           { return "BlockTxn" }
func (BlockTxnGenerator) RequestedContext() ir.InstructionContext { return ir.ContextGlobal }
func (BlockTxnGenerator) Generate(b *builder.ProgramBuilder, rng *rand.Rand, _ *metadata.PerTestcaseMetadata) error {
	if _, ok := b.GetNearestVariable(ir.VarBlock); !ok {
		return nil // nothing a blocktxn could plausibly answer for yet
	}

	inner := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpBeginBuildBlockTxn})
	for _, tx := range b.GetRandomVariables(rng, ir.VarConstTx) {
		b.ForceAppend([]int{inner.Index, tx.Index}, ir.Operation{Kind: ir.OpAddTxToBlockTxn})
	}
	constBlockTxn := b.ForceAppendExpectOutput([]int{inner.Index}, ir.Operation{Kind: ir.OpEndBuildBlockTxn})

	conn := randConnOrNew(b, rng)
	b.ForceAppend([]int{conn.Index, constBlockTxn.Index}, ir.Operation{Kind: ir.OpSendBlockTxn})
	return nil
}
