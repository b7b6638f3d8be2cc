package generators

import (
	"math/rand"

	"github.com/fuzzamoto/ir-engine/internal/ir"
	"github.com/fuzzamoto/ir-engine/internal/ir/builder"
	"github.com/fuzzamoto/ir-engine/internal/ir/metadata"
)

// BloomFilterLoadGenerator builds a BIP37 bloom filter from a handful of
// already-built transactions/outputs (or fresh ones, spending new Txos) and
// installs it with filterload.
type BloomFilterLoadGenerator struct{}

func (BloomFilterLoadGenerator) Name() string                           { return "BloomFilterLoad" }
func (BloomFilterLoadGenerator) RequestedContext() ir.InstructionContext { return ir.ContextGlobal }
func (BloomFilterLoadGenerator) Generate(b *builder.ProgramBuilder, rng *rand.Rand, meta *metadata.PerTestcaseMetadata) error {
	inner := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpBeginBuildFilterLoad})

	elements := 1 + rng.Intn(4)
	for i := 0; i < elements; i++ {
		if rng.Intn(2) == 0 {
			tx, ok := b.GetRandomVariable(rng, ir.VarConstTx)
			if !ok {
				txo := loadRandomTxo(b, rng, meta)
				tx = buildTxSpending(b, rng, []builder.IndexedVariable{txo}, 1)
			}
			b.ForceAppend([]int{inner.Index, tx.Index}, ir.Operation{Kind: ir.OpAddTxToFilter})
		} else {
			txo := loadRandomTxo(b, rng, meta)
			b.ForceAppend([]int{inner.Index, txo.Index}, ir.Operation{Kind: ir.OpAddTxoToFilter})
		}
	}

	filter := b.ForceAppendExpectOutput([]int{inner.Index}, ir.Operation{Kind: ir.OpEndBuildFilterLoad})
	conn := randConnOrNew(b, rng)
	b.ForceAppend([]int{conn.Index, filter.Index}, ir.Operation{Kind: ir.OpSendFilterLoad})
	return nil
}

// BloomFilterAddGenerator sends a standalone filteradd payload: either an
// arbitrary byte literal, or the derived add-element for an already-built
// transaction/Txo (BuildFilterAddFromTx/Txo), whichever the random draw
// picks.
type BloomFilterAddGenerator struct{}

func (BloomFilterAddGenerator) Name() string                           { return "BloomFilterAdd" }
func (BloomFilterAddGenerator) RequestedContext() ir.InstructionContext { return ir.ContextGlobal }
func (BloomFilterAddGenerator) Generate(b *builder.ProgramBuilder, rng *rand.Rand, meta *metadata.PerTestcaseMetadata) error {
	conn := randConnOrNew(b, rng)

	if mutFilter, ok := b.GetNearestVariable(ir.VarMutFilterLoad); ok && rng.Intn(2) == 0 {
		var elem builder.IndexedVariable
		if rng.Intn(2) == 0 {
			tx, ok := b.GetRandomVariable(rng, ir.VarConstTx)
			if !ok {
				txo := loadRandomTxo(b, rng, meta)
				tx = buildTxSpending(b, rng, []builder.IndexedVariable{txo}, 1)
			}
			elem = b.ForceAppendExpectOutput([]int{mutFilter.Index, tx.Index}, ir.Operation{Kind: ir.OpBuildFilterAddFromTx})
		} else {
			txo := loadRandomTxo(b, rng, meta)
			elem = b.ForceAppendExpectOutput([]int{mutFilter.Index, txo.Index}, ir.Operation{Kind: ir.OpBuildFilterAddFromTxo})
		}
		b.ForceAppend([]int{conn.Index, elem.Index}, ir.Operation{Kind: ir.OpSendFilterAdd})
		return nil
	}

	lit := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadFilterAdd, Filter: ir.FilterLiteral{Data: randBytes(rng, 64)}})
	b.ForceAppend([]int{conn.Index, lit.Index}, ir.Operation{Kind: ir.OpSendFilterAdd})
	return nil
}

// BloomFilterClearGenerator sends filterclear.
type BloomFilterClearGenerator struct{}

func (BloomFilterClearGenerator) Name() string                           { return "BloomFilterClear" }
func (BloomFilterClearGenerator) RequestedContext() ir.InstructionContext { return ir.ContextGlobal }
func (BloomFilterClearGenerator) Generate(b *builder.ProgramBuilder, rng *rand.Rand, _ *metadata.PerTestcaseMetadata) error {
	conn := randConnOrNew(b, rng)
	b.ForceAppend([]int{conn.Index}, ir.Operation{Kind: ir.OpSendFilterClear})
	return nil
}

// CompactFilterQueryGenerator issues one of the three BIP157/BIP158 compact
// filter requests (getcfilters/getcfheaders/getcfcheckpt).
type CompactFilterQueryGenerator struct{}

func (CompactFilterQueryGenerator) Name() string                           { return "CompactFilterQuery" }
func (CompactFilterQueryGenerator) RequestedContext() ir.InstructionContext { return ir.ContextGlobal }

var cfilterQueryKinds = []ir.OpKind{ir.OpSendGetCFilters, ir.OpSendGetCFHeaders, ir.OpSendGetCFCheckpt}

func (CompactFilterQueryGenerator) Generate(b *builder.ProgramBuilder, rng *rand.Rand, _ *metadata.PerTestcaseMetadata) error {
	ftype := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadCompactFilterType, CFilterType: uint8(rng.Intn(2))})
	conn := randConnOrNew(b, rng)
	kind := cfilterQueryKinds[rng.Intn(len(cfilterQueryKinds))]
	b.ForceAppend([]int{conn.Index, ftype.Index}, ir.Operation{Kind: kind})
	return nil
}
