package generators

import (
	"math/rand"

	"github.com/fuzzamoto/ir-engine/internal/ir"
	"github.com/fuzzamoto/ir-engine/internal/ir/builder"
	"github.com/fuzzamoto/ir-engine/internal/ir/metadata"
)

// WitnessGenerator builds a standalone witness stack out of arbitrary byte
// pushes. Nothing in the closed operation catalogue consumes a
// ConstWitnessStack directly (real witnesses are attached during signing, in
// the compiler's own tx-building path); this generator exists to exercise a
// node's raw witness-stack parsing/size limits independent of any spend.
type WitnessGenerator struct{}

func (WitnessGenerator) Name() string                           { return "Witness" }
func (WitnessGenerator) RequestedContext() ir.InstructionContext { return ir.ContextGlobal }
func (WitnessGenerator) Generate(b *builder.ProgramBuilder, rng *rand.Rand, _ *metadata.PerTestcaseMetadata) error {
	inner := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpBeginWitnessStack})

	items := rng.Intn(5)
	for i := 0; i < items; i++ {
		n := rng.Intn(521) // push sizes around the 520-byte script element limit
		item := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadBytes, Bytes: randBytes(rng, n)})
		b.ForceAppend([]int{inner.Index, item.Index}, ir.Operation{Kind: ir.OpAddWitness})
	}

	b.ForceAppendExpectOutput([]int{inner.Index}, ir.Operation{Kind: ir.OpEndWitnessStack})
	return nil
}
