// Package generators implements the program-construction families: each
// Generator appends a self-contained, well-typed chunk
// of instructions to a ProgramBuilder, resampling its own random parameters
// from an *rand.Rand supplied by the caller (the fuzzer front-end, out of
// scope here, owns the RNG's seeding).
package generators

import (
	"math/rand"

	"github.com/fuzzamoto/ir-engine/internal/ir"
	"github.com/fuzzamoto/ir-engine/internal/ir/builder"
	"github.com/fuzzamoto/ir-engine/internal/ir/metadata"
)

// Generator is one instruction-construction family. RequestedContext names
// the InstructionContext the builder must currently be in for Generate to be
// legal to call (ContextGlobal for most top-level generators); callers that
// splice at an arbitrary index use Program.RandomInstructionIndexFrom to find
// one matching before invoking Generate through a builder replay.
type Generator interface {
	Name() string
	RequestedContext() ir.InstructionContext
	Generate(b *builder.ProgramBuilder, rng *rand.Rand, meta *metadata.PerTestcaseMetadata) error
}

// All is every generator the engine ships, in the order a round-robin
// scheduler would offer them. The fuzzer front-end's selection policy
// (weighted sampling, coverage feedback) is out of scope; this registry only
// names what is available.
var All = []Generator{
	AdvanceTimeGenerator{},
	SendMessageGenerator{},
	HeaderGenerator{},
	TxoGenerator{},
	SingleTxGenerator{},
	OneParentOneChildTxGenerator{},
	LongChainTxGenerator{},
	LargeTxGenerator{},
	CoinbaseTxGenerator{},
	PredicateTxGenerator{},
	BlockGenerator{},
	TipBlockGenerator{},
	AddTxToBlockGenerator{},
	CompactBlockGenerator{},
	BlockTxnGenerator{},
	InventoryGenerator{},
	GetDataGenerator{},
	SendBlockGenerator{},
	BloomFilterLoadGenerator{},
	BloomFilterAddGenerator{},
	BloomFilterClearGenerator{},
	CompactFilterQueryGenerator{},
	AddrRelayGenerator{},
	AddrRelayV2Generator{},
	GetAddrGenerator{},
	WitnessGenerator{},
}

// randDuration samples a mock-time advance in the 1s-10min range: enough to
// cross most node timing thresholds (stale tip, ping timeout) without ever
// producing zero (AdvanceTime with a zero duration is legal but pointless).
func randDuration(rng *rand.Rand) uint64 {
	return uint64(1 + rng.Intn(600))
}

// randConnOrNew returns a random in-scope Connection, synthesising one
// against the program's context if none exists yet.
func randConnOrNew(b *builder.ProgramBuilder, rng *rand.Rand) builder.IndexedVariable {
	return b.GetOrCreateRandomConnection(rng)
}

// randBytes samples a short arbitrary payload, the generic stand-in used by
// every generator that needs "some bytes" (OP_RETURN payloads, filter
// elements, raw message bodies) without a more specific shape.
func randBytes(rng *rand.Rand, maxLen int) []byte {
	n := rng.Intn(maxLen + 1)
	out := make([]byte, n)
	rng.Read(out)
	return out
}
