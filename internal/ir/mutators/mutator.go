// Package mutators implements the mutation and splicing strategies: each
// Mutator perturbs an existing, statically-valid
// Program into a new candidate. Mutators never call builder.FromProgram
// themselves — unlike minimizers, which revalidate every candidate, they hand
// back a candidate and trust the caller (the fuzzer front-end, or a test) to
// revalidate it the same way minimizers.revalidates does.
package mutators

import (
	"math/rand"

	"github.com/fuzzamoto/ir-engine/internal/ir"
	"github.com/fuzzamoto/ir-engine/internal/ir/builder"
)

// Mutator perturbs a single program, returning the resulting candidate and
// whether a mutation site was actually found. A false ok means p is returned
// unchanged and the caller should try a different mutator or program.
type Mutator interface {
	Name() string
	Mutate(p *ir.Program, rng *rand.Rand) (*ir.Program, bool)
}

// maxProgramInstructions caps any spliced program's length; splicers that
// would exceed it return the input unchanged.
const maxProgramInstructions = 4096

// rebuildPrefix replays p's instructions up to (excluding) upTo through a
// fresh builder, producing the exact in-scope variable set Append would see
// immediately before that instruction. InputMutator needs this to know which
// variables are actually legal replacements at the mutation site, not just
// which ones exist anywhere in the program.
func rebuildPrefix(p *ir.Program, upTo int) (*builder.ProgramBuilder, error) {
	b := builder.New(p.Context)
	if err := b.AppendAll(p.Instructions[:upTo]); err != nil {
		return nil, err
	}
	return b, nil
}
