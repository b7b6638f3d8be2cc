package mutators

import (
	"errors"
	"math/rand"

	"github.com/fuzzamoto/ir-engine/internal/ir"
	"github.com/fuzzamoto/ir-engine/internal/ir/builder"
)

// ErrProgramTooLarge is returned by a splicer whose result would exceed
// maxProgramInstructions.
var ErrProgramTooLarge = errors.New("mutators: spliced program exceeds the instruction cap")

// ConcatMutator appends spliceWith's instructions after program's, offsetting
// every one of spliceWith's input indices by program's variable count.
// program's own instructions are copied verbatim.
func ConcatMutator(program, spliceWith *ir.Program) (*ir.Program, error) {
	if len(program.Instructions)+len(spliceWith.Instructions) > maxProgramInstructions {
		return nil, ErrProgramTooLarge
	}
	b := builder.New(program.Context)
	if err := b.AppendAll(program.Instructions); err != nil {
		return nil, err
	}
	if err := b.AppendProgramWithoutThreshold(spliceWith, program.VariableCount()); err != nil {
		return nil, err
	}
	return b.Finalize()
}

// CombineMutator inserts the whole of spliceWith at a random global-context
// point inside program. Input indices inside spliceWith are shifted past the
// prefix's variables; input indices inside the retained suffix are shifted
// past the newly inserted variables.
func CombineMutator(program, spliceWith *ir.Program, rng *rand.Rand) (*ir.Program, error) {
	if len(program.Instructions)+len(spliceWith.Instructions) > maxProgramInstructions {
		return nil, ErrProgramTooLarge
	}

	insertAt := program.RandomInstructionIndex(rng.Intn, ir.ContextGlobal)
	if insertAt < 0 {
		insertAt = 0
	}

	prefix := &ir.Program{Context: program.Context, Instructions: program.Instructions[:insertAt]}
	suffix := &ir.Program{Context: program.Context, Instructions: program.Instructions[insertAt:]}
	prefixVarCount := prefix.VariableCount()

	b := builder.New(program.Context)
	if err := b.AppendAll(prefix.Instructions); err != nil {
		return nil, err
	}
	if err := b.AppendProgramWithoutThreshold(spliceWith, prefixVarCount); err != nil {
		return nil, err
	}
	if err := b.AppendProgram(suffix, prefixVarCount, spliceWith.VariableCount()); err != nil {
		return nil, err
	}
	return b.Finalize()
}
