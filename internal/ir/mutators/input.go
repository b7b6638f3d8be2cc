package mutators

import (
	"math/rand"

	"github.com/fuzzamoto/ir-engine/internal/ir"
)

// InputMutator retargets one input slot of a randomly chosen
// is_input_mutable instruction to a different in-scope variable of the
// same type.
type InputMutator struct{}

func (InputMutator) Name() string { return "InputMutator" }

func (InputMutator) Mutate(p *ir.Program, rng *rand.Rand) (*ir.Program, bool) {
	order := rng.Perm(len(p.Instructions))

	for _, idx := range order {
		instr := p.Instructions[idx]
		if !instr.IsInputMutable() || len(instr.Inputs) == 0 {
			continue
		}
		wantTypes := instr.Operation.InputTypes()

		for _, slot := range rng.Perm(len(instr.Inputs)) {
			b, err := rebuildPrefix(p, idx)
			if err != nil {
				continue // a prior mutation may have already broken this prefix
			}
			current := instr.Inputs[slot]
			var alts []int
			for _, v := range b.GetAllVariable(wantTypes[slot]) {
				if v.Index != current {
					alts = append(alts, v.Index)
				}
			}
			if len(alts) == 0 {
				continue
			}
			out := p.Clone()
			out.Instructions[idx].Inputs[slot] = alts[rng.Intn(len(alts))]
			return out, true
		}
	}
	return p, false
}
