// Package minimizers implements the three program-shrinking passes:
// NoppingMinimizer, CuttingMinimizer, and BlockMinimizer.
// Each takes a Predicate the caller uses to decide whether a shrunk candidate
// is still "interesting" (still reproduces whatever condition triggered
// minimization in the first place) and only keeps an edit that both
// revalidates through the builder and satisfies the predicate.
package minimizers

import (
	"github.com/fuzzamoto/ir-engine/internal/ir"
	"github.com/fuzzamoto/ir-engine/internal/ir/builder"
)

// Predicate reports whether candidate is still interesting enough to keep
// minimizing (e.g. it still compiles to a sequence that reproduces a crash).
// Minimizers never call Predicate on a program that fails to revalidate.
type Predicate func(candidate *ir.Program) bool

func revalidates(p *ir.Program) bool {
	_, err := builder.FromProgram(p)
	return err == nil
}

// NoppingMinimizer walks the program once, attempting to rewrite each
// noppable instruction into a Nop in place. An attempt is kept only if the
// resulting program still revalidates (nothing downstream still needs the
// nopped instruction's outputs) and still satisfies keep. The final program
// is compacted with RemoveNops so variable indices stay dense.
func NoppingMinimizer(p *ir.Program, keep Predicate) *ir.Program {
	working := p.Clone()
	for i := range working.Instructions {
		if !working.Instructions[i].IsNoppable() {
			continue
		}
		candidate := working.Clone()
		candidate.Instructions[i].Nop()
		if revalidates(candidate) && keep(candidate) {
			working = candidate
		}
	}
	return working.RemoveNops()
}

// nopRange rewrites every instruction in [lo, hi) into a Nop, skipping
// instructions that are already Nop (Instruction.Nop is idempotent on those
// regardless, but skipping avoids needlessly touching untouched operations).
func nopRange(p *ir.Program, lo, hi int) *ir.Program {
	out := p.Clone()
	for i := lo; i < hi && i < len(out.Instructions); i++ {
		out.Instructions[i].Nop()
	}
	return out
}

// CuttingMinimizer applies delta-debugging (ddmin) over contiguous
// instruction ranges: it repeatedly tries to nop out the largest chunk it
// can, halving chunk size whenever a chunk can't be removed, until no
// single-instruction chunk can be cut either. This removes independent dead
// stretches of a program far faster than the one-at-a-time NoppingMinimizer
// when many adjacent instructions are all irrelevant.
func CuttingMinimizer(p *ir.Program, keep Predicate) *ir.Program {
	working := p.Clone()
	n := len(working.Instructions)
	chunk := n / 2
	for chunk > 0 {
		progressed := false
		for lo := 0; lo < len(working.Instructions); {
			hi := lo + chunk
			if hi > len(working.Instructions) {
				hi = len(working.Instructions)
			}
			candidate := nopRange(working, lo, hi)
			if revalidates(candidate) && keep(candidate) {
				working = candidate.RemoveNops()
				progressed = true
				continue // re-try at the same lo against the shrunk program
			}
			lo = hi
		}
		if !progressed {
			chunk /= 2
		}
	}
	return working
}

// blockPairs returns every matched (beginIndex, endIndex) pair in program
// order, found by walking the same scope stack builder.Append maintains.
func blockPairs(p *ir.Program) [][2]int {
	var stack []int
	var pairs [][2]int
	for i, instr := range p.Instructions {
		if instr.Operation.IsBlockBegin() {
			stack = append(stack, i)
		} else if instr.Operation.IsBlockEnd() && len(stack) > 0 {
			begin := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			pairs = append(pairs, [2]int{begin, i})
		}
	}
	return pairs
}

// BlockMinimizer tries to remove each matched block-begin/block-end pair
// together with everything inside it in one shot. Begin/end instructions are
// never individually noppable (IsNoppable excludes them deliberately —
// an orphaned End with no matching Begin, or vice versa,
// would never revalidate), so they can only ever be shrunk away as a whole
// scope. Outermost pairs are tried first since removing one also removes
// every pair nested inside it.
func BlockMinimizer(p *ir.Program, keep Predicate) *ir.Program {
	working := p.Clone()
	for {
		pairs := blockPairs(working)
		if len(pairs) == 0 {
			return working
		}
		removedAny := false
		for _, pr := range pairs {
			candidate := nopRange(working, pr[0], pr[1]+1)
			if revalidates(candidate) && keep(candidate) {
				working = candidate.RemoveNops()
				removedAny = true
				break // pair indices are now stale; restart from fresh pairs
			}
		}
		if !removedAny {
			return working
		}
	}
}
