// Package builder implements ProgramBuilder, the single construction and
// validation engine for IR programs.
package builder

import "github.com/fuzzamoto/ir-engine/internal/ir"

// deadScopeID is the sentinel scope that Nop outputs are bound to: it is
// never pushed onto the active set, so a Nop output can exist in the
// variable table yet never be referenced again.
const deadScopeID = 0

// globalScopeID is the outer scope created at builder construction and
// never exited.
const globalScopeID = 1

// scope is a stack-ordered region of variable visibility, opened by a
// block-begin instruction and torn down by its matching block-end.
type scope struct {
	id          int
	context     ir.InstructionContext
	beginOp     ir.OpKind
	beginIndex  int // index into builder.instructions of the begin instruction
	hasBeginOp  bool
}

// scopedVariable is one variable-table entry: its declared type and the
// scope that owns it.
type scopedVariable struct {
	typ   ir.Variable
	scope int
}

// IndexedVariable names a variable by its table index and declared type, the
// unit generators and mutators select among.
type IndexedVariable struct {
	Index int
	Type  ir.Variable
}
