package ir

import (
	"fmt"
	"strings"
)

// String renders the program in its textual form: a commented context
// header followed by one SSA-style line per
// instruction, indented by block depth. Depth increases immediately after a
// block-begin line is printed and decreases immediately before the matching
// block-end line is printed.
func (p *Program) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "// Context: nodes=%d connections=%d timestamp=%d\n",
		p.Context.Nodes, p.Context.Connections, p.Context.Timestamp)

	varIdx := 0
	depth := 0
	for _, instr := range p.Instructions {
		if instr.Operation.IsBlockEnd() {
			if depth > 0 {
				depth--
			}
		}
		b.WriteString(strings.Repeat("  ", depth))

		outputs := instr.Operation.NumOutputs()
		inner := instr.Operation.NumInnerOutputs()
		total := outputs + inner
		names := make([]string, 0, total)
		for i := 0; i < total; i++ {
			names = append(names, fmt.Sprintf("v%d", varIdx+i))
		}
		varIdx += total

		lhs := ""
		if len(names) > 0 {
			lhs = strings.Join(names, ", ") + " <- "
		}

		ins := make([]string, len(instr.Inputs))
		for i, idx := range instr.Inputs {
			ins[i] = fmt.Sprintf("v%d", idx)
		}

		fmt.Fprintf(&b, "%s%s(%s)\n", lhs, instr.Operation.String(), strings.Join(ins, ", "))

		if instr.Operation.IsBlockBegin() {
			depth++
		}
	}
	return b.String()
}
