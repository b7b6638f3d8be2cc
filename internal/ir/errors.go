package ir

import "fmt"

// ErrVariableNotDefined is returned when an instruction references a
// variable index that is out of range or not currently in scope.
type ErrVariableNotDefined struct{ Index int }

func (e *ErrVariableNotDefined) Error() string {
	return fmt.Sprintf("ir: variable %d not defined or not in scope", e.Index)
}

// ErrNodeNotFound is returned when LoadNode references a node index outside
// the program context's node count.
type ErrNodeNotFound struct{ Index int }

func (e *ErrNodeNotFound) Error() string {
	return fmt.Sprintf("ir: node %d not found in program context", e.Index)
}

// ErrConnectionNotFound is returned when LoadConnection references a
// connection index outside the program context's connection count.
type ErrConnectionNotFound struct{ Index int }

func (e *ErrConnectionNotFound) Error() string {
	return fmt.Sprintf("ir: connection %d not found in program context", e.Index)
}

// ErrInvalidConnectionType is returned when LoadConnectionType carries a
// ConnectionType other than ConnectionInbound or ConnectionOutbound.
type ErrInvalidConnectionType struct{ Value string }

func (e *ErrInvalidConnectionType) Error() string {
	return fmt.Sprintf("ir: invalid connection type %q", e.Value)
}

// ErrInvalidVariableType is returned when an input's declared type does not
// match the operation's contract at that position.
type ErrInvalidVariableType struct {
	Is       *Variable
	Expected Variable
}

func (e *ErrInvalidVariableType) Error() string {
	if e.Is == nil {
		return fmt.Sprintf("ir: invalid variable type: expected %s, got none", e.Expected)
	}
	return fmt.Sprintf("ir: invalid variable type: expected %s, got %s", e.Expected, *e.Is)
}

// ErrInvalidNumberOfInputs is returned when an instruction's input count
// does not equal its operation's declared arity.
type ErrInvalidNumberOfInputs struct{ Is, Expected int }

func (e *ErrInvalidNumberOfInputs) Error() string {
	return fmt.Sprintf("ir: invalid number of inputs: expected %d, got %d", e.Expected, e.Is)
}

// ErrInvalidBlockEnd is returned when a block-end instruction's matching
// begin does not correspond to the scope it is closing.
type ErrInvalidBlockEnd struct {
	Begin OpKind
	End   OpKind
}

func (e *ErrInvalidBlockEnd) Error() string {
	return fmt.Sprintf("ir: invalid block end: %s does not close %s", opNames[e.End], opNames[e.Begin])
}

// ErrScopeStillOpen is returned by Finalize when more than the outer global
// scope remains active.
type ErrScopeStillOpen struct{}

func (e *ErrScopeStillOpen) Error() string { return "ir: scope still open at finalize" }

// ErrInvalidContextParameter is returned when an operation with a
// context-dependent numeric parameter (LoadNode, LoadConnection,
// LoadConnectionType) fails its range/enum check but isn't better described
// by one of the more specific errors above.
type ErrInvalidContextParameter struct{ Reason string }

func (e *ErrInvalidContextParameter) Error() string {
	return fmt.Sprintf("ir: invalid context parameter: %s", e.Reason)
}

// ErrSpliceInvalidIndex and ErrSpliceContextMismatch are the taxonomy returned by append_program-style
// splicing helpers (§4.2, §4.4 ConcatMutator/CombineMutator).
type ErrSpliceInvalidIndex struct{ Index int }

func (e *ErrSpliceInvalidIndex) Error() string {
	return fmt.Sprintf("ir: splice: invalid index %d", e.Index)
}

type ErrSpliceContextMismatch struct {
	Expected, Actual InstructionContext
}

func (e *ErrSpliceContextMismatch) Error() string {
	return fmt.Sprintf("ir: splice: context mismatch: expected %s, got %s", e.Expected, e.Actual)
}
