package ir

// InstructionContext is the closed set of enclosing-block kinds. It
// determines which operations are legal at a given point in a program and is
// what a Generator's RequestedContext/ChooseIndex hook matches against.
type InstructionContext int

const (
	ContextGlobal InstructionContext = iota
	ContextBuildTx
	ContextBuildTxInputs
	ContextBuildTxOutputs
	ContextWitnessStack
	ContextInventory
	ContextAddrList
	ContextAddrListV2
	ContextBlockTransactions
	ContextBuildFilter
	ContextBuildCoinbaseTx
	ContextBuildCoinbaseTxOutputs
	ContextBuildBlockTxn
)

func (c InstructionContext) String() string {
	switch c {
	case ContextGlobal:
		return "Global"
	case ContextBuildTx:
		return "BuildTx"
	case ContextBuildTxInputs:
		return "BuildTxInputs"
	case ContextBuildTxOutputs:
		return "BuildTxOutputs"
	case ContextWitnessStack:
		return "WitnessStack"
	case ContextInventory:
		return "Inventory"
	case ContextAddrList:
		return "AddrList"
	case ContextAddrListV2:
		return "AddrListV2"
	case ContextBlockTransactions:
		return "BlockTransactions"
	case ContextBuildFilter:
		return "BuildFilter"
	case ContextBuildCoinbaseTx:
		return "BuildCoinbaseTx"
	case ContextBuildCoinbaseTxOutputs:
		return "BuildCoinbaseTxOutputs"
	case ContextBuildBlockTxn:
		return "BuildBlockTxn"
	default:
		return "UnknownContext"
	}
}
