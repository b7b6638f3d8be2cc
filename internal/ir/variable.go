// Package ir implements the Fuzzamoto intermediate representation: a typed,
// scoped, SSA-style instruction language describing sequences of Bitcoin
// peer-to-peer actions.
package ir

// Variable is the closed enumeration of static types a value produced by the
// IR can carry. Every variable-table entry, instruction input, and
// instruction output is one of these.
type Variable int

const (
	VarNop Variable = iota
	VarBytes
	VarMsgType
	VarNode
	VarConnection
	VarConnectionType
	VarDuration
	VarTime
	VarSize
	VarBlockHeight
	VarCompactFilterType
	VarPrivateKey
	VarSigHashFlags
	VarTxo
	VarNonce
	VarConstAmount
	VarTxVersion
	VarBlockVersion
	VarLockTime
	VarSequence
	VarHeader
	VarBlock

	// Mutable containers, writable only inside the scope that owns them.
	VarMutTx
	VarMutTxInputs
	VarMutTxOutputs
	VarMutInventory
	VarMutAddrList
	VarMutAddrListV2
	VarMutBlockTransactions
	VarMutWitnessStack
	VarMutFilterLoad
	VarMutCoinbaseTx
	VarMutCoinbaseTxOutputs
	VarMutBlockTxn

	// Finalised, freely reusable counterparts produced at scope close.
	VarConstTx
	VarConstTxInputs
	VarConstTxOutputs
	VarConstInventory
	VarConstAddrList
	VarConstAddrListV2
	VarConstBlockTransactions
	VarConstWitnessStack
	VarConstFilterLoad
	VarConstCoinbaseTx
	VarConstCoinbaseTxOutputs
	VarConstBlockTxn

	VarScripts
)

// String names follow the Rust source's enum variant names so textual
// program dumps match the names used in the original engine.
var variableNames = map[Variable]string{
	VarNop:                    "Nop",
	VarBytes:                  "Bytes",
	VarMsgType:                "MsgType",
	VarNode:                   "Node",
	VarConnection:             "Connection",
	VarConnectionType:         "ConnectionType",
	VarDuration:               "Duration",
	VarTime:                   "Time",
	VarSize:                   "Size",
	VarBlockHeight:            "BlockHeight",
	VarCompactFilterType:      "CompactFilterType",
	VarPrivateKey:             "PrivateKey",
	VarSigHashFlags:           "SigHashFlags",
	VarTxo:                    "Txo",
	VarNonce:                  "Nonce",
	VarConstAmount:            "ConstAmount",
	VarTxVersion:              "TxVersion",
	VarBlockVersion:           "BlockVersion",
	VarLockTime:               "LockTime",
	VarSequence:               "Sequence",
	VarHeader:                 "Header",
	VarBlock:                  "Block",
	VarMutTx:                  "MutTx",
	VarMutTxInputs:            "MutTxInputs",
	VarMutTxOutputs:           "MutTxOutputs",
	VarMutInventory:           "MutInventory",
	VarMutAddrList:            "MutAddrList",
	VarMutAddrListV2:          "MutAddrListV2",
	VarMutBlockTransactions:   "MutBlockTransactions",
	VarMutWitnessStack:        "MutWitnessStack",
	VarMutFilterLoad:          "MutFilterLoad",
	VarMutCoinbaseTx:          "MutCoinbaseTx",
	VarMutCoinbaseTxOutputs:   "MutCoinbaseTxOutputs",
	VarMutBlockTxn:            "MutBlockTxn",
	VarConstTx:                "ConstTx",
	VarConstTxInputs:          "ConstTxInputs",
	VarConstTxOutputs:         "ConstTxOutputs",
	VarConstInventory:         "ConstInventory",
	VarConstAddrList:          "ConstAddrList",
	VarConstAddrListV2:        "ConstAddrListV2",
	VarConstBlockTransactions: "ConstBlockTransactions",
	VarConstWitnessStack:      "ConstWitnessStack",
	VarConstFilterLoad:        "ConstFilterLoad",
	VarConstCoinbaseTx:        "ConstCoinbaseTx",
	VarConstCoinbaseTxOutputs: "ConstCoinbaseTxOutputs",
	VarConstBlockTxn:          "ConstBlockTxn",
	VarScripts:                "Scripts",
}

func (v Variable) String() string {
	if name, ok := variableNames[v]; ok {
		return name
	}
	return "UnknownVariable"
}

// ConnectionType is the closed set of connection directions recorded by
// LoadConnectionType.
type ConnectionType int

const (
	ConnectionInbound ConnectionType = iota
	ConnectionOutbound
)

func (c ConnectionType) String() string {
	if c == ConnectionInbound {
		return "inbound"
	}
	return "outbound"
}
