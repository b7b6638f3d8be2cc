package ir

// OpKind is the closed enumeration of IR operations. Adding a variant here
// obliges a new entry in every table below (arity, output types, block
// semantics, mutability, noppability) and in the compiler's handler switch;
// the Go compiler's exhaustiveness is enforced by the default-panic arms,
// not by the language itself.
type OpKind int

const (
	OpNop OpKind = iota

	// Load* — literal loaders, no inputs.
	OpLoadBytes
	OpLoadMsgType
	OpLoadNode
	OpLoadConnection
	OpLoadConnectionType
	OpLoadDuration
	OpLoadAddr
	OpLoadTime
	OpLoadSize
	OpLoadBlockHeight
	OpLoadCompactFilterType
	OpLoadPrivateKey
	OpLoadSigHashFlags
	OpLoadAmount
	OpLoadTxVersion
	OpLoadBlockVersion
	OpLoadLockTime
	OpLoadSequence
	OpLoadNonce
	OpLoadTxo
	OpLoadHeader
	OpLoadFilterLoad
	OpLoadFilterAdd

	// Script builders.
	OpBuildPayToPubKey
	OpBuildPayToPubKeyHash
	OpBuildPayToWitnessPubKeyHash
	OpBuildPayToWitnessScriptHash
	OpBuildPayToScriptHash
	OpBuildPayToTaproot
	OpBuildPayToAnchor
	OpBuildOpReturnScripts
	OpBuildRawScripts

	// Structured block pairs.
	OpBeginBuildTx
	OpEndBuildTx
	OpBeginBuildTxInputs
	OpEndBuildTxInputs
	OpBeginBuildTxOutputs
	OpEndBuildTxOutputs
	OpBeginWitnessStack
	OpEndWitnessStack
	OpBeginBuildInventory
	OpEndBuildInventory
	OpBeginBuildAddrList
	OpEndBuildAddrList
	OpBeginBuildAddrListV2
	OpEndBuildAddrListV2
	OpBeginBlockTransactions
	OpEndBlockTransactions
	OpBeginBuildFilterLoad
	OpEndBuildFilterLoad
	OpBeginBuildCoinbaseTx
	OpEndBuildCoinbaseTx
	OpBeginBuildCoinbaseTxOutputs
	OpEndBuildCoinbaseTxOutputs
	OpBeginBuildBlockTxn
	OpEndBuildBlockTxn

	// Inserters.
	OpAddTxInput
	OpAddTxOutput
	OpAddWitness
	OpAddTxidInv
	OpAddWtxidInv
	OpAddTxidWithWitnessInv
	OpAddBlockInv
	OpAddBlockWithWitnessInv
	OpAddCompactBlockInv
	OpAddFilteredBlockInv
	OpAddTx
	OpAddAddr
	OpAddAddrV2
	OpAddTxToFilter
	OpAddTxoToFilter
	OpAddTxToBlockTxn
	OpAddCoinbaseTxOutput

	// Selectors.
	OpTakeTxo
	OpTakeCoinbaseTxo
	OpTaprootTxoUseAnnex

	// Transforms.
	OpAdvanceTime
	OpSetTime
	OpBuildBlock
	OpBuildCompactBlock
	OpBuildBIP152BlockTxReqFromMetadata
	OpBuildFilterAddFromTx
	OpBuildFilterAddFromTxo
	OpBuildTaprootTree
	OpBuildCoinbaseTxInput

	// Senders.
	OpSendRawMessage
	OpSendTx
	OpSendTxNoWit
	OpSendBlock
	OpSendBlockNoWit
	OpSendHeader
	OpSendInv
	OpSendGetData
	OpSendGetAddr
	OpSendAddr
	OpSendAddrV2
	OpSendGetCFilters
	OpSendGetCFHeaders
	OpSendGetCFCheckpt
	OpSendFilterLoad
	OpSendFilterAdd
	OpSendFilterClear
	OpSendCompactBlock
	OpSendBlockTxn
)

// HeaderLiteral is the payload of LoadHeader: the fields of a Bitcoin block
// header plus the height the compiler should attach to its synthesised
// successor block.
type HeaderLiteral struct {
	Prev       [32]byte
	MerkleRoot [32]byte
	Nonce      uint32
	Bits       uint32
	Time       uint32
	Version    int32
	Height     uint32
}

// TxoLiteral is the payload of LoadTxo: a pre-seeded unspent output taken
// from the FullProgramContext snapshot.
type TxoLiteral struct {
	Txid       [32]byte
	Vout       uint32
	Amount     int64
	ScriptKind string
}

// FilterLiteral is the payload of LoadFilterLoad/LoadFilterAdd.
type FilterLiteral struct {
	Data     []byte
	NHashFns uint32
	Tweak    uint32
	Flags    uint8
}

// AddrLiteral is the payload of LoadAddr; see metadata.AddrRecord for the
// richer host-side model generators build these from.
type AddrLiteral struct {
	Time     uint32
	Services uint64
	Network  uint8 // AddrNetwork, mirrored here to avoid an import cycle
	Payload  []byte
	Port     uint16
	IsV2     bool
}

// Operation is a single IR instruction's opcode plus its literal parameters.
// Only the fields relevant to Kind are populated; this is the Go analogue of
// a Rust enum-with-data, expressed as a tagged struct rather than an
// interface{} so dispatch stays a closed switch instead of a type
// assertion/reflection chain.
type Operation struct {
	Kind OpKind

	Bytes        []byte
	MsgType      [12]byte
	NodeIndex    uint32
	ConnIndex    uint32
	ConnType     ConnectionType
	Duration     uint64
	Addr         AddrLiteral
	Time         uint32
	Size         uint64
	BlockHeight  uint32
	CFilterType  uint8
	PrivateKey   [32]byte
	SigHashFlags uint32
	Amount       int64
	TxVersion    int32
	BlockVersion int32
	LockTime     uint32
	Sequence     uint32
	Nonce        uint32
	Header       HeaderLiteral
	Txo          TxoLiteral
	Filter       FilterLiteral

	NopOutputs      int
	NopInnerOutputs int
}

func (o Operation) String() string {
	if name, ok := opNames[o.Kind]; ok {
		return name
	}
	return "UnknownOperation"
}
