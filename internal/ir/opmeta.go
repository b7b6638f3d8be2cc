package ir

// opNames mirrors the Rust Display impl's enum-variant names so textual
// dumps and error messages read the same as the original engine's.
var opNames = map[OpKind]string{
	OpNop: "Nop",

	OpLoadBytes:             "LoadBytes",
	OpLoadMsgType:           "LoadMsgType",
	OpLoadNode:              "LoadNode",
	OpLoadConnection:        "LoadConnection",
	OpLoadConnectionType:    "LoadConnectionType",
	OpLoadDuration:          "LoadDuration",
	OpLoadAddr:              "LoadAddr",
	OpLoadTime:              "LoadTime",
	OpLoadSize:              "LoadSize",
	OpLoadBlockHeight:       "LoadBlockHeight",
	OpLoadCompactFilterType: "LoadCompactFilterType",
	OpLoadPrivateKey:        "LoadPrivateKey",
	OpLoadSigHashFlags:      "LoadSigHashFlags",
	OpLoadAmount:            "LoadAmount",
	OpLoadTxVersion:         "LoadTxVersion",
	OpLoadBlockVersion:      "LoadBlockVersion",
	OpLoadLockTime:          "LoadLockTime",
	OpLoadSequence:          "LoadSequence",
	OpLoadNonce:             "LoadNonce",
	OpLoadTxo:               "LoadTxo",
	OpLoadHeader:            "LoadHeader",
	OpLoadFilterLoad:        "LoadFilterLoad",
	OpLoadFilterAdd:         "LoadFilterAdd",

	OpBuildPayToPubKey:            "BuildPayToPubKey",
	OpBuildPayToPubKeyHash:        "BuildPayToPubKeyHash",
	OpBuildPayToWitnessPubKeyHash: "BuildPayToWitnessPubKeyHash",
	OpBuildPayToWitnessScriptHash: "BuildPayToWitnessScriptHash",
	OpBuildPayToScriptHash:        "BuildPayToScriptHash",
	OpBuildPayToTaproot:           "BuildPayToTaproot",
	OpBuildPayToAnchor:            "BuildPayToAnchor",
	OpBuildOpReturnScripts:        "BuildOpReturnScripts",
	OpBuildRawScripts:             "BuildRawScripts",

	OpBeginBuildTx:                "BeginBuildTx",
	OpEndBuildTx:                  "EndBuildTx",
	OpBeginBuildTxInputs:          "BeginBuildTxInputs",
	OpEndBuildTxInputs:            "EndBuildTxInputs",
	OpBeginBuildTxOutputs:         "BeginBuildTxOutputs",
	OpEndBuildTxOutputs:           "EndBuildTxOutputs",
	OpBeginWitnessStack:           "BeginWitnessStack",
	OpEndWitnessStack:             "EndWitnessStack",
	OpBeginBuildInventory:         "BeginBuildInventory",
	OpEndBuildInventory:           "EndBuildInventory",
	OpBeginBuildAddrList:          "BeginBuildAddrList",
	OpEndBuildAddrList:            "EndBuildAddrList",
	OpBeginBuildAddrListV2:        "BeginBuildAddrListV2",
	OpEndBuildAddrListV2:          "EndBuildAddrListV2",
	OpBeginBlockTransactions:      "BeginBlockTransactions",
	OpEndBlockTransactions:        "EndBlockTransactions",
	OpBeginBuildFilterLoad:        "BeginBuildFilterLoad",
	OpEndBuildFilterLoad:          "EndBuildFilterLoad",
	OpBeginBuildCoinbaseTx:        "BeginBuildCoinbaseTx",
	OpEndBuildCoinbaseTx:          "EndBuildCoinbaseTx",
	OpBeginBuildCoinbaseTxOutputs: "BeginBuildCoinbaseTxOutputs",
	OpEndBuildCoinbaseTxOutputs:   "EndBuildCoinbaseTxOutputs",
	OpBeginBuildBlockTxn:          "BeginBuildBlockTxn",
	OpEndBuildBlockTxn:            "EndBuildBlockTxn",

	OpAddTxInput:           "AddTxInput",
	OpAddTxOutput:          "AddTxOutput",
	OpAddWitness:           "AddWitness",
	OpAddTxidInv:           "AddTxidInv",
	OpAddWtxidInv:          "AddWtxidInv",
	OpAddTxidWithWitnessInv: "AddTxidWithWitnessInv",
	OpAddBlockInv:          "AddBlockInv",
	OpAddBlockWithWitnessInv: "AddBlockWithWitnessInv",
	OpAddCompactBlockInv:   "AddCompactBlockInv",
	OpAddFilteredBlockInv:  "AddFilteredBlockInv",
	OpAddTx:                "AddTx",
	OpAddAddr:              "AddAddr",
	OpAddAddrV2:            "AddAddrV2",
	OpAddTxToFilter:        "AddTxToFilter",
	OpAddTxoToFilter:       "AddTxoToFilter",
	OpAddTxToBlockTxn:      "AddTxToBlockTxn",
	OpAddCoinbaseTxOutput:  "AddCoinbaseTxOutput",

	OpTakeTxo:            "TakeTxo",
	OpTakeCoinbaseTxo:    "TakeCoinbaseTxo",
	OpTaprootTxoUseAnnex: "TaprootTxoUseAnnex",

	OpAdvanceTime:                       "AdvanceTime",
	OpSetTime:                           "SetTime",
	OpBuildBlock:                        "BuildBlock",
	OpBuildCompactBlock:                 "BuildCompactBlock",
	OpBuildBIP152BlockTxReqFromMetadata: "BuildBIP152BlockTxReqFromMetadata",
	OpBuildFilterAddFromTx:              "BuildFilterAddFromTx",
	OpBuildFilterAddFromTxo:             "BuildFilterAddFromTxo",
	OpBuildTaprootTree:                  "BuildTaprootTree",
	OpBuildCoinbaseTxInput:              "BuildCoinbaseTxInput",

	OpSendRawMessage:   "SendRawMessage",
	OpSendTx:           "SendTx",
	OpSendTxNoWit:      "SendTxNoWit",
	OpSendBlock:        "SendBlock",
	OpSendBlockNoWit:   "SendBlockNoWit",
	OpSendHeader:       "SendHeader",
	OpSendInv:          "SendInv",
	OpSendGetData:      "SendGetData",
	OpSendGetAddr:      "SendGetAddr",
	OpSendAddr:         "SendAddr",
	OpSendAddrV2:       "SendAddrV2",
	OpSendGetCFilters:  "SendGetCFilters",
	OpSendGetCFHeaders: "SendGetCFHeaders",
	OpSendGetCFCheckpt: "SendGetCFCheckpt",
	OpSendFilterLoad:   "SendFilterLoad",
	OpSendFilterAdd:    "SendFilterAdd",
	OpSendFilterClear:  "SendFilterClear",
	OpSendCompactBlock: "SendCompactBlock",
	OpSendBlockTxn:     "SendBlockTxn",
}

// NumInputs returns the operation's fixed input arity.
func (o Operation) NumInputs() int {
	switch o.Kind {
	case OpNop,
		OpLoadBytes, OpLoadMsgType, OpLoadNode, OpLoadConnection, OpLoadConnectionType,
		OpLoadDuration, OpLoadAddr, OpLoadTime, OpLoadSize, OpLoadBlockHeight,
		OpLoadCompactFilterType, OpLoadPrivateKey, OpLoadSigHashFlags, OpLoadAmount,
		OpLoadTxVersion, OpLoadBlockVersion, OpLoadLockTime, OpLoadSequence, OpLoadNonce,
		OpLoadTxo, OpLoadHeader, OpLoadFilterLoad, OpLoadFilterAdd,
		OpBuildRawScripts, OpBuildOpReturnScripts,
		OpBeginBuildTx, OpBeginWitnessStack, OpBeginBuildInventory, OpBeginBuildAddrList,
		OpBeginBuildAddrListV2, OpBeginBlockTransactions, OpBeginBuildFilterLoad,
		OpBeginBuildCoinbaseTx, OpBeginBuildBlockTxn:
		return 0

	case OpBuildPayToPubKey, OpBuildPayToPubKeyHash, OpBuildPayToWitnessPubKeyHash:
		return 1 // private key

	case OpBuildPayToWitnessScriptHash, OpBuildPayToScriptHash:
		return 1 // inner Scripts

	case OpBuildPayToTaproot:
		return 1 // private key (script-path tree built internally from context)

	case OpBuildPayToAnchor:
		return 0

	case OpEndBuildTx, OpEndBuildTxInputs, OpEndBuildTxOutputs, OpEndWitnessStack,
		OpEndBuildInventory, OpEndBuildAddrList, OpEndBuildAddrListV2,
		OpEndBlockTransactions, OpEndBuildFilterLoad, OpEndBuildCoinbaseTx,
		OpEndBuildBlockTxn:
		return 1 // the matching Mut* container

	case OpBeginBuildTxInputs, OpBeginBuildTxOutputs, OpBeginBuildCoinbaseTxOutputs:
		return 1 // the enclosing MutTx / MutCoinbaseTx

	case OpEndBuildCoinbaseTxOutputs:
		return 1

	case OpAddTxInput, OpAddTxOutput, OpAddWitness, OpAddTxidInv, OpAddWtxidInv,
		OpAddTxidWithWitnessInv, OpAddBlockInv, OpAddBlockWithWitnessInv,
		OpAddCompactBlockInv, OpAddFilteredBlockInv, OpAddTx, OpAddAddr, OpAddAddrV2,
		OpAddTxToFilter, OpAddTxoToFilter, OpAddTxToBlockTxn, OpAddCoinbaseTxOutput:
		return 2 // container, element

	case OpTakeTxo, OpTakeCoinbaseTxo:
		return 1

	case OpTaprootTxoUseAnnex:
		return 1

	case OpAdvanceTime:
		return 2 // time, duration
	case OpSetTime:
		return 1

	case OpBuildBlock:
		return 5 // coinbase tx, header, time, block version, block-txns
	case OpBuildCompactBlock:
		return 2 // block, nonce
	case OpBuildBIP152BlockTxReqFromMetadata:
		return 1 // block
	case OpBuildFilterAddFromTx:
		return 2 // filter, tx
	case OpBuildFilterAddFromTxo:
		return 2 // filter, txo
	case OpBuildTaprootTree:
		return 1 // private key
	case OpBuildCoinbaseTxInput:
		return 1 // block height

	case OpSendRawMessage:
		return 3 // connection, msgtype, bytes
	case OpSendTx, OpSendTxNoWit, OpSendHeader, OpSendInv, OpSendGetData,
		OpSendAddr, OpSendAddrV2, OpSendFilterAdd, OpSendCompactBlock, OpSendBlockTxn:
		return 2 // connection, payload
	case OpSendBlock, OpSendBlockNoWit:
		return 2 // connection, block
	case OpSendGetAddr, OpSendFilterClear:
		return 1 // connection
	case OpSendGetCFilters, OpSendGetCFHeaders, OpSendGetCFCheckpt:
		return 2 // connection, filter type
	case OpSendFilterLoad:
		return 2 // connection, filter
	}
	panic("ir: NumInputs: unhandled operation kind")
}

// NumOutputs returns the number of regular (non-inner) SSA outputs. It is
// defined in terms of OutputTypes so the two can never disagree: callers
// that only need a count (VariableCount, RemoveNops) still walk the same
// source of truth as callers that need the types (builder.Append).
func (o Operation) NumOutputs() int {
	if o.Kind == OpNop {
		return o.NopOutputs
	}
	return len(o.OutputTypes())
}

// NumInnerOutputs returns the number of scope-owned container outputs a
// block-begin instruction additionally produces (the Mut* handle usable only
// inside the scope it opens).
func (o Operation) NumInnerOutputs() int {
	if o.Kind == OpNop {
		return o.NopInnerOutputs
	}
	return len(o.InnerOutputTypes())
}

// OutputTypes returns the type of each regular output, in order.
func (o Operation) OutputTypes() []Variable {
	switch o.Kind {
	case OpNop:
		return nil
	case OpLoadBytes:
		return []Variable{VarBytes}
	case OpLoadMsgType:
		return []Variable{VarMsgType}
	case OpLoadNode:
		return []Variable{VarNode}
	case OpLoadConnection:
		return []Variable{VarConnection}
	case OpLoadConnectionType:
		return []Variable{VarConnectionType}
	case OpLoadDuration:
		return []Variable{VarDuration}
	case OpLoadAddr:
		return []Variable{VarBytes}
	case OpLoadTime:
		return []Variable{VarTime}
	case OpLoadSize:
		return []Variable{VarSize}
	case OpLoadBlockHeight:
		return []Variable{VarBlockHeight}
	case OpLoadCompactFilterType:
		return []Variable{VarCompactFilterType}
	case OpLoadPrivateKey:
		return []Variable{VarPrivateKey}
	case OpLoadSigHashFlags:
		return []Variable{VarSigHashFlags}
	case OpLoadAmount:
		return []Variable{VarConstAmount}
	case OpLoadTxVersion:
		return []Variable{VarTxVersion}
	case OpLoadBlockVersion:
		return []Variable{VarBlockVersion}
	case OpLoadLockTime:
		return []Variable{VarLockTime}
	case OpLoadSequence:
		return []Variable{VarSequence}
	case OpLoadNonce:
		return []Variable{VarNonce}
	case OpLoadTxo:
		return []Variable{VarTxo}
	case OpLoadHeader:
		return []Variable{VarHeader}
	case OpLoadFilterLoad, OpLoadFilterAdd:
		return []Variable{VarBytes}

	case OpBuildPayToPubKey, OpBuildPayToPubKeyHash, OpBuildPayToWitnessPubKeyHash,
		OpBuildPayToWitnessScriptHash, OpBuildPayToScriptHash, OpBuildPayToTaproot,
		OpBuildPayToAnchor, OpBuildOpReturnScripts, OpBuildRawScripts:
		return []Variable{VarScripts}

	case OpEndBuildTx:
		return []Variable{VarConstTx}
	case OpEndBuildTxInputs:
		return []Variable{VarConstTxInputs}
	case OpEndBuildTxOutputs:
		return []Variable{VarConstTxOutputs}
	case OpEndWitnessStack:
		return []Variable{VarConstWitnessStack}
	case OpEndBuildInventory:
		return []Variable{VarConstInventory}
	case OpEndBuildAddrList:
		return []Variable{VarConstAddrList}
	case OpEndBuildAddrListV2:
		return []Variable{VarConstAddrListV2}
	case OpEndBlockTransactions:
		return []Variable{VarConstBlockTransactions}
	case OpEndBuildFilterLoad:
		return []Variable{VarConstFilterLoad}
	case OpEndBuildCoinbaseTx:
		return []Variable{VarConstCoinbaseTx}
	case OpEndBuildCoinbaseTxOutputs:
		return []Variable{VarConstCoinbaseTxOutputs}
	case OpEndBuildBlockTxn:
		return []Variable{VarConstBlockTxn}

	case OpTakeTxo, OpTakeCoinbaseTxo, OpTaprootTxoUseAnnex:
		return nil

	case OpBuildBlock:
		return []Variable{VarHeader, VarBlock}
	case OpBuildCompactBlock:
		return []Variable{VarBytes}
	case OpBuildBIP152BlockTxReqFromMetadata:
		return []Variable{VarBytes}
	case OpBuildFilterAddFromTx, OpBuildFilterAddFromTxo:
		return []Variable{VarBytes}
	case OpBuildTaprootTree:
		return []Variable{VarScripts}
	case OpBuildCoinbaseTxInput:
		return []Variable{VarScripts}

	case OpAdvanceTime:
		return []Variable{VarTime}

	default:
		return nil
	}
}

// InputTypes returns the declared type of each input operand, in order.
func (o Operation) InputTypes() []Variable {
	switch o.Kind {
	case OpBuildPayToPubKey, OpBuildPayToPubKeyHash, OpBuildPayToWitnessPubKeyHash,
		OpBuildPayToTaproot:
		return []Variable{VarPrivateKey}
	case OpBuildPayToWitnessScriptHash, OpBuildPayToScriptHash:
		return []Variable{VarScripts}
	case OpBuildTaprootTree:
		return []Variable{VarPrivateKey}
	case OpBuildCoinbaseTxInput:
		return []Variable{VarBlockHeight}

	case OpEndBuildTx:
		return []Variable{VarMutTx}
	case OpEndBuildTxInputs:
		return []Variable{VarMutTxInputs}
	case OpEndBuildTxOutputs:
		return []Variable{VarMutTxOutputs}
	case OpEndWitnessStack:
		return []Variable{VarMutWitnessStack}
	case OpEndBuildInventory:
		return []Variable{VarMutInventory}
	case OpEndBuildAddrList:
		return []Variable{VarMutAddrList}
	case OpEndBuildAddrListV2:
		return []Variable{VarMutAddrListV2}
	case OpEndBlockTransactions:
		return []Variable{VarMutBlockTransactions}
	case OpEndBuildFilterLoad:
		return []Variable{VarMutFilterLoad}
	case OpEndBuildCoinbaseTx:
		return []Variable{VarMutCoinbaseTx}
	case OpEndBuildCoinbaseTxOutputs:
		return []Variable{VarMutCoinbaseTxOutputs}
	case OpEndBuildBlockTxn:
		return []Variable{VarMutBlockTxn}

	case OpBeginBuildTxInputs, OpBeginBuildTxOutputs:
		return []Variable{VarMutTx}
	case OpBeginBuildCoinbaseTxOutputs:
		return []Variable{VarMutCoinbaseTx}

	case OpAddTxInput:
		return []Variable{VarMutTxInputs, VarTxo}
	case OpAddTxOutput:
		return []Variable{VarMutTxOutputs, VarScripts}
	case OpAddWitness:
		return []Variable{VarMutWitnessStack, VarBytes}
	case OpAddTxidInv, OpAddWtxidInv, OpAddTxidWithWitnessInv:
		return []Variable{VarMutInventory, VarConstTx}
	case OpAddBlockInv, OpAddBlockWithWitnessInv, OpAddCompactBlockInv, OpAddFilteredBlockInv:
		return []Variable{VarMutInventory, VarBlock}
	case OpAddTx:
		return []Variable{VarMutBlockTransactions, VarConstTx}
	case OpAddAddr:
		return []Variable{VarMutAddrList, VarBytes}
	case OpAddAddrV2:
		return []Variable{VarMutAddrListV2, VarBytes}
	case OpAddTxToFilter:
		return []Variable{VarMutFilterLoad, VarConstTx}
	case OpAddTxoToFilter:
		return []Variable{VarMutFilterLoad, VarTxo}
	case OpAddTxToBlockTxn:
		return []Variable{VarMutBlockTxn, VarConstTx}
	case OpAddCoinbaseTxOutput:
		return []Variable{VarMutCoinbaseTxOutputs, VarScripts}

	case OpTakeTxo, OpTakeCoinbaseTxo:
		return []Variable{VarTxo}
	case OpTaprootTxoUseAnnex:
		return []Variable{VarTxo}

	case OpAdvanceTime:
		return []Variable{VarTime, VarDuration}
	case OpSetTime:
		return []Variable{VarTime}

	case OpBuildBlock:
		return []Variable{VarConstCoinbaseTx, VarHeader, VarTime, VarBlockVersion, VarConstBlockTransactions}
	case OpBuildCompactBlock:
		return []Variable{VarBlock, VarNonce}
	case OpBuildBIP152BlockTxReqFromMetadata:
		return []Variable{VarBlock}
	case OpBuildFilterAddFromTx:
		return []Variable{VarMutFilterLoad, VarConstTx}
	case OpBuildFilterAddFromTxo:
		return []Variable{VarMutFilterLoad, VarTxo}

	case OpSendRawMessage:
		return []Variable{VarConnection, VarMsgType, VarBytes}
	case OpSendTx, OpSendTxNoWit:
		return []Variable{VarConnection, VarConstTx}
	case OpSendBlock, OpSendBlockNoWit:
		return []Variable{VarConnection, VarBlock}
	case OpSendHeader:
		return []Variable{VarConnection, VarHeader}
	case OpSendInv:
		return []Variable{VarConnection, VarConstInventory}
	case OpSendGetData:
		return []Variable{VarConnection, VarConstInventory}
	case OpSendGetAddr:
		return []Variable{VarConnection}
	case OpSendAddr:
		return []Variable{VarConnection, VarConstAddrList}
	case OpSendAddrV2:
		return []Variable{VarConnection, VarConstAddrListV2}
	case OpSendGetCFilters, OpSendGetCFHeaders, OpSendGetCFCheckpt:
		return []Variable{VarConnection, VarCompactFilterType}
	case OpSendFilterLoad:
		return []Variable{VarConnection, VarConstFilterLoad}
	case OpSendFilterAdd:
		return []Variable{VarConnection, VarBytes}
	case OpSendFilterClear:
		return []Variable{VarConnection}
	case OpSendCompactBlock:
		return []Variable{VarConnection, VarBytes}
	case OpSendBlockTxn:
		return []Variable{VarConnection, VarConstBlockTxn}
	}
	return nil
}

// InnerOutputTypes returns the type of the scope-owned container a
// block-begin instruction produces (the Mut* handle usable only inside the
// scope it opens). Non-block-begin operations return nil.
func (o Operation) InnerOutputTypes() []Variable {
	switch o.Kind {
	case OpBeginBuildTx:
		return []Variable{VarMutTx}
	case OpBeginBuildTxInputs:
		return []Variable{VarMutTxInputs}
	case OpBeginBuildTxOutputs:
		return []Variable{VarMutTxOutputs}
	case OpBeginWitnessStack:
		return []Variable{VarMutWitnessStack}
	case OpBeginBuildInventory:
		return []Variable{VarMutInventory}
	case OpBeginBuildAddrList:
		return []Variable{VarMutAddrList}
	case OpBeginBuildAddrListV2:
		return []Variable{VarMutAddrListV2}
	case OpBeginBlockTransactions:
		return []Variable{VarMutBlockTransactions}
	case OpBeginBuildFilterLoad:
		return []Variable{VarMutFilterLoad}
	case OpBeginBuildCoinbaseTx:
		return []Variable{VarMutCoinbaseTx}
	case OpBeginBuildCoinbaseTxOutputs:
		return []Variable{VarMutCoinbaseTxOutputs}
	case OpBeginBuildBlockTxn:
		return []Variable{VarMutBlockTxn}
	default:
		return nil
	}
}

// IsBlockBegin reports whether the operation opens a new scope.
func (o Operation) IsBlockBegin() bool {
	switch o.Kind {
	case OpBeginBuildTx, OpBeginBuildTxInputs, OpBeginBuildTxOutputs, OpBeginWitnessStack,
		OpBeginBuildInventory, OpBeginBuildAddrList, OpBeginBuildAddrListV2,
		OpBeginBlockTransactions, OpBeginBuildFilterLoad, OpBeginBuildCoinbaseTx,
		OpBeginBuildCoinbaseTxOutputs, OpBeginBuildBlockTxn:
		return true
	default:
		return false
	}
}

// IsBlockEnd reports whether the operation closes the innermost scope.
func (o Operation) IsBlockEnd() bool {
	switch o.Kind {
	case OpEndBuildTx, OpEndBuildTxInputs, OpEndBuildTxOutputs, OpEndWitnessStack,
		OpEndBuildInventory, OpEndBuildAddrList, OpEndBuildAddrListV2,
		OpEndBlockTransactions, OpEndBuildFilterLoad, OpEndBuildCoinbaseTx,
		OpEndBuildCoinbaseTxOutputs, OpEndBuildBlockTxn:
		return true
	default:
		return false
	}
}

// matchingBegin maps each block-end to the begin operation it must close.
var matchingBegin = map[OpKind]OpKind{
	OpEndBuildTx:                OpBeginBuildTx,
	OpEndBuildTxInputs:          OpBeginBuildTxInputs,
	OpEndBuildTxOutputs:         OpBeginBuildTxOutputs,
	OpEndWitnessStack:           OpBeginWitnessStack,
	OpEndBuildInventory:         OpBeginBuildInventory,
	OpEndBuildAddrList:          OpBeginBuildAddrList,
	OpEndBuildAddrListV2:        OpBeginBuildAddrListV2,
	OpEndBlockTransactions:      OpBeginBlockTransactions,
	OpEndBuildFilterLoad:        OpBeginBuildFilterLoad,
	OpEndBuildCoinbaseTx:        OpBeginBuildCoinbaseTx,
	OpEndBuildCoinbaseTxOutputs: OpBeginBuildCoinbaseTxOutputs,
	OpEndBuildBlockTxn:          OpBeginBuildBlockTxn,
}

// IsMatchingBlockBegin reports whether begin is the block-begin that this
// block-end instruction is required to close.
func (o Operation) IsMatchingBlockBegin(begin OpKind) bool {
	want, ok := matchingBegin[o.Kind]
	return ok && want == begin
}

// EnteredContextAfterExecution returns the InstructionContext a block-begin
// instruction pushes the builder into. Non-block-begin operations return
// (ContextGlobal, false).
func (o Operation) EnteredContextAfterExecution() (InstructionContext, bool) {
	switch o.Kind {
	case OpBeginBuildTx:
		return ContextBuildTx, true
	case OpBeginBuildTxInputs:
		return ContextBuildTxInputs, true
	case OpBeginBuildTxOutputs:
		return ContextBuildTxOutputs, true
	case OpBeginWitnessStack:
		return ContextWitnessStack, true
	case OpBeginBuildInventory:
		return ContextInventory, true
	case OpBeginBuildAddrList:
		return ContextAddrList, true
	case OpBeginBuildAddrListV2:
		return ContextAddrListV2, true
	case OpBeginBlockTransactions:
		return ContextBlockTransactions, true
	case OpBeginBuildFilterLoad:
		return ContextBuildFilter, true
	case OpBeginBuildCoinbaseTx:
		return ContextBuildCoinbaseTx, true
	case OpBeginBuildCoinbaseTxOutputs:
		return ContextBuildCoinbaseTxOutputs, true
	case OpBeginBuildBlockTxn:
		return ContextBuildBlockTxn, true
	default:
		return ContextGlobal, false
	}
}

// IsInputMutable reports whether a mutator may retarget one of this
// instruction's input slots to a different in-scope variable of the same
// type. A handful of structural operations (block-ends, sequential
// consumers) must keep their exact input wiring.
func (o Operation) IsInputMutable(numInputs int) bool {
	switch o.Kind {
	case OpEndBuildTx, OpBeginBuildTxInputs, OpBeginBuildTxOutputs, OpEndBuildTxInputs,
		OpEndBuildTxOutputs, OpBeginBuildInventory, OpEndBuildInventory,
		OpEndBuildAddrList, OpEndBuildAddrListV2, OpBeginBlockTransactions,
		OpEndBlockTransactions, OpTakeTxo, OpBeginBuildCoinbaseTx, OpEndBuildCoinbaseTx,
		OpBeginBuildCoinbaseTxOutputs, OpEndBuildCoinbaseTxOutputs:
		return false
	default:
		return numInputs > 0
	}
}

// IsOperationMutable reports whether this operation's literal parameters (or
// the whole opcode, for small type-equivalent families) may be resampled in
// place by OperationMutator.
func (o Operation) IsOperationMutable() bool {
	switch o.Kind {
	case OpLoadAmount, OpLoadTxVersion, OpLoadSequence, OpLoadLockTime, OpLoadBlockVersion,
		OpLoadNode, OpLoadConnection, OpLoadConnectionType, OpLoadDuration, OpLoadAddr,
		OpLoadTime, OpLoadSize, OpLoadPrivateKey, OpLoadSigHashFlags, OpLoadBlockHeight,
		OpBuildPayToPubKey, OpBuildPayToPubKeyHash, OpBuildPayToWitnessPubKeyHash,
		OpAddTxidWithWitnessInv, OpAddTxidInv, OpAddWtxidInv, OpAddCompactBlockInv,
		OpAddBlockInv, OpAddBlockWithWitnessInv, OpAddFilteredBlockInv,
		OpSendTxNoWit, OpSendTx, OpAddAddrV2, OpLoadBytes:
		return true
	default:
		return false
	}
}

// IsNoppable reports whether NoppingMinimizer may rewrite this instruction
// into a Nop placeholder.
func (o Operation) IsNoppable() bool {
	switch o.Kind {
	case OpNop,
		OpBeginBuildTx, OpEndBuildTx, OpBeginBuildTxInputs, OpEndBuildTxInputs,
		OpBeginBuildTxOutputs, OpEndBuildTxOutputs, OpBeginWitnessStack, OpEndWitnessStack,
		OpBeginBuildInventory, OpEndBuildInventory, OpBeginBuildAddrList, OpEndBuildAddrList,
		OpBeginBuildAddrListV2, OpEndBuildAddrListV2, OpBeginBlockTransactions,
		OpEndBlockTransactions, OpBeginBuildFilterLoad, OpEndBuildFilterLoad,
		OpBuildCompactBlock, OpBeginBuildCoinbaseTx, OpEndBuildCoinbaseTx,
		OpBeginBuildCoinbaseTxOutputs, OpEndBuildCoinbaseTxOutputs,
		OpBeginBuildBlockTxn, OpEndBuildBlockTxn:
		return false
	default:
		return true
	}
}

// CheckInputTypes validates a concrete vector of input variable types
// against this operation's declared input-type contract.
func (o Operation) CheckInputTypes(actual []Variable) error {
	want := o.InputTypes()
	if len(actual) != len(want) {
		return &ErrInvalidNumberOfInputs{Is: len(actual), Expected: len(want)}
	}
	for i := range want {
		if actual[i] != want[i] {
			a := actual[i]
			return &ErrInvalidVariableType{Is: &a, Expected: want[i]}
		}
	}
	return nil
}
